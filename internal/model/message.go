package model

import (
	"time"

	"github.com/nhle/mail-reconciler/internal/normalize"
)

// Message is a single inbound mail message fetched from the mailbox.
type Message struct {
	// UID is the message's IMAP UID within the selected mailbox.
	UID uint32 `json:"uid"`

	// MessageID is the RFC 5322 Message-ID header value as reported by
	// the server envelope.
	MessageID string `json:"message_id"`

	// From is the sender's bare addr-spec, display name dropped.
	From string `json:"from"`

	// Subject is the raw, unnormalized Subject header value.
	Subject string `json:"subject"`

	// Date is the message date taken from the envelope.
	Date time.Time `json:"date"`

	// Body is the extracted plain-text body.
	Body string `json:"body"`

	// Processed marks messages already analyzed during the current run.
	Processed bool `json:"-"`
}

// Thread is an ordered group of messages sharing a normalized subject.
// Messages keep their mailbox order.
type Thread struct {
	// Subject is the normalized subject every message in the thread
	// grouped under.
	Subject string `json:"subject"`

	// Messages holds the thread's messages in mailbox order.
	Messages []*Message `json:"messages"`

	// Context carries auxiliary values attached while the thread is
	// being analyzed.
	Context map[string]string `json:"context,omitempty"`
}

// NewThread starts a thread keyed by the given normalized subject.
func NewThread(subject string, first *Message) *Thread {
	return &Thread{
		Subject:  subject,
		Messages: []*Message{first},
		Context:  map[string]string{},
	}
}

// Append adds a message to the end of the thread.
func (t *Thread) Append(msg *Message) {
	t.Messages = append(t.Messages, msg)
}

// Participants returns the distinct sender addresses of the thread's
// messages in normalized form, in first-seen order.
func (t *Thread) Participants() []string {
	seen := make(map[string]struct{}, len(t.Messages))
	out := make([]string, 0, len(t.Messages))
	for _, m := range t.Messages {
		addr := normalize.Email(m.From)
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// SentItem describes a previously sent outbound message whose reply is
// being looked for in the mailbox.
type SentItem struct {
	// MessageID is the Message-ID assigned when the item was sent.
	MessageID string `json:"message_id"`

	// References lists ancestor message identifiers, oldest first.
	References []string `json:"references,omitempty"`

	// Subject is the normalized subject the item was sent under.
	Subject string `json:"subject"`

	// To is the recipient address the item was sent to.
	To string `json:"to"`

	// Date is the send date as recorded at send time, in RFC 2822 form.
	// It may be malformed; consumers fall back to a recent window.
	Date string `json:"date"`
}
