package email

import (
	"context"
	netmail "net/mail"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/rs/zerolog"

	"github.com/nhle/mail-reconciler/internal/model"
	"github.com/nhle/mail-reconciler/internal/stats"
)

// fallbackWindowDays bounds the sender search when a sent item's date
// does not parse.
const fallbackWindowDays = 14

// mailbox is the slice of Client the reply finder needs, separated so
// tests can stand in for a live session.
type mailbox interface {
	SearchHeader(ctx context.Context, key, value string) ([]imap.UID, error)
	SearchFromSinceSubject(ctx context.Context, from string, since time.Time, subject string) ([]imap.UID, error)
	FetchMessage(ctx context.Context, uid imap.UID) (*model.Message, error)
}

// ReplyFinder locates the reply to a previously sent message. It tries
// identifier-based lookups first and falls back to a sender search.
type ReplyFinder struct {
	mb    mailbox
	log   zerolog.Logger
	stats *stats.Collector

	// now is replaceable in tests.
	now func() time.Time
}

// NewReplyFinder builds a finder over an established mailbox session.
func NewReplyFinder(mb mailbox, log zerolog.Logger, st *stats.Collector) *ReplyFinder {
	return &ReplyFinder{
		mb:    mb,
		log:   log.With().Str("component", "reply_finder").Logger(),
		stats: st,
		now:   time.Now,
	}
}

type strategy struct {
	name     string
	category string
	run      func(ctx context.Context, item model.SentItem) (*model.Message, error)
}

func (f *ReplyFinder) strategies() []strategy {
	return []strategy{
		{"message_id", stats.CategorySearchMessageID, f.byMessageID},
		{"references", stats.CategorySearchReferences, f.byReferences},
		{"subject_from", stats.CategorySearchSubjectFrom, f.bySenderAndSubject},
	}
}

// FindReply tries each strategy in order and returns the first hit. A
// strategy failure is logged and counted under that strategy's category
// and the next strategy runs anyway; when every strategy misses, nil is
// returned.
func (f *ReplyFinder) FindReply(ctx context.Context, item model.SentItem) *model.Message {
	for _, s := range f.strategies() {
		msg, err := s.run(ctx, item)
		if err != nil {
			f.stats.AddError(s.category)
			f.log.Warn().
				Err(err).
				Str("strategy", s.name).
				Str("message_id", item.MessageID).
				Msg("reply search strategy failed")
			continue
		}
		if msg != nil {
			f.stats.AddReplyFound()
			f.log.Info().
				Str("strategy", s.name).
				Uint32("uid", msg.UID).
				Str("from", msg.From).
				Msg("reply found")
			return msg
		}
	}
	f.log.Debug().Str("message_id", item.MessageID).Msg("no reply found")
	return nil
}

// byMessageID looks for a message naming the sent item in its
// In-Reply-To header.
func (f *ReplyFinder) byMessageID(ctx context.Context, item model.SentItem) (*model.Message, error) {
	if item.MessageID == "" {
		return nil, nil
	}
	uids, err := f.mb.SearchHeader(ctx, "In-Reply-To", item.MessageID)
	if err != nil {
		return nil, err
	}
	return f.fetchFirst(ctx, uids)
}

// byReferences walks the ancestor chain oldest first and stops at the
// first identifier found in any message's References header.
func (f *ReplyFinder) byReferences(ctx context.Context, item model.SentItem) (*model.Message, error) {
	for _, ref := range item.References {
		if ref == "" {
			continue
		}
		uids, err := f.mb.SearchHeader(ctx, "References", ref)
		if err != nil {
			return nil, err
		}
		msg, err := f.fetchFirst(ctx, uids)
		if err != nil || msg != nil {
			return msg, err
		}
	}
	return nil, nil
}

// bySenderAndSubject searches for mail from the original recipient
// received after the send date, first under the sent subject with a
// "Re: " prefix and then under the bare subject. A send date that does
// not parse falls back to a recent window ending now.
func (f *ReplyFinder) bySenderAndSubject(ctx context.Context, item model.SentItem) (*model.Message, error) {
	if item.To == "" {
		return nil, nil
	}

	since, err := netmail.ParseDate(item.Date)
	if err != nil {
		since = f.now().UTC().AddDate(0, 0, -fallbackWindowDays)
		f.log.Debug().
			Str("date", item.Date).
			Time("since", since).
			Msg("unparseable sent date, using fallback window")
	}

	subjects := []string{"Re: " + item.Subject, item.Subject}
	if item.Subject == "" {
		subjects = []string{""}
	}
	for _, subject := range subjects {
		uids, err := f.mb.SearchFromSinceSubject(ctx, item.To, since, subject)
		if err != nil {
			return nil, err
		}
		msg, err := f.fetchFirst(ctx, uids)
		if err != nil || msg != nil {
			return msg, err
		}
	}
	return nil, nil
}

func (f *ReplyFinder) fetchFirst(ctx context.Context, uids []imap.UID) (*model.Message, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	return f.mb.FetchMessage(ctx, uids[0])
}
