package email

import (
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

func TestExtractBodyPrefersPlainPart(t *testing.T) {
	raw := "From: seller@x.com\r\n" +
		"To: buyer@y.com\r\n" +
		"Subject: offer\r\n" +
		"Content-Type: multipart/alternative; boundary=BOUNDARY\r\n" +
		"\r\n" +
		"--BOUNDARY\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"price\r\nusd\r\n500\r\n" +
		"--BOUNDARY\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>price usd 500</p>\r\n" +
		"--BOUNDARY--\r\n"

	got := extractBody([]byte(raw))
	if !strings.Contains(got, "500") {
		t.Errorf("extractBody = %q, want the plain part content", got)
	}
	if strings.Contains(got, "<p>") {
		t.Errorf("extractBody = %q, html part leaked through", got)
	}
}

func TestExtractBodyFallsBackToStrippedHTML(t *testing.T) {
	raw := "From: seller@x.com\r\n" +
		"Subject: offer\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<div>Hello <b>world</b></div>\r\n"

	got := extractBody([]byte(raw))
	if !strings.Contains(got, "Hello world") {
		t.Errorf("extractBody = %q, want stripped html text", got)
	}
	if strings.Contains(got, "<") {
		t.Errorf("extractBody = %q, tags left in place", got)
	}
}

func TestExtractBodyUnparseableInputReturnedAsIs(t *testing.T) {
	raw := "complete garbage"
	if got := extractBody([]byte(raw)); got != raw {
		t.Errorf("extractBody = %q, want %q", got, raw)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tags removed", "<div>Hello <b>world</b></div>", "Hello world"},
		{"breaks become newlines", "line one<br>line two", "line one\nline two"},
		{"entities decoded", "a &amp; b &lt;c&gt;", "a & b <c>"},
		{"nbsp becomes space", "a&nbsp;b", "a b"},
		{"blank runs collapsed", "a</p></p></p>b", "a\n\nb"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripHTML(tt.in); got != tt.want {
				t.Errorf("stripHTML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMessageFromBuffer(t *testing.T) {
	date := time.Date(2026, 8, 10, 8, 30, 0, 0, time.UTC)
	buf := &imapclient.FetchMessageBuffer{
		UID: 42,
		Envelope: &imap.Envelope{
			Date:      date,
			Subject:   "Re: offer",
			MessageID: "<reply@remote>",
			From: []imap.Address{
				{Name: "Buyer", Mailbox: "buyer", Host: "x.com"},
			},
		},
	}

	msg := messageFromBuffer(buf)

	if msg.UID != 42 {
		t.Errorf("UID = %d, want 42", msg.UID)
	}
	if msg.From != "buyer@x.com" {
		t.Errorf("From = %q, want %q (bare addr-spec)", msg.From, "buyer@x.com")
	}
	if msg.Subject != "Re: offer" {
		t.Errorf("Subject = %q, want %q", msg.Subject, "Re: offer")
	}
	if msg.MessageID != "<reply@remote>" {
		t.Errorf("MessageID = %q, want %q", msg.MessageID, "<reply@remote>")
	}
	if !msg.Date.Equal(date) {
		t.Errorf("Date = %v, want %v", msg.Date, date)
	}
}
