// Package email maintains the mailbox session and turns raw IMAP data
// into messages and subject threads the pipeline can work with.
package email

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/charset"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/nhle/mail-reconciler/internal/config"
	"github.com/nhle/mail-reconciler/internal/model"
	"github.com/nhle/mail-reconciler/internal/retry"
	"github.com/nhle/mail-reconciler/internal/stats"
)

func init() {
	// Some providers still send GBK bodies; go-message only decodes
	// them once the encoding is registered.
	charset.RegisterEncoding("gbk", simplifiedchinese.GBK)
}

// Client holds one authenticated IMAP session for the length of a run.
// Connect establishes it, Close releases it, and every search and fetch
// in between reuses it.
type Client struct {
	cfg   config.IMAPConfig
	log   zerolog.Logger
	stats *stats.Collector
	retry retry.Policy

	session *imapclient.Client
}

// NewClient builds a client from config. Nothing is dialed until
// Connect.
func NewClient(cfg config.IMAPConfig, log zerolog.Logger, st *stats.Collector) *Client {
	return &Client{
		cfg:   cfg,
		log:   log.With().Str("component", "imap").Logger(),
		stats: st,
	}
}

// Connect dials the server over TLS, authenticates, and selects the
// configured folder. Calling Connect on an open session is an error.
func (c *Client) Connect(_ context.Context) error {
	if c.session != nil {
		return fmt.Errorf("already connected to %s", c.cfg.Addr())
	}

	opts := &imapclient.Options{
		WordDecoder: &mime.WordDecoder{CharsetReader: charset.Reader},
	}

	session, err := imapclient.DialTLS(c.cfg.Addr(), opts)
	if err != nil {
		return fmt.Errorf("connecting to IMAP %s: %w", c.cfg.Addr(), err)
	}

	if err := session.Login(c.cfg.Username, c.cfg.Password).Wait(); err != nil {
		_ = session.Logout().Wait()
		return &AuthError{Username: c.cfg.Username, Message: err.Error()}
	}

	if _, err := session.Select(c.cfg.Folder, nil).Wait(); err != nil {
		_ = session.Logout().Wait()
		return fmt.Errorf("selecting %s: %w", c.cfg.Folder, err)
	}

	c.log.Debug().
		Str("server", c.cfg.Addr()).
		Str("folder", c.cfg.Folder).
		Msg("mailbox session established")
	c.session = session
	return nil
}

// Close logs out and drops the session. Safe to call when never
// connected.
func (c *Client) Close() error {
	if c.session == nil {
		return nil
	}
	err := c.session.Logout().Wait()
	c.session = nil
	if err != nil {
		return fmt.Errorf("closing mailbox session: %w", err)
	}
	return nil
}

func (c *Client) conn() (*imapclient.Client, error) {
	if c.session == nil {
		return nil, errors.New("mailbox session not connected")
	}
	return c.session, nil
}

// searchDateLayout is the wire format IMAP uses for SINCE dates.
const searchDateLayout = "02-Jan-2006"

// SearchInbox returns the UIDs of unread messages within the configured
// window whose subject carries one of the configured filters.
func (c *Client) SearchInbox(ctx context.Context) ([]imap.UID, error) {
	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}
	if days := c.cfg.Filters.DaysBack; days > 0 {
		criteria.Since = time.Now().AddDate(0, 0, -days)
		c.log.Debug().
			Str("since", criteria.Since.Format(searchDateLayout)).
			Msg("bounding inbox query")
	}
	if terms := c.cfg.Filters.Subject; len(terms) > 0 {
		sub := subjectAnyOf(terms)
		criteria.Header = append(criteria.Header, sub.Header...)
		criteria.Or = append(criteria.Or, sub.Or...)
	}
	return c.search(ctx, criteria)
}

// SearchHeader returns the UIDs of messages whose named header contains
// the given value.
func (c *Client) SearchHeader(ctx context.Context, key, value string) ([]imap.UID, error) {
	return c.search(ctx, &imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{{Key: key, Value: value}},
	})
}

// SearchFromSinceSubject returns the UIDs of messages from the given
// sender received on or after since. A non-empty subject narrows the
// search to subjects containing it.
func (c *Client) SearchFromSinceSubject(
	ctx context.Context, from string, since time.Time, subject string,
) ([]imap.UID, error) {
	criteria := &imap.SearchCriteria{
		Since: since,
		Header: []imap.SearchCriteriaHeaderField{
			{Key: "From", Value: from},
		},
	}
	if subject != "" {
		criteria.Header = append(criteria.Header, imap.SearchCriteriaHeaderField{
			Key: "Subject", Value: subject,
		})
	}
	return c.search(ctx, criteria)
}

// search runs one UID SEARCH, retrying per the client's policy.
func (c *Client) search(ctx context.Context, criteria *imap.SearchCriteria) ([]imap.UID, error) {
	session, err := c.conn()
	if err != nil {
		return nil, err
	}
	return retry.Do(c.retry, func() ([]imap.UID, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := session.UIDSearch(criteria, nil).Wait()
		if err != nil {
			return nil, fmt.Errorf("searching mailbox: %w", err)
		}
		return data.AllUIDs(), nil
	})
}

// subjectAnyOf builds a criterion matching messages whose subject
// contains any one of the terms.
func subjectAnyOf(terms []string) imap.SearchCriteria {
	out := imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{{Key: "Subject", Value: terms[0]}},
	}
	for _, term := range terms[1:] {
		next := imap.SearchCriteria{
			Header: []imap.SearchCriteriaHeaderField{{Key: "Subject", Value: term}},
		}
		out = imap.SearchCriteria{Or: [][2]imap.SearchCriteria{{out, next}}}
	}
	return out
}

// FetchMessage downloads and parses the message with the given UID.
// The body is fetched with peek so the message keeps its unseen flag
// until the pipeline marks it deliberately.
func (c *Client) FetchMessage(ctx context.Context, uid imap.UID) (*model.Message, error) {
	session, err := c.conn()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		Flags:       true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := session.Fetch(imap.UIDSetNum(uid), fetchOpts)
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message UID %d not found", uid)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message %d: %w", uid, err)
	}

	out := messageFromBuffer(buf)
	if raw := buf.FindBodySection(bodySection); raw != nil {
		out.Body = extractBody(raw)
	}

	if err := fetchCmd.Close(); err != nil {
		return out, fmt.Errorf("closing fetch: %w", err)
	}
	return out, nil
}

// MarkSeen flags the message as read so later runs skip it. The store
// is retried; exhausting every attempt is logged and counted but still
// returned so the caller can decide.
func (c *Client) MarkSeen(ctx context.Context, uid imap.UID) error {
	session, err := c.conn()
	if err != nil {
		return err
	}

	err = retry.Run(c.retry, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		cmd := session.Store(imap.UIDSetNum(uid), &imap.StoreFlags{
			Op:     imap.StoreFlagsAdd,
			Silent: true,
			Flags:  []imap.Flag{imap.FlagSeen},
		}, nil)
		return cmd.Close()
	})
	if err != nil {
		c.stats.AddError(stats.CategoryIMAP)
		c.log.Warn().Err(err).Uint32("uid", uint32(uid)).Msg("marking message seen failed")
		return fmt.Errorf("marking UID %d seen: %w", uid, err)
	}
	return nil
}

// FetchThreads runs the inbox query, downloads every hit, and groups
// the results into subject threads. A message that fails to download is
// logged, counted, and skipped; it never aborts the run.
func (c *Client) FetchThreads(ctx context.Context) ([]*model.Thread, error) {
	uids, err := c.SearchInbox(ctx)
	if err != nil {
		c.stats.AddError(stats.CategoryIMAP)
		return nil, err
	}
	c.log.Info().Int("messages", len(uids)).Msg("inbox query complete")

	var asm Assembler
	var threads []*model.Thread
	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := c.FetchMessage(ctx, uid)
		if err != nil {
			c.stats.AddError(stats.CategoryProcessing)
			c.log.Warn().Err(err).Uint32("uid", uint32(uid)).Msg("skipping unfetchable message")
			continue
		}
		if done := asm.Add(msg); done != nil {
			threads = append(threads, done)
		}
	}
	if done := asm.Flush(); done != nil {
		threads = append(threads, done)
	}

	c.log.Info().Int("threads", len(threads)).Msg("assembled subject threads")
	return threads, nil
}

// messageFromBuffer maps fetched envelope data onto a Message.
func messageFromBuffer(buf *imapclient.FetchMessageBuffer) *model.Message {
	msg := &model.Message{UID: uint32(buf.UID)}
	if buf.Envelope != nil {
		msg.MessageID = buf.Envelope.MessageID
		msg.Subject = buf.Envelope.Subject
		msg.Date = buf.Envelope.Date
		if len(buf.Envelope.From) > 0 {
			msg.From = buf.Envelope.From[0].Addr()
		}
	}
	return msg
}
