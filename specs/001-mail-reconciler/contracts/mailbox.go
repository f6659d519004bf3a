// Package contracts/mailbox defines the IMAP mailbox contract.
// One session per run: connect, query, fetch, flag, disconnect.
//
// Library: emersion/go-imap v2 + emersion/go-message
// Auth: Username + password (password from system keychain or environment)
package contracts

// Mailbox defines the operations the reconciliation pipeline needs.

// Key operations:
//
// Connect:
//   Dial the IMAP server with implicit TLS.
//   Authenticate with username + password.
//   SELECT INBOX read-write (flags are written later).
//   Register charset decoders (GBK and friends) before the first fetch.
//
// SearchInbox (the run query):
//   UID SEARCH UNSEEN SINCE <today - lookback_days>
//   AND, when subject filters are configured,
//   OR SUBJECT "filter-1" SUBJECT "filter-2" ... (nested ORs for 3+)
//   Returns: UIDs in mailbox order.
//   Retried with the standard policy; exhausting retries fails the run.
//
// FetchMessage:
//   UID FETCH <uid> (ENVELOPE FLAGS UID BODY.PEEK[])
//   Envelope -> Message { UID, MessageID, From (bare addr-spec),
//                         Subject, Date }
//   BODY[] parsed with go-message: walk MIME parts, prefer text/plain,
//   fall back to text/html stripped to text. Honors charset decoders.
//   Peek keeps the \Seen flag untouched until the message is fully
//   processed.
//
// Thread assembly (streaming, not clustering):
//   Messages arrive in mailbox order. Normalize each subject (strip one
//   leading Re:/Fwd: marker, trim, lowercase). Consecutive messages with
//   the same normalized subject join the current thread; a different
//   subject closes it and starts a new one. Equal-subject messages
//   separated by an unrelated message form two distinct threads.
//
// MarkSeen:
//   UID STORE <uid> +FLAGS.SILENT (\Seen)
//   Retried; a final failure is counted and surfaced so the caller can
//   abandon the rest of the thread (the message stays unread for the
//   next run).
//
// Reply lookup (find-reply), strategies in priority order:
//   1. UID SEARCH HEADER In-Reply-To "<message-id>"
//   2. For each id in the References chain, oldest first:
//      UID SEARCH HEADER References "<id>"
//   3. UID SEARCH FROM "<recipient>" SINCE <send date> SUBJECT "Re: <subject>"
//      then the same without the "Re: " prefix.
//   First strategy with a hit wins; a strategy error is logged and
//   counted under its own category, then the next strategy runs.
//   An unparseable send date falls back to a 14-day window ending now.
