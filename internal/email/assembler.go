package email

import (
	"github.com/nhle/mail-reconciler/internal/model"
	"github.com/nhle/mail-reconciler/internal/normalize"
)

// Assembler groups a UID-ordered message stream into subject threads in
// a single pass. A message joins the open thread while its normalized
// subject matches; any other subject closes the thread and opens a new
// one, so interleaved subjects come out as separate threads.
type Assembler struct {
	current *model.Thread
}

// Add feeds the next message in mailbox order. When the message opens a
// new thread, the finished previous thread is returned; otherwise nil.
func (a *Assembler) Add(msg *model.Message) *model.Thread {
	key := normalize.Subject(msg.Subject)
	if a.current != nil && a.current.Subject == key {
		a.current.Append(msg)
		return nil
	}
	done := a.current
	a.current = model.NewThread(key, msg)
	return done
}

// Flush returns the still-open thread, if any, and resets the
// assembler.
func (a *Assembler) Flush() *model.Thread {
	done := a.current
	a.current = nil
	return done
}

// AssembleThreads groups an already-collected message slice.
func AssembleThreads(msgs []*model.Message) []*model.Thread {
	var a Assembler
	var threads []*model.Thread
	for _, msg := range msgs {
		if done := a.Add(msg); done != nil {
			threads = append(threads, done)
		}
	}
	if done := a.Flush(); done != nil {
		threads = append(threads, done)
	}
	return threads
}
