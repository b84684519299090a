// Package notify keeps user-visible notices per session until a client
// drains them.
package notify

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jsamuelsen/quote-sync-service/internal/platform/logging"
	"github.com/jsamuelsen/quote-sync-service/internal/ports"
)

// DefaultCapacity bounds the pending notices kept per session.
const DefaultCapacity = 32

type stamped struct {
	seq    uint64
	at     time.Time
	notice ports.Notice
}

type mailbox struct {
	pending []stamped

	// cursor is the last broadcast sequence delivered to the session.
	cursor  uint64
	touched time.Time
}

// Inbox is an in-memory ports.NoticeInbox. When a queue is full the oldest
// notice is dropped. Notices sent to ports.AllSessions are kept once and
// delivered to each session on its next Drain.
//
// Mailboxes idle for longer than the TTL, and broadcasts older than it, are
// evicted by Sweep.
type Inbox struct {
	mu        sync.Mutex
	boxes     map[string]*mailbox
	broadcast []stamped
	seq       uint64
	capacity  int
	ttl       time.Duration
	now       func() time.Time
}

// NewInbox creates an inbox keeping at most capacity notices per session.
// A zero ttl disables eviction.
func NewInbox(capacity int, ttl time.Duration) *Inbox {
	if capacity < 1 {
		capacity = DefaultCapacity
	}

	return &Inbox{
		boxes:    make(map[string]*mailbox),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Notify implements ports.Notifier.
func (i *Inbox) Notify(ctx context.Context, session string, notice ports.Notice) {
	logging.FromContext(ctx).DebugContext(ctx, "notice",
		slog.String("session", session),
		slog.String("level", notice.Level),
		slog.String("message", notice.Message))

	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	i.seq++
	n := stamped{seq: i.seq, at: now, notice: notice}

	if session == ports.AllSessions {
		i.broadcast = i.trim(append(i.broadcast, n))
		return
	}

	box, ok := i.boxes[session]
	if !ok {
		box = &mailbox{}
		i.boxes[session] = box
	}

	box.pending = i.trim(append(box.pending, n))
	box.touched = now
}

// Drain returns and clears the pending notices for session, oldest first,
// including broadcasts it has not seen yet.
func (i *Inbox) Drain(_ context.Context, session string) []ports.Notice {
	i.mu.Lock()
	defer i.mu.Unlock()

	box := i.boxes[session]

	var cursor uint64
	if box != nil {
		cursor = box.cursor
	}

	var fresh []stamped
	for _, n := range i.broadcast {
		if n.seq > cursor {
			fresh = append(fresh, n)
		}
	}

	if box == nil && len(fresh) == 0 {
		return nil
	}

	if box == nil {
		box = &mailbox{}
		i.boxes[session] = box
	}

	all := append(box.pending, fresh...)
	slices.SortFunc(all, func(a, b stamped) int { return cmp.Compare(a.seq, b.seq) })

	box.pending = nil
	box.cursor = i.seq
	box.touched = i.now()

	out := make([]ports.Notice, len(all))
	for k, n := range all {
		out[k] = n.notice
	}

	return out
}

// Sweep evicts idle mailboxes and stale broadcasts and returns how many
// mailboxes were removed.
func (i *Inbox) Sweep() int {
	if i.ttl <= 0 {
		return 0
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	cutoff := i.now().Add(-i.ttl)

	removed := 0
	for id, box := range i.boxes {
		if box.touched.Before(cutoff) {
			delete(i.boxes, id)
			removed++
		}
	}

	i.broadcast = slices.DeleteFunc(i.broadcast, func(n stamped) bool { return n.at.Before(cutoff) })

	return removed
}

// Len returns the number of sessions holding a mailbox.
func (i *Inbox) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	return len(i.boxes)
}

func (i *Inbox) trim(q []stamped) []stamped {
	if len(q) > i.capacity {
		return q[len(q)-i.capacity:]
	}

	return q
}
