package notify

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-sync-service/internal/ports"
)

var _ ports.NoticeInbox = (*Inbox)(nil)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = c.t.Add(d)
}

func newTestInbox(capacity int, ttl time.Duration) (*Inbox, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	in := NewInbox(capacity, ttl)
	in.now = clock.now

	return in, clock
}

func messages(notices []ports.Notice) []string {
	out := make([]string, len(notices))
	for i, n := range notices {
		out[i] = n.Message
	}

	return out
}

func TestInbox_NotifyDrain(t *testing.T) {
	ctx := context.Background()
	in, _ := newTestInbox(0, time.Hour)

	in.Notify(ctx, "a", ports.Notice{Level: ports.NoticeInfo, Message: "one"})
	in.Notify(ctx, "a", ports.Notice{Level: ports.NoticeWarn, Message: "two"})
	in.Notify(ctx, "b", ports.Notice{Level: ports.NoticeError, Message: "other"})

	got := in.Drain(ctx, "a")
	require.Len(t, got, 2)
	assert.Equal(t, ports.Notice{Level: ports.NoticeInfo, Message: "one"}, got[0])
	assert.Equal(t, "two", got[1].Message)

	assert.Empty(t, in.Drain(ctx, "a"), "drain clears the queue")
	assert.Len(t, in.Drain(ctx, "b"), 1)
	assert.Nil(t, in.Drain(ctx, "never-seen"))
}

func TestInbox_CapacityDropsOldest(t *testing.T) {
	ctx := context.Background()
	in, _ := newTestInbox(2, 0)

	for i := range 5 {
		in.Notify(ctx, "s", ports.Notice{Message: fmt.Sprint(i)})
		in.Notify(ctx, ports.AllSessions, ports.Notice{Message: fmt.Sprint("all-", i)})
	}

	assert.Equal(t, []string{"3", "all-3", "4", "all-4"}, messages(in.Drain(ctx, "s")))
}

func TestInbox_BroadcastReachesEverySessionOnce(t *testing.T) {
	ctx := context.Background()
	in, _ := newTestInbox(0, time.Hour)

	in.Notify(ctx, "a", ports.Notice{Message: "for a"})
	in.Notify(ctx, ports.AllSessions, ports.Notice{Message: "sync failed"})
	in.Notify(ctx, "a", ports.Notice{Message: "for a again"})

	assert.Equal(t, []string{"for a", "sync failed", "for a again"}, messages(in.Drain(ctx, "a")))
	assert.Empty(t, in.Drain(ctx, "a"))

	assert.Equal(t, []string{"sync failed"}, messages(in.Drain(ctx, "b")), "late sessions still see it")
	assert.Empty(t, in.Drain(ctx, "b"))

	in.Notify(ctx, ports.AllSessions, ports.Notice{Message: "next"})
	assert.Equal(t, []string{"next"}, messages(in.Drain(ctx, "a")))
	assert.Equal(t, []string{"next"}, messages(in.Drain(ctx, "b")))
}

func TestInbox_Sweep(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		ttl         time.Duration
		idle        time.Duration
		wantRemoved int
		wantLen     int
	}{
		{name: "idle past ttl", ttl: time.Hour, idle: 2 * time.Hour, wantRemoved: 2, wantLen: 0},
		{name: "within ttl", ttl: time.Hour, idle: 30 * time.Minute, wantRemoved: 0, wantLen: 2},
		{name: "eviction disabled", ttl: 0, idle: 48 * time.Hour, wantRemoved: 0, wantLen: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, clock := newTestInbox(0, tt.ttl)

			in.Notify(ctx, "a", ports.Notice{Message: "m"})
			in.Notify(ctx, "b", ports.Notice{Message: "m"})
			in.Notify(ctx, ports.AllSessions, ports.Notice{Message: "all"})

			clock.advance(tt.idle)

			assert.Equal(t, tt.wantRemoved, in.Sweep())
			assert.Equal(t, tt.wantLen, in.Len())

			if tt.wantRemoved > 0 {
				assert.Nil(t, in.Drain(ctx, "c"), "stale broadcasts are swept too")
			}
		})
	}
}

func TestInbox_OneShotSessionsAreReclaimed(t *testing.T) {
	ctx := context.Background()
	in, clock := newTestInbox(0, time.Hour)

	for i := range 10000 {
		in.Notify(ctx, fmt.Sprint("session-", i), ports.Notice{Message: "No quotes in this category. Add one!"})
	}
	require.Equal(t, 10000, in.Len())

	clock.advance(time.Hour + time.Second)

	assert.Equal(t, 10000, in.Sweep())
	assert.Zero(t, in.Len())
}

func TestInbox_Concurrent(t *testing.T) {
	ctx := context.Background()
	in, _ := newTestInbox(1000, time.Hour)

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			in.Notify(ctx, "s", ports.Notice{Message: "m"})
		})
		wg.Go(func() {
			in.Notify(ctx, ports.AllSessions, ports.Notice{Message: "all"})
		})
	}
	wg.Wait()

	assert.Len(t, in.Drain(ctx, "s"), 100)
}
