package app

import (
	"context"
	"slices"
	"time"

	"github.com/jsamuelsen/quote-sync-service/internal/domain"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/logging"
	"github.com/jsamuelsen/quote-sync-service/internal/ports"
)

// Intent names a user action.
type Intent string

const (
	IntentShowNext        Intent = "show-next"
	IntentFilterChanged   Intent = "filter-changed"
	IntentAddQuote        Intent = "add-quote"
	IntentImport          Intent = "import"
	IntentExport          Intent = "export"
	IntentSyncNow         Intent = "sync-now"
	IntentList            Intent = "list"
	IntentCategories      Intent = "categories"
	IntentReset           Intent = "reset"
	IntentConflicts       Intent = "conflicts"
	IntentResolveConflict Intent = "resolve-conflict"
	IntentLastViewed      Intent = "last-viewed"
	IntentNotices         Intent = "notices"
)

// Request carries the arguments of an intent. Each intent reads only the
// fields it needs.
type Request struct {
	Session    string `json:"-"`
	Category   string `json:"category,omitempty"`
	Text       string `json:"text,omitempty"`
	Payload    []byte `json:"-"`
	Policy     string `json:"policy,omitempty"`
	Index      int    `json:"index,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

// LastViewedResult wraps the last viewed quote of a session.
type LastViewedResult struct {
	Found bool          `json:"found"`
	Quote *domain.Quote `json:"quote,omitempty"`
}

// Handler executes one intent.
type Handler func(ctx context.Context, req Request) (any, error)

// Dispatcher maps intents to core operations.
type Dispatcher struct {
	quotes *QuoteService
	sync   *SyncService
	inbox  ports.NoticeInbox
	now    func() time.Time
	routes map[Intent]Handler
}

// NewDispatcher builds the intent table. inbox may be nil, in which case the
// notices intent always returns an empty list.
func NewDispatcher(quotes *QuoteService, syncs *SyncService, inbox ports.NoticeInbox) *Dispatcher {
	d := &Dispatcher{quotes: quotes, sync: syncs, inbox: inbox, now: time.Now}

	d.routes = map[Intent]Handler{
		IntentShowNext: func(ctx context.Context, r Request) (any, error) {
			return d.quotes.ShowNext(ctx, r.Session), nil
		},
		IntentFilterChanged: func(ctx context.Context, r Request) (any, error) {
			return d.quotes.SetFilter(ctx, r.Session, r.Category), nil
		},
		IntentAddQuote: func(ctx context.Context, r Request) (any, error) {
			return d.quotes.AddQuote(ctx, r.Session, r.Text, r.Category), nil
		},
		IntentImport: func(ctx context.Context, r Request) (any, error) {
			return d.quotes.Import(ctx, r.Payload)
		},
		IntentExport: func(ctx context.Context, _ Request) (any, error) {
			return d.quotes.Export(ctx, d.now())
		},
		IntentSyncNow: func(ctx context.Context, r Request) (any, error) {
			return d.sync.Sync(ctx, SyncOptions{Policy: r.Policy, Trigger: TriggerManual})
		},
		IntentList: func(ctx context.Context, _ Request) (any, error) {
			return d.quotes.List(ctx), nil
		},
		IntentCategories: func(ctx context.Context, _ Request) (any, error) {
			return d.quotes.Categories(ctx), nil
		},
		IntentReset: func(ctx context.Context, _ Request) (any, error) {
			return d.quotes.Reset(ctx), nil
		},
		IntentConflicts: func(ctx context.Context, _ Request) (any, error) {
			return d.sync.Conflicts(ctx), nil
		},
		IntentResolveConflict: func(ctx context.Context, r Request) (any, error) {
			return d.sync.ResolveConflict(ctx, r.Index, r.Resolution)
		},
		IntentLastViewed: func(ctx context.Context, r Request) (any, error) {
			q, ok := d.quotes.LastViewed(ctx, r.Session)
			if !ok {
				return LastViewedResult{}, nil
			}

			return LastViewedResult{Found: true, Quote: &q}, nil
		},
		IntentNotices: func(ctx context.Context, r Request) (any, error) {
			if d.inbox == nil {
				return []ports.Notice{}, nil
			}

			notices := d.inbox.Drain(ctx, r.Session)
			if notices == nil {
				notices = []ports.Notice{}
			}

			return notices, nil
		},
	}

	return d
}

// Dispatch runs intent. Unknown intents return a domain.NotFoundError.
func (d *Dispatcher) Dispatch(ctx context.Context, intent Intent, req Request) (any, error) {
	h, ok := d.routes[intent]
	if !ok {
		return nil, domain.NewNotFoundError("intent", string(intent))
	}

	if req.Session != "" {
		ctx = logging.WithSessionID(ctx, req.Session)
	}

	return h(ctx, req)
}

// Intents lists the known intents in sorted order.
func (d *Dispatcher) Intents() []Intent {
	out := make([]Intent, 0, len(d.routes))
	for i := range d.routes {
		out = append(out, i)
	}

	slices.Sort(out)

	return out
}
