package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jsamuelsen/quote-sync-service/internal/domain"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/logging"
	"github.com/jsamuelsen/quote-sync-service/internal/ports"
)

// Sync outcomes.
const (
	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
)

// Failure kinds of a failed sync.
const (
	FailureFetch      = "fetch_error"
	FailureUnexpected = "unexpected_error"
)

// Sync triggers.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// SyncOptions configures one sync run.
type SyncOptions struct {
	// Policy overrides the configured merge policy when set.
	Policy string

	// Trigger is recorded in logs and metrics.
	Trigger string
}

// SyncReport summarizes a sync run.
type SyncReport struct {
	Status         string    `json:"status"`
	Trigger        string    `json:"trigger,omitempty"`
	Policy         string    `json:"policy,omitempty"`
	ConflictsCount int       `json:"conflictsCount"`
	RemovedCount   int       `json:"removedCount"`
	AddedCount     int       `json:"addedCount"`
	DroppedCount   int       `json:"droppedCount"`
	Pushed         bool      `json:"pushed"`
	PushError      string    `json:"pushError,omitempty"`
	Failure        string    `json:"failure,omitempty"`
	Step           string    `json:"step,omitempty"`
	Error          string    `json:"error,omitempty"`
	StartedAt      time.Time `json:"startedAt"`
	DurationMS     int64     `json:"durationMs"`
}

// SyncRecorder observes finished sync runs.
type SyncRecorder interface {
	RecordSync(status, failure string, conflicts, removed, added int, duration time.Duration)
}

// SyncService reconciles the quote store with the remote source.
type SyncService struct {
	store     *QuoteStore
	source    ports.QuoteSource
	publisher ports.QuotePublisher
	flags     ports.FeatureFlags
	recorder  SyncRecorder
	notifier  ports.Notifier
	policy    domain.MergePolicy
	timeout   time.Duration
	now       func() time.Time

	mu   sync.Mutex
	last *SyncReport
}

// SyncServiceConfig contains the sync service dependencies.
type SyncServiceConfig struct {
	Store  *QuoteStore
	Source ports.QuoteSource

	// Publisher is optional; pushes are also gated by ports.FlagSyncPush.
	Publisher ports.QuotePublisher
	Flags     ports.FeatureFlags
	Recorder  SyncRecorder

	// Notifier receives one ports.AllSessions notice for every run that
	// failed or changed the store.
	Notifier ports.Notifier

	// Policy is the default merge policy. Blank selects server-wins.
	Policy string

	// Timeout bounds the fetch. Zero means no extra deadline.
	Timeout time.Duration
}

// NewSyncService creates a sync service.
// Panics if Store or Source is nil, or if Policy is unknown.
func NewSyncService(cfg SyncServiceConfig) *SyncService {
	if cfg.Store == nil {
		panic("SyncService: Store is required")
	}

	if cfg.Source == nil {
		panic("SyncService: Source is required")
	}

	policy, err := domain.ParseMergePolicy(cfg.Policy)
	if err != nil {
		panic(fmt.Sprintf("SyncService: %v", err))
	}

	return &SyncService{
		store:     cfg.Store,
		source:    cfg.Source,
		publisher: cfg.Publisher,
		flags:     cfg.Flags,
		recorder:  cfg.Recorder,
		notifier:  cfg.Notifier,
		policy:    policy,
		timeout:   cfg.Timeout,
		now:       time.Now,
	}
}

// verifiedSnapshot carries the normalized server quotes through Archive,
// which fills in the merge result for Respond.
type verifiedSnapshot struct {
	policy  domain.MergePolicy
	quotes  []domain.Quote
	dropped int
	result  domain.MergeResult
}

// Sync fetches the server snapshot and merges it into the store.
//
// Fetch and merge failures never surface as errors: they are reported in the
// returned SyncReport and leave the store untouched. The error is non-nil
// only when opts names an unknown policy.
func (s *SyncService) Sync(ctx context.Context, opts SyncOptions) (report SyncReport, err error) {
	if opts.Trigger == "" {
		opts.Trigger = TriggerManual
	}

	start := s.now()
	report = SyncReport{Trigger: opts.Trigger, StartedAt: start}

	policy, err := s.resolvePolicy(ctx, opts.Policy)
	if err != nil {
		return SyncReport{}, err
	}
	report.Policy = string(policy)

	ctx = logging.WithAttrs(ctx,
		slog.String("trigger", opts.Trigger),
		slog.String("policy", string(policy)),
	)
	logger := logging.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "sync panicked", slog.Any("panic", r))
			report = s.failed(report, FailureUnexpected, "", fmt.Errorf("panic: %v", r))
		}

		report.DurationMS = s.now().Sub(start).Milliseconds()
		s.finish(ctx, report, s.now().Sub(start))
	}()

	result, runErr := Execute(ctx, s.operation(policy), opts)
	if runErr != nil {
		step, _ := GetExecutionStep(runErr)
		kind := FailureUnexpected
		if domain.IsFetch(runErr) {
			kind = FailureFetch
		}

		return s.failed(report, kind, string(step), runErr), nil
	}

	result.Trigger = report.Trigger
	result.Policy = report.Policy
	result.StartedAt = report.StartedAt

	return result, nil
}

func (s *SyncService) operation(policy domain.MergePolicy) Operation[SyncOptions, []domain.RawQuote, *verifiedSnapshot, SyncReport] {
	return Operation[SyncOptions, []domain.RawQuote, *verifiedSnapshot, SyncReport]{
		Name: "sync_quotes",

		Perform: func(ctx context.Context, _ SyncOptions) ([]domain.RawQuote, error) {
			if s.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, s.timeout)
				defer cancel()
			}

			return s.source.FetchQuotes(ctx)
		},

		Verify: func(_ context.Context, _ SyncOptions, raw []domain.RawQuote) (*verifiedSnapshot, error) {
			v := &verifiedSnapshot{policy: policy, quotes: make([]domain.Quote, 0, len(raw))}
			for _, r := range raw {
				q, ok := r.ToQuote()
				if !ok {
					v.dropped++
					continue
				}
				v.quotes = append(v.quotes, q)
			}

			return v, nil
		},

		Archive: func(ctx context.Context, _ SyncOptions, v *verifiedSnapshot) error {
			v.result = s.store.ApplyMerge(ctx, v.quotes, domain.MergeOptions{Policy: v.policy})
			return nil
		},

		Respond: func(ctx context.Context, _ SyncOptions, v *verifiedSnapshot) (SyncReport, error) {
			report := SyncReport{
				Status:         SyncStatusSuccess,
				ConflictsCount: len(v.result.Conflicts),
				RemovedCount:   len(v.result.Removed),
				AddedCount:     len(v.result.Added),
				DroppedCount:   v.dropped,
			}

			if s.pushEnabled(ctx) {
				if err := s.publisher.PublishQuotes(ctx, s.store.Snapshot()); err != nil {
					logging.FromContext(ctx).WarnContext(ctx, "push failed", slog.Any("error", err))
					report.PushError = err.Error()
				} else {
					report.Pushed = true
				}
			}

			return report, nil
		},
	}
}

func (s *SyncService) resolvePolicy(ctx context.Context, requested string) (domain.MergePolicy, error) {
	if requested == "" && s.flags != nil {
		requested = s.flags.GetString(ctx, ports.FlagSyncPolicy, string(s.policy))
	}

	if requested == "" {
		return s.policy, nil
	}

	return domain.ParseMergePolicy(requested)
}

func (s *SyncService) pushEnabled(ctx context.Context) bool {
	return s.publisher != nil && s.flags != nil && s.flags.IsEnabled(ctx, ports.FlagSyncPush, false)
}

func (s *SyncService) failed(report SyncReport, kind, step string, err error) SyncReport {
	report.Status = SyncStatusFailed
	report.Failure = kind
	report.Step = step
	report.Error = err.Error()
	report.ConflictsCount = 0
	report.RemovedCount = 0
	report.AddedCount = 0

	return report
}

func (s *SyncService) finish(ctx context.Context, report SyncReport, duration time.Duration) {
	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.RecordSync(report.Status, report.Failure,
			report.ConflictsCount, report.RemovedCount, report.AddedCount, duration)
	}

	if s.notifier != nil {
		if notice, ok := syncNotice(report); ok {
			s.notifier.Notify(ctx, ports.AllSessions, notice)
		}
	}

	logger := logging.FromContext(ctx)
	if report.Status == SyncStatusFailed {
		logger.WarnContext(ctx, "sync failed",
			slog.String("failure", report.Failure),
			slog.String("error", report.Error))

		return
	}

	logger.InfoContext(ctx, "sync completed",
		slog.Int("conflicts", report.ConflictsCount),
		slog.Int("removed", report.RemovedCount),
		slog.Int("added", report.AddedCount),
		slog.Bool("pushed", report.Pushed))
}

// syncNotice describes a run for users. Runs that changed nothing stay quiet.
func syncNotice(report SyncReport) (ports.Notice, bool) {
	if report.Status == SyncStatusFailed {
		return ports.Notice{
			Level:   ports.NoticeError,
			Message: "Sync with the server failed; local quotes are unchanged.",
		}, true
	}

	var parts []string

	if n := report.ConflictsCount; n > 0 {
		if report.Policy == string(domain.PolicyManual) {
			parts = append(parts, plural(n, "conflict")+" awaiting review")
		} else {
			parts = append(parts, plural(n, "conflict")+" resolved in favor of the server")
		}
	}

	if n := report.RemovedCount; n > 0 {
		parts = append(parts, plural(n, "quote")+" removed")
	}

	if n := report.AddedCount; n > 0 {
		parts = append(parts, plural(n, "quote")+" added")
	}

	if len(parts) == 0 {
		return ports.Notice{}, false
	}

	level := ports.NoticeInfo
	if report.ConflictsCount > 0 || report.RemovedCount > 0 {
		level = ports.NoticeWarn
	}

	return ports.Notice{Level: level, Message: "Synced with the server: " + strings.Join(parts, ", ") + "."}, true
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}

	return strconv.Itoa(n) + " " + noun + "s"
}

// LastReport returns the report of the most recent run.
func (s *SyncService) LastReport() (SyncReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil {
		return SyncReport{}, false
	}

	return *s.last, true
}

// Conflicts lists the conflicts retained from the last merge.
func (s *SyncService) Conflicts(_ context.Context) []domain.Conflict {
	return s.store.Conflicts()
}

// ResolveConflict overwrites the store entry at the conflict's position with
// the chosen side. The conflict stays in the list.
func (s *SyncService) ResolveConflict(ctx context.Context, index int, resolution string) (domain.Quote, error) {
	r, err := domain.ParseResolution(resolution)
	if err != nil {
		return domain.Quote{}, err
	}

	c, err := s.store.ResolveConflict(ctx, index, r)
	if err != nil {
		return domain.Quote{}, err
	}

	logging.FromContext(ctx).InfoContext(ctx, "conflict resolved",
		slog.Int("conflict", index),
		slog.Int("local_index", c.LocalIndex),
		slog.String("resolution", string(r)))

	return c.Pick(r).Normalize(), nil
}
