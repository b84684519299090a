package app

import (
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-sync-service/internal/adapters/notify"
	"github.com/jsamuelsen/quote-sync-service/internal/adapters/storage"
	"github.com/jsamuelsen/quote-sync-service/internal/domain"
	"github.com/jsamuelsen/quote-sync-service/internal/mocks"
	"github.com/jsamuelsen/quote-sync-service/internal/ports"
)

func newTestDispatcher(t *testing.T, source ports.QuoteSource, inbox ports.NoticeInbox) (*Dispatcher, *QuoteStore) {
	t.Helper()

	store := NewQuoteStore(storage.NewMemoryStore())

	var notifier ports.Notifier
	if inbox != nil {
		notifier = inbox
	}

	quotes := NewQuoteService(QuoteServiceConfig{
		Store:    store,
		Sessions: storage.NewSessionStore(time.Hour),
		Notifier: notifier,
		Selector: domain.NewSelectorWithSource(rand.NewPCG(3, 4)),
	})
	syncs := NewSyncService(SyncServiceConfig{Store: store, Source: source, Notifier: notifier})

	d := NewDispatcher(quotes, syncs, inbox)
	d.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	return d, store
}

func TestDispatcher_UnknownIntent(t *testing.T) {
	d, _ := newTestDispatcher(t, mocks.NewMockQuoteSource(t), nil)

	_, err := d.Dispatch(testContext(), Intent("dance"), Request{})

	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestDispatcher_Intents(t *testing.T) {
	d, _ := newTestDispatcher(t, mocks.NewMockQuoteSource(t), nil)

	got := d.Intents()

	assert.Len(t, got, 13)
	assert.True(t, slices.IsSorted(got))
	assert.Contains(t, got, IntentSyncNow)
}

func TestDispatcher_QuoteIntents(t *testing.T) {
	ctx := testContext()
	d, store := newTestDispatcher(t, mocks.NewMockQuoteSource(t), notify.NewInbox(4, time.Hour))

	out, err := d.Dispatch(ctx, IntentAddQuote, Request{Session: "s", Text: "New one", Category: "Fresh"})
	require.NoError(t, err)
	assert.Equal(t, AddResult{Added: true, Quote: &domain.Quote{Text: "New one", Category: "fresh"}}, out)

	out, err = d.Dispatch(ctx, IntentFilterChanged, Request{Session: "s", Category: "fresh"})
	require.NoError(t, err)
	show := out.(ShowResult)
	assert.Equal(t, "fresh", show.Filter)
	assert.Equal(t, "New one", show.Quote.Text)

	out, err = d.Dispatch(ctx, IntentShowNext, Request{Session: "s"})
	require.NoError(t, err)
	assert.Equal(t, "New one", out.(ShowResult).Quote.Text)

	out, err = d.Dispatch(ctx, IntentCategories, Request{})
	require.NoError(t, err)
	assert.Equal(t, "fresh", out.(CategoryView).Selected)

	out, err = d.Dispatch(ctx, IntentLastViewed, Request{Session: "s"})
	require.NoError(t, err)
	assert.True(t, out.(LastViewedResult).Found)

	out, err = d.Dispatch(ctx, IntentLastViewed, Request{Session: "other"})
	require.NoError(t, err)
	assert.Equal(t, LastViewedResult{}, out)

	out, err = d.Dispatch(ctx, IntentList, Request{})
	require.NoError(t, err)
	assert.Len(t, out, 6)

	out, err = d.Dispatch(ctx, IntentExport, Request{})
	require.NoError(t, err)
	assert.Equal(t, "quotes-export-20260102-030405.json", out.(ExportResult).Filename)

	out, err = d.Dispatch(ctx, IntentImport, Request{Payload: []byte(`[{"text":"Hello"}]`)})
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Imported: 1}, out)
	assert.Equal(t, 7, store.Len())

	_, err = d.Dispatch(ctx, IntentImport, Request{Payload: []byte(`{}`)})
	assert.True(t, domain.IsParse(err))

	out, err = d.Dispatch(ctx, IntentReset, Request{})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultQuotes(), out)
}

func TestDispatcher_Notices(t *testing.T) {
	ctx := testContext()

	t.Run("without inbox", func(t *testing.T) {
		d, _ := newTestDispatcher(t, mocks.NewMockQuoteSource(t), nil)

		out, err := d.Dispatch(ctx, IntentNotices, Request{Session: "s"})
		require.NoError(t, err)
		assert.Equal(t, []ports.Notice{}, out)
	})

	t.Run("empty filter result is delivered once", func(t *testing.T) {
		d, store := newTestDispatcher(t, mocks.NewMockQuoteSource(t), notify.NewInbox(4, time.Hour))
		store.Replace(ctx, nil)

		_, err := d.Dispatch(ctx, IntentShowNext, Request{Session: "s"})
		require.NoError(t, err)

		out, err := d.Dispatch(ctx, IntentNotices, Request{Session: "s"})
		require.NoError(t, err)
		assert.Equal(t, []ports.Notice{{Level: ports.NoticeInfo, Message: domain.NoQuotesMessage}}, out)

		out, err = d.Dispatch(ctx, IntentNotices, Request{Session: "s"})
		require.NoError(t, err)
		assert.Equal(t, []ports.Notice{}, out)
	})

	t.Run("sync outcome reaches every session", func(t *testing.T) {
		source := mocks.NewMockQuoteSource(t)
		source.EXPECT().FetchQuotes(mock.Anything).
			Return(nil, domain.NewFetchError("quote-source", "connection refused"))

		d, _ := newTestDispatcher(t, source, notify.NewInbox(4, time.Hour))

		_, err := d.Dispatch(ctx, IntentSyncNow, Request{Session: "a"})
		require.NoError(t, err)

		want := []ports.Notice{{Level: ports.NoticeError, Message: "Sync with the server failed; local quotes are unchanged."}}
		for _, session := range []string{"a", "b"} {
			out, err := d.Dispatch(ctx, IntentNotices, Request{Session: session})
			require.NoError(t, err)
			assert.Equal(t, want, out, session)
		}
	})
}

func TestDispatcher_SyncIntents(t *testing.T) {
	ctx := testContext()

	source := mocks.NewMockQuoteSource(t)
	source.EXPECT().FetchQuotes(mock.Anything).
		Return(rawQuotes(t, `[{"text":"Simplicity is the ultimate sophistication.","category":"motivation"}]`), nil)

	d, store := newTestDispatcher(t, source, nil)

	out, err := d.Dispatch(ctx, IntentSyncNow, Request{Policy: "manual"})
	require.NoError(t, err)
	report := out.(SyncReport)
	assert.Equal(t, SyncStatusSuccess, report.Status)
	assert.Equal(t, TriggerManual, report.Trigger)
	assert.Equal(t, 1, report.ConflictsCount)

	out, err = d.Dispatch(ctx, IntentConflicts, Request{})
	require.NoError(t, err)
	require.Len(t, out, 1)

	out, err = d.Dispatch(ctx, IntentResolveConflict, Request{Index: 0, Resolution: "keep-server"})
	require.NoError(t, err)
	assert.Equal(t, "motivation", out.(domain.Quote).Category)
	assert.Equal(t, "motivation", store.Snapshot()[1].Category)

	_, err = d.Dispatch(ctx, IntentSyncNow, Request{Policy: "bogus"})
	assert.True(t, domain.IsValidation(err))
}
