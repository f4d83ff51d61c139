package weather

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avholt/wxstation/internal/metar"
	"github.com/avholt/wxstation/internal/observability"
	"github.com/avholt/wxstation/pkg/logger"
)

type stubFetcher struct {
	raw string
	err error
}

func (f *stubFetcher) FetchRawReport(string) (string, error) {
	return f.raw, f.err
}

type recordingStore struct {
	saved []*metar.WeatherSnapshot
}

func (s *recordingStore) SaveSnapshot(snap *metar.WeatherSnapshot) error {
	s.saved = append(s.saved, snap)
	return nil
}

type recordingBroadcaster struct {
	sent []*metar.WeatherSnapshot
}

func (b *recordingBroadcaster) BroadcastSnapshot(snap *metar.WeatherSnapshot) {
	b.sent = append(b.sent, snap)
}

func newTestService(t *testing.T, fetcher ReportFetcher, store SnapshotStore, broadcaster Broadcaster) (*Service, *clockwork.FakeClock) {
	t.Helper()
	cfg := ConfigWeatherConfig{
		RefreshIntervalMinutes: 10,
		APIBaseURL:             "https://aviationweather.gov/api/data",
		RequestTimeoutSeconds:  5,
		MaxRetries:             0,
		CacheExpiryMinutes:     15,
		BreakerMaxFailures:     5,
		BreakerOpenSeconds:     60,
	}
	svc := NewService(cfg, "CYYZ", store, broadcaster, observability.NewMetricsForTesting(), logger.NewNop())
	clock := clockwork.NewFakeClockAt(time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC))
	svc.SetClock(clock)
	svc.SetFetcher(fetcher)
	return svc, clock
}

func TestServiceFetchAndDecode(t *testing.T) {
	store := &recordingStore{}
	broadcaster := &recordingBroadcaster{}
	fetcher := &stubFetcher{raw: "METAR CYYZ 151130Z 27008G15KT 15SM FEW040 22/14 A3001 RMK SLP163"}

	svc, _ := newTestService(t, fetcher, store, broadcaster)
	svc.fetchAndUpdateCache()

	state := svc.cache.Get()
	require.NotNil(t, state)
	require.NotNil(t, state.Snapshot)
	assert.Empty(t, state.FetchErrors)

	report := state.Snapshot.Report
	assert.Equal(t, "CYYZ", report.StationID)
	require.NotNil(t, report.Wind)
	assert.Equal(t, 270, *report.Wind.DirectionDeg)
	assert.Equal(t, 15, *report.Wind.GustKt)

	// Issuance day/time resolved against the fake clock's month.
	assert.Equal(t, time.Date(2026, time.August, 15, 11, 30, 0, 0, time.UTC), state.Snapshot.IssuedAt)

	require.Len(t, store.saved, 1)
	require.Len(t, broadcaster.sent, 1)
	assert.Same(t, state.Snapshot, broadcaster.sent[0])
}

func TestServiceFetchError(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("connection refused")}
	svc, _ := newTestService(t, fetcher, nil, nil)

	svc.fetchAndUpdateCache()

	state := svc.cache.Get()
	require.NotNil(t, state)
	assert.Nil(t, state.Snapshot)
	require.Len(t, state.FetchErrors, 1)
	assert.Contains(t, state.FetchErrors[0], "connection refused")
}

func TestServiceRejectsUnusableReport(t *testing.T) {
	fetcher := &stubFetcher{raw: "GARBAGE DATA"}
	store := &recordingStore{}
	svc, _ := newTestService(t, fetcher, store, nil)

	svc.fetchAndUpdateCache()

	state := svc.cache.Get()
	require.NotNil(t, state)
	assert.Nil(t, state.Snapshot)
	require.Len(t, state.FetchErrors, 1)
	assert.Contains(t, state.FetchErrors[0], "unusable report")
	assert.Empty(t, store.saved, "rejected reports are never persisted")
}

func TestServiceStartStop(t *testing.T) {
	fetcher := &stubFetcher{raw: "METAR CYYZ 151130Z 00000KT 15SM SKC 20/10 A3010"}
	svc, _ := newTestService(t, fetcher, nil, nil)

	require.NoError(t, svc.Start())
	assert.True(t, svc.IsStarted())

	// GetState blocks until the initial fetch finished.
	state := svc.GetState()
	require.NotNil(t, state.Snapshot)

	require.NoError(t, svc.Stop())
	assert.False(t, svc.IsStarted())
}
