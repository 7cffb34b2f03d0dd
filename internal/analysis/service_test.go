package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/alphapulse/internal/contracts"
	"github.com/wonny/alphapulse/internal/risk"
	"github.com/wonny/alphapulse/internal/settings"
	"github.com/wonny/alphapulse/internal/store"
	"github.com/wonny/alphapulse/pkg/redis"
)

const sampleDataset = `{
	"initial_capital": 1000,
	"trades": {
		"momentum_fast": {"trades": {"BTCUSDT": [
			{"quantity":"1","side":"buy","price":"100","time":1704153600000},
			{"quantity":"1","side":"sell","price":"110","time":1704240000000},
			{"quantity":"2","side":"buy","price":"100","time":1704326400000},
			{"quantity":"2","side":"sell","price":"90","time":1704412800000}
		]}}
	}
}`

func dataset(t *testing.T, raw string) *contracts.PerformanceDataset {
	t.Helper()
	var ds contracts.PerformanceDataset
	require.NoError(t, json.Unmarshal([]byte(raw), &ds))
	return &ds
}

func newService(repo contracts.ReportRepository) *Service {
	return NewService(settings.Default(), redis.Disabled(), repo, nil)
}

func TestAnalyze(t *testing.T) {
	mem := store.NewMemory()
	svc := newService(mem)

	report, err := svc.Analyze(context.Background(), dataset(t, sampleDataset))
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Len(t, report.DatasetHash, 64)
	assert.NotEmpty(t, report.SettingsHash)
	assert.Equal(t, "momentum_fast", report.StrategyKey)
	assert.Equal(t, "BTCUSDT", report.Symbol)
	assert.Equal(t, "BTCUSDT Strategy", report.Metrics.StrategyName)
	assert.Equal(t, "momentum_fast", report.Metrics.StrategyParams)
	assert.Equal(t, 2, report.Metrics.RoundTrips())
	assert.InDelta(t, -0.01, report.Metrics.TotalReturn, 1e-9)

	stored, err := svc.Report(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Metrics, stored.Metrics)

	list, err := svc.Reports(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, report.ID, list[0].ID)
}

func TestAnalyze_Errors(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()

	_, err := svc.Analyze(ctx, nil)
	assert.True(t, contracts.IsInputError(err))

	_, err = svc.Analyze(ctx, dataset(t, `{"initial_capital": 0, "trades": {}}`))
	assert.ErrorIs(t, err, contracts.ErrInvalidCapital)

	_, err = svc.Analyze(ctx, dataset(t, `{"initial_capital": 10, "trades": {"s": "{oops"}}`))
	var malformed *contracts.MalformedInputError
	assert.ErrorAs(t, err, &malformed)

	_, err = svc.Analyze(ctx, dataset(t, `{"initial_capital": 10, "trades": {"s": {"trades": {"X": [
		{"quantity":"1","side":"buy","price":"abc","time":1},
		{"quantity":"1","side":"sell","price":"1","time":2}
	]}}}}`))
	var fpe *contracts.FieldParseError
	assert.ErrorAs(t, err, &fpe)
}

func TestAnalyze_EmptyDatasetNamesCustomStrategy(t *testing.T) {
	report, err := newService(nil).Analyze(context.Background(), dataset(t, `{"initial_capital": 500, "trades": {}}`))
	require.NoError(t, err)

	assert.Equal(t, DefaultStrategyName, report.Metrics.StrategyName)
	assert.Empty(t, report.Metrics.Trades)
	assert.Empty(t, report.Metrics.EquityCurve)
	assert.Equal(t, 500.0, report.Metrics.FinalCapital())
}

func TestReport_NotFoundWithoutStore(t *testing.T) {
	svc := newService(nil)

	_, err := svc.Report(context.Background(), "nope")
	assert.ErrorIs(t, err, contracts.ErrReportNotFound)

	list, err := svc.Reports(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDrawdownsAndProjection(t *testing.T) {
	svc := newService(store.NewMemory())
	ctx := context.Background()

	report, err := svc.Analyze(ctx, dataset(t, sampleDataset))
	require.NoError(t, err)

	periods, err := svc.Drawdowns(ctx, report.ID, 0)
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Less(t, periods[0].Depth, 0.0)

	proj, err := svc.Project(ctx, report.ID, risk.ProjectionConfig{Simulations: 20, Seed: 7})
	require.NoError(t, err)
	assert.Equal(t, 20, proj.Config.Simulations)
	assert.Equal(t, int64(7), proj.Config.Seed)
	assert.Len(t, proj.Points, len(report.Metrics.EquityCurve))

	_, err = svc.Drawdowns(ctx, "missing", 0)
	assert.ErrorIs(t, err, contracts.ErrReportNotFound)
}

func TestHashDataset_Stable(t *testing.T) {
	a, err := HashDataset(dataset(t, sampleDataset))
	require.NoError(t, err)
	b, err := HashDataset(dataset(t, sampleDataset))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := HashDataset(dataset(t, `{"initial_capital": 1000, "trades": {}}`))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

// blockingRepo holds the first Save until its context ends or it is released
type blockingRepo struct {
	*store.Memory
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingRepo() *blockingRepo {
	return &blockingRepo{
		Memory:  store.NewMemory(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (r *blockingRepo) Save(ctx context.Context, report *contracts.AnalysisReport) error {
	first := false
	r.once.Do(func() { first = true })
	if first {
		close(r.entered)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.release:
		}
	}
	return r.Memory.Save(ctx, report)
}

func TestSubmit_NewerSupersedesOlder(t *testing.T) {
	repo := newBlockingRepo()
	svc := newService(repo)
	ctx := context.Background()

	type result struct {
		report *contracts.AnalysisReport
		err    error
	}
	first := dataset(t, sampleDataset)
	older := make(chan result, 1)
	go func() {
		r, err := svc.Submit(ctx, "conn-1", first)
		older <- result{r, err}
	}()

	select {
	case <-repo.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first submission never reached the store")
	}

	newer, err := svc.Submit(ctx, "conn-1", dataset(t, `{"initial_capital": 2000, "trades": {}}`))
	require.NoError(t, err)
	assert.Equal(t, 2000.0, newer.Metrics.InitialCapital)

	select {
	case r := <-older:
		assert.ErrorIs(t, r.err, ErrSuperseded)
		assert.Nil(t, r.report)
	case <-time.After(5 * time.Second):
		t.Fatal("older submission did not return")
	}

	assert.Equal(t, 0, svc.InFlight())
}

func TestBegin_ClaimOrderDecidesWinner(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()
	older := dataset(t, sampleDataset)
	newer := dataset(t, `{"initial_capital": 2000, "trades": {}}`)

	first := svc.Begin(ctx, "conn-1")
	second := svc.Begin(ctx, "conn-1")
	assert.Equal(t, 1, svc.InFlight())

	// the later claim wins even when it runs first
	report, err := second.Run(newer)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, report.Metrics.InitialCapital)

	report, err = first.Run(older)
	assert.ErrorIs(t, err, ErrSuperseded)
	assert.Nil(t, report)

	assert.Equal(t, 0, svc.InFlight())
}

func TestSubmit_DistinctKeysIndependent(t *testing.T) {
	repo := newBlockingRepo()
	svc := newService(repo)
	ctx := context.Background()

	ds := dataset(t, sampleDataset)
	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(ctx, "a", ds)
		done <- err
	}()
	<-repo.entered

	_, err := svc.Submit(ctx, "b", dataset(t, `{"initial_capital": 1, "trades": {}}`))
	require.NoError(t, err)

	close(repo.release)
	assert.NoError(t, <-done)
}

func TestSubmit_ParentCancelIsNotSuperseded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(nil).Submit(ctx, "k", dataset(t, sampleDataset))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSuperseded))
	assert.ErrorIs(t, err, context.Canceled)
}
