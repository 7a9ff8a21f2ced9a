package rebalancing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	testingpkg "github.com/aristath/folio/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

type recordingPublisher struct {
	events []events.EventData
}

func (p *recordingPublisher) Emit(module string, data events.EventData) {
	p.events = append(p.events, data)
}

// balancedPortfolio raises no recommendations
func balancedPortfolio(userID string) []domain.Holding {
	var out []domain.Holding
	base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	for i, sector := range []string{"IT", "Banking", "Energy", "Pharma", "Auto"} {
		h := holding(sector, sector, 1, 100, 100)
		h.ID = userID + "-" + h.ID
		h.UserID = userID
		h.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		out = append(out, h)
	}
	return out
}

func newStore() *testingpkg.MockHoldingsStore {
	seed := append(testingpkg.NewHoldingFixtures(), balancedPortfolio("user-balanced")...)
	return testingpkg.NewMockHoldingsStore(seed...)
}

func TestService_CheckUser(t *testing.T) {
	svc := NewService(newStore(), nil, zerolog.Nop())

	analysis, err := svc.CheckUser(context.Background(), testingpkg.FixtureUserID)
	require.NoError(t, err)
	assert.Len(t, analysis.Recommendations, 2)

	analysis, err = svc.CheckUser(context.Background(), "user-balanced")
	require.NoError(t, err)
	assert.Empty(t, analysis.Recommendations)
	assert.Equal(t, 5, analysis.HoldingsCount)
}

func TestService_CheckAll(t *testing.T) {
	gen := &fakeGenerator{reply: "Most portfolios lean heavily on fixed deposits."}
	svc := NewService(newStore(), gen, zerolog.Nop())

	report, err := svc.CheckAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.PortfoliosAnalyzed)
	assert.Equal(t, 1, report.PortfoliosNeedingAttention)
	require.Len(t, report.Portfolios, 1)
	assert.Equal(t, testingpkg.FixtureUserID, report.Portfolios[0].UserID)
	assert.Equal(t, gen.reply, report.AISummary)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "SBIFD represents 52.0% of portfolio. Consider trimming.")
	assert.NotContains(t, gen.prompts[0], "user-balanced")
}

func TestService_CheckAll_SummaryIsOptional(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exhausted")}
	svc := NewService(newStore(), gen, zerolog.Nop())

	report, err := svc.CheckAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.AISummary)
	assert.Equal(t, 1, report.PortfoliosNeedingAttention)
}

func TestService_CheckAll_NothingToSummarize(t *testing.T) {
	gen := &fakeGenerator{reply: "unused"}
	svc := NewService(testingpkg.NewMockHoldingsStore(balancedPortfolio("user-balanced")...), gen, zerolog.Nop())

	report, err := svc.CheckAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.PortfoliosNeedingAttention)
	assert.NotNil(t, report.Portfolios)
	assert.Empty(t, gen.prompts)
}

func TestService_LoadError(t *testing.T) {
	store := newStore()
	store.ListErr = errors.New("disk I/O error")
	svc := NewService(store, nil, zerolog.Nop())

	_, err := svc.CheckAll(context.Background())
	assert.ErrorContains(t, err, "disk I/O error")

	_, err = svc.CheckUser(context.Background(), "u")
	assert.Error(t, err)
}

func TestJob_Run(t *testing.T) {
	publisher := &recordingPublisher{}
	job := NewJob(NewService(newStore(), nil, zerolog.Nop()), publisher, zerolog.Nop())

	assert.Equal(t, JobName, job.Name())
	assert.Nil(t, job.LastReport())

	require.NoError(t, job.Run())

	require.NotNil(t, job.LastReport())
	require.Len(t, publisher.events, 1)
	assert.Equal(t, &events.RebalanceCheckedData{
		PortfoliosAnalyzed:         2,
		PortfoliosNeedingAttention: 1,
	}, publisher.events[0])
}

func TestJob_RunFailure(t *testing.T) {
	store := newStore()
	store.ListErr = errors.New("locked")
	publisher := &recordingPublisher{}
	job := NewJob(NewService(store, nil, zerolog.Nop()), publisher, zerolog.Nop())

	assert.Error(t, job.Run())
	assert.Nil(t, job.LastReport())
	assert.Empty(t, publisher.events)
}
