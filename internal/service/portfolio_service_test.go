package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/internal/models"
	"github.com/cryptofolio/internal/storage"
	"github.com/cryptofolio/internal/types"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newPortfolioFixture(t *testing.T) (*PortfolioService, *mockPortfolioRepo, *mockLedger, *mockSnapshotStore, *mockCache) {
	t.Helper()
	portfolios := newMockPortfolioRepo()
	ledger := &mockLedger{}
	snapshots := newMockSnapshotStore()
	cache := newMockCache()
	names := &mockNames{names: map[string]string{
		"coin:bitcoin":  "Bitcoin",
		"coin:ethereum": "Ethereum",
	}}
	svc := NewPortfolioService(portfolios, ledger, snapshots, names, cache, fixedClock)
	return svc, portfolios, ledger, snapshots, cache
}

func seedPortfolio(t *testing.T, repo *mockPortfolioRepo, id, userID string) {
	t.Helper()
	if err := repo.Create(context.Background(), &models.Portfolio{ID: id, UserID: userID, Name: "main"}); err != nil {
		t.Fatalf("failed to seed portfolio: %v", err)
	}
}

func TestCreatePortfolio_Validation(t *testing.T) {
	svc, _, _, _, _ := newPortfolioFixture(t)

	cases := []struct {
		name  string
		input CreatePortfolioInput
	}{
		{"missing user", CreatePortfolioInput{Name: "main"}},
		{"missing name", CreatePortfolioInput{UserID: "user-1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreatePortfolio(context.Background(), &tc.input)
			var svcErr *types.ServiceError
			if !errors.As(err, &svcErr) || svcErr.Code != "INVALID_INPUT" {
				t.Errorf("expected INVALID_INPUT, got %v", err)
			}
		})
	}
}

func TestCreatePortfolio_AssignsID(t *testing.T) {
	svc, _, _, _, _ := newPortfolioFixture(t)

	portfolio, err := svc.CreatePortfolio(context.Background(), &CreatePortfolioInput{UserID: "user-1", Name: "main"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if portfolio.ID == "" {
		t.Error("expected portfolio ID to be assigned")
	}
}

func TestGetPositions_UnknownPortfolio(t *testing.T) {
	svc, _, _, _, _ := newPortfolioFixture(t)

	_, err := svc.GetPositions(context.Background(), "missing", "user-1")
	var svcErr *types.ServiceError
	if !errors.As(err, &svcErr) || svcErr.Code != "PORTFOLIO_NOT_FOUND" {
		t.Errorf("expected PORTFOLIO_NOT_FOUND, got %v", err)
	}
}

func TestGetPositions_ValuatesHoldings(t *testing.T) {
	svc, portfolios, ledger, snapshots, _ := newPortfolioFixture(t)
	seedPortfolio(t, portfolios, "pf-1", "user-1")

	// Two buys at 50k and 60k, held 2.5 BTC.
	ledger.transactions = []models.Transaction{
		buyAt("pf-1", "coin:bitcoin", 1.5, 50000, testNow.Add(-48*time.Hour)),
		buyAt("pf-1", "coin:bitcoin", 1.0, 80000, testNow.Add(-24*time.Hour)),
	}
	latest := snapshot("coin:bitcoin", testNow, 72000)
	snapshots.latest["coin:bitcoin"] = &latest
	historical := snapshot("coin:bitcoin", testNow.Add(-30*time.Hour), 60000)
	snapshots.historical["coin:bitcoin"] = &historical

	positions, err := svc.GetPositions(context.Background(), "pf-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}

	p := positions[0]
	if !p.QuantityHeld.Equal(decimal.NewFromFloat(2.5)) {
		t.Errorf("expected 2.5 held, got %s", p.QuantityHeld)
	}
	// Cost 155000 over 2.5 units = 62000 weighted average.
	if !p.WeightedAvgBuyPrice.Equal(decimal.NewFromInt(62000)) {
		t.Errorf("expected avg buy price 62000, got %s", p.WeightedAvgBuyPrice)
	}
	if !p.CurrentValue.Equal(decimal.NewFromInt(180000)) {
		t.Errorf("expected current value 180000, got %s", p.CurrentValue)
	}
	if !p.PnLAmount.Equal(decimal.NewFromInt(25000)) {
		t.Errorf("expected pnl 25000, got %s", p.PnLAmount)
	}
	if p.DisplayName != "Bitcoin" {
		t.Errorf("expected display name Bitcoin, got %s", p.DisplayName)
	}

	change := p.WindowChanges[types.Frame24H]
	if change == nil {
		t.Fatal("expected a 24h window change")
	}
	// 72000 vs 60000 = +20%.
	if !change.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected 24h change 20, got %s", change)
	}
}

func TestGetPositions_AllTimeWindowChange(t *testing.T) {
	svc, portfolios, ledger, snapshots, _ := newPortfolioFixture(t)
	seedPortfolio(t, portfolios, "pf-1", "user-1")

	ledger.transactions = []models.Transaction{
		buyAt("pf-1", "coin:bitcoin", 1, 50000, testNow.Add(-48*time.Hour)),
	}
	latest := snapshot("coin:bitcoin", testNow, 72000)
	snapshots.latest["coin:bitcoin"] = &latest
	earliest := snapshot("coin:bitcoin", testNow.Add(-400*24*time.Hour), 36000)
	snapshots.earliest["coin:bitcoin"] = &earliest

	positions, err := svc.GetPositions(context.Background(), "pf-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}

	p := positions[0]
	if len(p.WindowChanges) != len(types.AllFrames) {
		t.Errorf("expected a change entry for every frame, got %d of %d", len(p.WindowChanges), len(types.AllFrames))
	}
	change, ok := p.WindowChanges[types.FrameAll]
	if !ok {
		t.Fatal("expected an all-time window change entry")
	}
	if change == nil {
		t.Fatal("expected an all-time change value, got nil")
	}
	// 72000 vs the first recorded 36000 = +100%.
	if !change.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected all-time change 100, got %s", change)
	}
}

func TestGetPositions_CachesLatestQuote(t *testing.T) {
	svc, portfolios, ledger, snapshots, cache := newPortfolioFixture(t)
	seedPortfolio(t, portfolios, "pf-1", "user-1")

	ledger.transactions = []models.Transaction{
		buyAt("pf-1", "coin:bitcoin", 1, 50000, testNow.Add(-time.Hour)),
	}
	latest := snapshot("coin:bitcoin", testNow, 60000)
	snapshots.latest["coin:bitcoin"] = &latest

	if _, err := svc.GetPositions(context.Background(), "pf-1", "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cache.entries[storage.QuoteKey("coin:bitcoin")]; !ok {
		t.Fatal("expected latest quote to be cached on read")
	}

	// A fresher store price stays invisible until the quote is dropped;
	// invalidate the portfolio views so the position itself recomputes.
	fresher := snapshot("coin:bitcoin", testNow, 90000)
	snapshots.latest["coin:bitcoin"] = &fresher
	if err := cache.InvalidatePortfolio(context.Background(), "pf-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	positions, err := svc.GetPositions(context.Background(), "pf-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !positions[0].CurrentPrice.Equal(decimal.NewFromInt(60000)) {
		t.Errorf("expected cached quote 60000, got %s", positions[0].CurrentPrice)
	}

	if err := cache.InvalidateAsset(context.Background(), "coin:bitcoin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cache.InvalidatePortfolio(context.Background(), "pf-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	positions, err = svc.GetPositions(context.Background(), "pf-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !positions[0].CurrentPrice.Equal(decimal.NewFromInt(90000)) {
		t.Errorf("expected fresh quote 90000 after invalidation, got %s", positions[0].CurrentPrice)
	}
}

func TestGetPositions_SkipsExitedHoldings(t *testing.T) {
	svc, portfolios, ledger, _, _ := newPortfolioFixture(t)
	seedPortfolio(t, portfolios, "pf-1", "user-1")

	ledger.transactions = []models.Transaction{
		buyAt("pf-1", "coin:ethereum", 10, 2000, testNow.Add(-72*time.Hour)),
		sellAt("pf-1", "coin:ethereum", 10, 2500, testNow.Add(-12*time.Hour)),
	}

	positions, err := svc.GetPositions(context.Background(), "pf-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("expected no positions for a fully exited holding, got %d", len(positions))
	}
}

func TestGetPositions_NoSnapshotValuesAtZero(t *testing.T) {
	svc, portfolios, ledger, _, _ := newPortfolioFixture(t)
	seedPortfolio(t, portfolios, "pf-1", "user-1")

	ledger.transactions = []models.Transaction{
		buyAt("pf-1", "coin:bitcoin", 1, 50000, testNow.Add(-time.Hour)),
	}

	positions, err := svc.GetPositions(context.Background(), "pf-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}

	p := positions[0]
	if !p.CurrentPrice.IsZero() || !p.CurrentValue.IsZero() {
		t.Errorf("expected zero valuation without snapshots, got price=%s value=%s", p.CurrentPrice, p.CurrentValue)
	}
	for frame, change := range p.WindowChanges {
		if change != nil {
			t.Errorf("expected nil %s change without history, got %s", frame, change)
		}
	}
}

func TestGetPositions_ServedFromCache(t *testing.T) {
	svc, portfolios, ledger, snapshots, _ := newPortfolioFixture(t)
	seedPortfolio(t, portfolios, "pf-1", "user-1")

	ledger.transactions = []models.Transaction{
		buyAt("pf-1", "coin:bitcoin", 1, 50000, testNow.Add(-time.Hour)),
	}
	latest := snapshot("coin:bitcoin", testNow, 60000)
	snapshots.latest["coin:bitcoin"] = &latest

	first, err := svc.GetPositions(context.Background(), "pf-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A ledger change without invalidation must not be visible yet.
	ledger.transactions = append(ledger.transactions, buyAt("pf-1", "coin:ethereum", 5, 2000, testNow))

	second, err := svc.GetPositions(context.Background(), "pf-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second) != len(first) {
		t.Errorf("expected cached positions, got %d vs %d", len(second), len(first))
	}
}

func TestGetSummary_AggregatesAndNetChange(t *testing.T) {
	svc, portfolios, ledger, snapshots, _ := newPortfolioFixture(t)
	seedPortfolio(t, portfolios, "pf-1", "user-1")

	ledger.transactions = []models.Transaction{
		buyAt("pf-1", "coin:bitcoin", 2, 50000, testNow.Add(-48*time.Hour)),
		buyAt("pf-1", "coin:bitcoin", 1, 55000, testNow.Add(-6*time.Hour)),
	}
	latest := snapshot("coin:bitcoin", testNow, 60000)
	snapshots.latest["coin:bitcoin"] = &latest

	summary, err := svc.GetSummary(context.Background(), "pf-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !summary.TotalValueNow.Equal(decimal.NewFromInt(180000)) {
		t.Errorf("expected total value 180000, got %s", summary.TotalValueNow)
	}
	if !summary.TotalInvestment.Equal(decimal.NewFromInt(155000)) {
		t.Errorf("expected investment 155000, got %s", summary.TotalInvestment)
	}
	if !summary.AllTimeProfit.Equal(decimal.NewFromInt(25000)) {
		t.Errorf("expected profit 25000, got %s", summary.AllTimeProfit)
	}
	// Only the 55000 buy falls inside the 24h window.
	if !summary.NetChange24h.Equal(decimal.NewFromInt(55000)) {
		t.Errorf("expected 24h net change 55000, got %s", summary.NetChange24h)
	}
}

func TestGetPerformers_BestAndWorst(t *testing.T) {
	svc, portfolios, ledger, snapshots, _ := newPortfolioFixture(t)
	seedPortfolio(t, portfolios, "pf-1", "user-1")

	ledger.transactions = []models.Transaction{
		buyAt("pf-1", "coin:bitcoin", 1, 50000, testNow.Add(-48*time.Hour)),
		buyAt("pf-1", "coin:ethereum", 10, 3000, testNow.Add(-48*time.Hour)),
	}
	btc := snapshot("coin:bitcoin", testNow, 60000)
	eth := snapshot("coin:ethereum", testNow, 2500)
	snapshots.latest["coin:bitcoin"] = &btc
	snapshots.latest["coin:ethereum"] = &eth

	view, err := svc.GetPerformers(context.Background(), "pf-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Best == nil || view.Best.AssetKey != "coin:bitcoin" {
		t.Errorf("expected bitcoin as best performer, got %+v", view.Best)
	}
	if view.Worst == nil || view.Worst.AssetKey != "coin:ethereum" {
		t.Errorf("expected ethereum as worst performer, got %+v", view.Worst)
	}
}

func TestGetPerformers_EmptyPortfolio(t *testing.T) {
	svc, portfolios, _, _, _ := newPortfolioFixture(t)
	seedPortfolio(t, portfolios, "pf-1", "user-1")

	view, err := svc.GetPerformers(context.Background(), "pf-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Best != nil || view.Worst != nil {
		t.Errorf("expected nil performers for empty portfolio, got %+v", view)
	}
}

func TestDeletePortfolio_InvalidatesCache(t *testing.T) {
	svc, portfolios, _, _, cache := newPortfolioFixture(t)
	seedPortfolio(t, portfolios, "pf-1", "user-1")

	if err := svc.DeletePortfolio(context.Background(), "pf-1", "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "pf-1" {
		t.Errorf("expected cache invalidation for pf-1, got %v", cache.invalidated)
	}
}
