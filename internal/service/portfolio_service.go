package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/internal/adapter"
	"github.com/cryptofolio/internal/analytics"
	"github.com/cryptofolio/internal/logging"
	"github.com/cryptofolio/internal/models"
	"github.com/cryptofolio/internal/storage"
	"github.com/cryptofolio/internal/types"
)

// Repository interfaces for dependency injection

// PortfolioStore is the portfolio persistence surface the service uses.
type PortfolioStore interface {
	Create(ctx context.Context, portfolio *models.Portfolio) error
	GetByIDAndUser(ctx context.Context, id, userID string) (*models.Portfolio, error)
	ExistsByIDAndUser(ctx context.Context, id, userID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Portfolio, error)
	DeleteByIDAndUser(ctx context.Context, id, userID string) error
}

// LedgerReader reads transaction ledgers for valuation.
type LedgerReader interface {
	ListByPortfolio(ctx context.Context, portfolioID string, since *time.Time) ([]models.Transaction, error)
	GetBuyTransactions(ctx context.Context, portfolioID, assetKey string) ([]models.Transaction, error)
	GetHeldQuantity(ctx context.Context, portfolioID, assetKey string) (decimal.Decimal, error)
	ListHeldAssets(ctx context.Context, portfolioID string) ([]storage.HeldAsset, error)
}

// ViewCache caches derived portfolio views between ledger mutations.
type ViewCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	InvalidatePortfolio(ctx context.Context, portfolioID string) error
}

// PortfolioService manages portfolios and computes their valuated views.
type PortfolioService struct {
	portfolioRepo PortfolioStore
	ledger        LedgerReader
	snapshots     adapter.SnapshotSource
	names         adapter.NameSource
	cache         ViewCache
	now           func() time.Time
}

// NewPortfolioService creates a new portfolio service. A nil clock
// defaults to time.Now.
func NewPortfolioService(
	portfolioRepo PortfolioStore,
	ledger LedgerReader,
	snapshots adapter.SnapshotSource,
	names adapter.NameSource,
	cache ViewCache,
	now func() time.Time,
) *PortfolioService {
	if now == nil {
		now = time.Now
	}
	return &PortfolioService{
		portfolioRepo: portfolioRepo,
		ledger:        ledger,
		snapshots:     snapshots,
		names:         names,
		cache:         cache,
		now:           now,
	}
}

// CreatePortfolioInput represents input for creating a portfolio
type CreatePortfolioInput struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// PerformersView pairs the best and worst holding of a portfolio. Either
// side is nil when the portfolio holds no positions.
type PerformersView struct {
	Best  *analytics.Performer `json:"best,omitempty"`
	Worst *analytics.Performer `json:"worst,omitempty"`
}

// CreatePortfolio creates a new empty portfolio for a user.
func (s *PortfolioService) CreatePortfolio(ctx context.Context, input *CreatePortfolioInput) (*models.Portfolio, error) {
	if input.UserID == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "userId is required",
		}
	}
	if input.Name == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "portfolio name is required",
		}
	}

	portfolio := &models.Portfolio{
		UserID: input.UserID,
		Name:   input.Name,
	}
	if err := s.portfolioRepo.Create(ctx, portfolio); err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}
	return portfolio, nil
}

// ListPortfolios returns all portfolios owned by a user.
func (s *PortfolioService) ListPortfolios(ctx context.Context, userID string) ([]*models.Portfolio, error) {
	if userID == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "userId is required",
		}
	}
	portfolios, err := s.portfolioRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	return portfolios, nil
}

// DeletePortfolio removes a portfolio and drops its cached views.
func (s *PortfolioService) DeletePortfolio(ctx context.Context, portfolioID, userID string) error {
	if err := s.portfolioRepo.DeleteByIDAndUser(ctx, portfolioID, userID); err != nil {
		return err
	}
	if err := s.cache.InvalidatePortfolio(ctx, portfolioID); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Failed to invalidate cache after portfolio delete")
	}
	return nil
}

// GetPositions recomputes every valuated position of a portfolio from its
// ledger and the latest snapshots. Positions are ordered by asset key so
// repeated calls over an unchanged ledger return identical output.
func (s *PortfolioService) GetPositions(ctx context.Context, portfolioID, userID string) ([]analytics.Position, error) {
	if err := s.requirePortfolio(ctx, portfolioID, userID); err != nil {
		return nil, err
	}

	var cached []analytics.Position
	if found, err := s.cache.Get(ctx, storage.PositionsKey(portfolioID), &cached); err == nil && found {
		return cached, nil
	}

	held, err := s.ledger.ListHeldAssets(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list held assets: %w", err)
	}

	positions := make([]analytics.Position, 0, len(held))
	for _, asset := range held {
		position, err := s.buildPosition(ctx, portfolioID, asset)
		if err != nil {
			return nil, err
		}
		if position == nil {
			// Fully exited holdings are skipped, not shown at zero.
			continue
		}
		positions = append(positions, *position)
	}

	if err := s.cache.Set(ctx, storage.PositionsKey(portfolioID), positions); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Failed to cache positions")
	}
	return positions, nil
}

// GetSummary aggregates a portfolio's positions into one view with the
// 24h net change computed from transaction cash flow, not price moves.
func (s *PortfolioService) GetSummary(ctx context.Context, portfolioID, userID string) (*analytics.Summary, error) {
	var cached analytics.Summary
	if found, err := s.cache.Get(ctx, storage.SummaryKey(portfolioID), &cached); err == nil && found {
		if err := s.requirePortfolio(ctx, portfolioID, userID); err != nil {
			return nil, err
		}
		return &cached, nil
	}

	positions, err := s.GetPositions(ctx, portfolioID, userID)
	if err != nil {
		return nil, err
	}
	transactions, err := s.ledger.ListByPortfolio(ctx, portfolioID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	summary := analytics.Aggregate(positions)
	summary.NetChange24h, summary.NetChange24hPercent = analytics.NetChange24h(transactions, summary.TotalInvestment, s.now())

	if err := s.cache.Set(ctx, storage.SummaryKey(portfolioID), summary); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Failed to cache summary")
	}
	return &summary, nil
}

// GetPerformers returns the best and worst position by absolute profit.
func (s *PortfolioService) GetPerformers(ctx context.Context, portfolioID, userID string) (*PerformersView, error) {
	positions, err := s.GetPositions(ctx, portfolioID, userID)
	if err != nil {
		return nil, err
	}

	resolve := func(assetKey string) string {
		return s.names.GetDisplayName(ctx, assetKey)
	}

	view := &PerformersView{}
	if best, ok := analytics.BestPerformer(positions, resolve); ok {
		view.Best = &best
	}
	if worst, ok := analytics.WorstPerformer(positions, resolve); ok {
		view.Worst = &worst
	}
	return view, nil
}

func (s *PortfolioService) requirePortfolio(ctx context.Context, portfolioID, userID string) error {
	exists, err := s.portfolioRepo.ExistsByIDAndUser(ctx, portfolioID, userID)
	if err != nil {
		return fmt.Errorf("failed to verify portfolio ownership: %w", err)
	}
	if !exists {
		return &types.ServiceError{
			Code:    "PORTFOLIO_NOT_FOUND",
			Message: fmt.Sprintf("portfolio not found or access denied: %s", portfolioID),
		}
	}
	return nil
}

// buildPosition valuates one holding. Returns nil for fully exited
// holdings. Window changes are fetched concurrently per frame; a frame
// whose snapshot lookup fails resolves to nil rather than failing the
// whole position.
func (s *PortfolioService) buildPosition(ctx context.Context, portfolioID string, asset storage.HeldAsset) (*analytics.Position, error) {
	quantityHeld, err := s.ledger.GetHeldQuantity(ctx, portfolioID, asset.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to compute held quantity for %s: %w", asset.Key, err)
	}
	if quantityHeld.IsZero() || quantityHeld.IsNegative() {
		return nil, nil
	}

	buys, err := s.ledger.GetBuyTransactions(ctx, portfolioID, asset.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load buy transactions for %s: %w", asset.Key, err)
	}
	costBasis := analytics.ComputeCostBasis(buys)

	assetAdapter, err := adapter.ForAsset(asset.Key, asset.Kind, s.snapshots, s.names)
	if err != nil {
		return nil, err
	}

	currentPrice := decimal.Zero
	var cachedQuote decimal.Decimal
	if found, err := s.cache.Get(ctx, storage.QuoteKey(asset.Key), &cachedQuote); err == nil && found {
		currentPrice = cachedQuote
	} else {
		latest, err := assetAdapter.LatestPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch latest price for %s: %w", asset.Key, err)
		}
		if latest != nil {
			currentPrice = *latest
			// Cached quotes are dropped by snapshot ingestion; a quote
			// miss is never cached.
			if err := s.cache.Set(ctx, storage.QuoteKey(asset.Key), currentPrice); err != nil {
				logging.FromContext(ctx).WithError(err).Warn("Failed to cache latest quote")
			}
		}
	}

	valuation := analytics.ValuatePosition(quantityHeld, currentPrice, costBasis.WeightedAvgBuyPrice, nil)

	position := &analytics.Position{
		PortfolioID:         portfolioID,
		AssetKey:            asset.Key,
		AssetKind:           asset.Kind,
		DisplayName:         assetAdapter.DisplayName(ctx),
		QuantityHeld:        quantityHeld,
		WeightedAvgBuyPrice: costBasis.WeightedAvgBuyPrice,
		CurrentPrice:        currentPrice,
		CurrentValue:        quantityHeld.Mul(currentPrice),
		PnLAmount:           valuation.PnLAmount,
		PnLPercent:          valuation.PnLPercent,
		PnLPercentDisplay:   analytics.FormatSignedPercent(valuation.PnLPercent),
		WindowChanges:       s.windowChanges(ctx, assetAdapter, currentPrice),
	}
	return position, nil
}

func (s *PortfolioService) windowChanges(ctx context.Context, assetAdapter adapter.AssetAdapter, currentPrice decimal.Decimal) map[types.TimeFrame]*decimal.Decimal {
	now := s.now()
	logger := logging.FromContext(ctx)

	changes := make(map[types.TimeFrame]*decimal.Decimal, len(types.AllFrames))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, frame := range types.AllFrames {
		lookback, bounded := frame.Duration()

		wg.Add(1)
		go func(frame types.TimeFrame, lookback time.Duration, bounded bool) {
			defer wg.Done()

			var (
				then *decimal.Decimal
				err  error
			)
			if bounded {
				then, err = assetAdapter.PriceAsOf(ctx, now.Add(-lookback))
			} else {
				// The all-time window is anchored at the asset's first
				// recorded snapshot.
				then, err = assetAdapter.EarliestPrice(ctx)
			}

			var change *decimal.Decimal
			if err != nil {
				logger.WithFields(map[string]interface{}{
					"assetKey": assetAdapter.Key(),
					"frame":    string(frame),
					"error":    err.Error(),
				}).Warn("Failed to fetch historical price for window change")
			} else {
				change = analytics.PercentChange(currentPrice, then)
			}

			mu.Lock()
			changes[frame] = change
			mu.Unlock()
		}(frame, lookback, bounded)
	}

	wg.Wait()
	return changes
}
