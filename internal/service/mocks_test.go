package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/internal/models"
	"github.com/cryptofolio/internal/storage"
	"github.com/cryptofolio/internal/types"
)

// Mock repositories for testing

type mockPortfolioRepo struct {
	portfolios map[string]*models.Portfolio
}

func newMockPortfolioRepo() *mockPortfolioRepo {
	return &mockPortfolioRepo{portfolios: make(map[string]*models.Portfolio)}
}

func (m *mockPortfolioRepo) Create(ctx context.Context, portfolio *models.Portfolio) error {
	if portfolio.ID == "" {
		portfolio.ID = fmt.Sprintf("test-portfolio-%d", len(m.portfolios)+1)
	}
	portfolio.CreatedAt = time.Now().UTC()
	portfolio.UpdatedAt = portfolio.CreatedAt
	m.portfolios[portfolio.ID] = portfolio
	return nil
}

func (m *mockPortfolioRepo) GetByIDAndUser(ctx context.Context, id, userID string) (*models.Portfolio, error) {
	if p, ok := m.portfolios[id]; ok && p.UserID == userID {
		return p, nil
	}
	return nil, &types.ServiceError{Code: "PORTFOLIO_NOT_FOUND", Message: "portfolio not found"}
}

func (m *mockPortfolioRepo) ExistsByIDAndUser(ctx context.Context, id, userID string) (bool, error) {
	p, ok := m.portfolios[id]
	return ok && p.UserID == userID, nil
}

func (m *mockPortfolioRepo) ListByUser(ctx context.Context, userID string) ([]*models.Portfolio, error) {
	var result []*models.Portfolio
	for _, p := range m.portfolios {
		if p.UserID == userID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockPortfolioRepo) DeleteByIDAndUser(ctx context.Context, id, userID string) error {
	if p, ok := m.portfolios[id]; ok && p.UserID == userID {
		delete(m.portfolios, id)
		return nil
	}
	return &types.ServiceError{Code: "PORTFOLIO_NOT_FOUND", Message: "portfolio not found"}
}

type mockLedger struct {
	transactions []models.Transaction
}

func (m *mockLedger) ListByPortfolio(ctx context.Context, portfolioID string, since *time.Time) ([]models.Transaction, error) {
	var result []models.Transaction
	for _, tx := range m.transactions {
		if tx.PortfolioID != portfolioID {
			continue
		}
		if since != nil && tx.Timestamp.Before(*since) {
			continue
		}
		result = append(result, tx)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.Before(result[j].Timestamp) })
	return result, nil
}

func (m *mockLedger) GetBuyTransactions(ctx context.Context, portfolioID, assetKey string) ([]models.Transaction, error) {
	var result []models.Transaction
	for _, tx := range m.transactions {
		if tx.PortfolioID == portfolioID && tx.AssetKey == assetKey && tx.IsBuy() {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (m *mockLedger) GetHeldQuantity(ctx context.Context, portfolioID, assetKey string) (decimal.Decimal, error) {
	held := decimal.Zero
	for _, tx := range m.transactions {
		if tx.PortfolioID != portfolioID || tx.AssetKey != assetKey {
			continue
		}
		if tx.IsBuy() {
			held = held.Add(tx.Quantity)
		} else {
			held = held.Sub(tx.Quantity)
		}
	}
	return held, nil
}

func (m *mockLedger) ListHeldAssets(ctx context.Context, portfolioID string) ([]storage.HeldAsset, error) {
	seen := make(map[string]types.AssetKind)
	for _, tx := range m.transactions {
		if tx.PortfolioID == portfolioID {
			seen[tx.AssetKey] = tx.AssetKind
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	result := make([]storage.HeldAsset, 0, len(keys))
	for _, key := range keys {
		result = append(result, storage.HeldAsset{Key: key, Kind: seen[key]})
	}
	return result, nil
}

type mockSnapshotStore struct {
	latest     map[string]*models.PriceSnapshot
	earliest   map[string]*models.PriceSnapshot
	historical map[string]*models.PriceSnapshot
	series     map[string][]models.PriceSnapshot
	inserted   [][]models.PriceSnapshot
	insertErr  error
	failures   int
	lastFrom   time.Time
	lastTo     time.Time
}

func newMockSnapshotStore() *mockSnapshotStore {
	return &mockSnapshotStore{
		latest:     make(map[string]*models.PriceSnapshot),
		earliest:   make(map[string]*models.PriceSnapshot),
		historical: make(map[string]*models.PriceSnapshot),
		series:     make(map[string][]models.PriceSnapshot),
	}
}

func (m *mockSnapshotStore) GetLatest(ctx context.Context, assetKey string) (*models.PriceSnapshot, error) {
	return m.latest[assetKey], nil
}

func (m *mockSnapshotStore) GetEarliest(ctx context.Context, assetKey string) (*models.PriceSnapshot, error) {
	return m.earliest[assetKey], nil
}

func (m *mockSnapshotStore) GetAtOrBefore(ctx context.Context, assetKey string, asOf time.Time) (*models.PriceSnapshot, error) {
	return m.historical[assetKey], nil
}

func (m *mockSnapshotStore) GetSeries(ctx context.Context, assetKey string, from, to time.Time) ([]models.PriceSnapshot, error) {
	m.lastFrom, m.lastTo = from, to
	return m.series[assetKey], nil
}

func (m *mockSnapshotStore) InsertBatch(ctx context.Context, snapshots []models.PriceSnapshot) error {
	if m.failures > 0 {
		m.failures--
		return fmt.Errorf("transient insert failure")
	}
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, snapshots)
	return nil
}

type mockNames struct {
	names map[string]string
}

func (m *mockNames) GetDisplayName(ctx context.Context, key string) string {
	if name, ok := m.names[key]; ok {
		return name
	}
	return models.UnknownAssetName
}

type mockAssetStore struct {
	upserted []*models.Asset
}

func (m *mockAssetStore) Upsert(ctx context.Context, asset *models.Asset) error {
	m.upserted = append(m.upserted, asset)
	return nil
}

// mockCache stores JSON-encoded entries so cached views round-trip the
// same way they do through Redis.
type mockCache struct {
	entries       map[string][]byte
	invalidated   []string
	invalidAssets []string
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *mockCache) InvalidatePortfolio(ctx context.Context, portfolioID string) error {
	m.invalidated = append(m.invalidated, portfolioID)
	delete(m.entries, storage.SummaryKey(portfolioID))
	delete(m.entries, storage.PositionsKey(portfolioID))
	return nil
}

func (m *mockCache) InvalidateAsset(ctx context.Context, assetKey string) error {
	m.invalidAssets = append(m.invalidAssets, assetKey)
	delete(m.entries, storage.QuoteKey(assetKey))
	return nil
}

// Test data helpers

func buyAt(portfolioID, assetKey string, qty, price float64, ts time.Time) models.Transaction {
	return models.Transaction{
		ID:           fmt.Sprintf("tx-%s-%d", assetKey, ts.Unix()),
		PortfolioID:  portfolioID,
		AssetKey:     assetKey,
		AssetKind:    types.KindCoin,
		Type:         types.TypeBuy,
		Quantity:     decimal.NewFromFloat(qty),
		PricePerUnit: decimal.NewFromFloat(price),
		TotalValue:   decimal.NewFromFloat(qty * price),
		Timestamp:    ts,
	}
}

func sellAt(portfolioID, assetKey string, qty, price float64, ts time.Time) models.Transaction {
	tx := buyAt(portfolioID, assetKey, qty, price, ts)
	tx.Type = types.TypeSell
	return tx
}

func snapshot(assetKey string, ts time.Time, price float64) models.PriceSnapshot {
	return models.PriceSnapshot{
		AssetKey:  assetKey,
		Timestamp: ts,
		Price:     decimal.NewFromFloat(price),
	}
}
