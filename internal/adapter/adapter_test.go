package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/internal/models"
	"github.com/cryptofolio/internal/types"
)

type mockSnapshotSource struct {
	latest     map[string]*models.PriceSnapshot
	earliest   map[string]*models.PriceSnapshot
	atOrBefore map[string]*models.PriceSnapshot
	err        error
}

func (m *mockSnapshotSource) GetLatest(ctx context.Context, assetKey string) (*models.PriceSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.latest[assetKey], nil
}

func (m *mockSnapshotSource) GetEarliest(ctx context.Context, assetKey string) (*models.PriceSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.earliest[assetKey], nil
}

func (m *mockSnapshotSource) GetAtOrBefore(ctx context.Context, assetKey string, asOf time.Time) (*models.PriceSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.atOrBefore[assetKey], nil
}

type mockNameSource struct {
	names map[string]string
}

func (m *mockNameSource) GetDisplayName(ctx context.Context, key string) string {
	if name, ok := m.names[key]; ok {
		return name
	}
	return models.UnknownAssetName
}

func snapshotAt(key string, price float64) *models.PriceSnapshot {
	return &models.PriceSnapshot{
		AssetKey:  key,
		Timestamp: time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		Price:     decimal.NewFromFloat(price),
	}
}

func TestForAsset_KindDispatch(t *testing.T) {
	snapshots := &mockSnapshotSource{}
	names := &mockNameSource{}

	coin, err := ForAsset("coin:bitcoin", types.KindCoin, snapshots, names)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coin.Kind() != types.KindCoin {
		t.Errorf("expected coin kind, got %s", coin.Kind())
	}

	pair, err := ForAsset("dexpair:uniswap:weth-usdc", types.KindDexPair, snapshots, names)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.Kind() != types.KindDexPair {
		t.Errorf("expected dexpair kind, got %s", pair.Kind())
	}

	if _, err := ForAsset("x", types.AssetKind("nft"), snapshots, names); !errors.Is(err, ErrUnsupportedKind) {
		t.Errorf("expected ErrUnsupportedKind, got %v", err)
	}
}

func TestCoinAdapter_LatestPrice(t *testing.T) {
	snapshots := &mockSnapshotSource{
		latest: map[string]*models.PriceSnapshot{
			"coin:bitcoin": snapshotAt("coin:bitcoin", 60000),
		},
	}
	a := NewCoinAdapter("coin:bitcoin", snapshots, &mockNameSource{})

	price, err := a.LatestPrice(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price == nil || !price.Equal(decimal.NewFromInt(60000)) {
		t.Errorf("expected 60000, got %v", price)
	}
}

func TestCoinAdapter_EarliestPrice(t *testing.T) {
	snapshots := &mockSnapshotSource{
		earliest: map[string]*models.PriceSnapshot{
			"coin:bitcoin": snapshotAt("coin:bitcoin", 412),
		},
	}
	a := NewCoinAdapter("coin:bitcoin", snapshots, &mockNameSource{})

	price, err := a.EarliestPrice(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price == nil || !price.Equal(decimal.NewFromInt(412)) {
		t.Errorf("expected 412, got %v", price)
	}

	bare := NewCoinAdapter("coin:obscure", &mockSnapshotSource{}, &mockNameSource{})
	price, err = bare.EarliestPrice(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != nil {
		t.Errorf("expected nil price when no snapshot exists, got %v", price)
	}
}

func TestCoinAdapter_NoSnapshotReturnsNil(t *testing.T) {
	a := NewCoinAdapter("coin:bitcoin", &mockSnapshotSource{}, &mockNameSource{})

	price, err := a.LatestPrice(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != nil {
		t.Errorf("expected nil price when no snapshot exists, got %v", price)
	}

	price, err = a.PriceAsOf(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != nil {
		t.Errorf("expected nil price for missing history, got %v", price)
	}
}

func TestCoinAdapter_PropagatesStorageError(t *testing.T) {
	sentinel := errors.New("clickhouse down")
	a := NewCoinAdapter("coin:bitcoin", &mockSnapshotSource{err: sentinel}, &mockNameSource{})

	if _, err := a.LatestPrice(context.Background()); !errors.Is(err, sentinel) {
		t.Errorf("expected storage error, got %v", err)
	}
}

func TestCoinAdapter_DisplayName(t *testing.T) {
	names := &mockNameSource{names: map[string]string{"coin:bitcoin": "Bitcoin"}}
	a := NewCoinAdapter("coin:bitcoin", &mockSnapshotSource{}, names)

	if got := a.DisplayName(context.Background()); got != "Bitcoin" {
		t.Errorf("expected Bitcoin, got %s", got)
	}

	unknown := NewCoinAdapter("coin:obscure", &mockSnapshotSource{}, names)
	if got := unknown.DisplayName(context.Background()); got != models.UnknownAssetName {
		t.Errorf("expected %s, got %s", models.UnknownAssetName, got)
	}
}

func TestDexPairAdapter_DisplayNameFallsBackToPairKey(t *testing.T) {
	names := &mockNameSource{}
	a := NewDexPairAdapter("dexpair:uniswap:weth-usdc", &mockSnapshotSource{}, names)

	if got := a.DisplayName(context.Background()); got != "WETH/USDC" {
		t.Errorf("expected WETH/USDC, got %s", got)
	}

	registered := &mockNameSource{names: map[string]string{"dexpair:uniswap:weth-usdc": "Uniswap WETH/USDC"}}
	b := NewDexPairAdapter("dexpair:uniswap:weth-usdc", &mockSnapshotSource{}, registered)
	if got := b.DisplayName(context.Background()); got != "Uniswap WETH/USDC" {
		t.Errorf("expected registered name to win, got %s", got)
	}
}

func TestPairNameFromKey(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"dexpair:uniswap:weth-usdc", "WETH/USDC"},
		{"dexpair:sushi:wbtc-dai", "WBTC/DAI"},
		{"dexpair:uniswap:malformed", ""},
		{"dexpair:uniswap:-usdc", ""},
	}
	for _, tc := range cases {
		if got := pairNameFromKey(tc.key); got != tc.want {
			t.Errorf("pairNameFromKey(%q): expected %q, got %q", tc.key, tc.want, got)
		}
	}
}
