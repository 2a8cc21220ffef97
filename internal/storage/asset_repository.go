package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cryptofolio/internal/models"
	"github.com/cryptofolio/internal/types"
)

// AssetRepository handles coin and DEX-pair metadata in Postgres.
type AssetRepository struct {
	db *PostgresDB
}

// NewAssetRepository creates a new asset metadata repository
func NewAssetRepository(db *PostgresDB) *AssetRepository {
	return &AssetRepository{db: db}
}

// Upsert inserts or refreshes asset metadata keyed on the asset key.
func (r *AssetRepository) Upsert(ctx context.Context, asset *models.Asset) error {
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO assets (key, kind, symbol, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET symbol = EXCLUDED.symbol, name = EXCLUDED.name
	`

	_, err := r.db.Pool().Exec(ctx, query,
		asset.Key,
		string(asset.Kind),
		asset.Symbol,
		asset.Name,
		asset.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert asset: %w", err)
	}
	return nil
}

// GetByKey retrieves asset metadata by key
func (r *AssetRepository) GetByKey(ctx context.Context, key string) (*models.Asset, error) {
	query := `SELECT key, kind, symbol, name, created_at FROM assets WHERE key = $1`

	var (
		asset models.Asset
		kind  string
	)
	err := r.db.Pool().QueryRow(ctx, query, key).Scan(
		&asset.Key, &kind, &asset.Symbol, &asset.Name, &asset.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("asset not found: %s", key)
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	asset.Kind = types.AssetKind(kind)

	return &asset, nil
}

// GetDisplayName resolves an asset key to its display name, falling back
// to the "Unknown" placeholder for unmapped keys. Lookup failures also
// fall back rather than surfacing an error: a missing name must never be
// fatal to a ranking or summary response.
func (r *AssetRepository) GetDisplayName(ctx context.Context, key string) string {
	var name string
	err := r.db.Pool().QueryRow(ctx,
		`SELECT name FROM assets WHERE key = $1`, key,
	).Scan(&name)
	if err != nil || name == "" {
		return models.UnknownAssetName
	}
	return name
}
