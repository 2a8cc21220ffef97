package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/cryptofolio/internal/models"
	"github.com/cryptofolio/internal/types"
)

// TransactionRepository handles ledger persistence in Postgres.
type TransactionRepository struct {
	db *PostgresDB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *PostgresDB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// HeldAsset identifies one asset present in a portfolio's ledger.
type HeldAsset struct {
	Key  string
	Kind types.AssetKind
}

const transactionColumns = `
	id, portfolio_id, asset_key, asset_kind, type,
	quantity::text, price_per_unit::text, total_value::text, ts, created_at
`

// Create inserts a new ledger entry. Transactions are immutable after
// this point; the only later mutation is a hard delete.
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	tx.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO transactions (id, portfolio_id, asset_key, asset_kind, type, quantity, price_per_unit, total_value, ts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		tx.ID,
		tx.PortfolioID,
		tx.AssetKey,
		string(tx.AssetKind),
		string(tx.Type),
		tx.Quantity.String(),
		tx.PricePerUnit.String(),
		tx.TotalValue.String(),
		tx.Timestamp,
		tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// DeleteByIDAndPortfolio hard-deletes a ledger entry after verifying it
// belongs to the portfolio.
func (r *TransactionRepository) DeleteByIDAndPortfolio(ctx context.Context, id, portfolioID string) error {
	tag, err := r.db.Pool().Exec(ctx,
		`DELETE FROM transactions WHERE id = $1 AND portfolio_id = $2`, id, portfolioID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &types.ServiceError{
			Code:    "TRANSACTION_NOT_FOUND",
			Message: fmt.Sprintf("transaction not found: %s", id),
		}
	}
	return nil
}

// ListByPortfolio returns a portfolio's ledger ordered by timestamp
// ascending. A non-nil since restricts to entries at or after it.
func (r *TransactionRepository) ListByPortfolio(ctx context.Context, portfolioID string, since *time.Time) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE portfolio_id = $1`
	args := []interface{}{portfolioID}
	if since != nil {
		query += ` AND ts >= $2`
		args = append(args, *since)
	}
	query += ` ORDER BY ts ASC`

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetBuyTransactions returns the buy-side ledger subset for one asset,
// ordered by timestamp ascending. This is the cost basis input.
func (r *TransactionRepository) GetBuyTransactions(ctx context.Context, portfolioID, assetKey string) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE portfolio_id = $1 AND asset_key = $2 AND type = $3
		ORDER BY ts ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, portfolioID, assetKey, string(types.TypeBuy))
	if err != nil {
		return nil, fmt.Errorf("failed to get buy transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetHeldQuantity derives the authoritative holdings figure for one
// asset: total bought minus total sold.
func (r *TransactionRepository) GetHeldQuantity(ctx context.Context, portfolioID, assetKey string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN type = $3 THEN quantity ELSE -quantity END), 0)::text
		FROM transactions
		WHERE portfolio_id = $1 AND asset_key = $2
	`

	var raw string
	err := r.db.Pool().QueryRow(ctx, query, portfolioID, assetKey, string(types.TypeBuy)).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to get held quantity: %w", err)
	}

	qty, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse held quantity %q: %w", raw, err)
	}
	return qty, nil
}

// ListHeldAssets returns the distinct assets appearing in a portfolio's
// ledger, ordered by asset key for stable output.
func (r *TransactionRepository) ListHeldAssets(ctx context.Context, portfolioID string) ([]HeldAsset, error) {
	query := `
		SELECT DISTINCT asset_key, asset_kind
		FROM transactions
		WHERE portfolio_id = $1
		ORDER BY asset_key ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list held assets: %w", err)
	}
	defer rows.Close()

	var assets []HeldAsset
	for rows.Next() {
		var a HeldAsset
		var kind string
		if err := rows.Scan(&a.Key, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan held asset: %w", err)
		}
		a.Kind = types.AssetKind(kind)
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func scanTransactions(rows pgx.Rows) ([]models.Transaction, error) {
	var transactions []models.Transaction
	for rows.Next() {
		var (
			tx                    models.Transaction
			kind, txType          string
			quantity, unit, total string
		)
		err := rows.Scan(
			&tx.ID,
			&tx.PortfolioID,
			&tx.AssetKey,
			&kind,
			&txType,
			&quantity,
			&unit,
			&total,
			&tx.Timestamp,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		tx.AssetKind = types.AssetKind(kind)
		tx.Type = types.TransactionType(txType)
		if tx.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("failed to parse quantity %q: %w", quantity, err)
		}
		if tx.PricePerUnit, err = decimal.NewFromString(unit); err != nil {
			return nil, fmt.Errorf("failed to parse price %q: %w", unit, err)
		}
		if tx.TotalValue, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("failed to parse total %q: %w", total, err)
		}

		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}
