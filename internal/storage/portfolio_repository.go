package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cryptofolio/internal/models"
)

// PortfolioRepository handles portfolio persistence in Postgres.
type PortfolioRepository struct {
	db *PostgresDB
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *PostgresDB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

// Create creates a new portfolio
func (r *PortfolioRepository) Create(ctx context.Context, portfolio *models.Portfolio) error {
	if portfolio.ID == "" {
		portfolio.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	portfolio.CreatedAt = now
	portfolio.UpdatedAt = now

	query := `
		INSERT INTO portfolios (id, user_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		portfolio.ID,
		portfolio.UserID,
		portfolio.Name,
		portfolio.CreatedAt,
		portfolio.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}

	return nil
}

// GetByIDAndUser retrieves a portfolio by ID and verifies ownership
func (r *PortfolioRepository) GetByIDAndUser(ctx context.Context, id, userID string) (*models.Portfolio, error) {
	query := `
		SELECT id, user_id, name, created_at, updated_at
		FROM portfolios
		WHERE id = $1 AND user_id = $2
	`

	var portfolio models.Portfolio
	err := r.db.Pool().QueryRow(ctx, query, id, userID).Scan(
		&portfolio.ID,
		&portfolio.UserID,
		&portfolio.Name,
		&portfolio.CreatedAt,
		&portfolio.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("portfolio not found or access denied: %s", id)
		}
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	return &portfolio, nil
}

// ExistsByIDAndUser reports whether the portfolio exists and the user owns it
func (r *PortfolioRepository) ExistsByIDAndUser(ctx context.Context, id, userID string) (bool, error) {
	var exists bool
	err := r.db.Pool().QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM portfolios WHERE id = $1 AND user_id = $2)`,
		id, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check portfolio existence: %w", err)
	}
	return exists, nil
}

// ListByUser lists all portfolios for a user
func (r *PortfolioRepository) ListByUser(ctx context.Context, userID string) ([]*models.Portfolio, error) {
	query := `
		SELECT id, user_id, name, created_at, updated_at
		FROM portfolios
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []*models.Portfolio
	for rows.Next() {
		var p models.Portfolio
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, &p)
	}

	return portfolios, rows.Err()
}

// DeleteByIDAndUser deletes a portfolio owned by the user
func (r *PortfolioRepository) DeleteByIDAndUser(ctx context.Context, id, userID string) error {
	tag, err := r.db.Pool().Exec(ctx,
		`DELETE FROM portfolios WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("portfolio not found or access denied: %s", id)
	}
	return nil
}
