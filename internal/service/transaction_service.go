package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/internal/logging"
	"github.com/cryptofolio/internal/models"
	"github.com/cryptofolio/internal/types"
)

// TransactionStore is the ledger persistence surface for mutations.
type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	DeleteByIDAndPortfolio(ctx context.Context, id, portfolioID string) error
	ListByPortfolio(ctx context.Context, portfolioID string, since *time.Time) ([]models.Transaction, error)
}

// AssetStore registers asset metadata as transactions reference it.
type AssetStore interface {
	Upsert(ctx context.Context, asset *models.Asset) error
}

// TransactionService validates and records ledger entries. Every mutation
// invalidates the portfolio's cached views before returning.
type TransactionService struct {
	transactionRepo TransactionStore
	portfolioRepo   PortfolioStore
	assetRepo       AssetStore
	cache           ViewCache
	now             func() time.Time
}

// NewTransactionService creates a new transaction service. A nil clock
// defaults to time.Now.
func NewTransactionService(
	transactionRepo TransactionStore,
	portfolioRepo PortfolioStore,
	assetRepo AssetStore,
	cache ViewCache,
	now func() time.Time,
) *TransactionService {
	if now == nil {
		now = time.Now
	}
	return &TransactionService{
		transactionRepo: transactionRepo,
		portfolioRepo:   portfolioRepo,
		assetRepo:       assetRepo,
		cache:           cache,
		now:             now,
	}
}

// CreateTransactionInput represents input for recording a ledger entry
type CreateTransactionInput struct {
	PortfolioID  string                `json:"portfolioId"`
	UserID       string                `json:"userId"`
	AssetKey     string                `json:"assetKey"`
	AssetKind    types.AssetKind       `json:"assetKind"`
	AssetSymbol  string                `json:"assetSymbol,omitempty"`
	AssetName    string                `json:"assetName,omitempty"`
	Type         types.TransactionType `json:"type"`
	Quantity     decimal.Decimal       `json:"quantity"`
	PricePerUnit decimal.Decimal       `json:"pricePerUnit"`
	Timestamp    *time.Time            `json:"timestamp,omitempty"`
}

// CreateTransaction validates and records one ledger entry. The total
// value is always computed from quantity and unit price; callers cannot
// supply a diverging total.
func (s *TransactionService) CreateTransaction(ctx context.Context, input *CreateTransactionInput) (*models.Transaction, error) {
	if err := s.validateCreateInput(input); err != nil {
		return nil, err
	}

	exists, err := s.portfolioRepo.ExistsByIDAndUser(ctx, input.PortfolioID, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify portfolio ownership: %w", err)
	}
	if !exists {
		return nil, &types.ServiceError{
			Code:    "PORTFOLIO_NOT_FOUND",
			Message: fmt.Sprintf("portfolio not found or access denied: %s", input.PortfolioID),
		}
	}

	if input.AssetName != "" || input.AssetSymbol != "" {
		asset := &models.Asset{
			Key:    input.AssetKey,
			Kind:   input.AssetKind,
			Symbol: input.AssetSymbol,
			Name:   input.AssetName,
		}
		if err := s.assetRepo.Upsert(ctx, asset); err != nil {
			logging.FromContext(ctx).WithError(err).Warn("Failed to upsert asset metadata")
		}
	}

	timestamp := s.now().UTC()
	if input.Timestamp != nil {
		timestamp = input.Timestamp.UTC()
	}

	transaction := &models.Transaction{
		PortfolioID:  input.PortfolioID,
		AssetKey:     input.AssetKey,
		AssetKind:    input.AssetKind,
		Type:         input.Type,
		Quantity:     input.Quantity,
		PricePerUnit: input.PricePerUnit,
		TotalValue:   input.Quantity.Mul(input.PricePerUnit),
		Timestamp:    timestamp,
	}
	if err := s.transactionRepo.Create(ctx, transaction); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	s.invalidate(ctx, input.PortfolioID)
	return transaction, nil
}

// ListTransactions returns a portfolio's ledger in ascending time order.
func (s *TransactionService) ListTransactions(ctx context.Context, portfolioID, userID string, since *time.Time) ([]models.Transaction, error) {
	exists, err := s.portfolioRepo.ExistsByIDAndUser(ctx, portfolioID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify portfolio ownership: %w", err)
	}
	if !exists {
		return nil, &types.ServiceError{
			Code:    "PORTFOLIO_NOT_FOUND",
			Message: fmt.Sprintf("portfolio not found or access denied: %s", portfolioID),
		}
	}
	return s.transactionRepo.ListByPortfolio(ctx, portfolioID, since)
}

// DeleteTransaction hard-deletes one ledger entry. Entries are immutable;
// corrections are delete-and-recreate.
func (s *TransactionService) DeleteTransaction(ctx context.Context, transactionID, portfolioID, userID string) error {
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

	if err := s.transactionRepo.DeleteByIDAndPortfolio(ctx, transactionID, portfolioID); err != nil {
		return err
	}

	s.invalidate(ctx, portfolioID)
	return nil
}

func (s *TransactionService) invalidate(ctx context.Context, portfolioID string) {
	if err := s.cache.InvalidatePortfolio(ctx, portfolioID); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Failed to invalidate cache after ledger mutation")
	}
}

func (s *TransactionService) validateCreateInput(input *CreateTransactionInput) error {
	invalid := func(message string) error {
		return &types.ServiceError{Code: "INVALID_INPUT", Message: message}
	}

	if input.PortfolioID == "" {
		return invalid("portfolioId is required")
	}
	if input.UserID == "" {
		return invalid("userId is required")
	}
	if input.AssetKey == "" {
		return invalid("assetKey is required")
	}
	if input.AssetKind != types.KindCoin && input.AssetKind != types.KindDexPair {
		return invalid(fmt.Sprintf("unsupported asset kind: %s", input.AssetKind))
	}
	if input.Type != types.TypeBuy && input.Type != types.TypeSell {
		return invalid(fmt.Sprintf("transaction type must be buy or sell, got: %s", input.Type))
	}
	if !input.Quantity.IsPositive() {
		return invalid("quantity must be positive")
	}
	if input.PricePerUnit.IsNegative() {
		return invalid("pricePerUnit must not be negative")
	}
	return nil
}
