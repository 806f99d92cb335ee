package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"expense-ledger/internal/dto"
	"expense-ledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidInput = errors.New("invalid expense input")
	ErrNotFound     = errors.New("expense not found")
	ErrPersistence  = errors.New("persistence failure")
)

const (
	dateLayout        = "2006-01-02"
	maxDescriptionLen = 500
	dateWindowYears   = 10
)

var (
	amountPattern = regexp.MustCompile(`^\d+\.\d{2}$`)
	maxAmount     = decimal.NewFromInt(10_000_000_000)
)

// LedgerStore is the durable transactional record store for expense rows.
// Insert assigns the row's ID and CreatedAt; GetByID returns (nil, nil)
// on a miss.
type LedgerStore interface {
	Insert(ctx context.Context, e *models.Expense) error
	List(ctx context.Context, category string, sortByDateDesc bool) ([]models.Expense, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Expense, error)
}

type ExpenseService struct {
	store  LedgerStore
	logger *zap.Logger
}

func NewExpenseService(store LedgerStore, logger *zap.Logger) *ExpenseService {
	return &ExpenseService{
		store:  store,
		logger: logger,
	}
}

// CreateExpense validates the request, inserts exactly one row in a
// single transaction and returns the persisted row including the
// store-assigned id and created_at. Input is normally pre-validated at
// the edge; the checks here are a defensive double-check.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *dto.CreateExpenseRequest) (*dto.ExpenseResponse, error) {
	amount, date, err := validateCreateRequest(req)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		Amount:      amount,
		Category:    models.Category(req.Category),
		Description: req.Description,
		Date:        date,
	}

	if err := s.store.Insert(ctx, expense); err != nil {
		s.logger.Error("failed to insert expense", zap.Error(err))
		return nil, fmt.Errorf("%w: insert expense: %v", ErrPersistence, err)
	}

	resp := expenseToResponse(expense)
	return &resp, nil
}

// ListExpenses returns all rows matching the optional category filter,
// in the requested order, together with their exact decimal total. The
// total is summed with arbitrary-precision decimals and formatted with
// exactly two fractional digits.
func (s *ExpenseService) ListExpenses(ctx context.Context, category string, sortByDateDesc bool) (*dto.ListExpensesResponse, error) {
	if category != "" && !models.ValidCategory(category) {
		return nil, fmt.Errorf("%w: category must be one of: %s",
			ErrInvalidInput, strings.Join(models.CategoryNames(), ", "))
	}

	expenses, err := s.store.List(ctx, category, sortByDateDesc)
	if err != nil {
		s.logger.Error("failed to list expenses", zap.Error(err))
		return nil, fmt.Errorf("%w: list expenses: %v", ErrPersistence, err)
	}

	total := decimal.Zero
	items := make([]dto.ExpenseResponse, 0, len(expenses))
	for _, e := range expenses {
		total = total.Add(e.Amount)
		items = append(items, expenseToResponse(&e))
	}

	return &dto.ListExpensesResponse{
		Expenses: items,
		Total:    total.StringFixed(2),
		Count:    len(items),
	}, nil
}

func (s *ExpenseService) GetExpenseByID(ctx context.Context, id uuid.UUID) (*dto.ExpenseResponse, error) {
	expense, err := s.store.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get expense", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: get expense: %v", ErrPersistence, err)
	}
	if expense == nil {
		return nil, ErrNotFound
	}

	resp := expenseToResponse(expense)
	return &resp, nil
}

func validateCreateRequest(req *dto.CreateExpenseRequest) (decimal.Decimal, time.Time, error) {
	var zero decimal.Decimal

	if !amountPattern.MatchString(req.Amount) {
		return zero, time.Time{}, fmt.Errorf(
			"%w: amount must be a decimal string with exactly 2 decimal places (e.g., \"123.45\")",
			ErrInvalidInput)
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return zero, time.Time{}, fmt.Errorf("%w: amount is not a valid decimal", ErrInvalidInput)
	}
	if !amount.IsPositive() {
		return zero, time.Time{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return zero, time.Time{}, fmt.Errorf("%w: amount must be less than 10 billion", ErrInvalidInput)
	}

	if !models.ValidCategory(req.Category) {
		return zero, time.Time{}, fmt.Errorf("%w: category must be one of: %s",
			ErrInvalidInput, strings.Join(models.CategoryNames(), ", "))
	}

	if strings.TrimSpace(req.Description) == "" {
		return zero, time.Time{}, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if req.Description != strings.TrimSpace(req.Description) {
		return zero, time.Time{}, fmt.Errorf("%w: description must be trimmed of surrounding whitespace", ErrInvalidInput)
	}
	if utf8.RuneCountInString(req.Description) > maxDescriptionLen {
		return zero, time.Time{}, fmt.Errorf("%w: description must be %d characters or less",
			ErrInvalidInput, maxDescriptionLen)
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return zero, time.Time{}, fmt.Errorf("%w: date must be in YYYY-MM-DD format", ErrInvalidInput)
	}
	now := time.Now().UTC()
	if date.After(now) {
		return zero, time.Time{}, fmt.Errorf("%w: date must not be in the future", ErrInvalidInput)
	}
	if date.Before(now.AddDate(-dateWindowYears, 0, 0)) {
		return zero, time.Time{}, fmt.Errorf("%w: date must be within the last %d years",
			ErrInvalidInput, dateWindowYears)
	}

	return amount, date, nil
}

func expenseToResponse(e *models.Expense) dto.ExpenseResponse {
	return dto.ExpenseResponse{
		ID:          e.ID.String(),
		Amount:      e.Amount.StringFixed(2),
		Category:    string(e.Category),
		Description: e.Description,
		Date:        e.Date.Format(dateLayout),
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
