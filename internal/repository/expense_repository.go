package repository

import (
	"context"
	"errors"

	"expense-ledger/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ExpenseRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewExpenseRepository(db *pgxpool.Pool, logger *zap.Logger) *ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

// Insert persists one expense row inside its own transaction and fills in
// the store-assigned ID and CreatedAt. CreatedAt comes from the database
// clock so per-insert order is non-decreasing.
func (r *ExpenseRepository) Insert(ctx context.Context, e *models.Expense) error {
	e.ID = uuid.New()

	query := squirrel.Insert("expenses").
		Columns("id", "amount", "category", "description", "date").
		Values(e.ID, e.Amount.StringFixed(2), string(e.Category), e.Description, e.Date).
		Suffix("RETURNING created_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, sql, args...).Scan(&e.CreatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// List scans all rows matching the optional category filter. Default
// order is created_at descending; sortByDateDesc orders by date
// descending with created_at descending as the stable tie-break.
func (r *ExpenseRepository) List(ctx context.Context, category string, sortByDateDesc bool) ([]models.Expense, error) {
	query := squirrel.Select("id", "amount::text", "category", "description", "date", "created_at").
		From("expenses").
		PlaceholderFormat(squirrel.Dollar)

	if category != "" {
		query = query.Where(squirrel.Eq{"category": category})
	}
	if sortByDateDesc {
		query = query.OrderBy("date DESC", "created_at DESC")
	} else {
		query = query.OrderBy("created_at DESC")
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}

	return expenses, rows.Err()
}

// GetByID returns (nil, nil) when no row matches.
func (r *ExpenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Expense, error) {
	query := squirrel.Select("id", "amount::text", "category", "description", "date", "created_at").
		From("expenses").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	e, err := scanExpense(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func scanExpense(row pgx.Row) (*models.Expense, error) {
	var (
		e         models.Expense
		amountStr string
	)
	if err := row.Scan(&e.ID, &amountStr, &e.Category, &e.Description, &e.Date, &e.CreatedAt); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, err
	}
	e.Amount = amount
	return &e, nil
}
