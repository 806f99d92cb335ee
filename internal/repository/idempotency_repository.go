package repository

import (
	"context"
	"errors"
	"time"

	"expense-ledger/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type IdempotencyRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewIdempotencyRepository(db *pgxpool.Pool, logger *zap.Logger) *IdempotencyRepository {
	return &IdempotencyRepository{
		db:     db,
		logger: logger,
	}
}

// Get returns (nil, nil) when no record exists for key.
func (r *IdempotencyRepository) Get(ctx context.Context, key uuid.UUID) (*models.IdempotencyRecord, error) {
	query := squirrel.Select("key", "response_status", "response_body", "created_at").
		From("idempotency_keys").
		Where(squirrel.Eq{"key": key}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var rec models.IdempotencyRecord
	err = r.db.QueryRow(ctx, sql, args...).
		Scan(&rec.Key, &rec.ResponseStatus, &rec.ResponseBody, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Insert is insert-if-absent: the primary-key conflict from a concurrent
// writer resolves to DO NOTHING and reports inserted=false. On success
// the store-assigned CreatedAt is filled in.
func (r *IdempotencyRepository) Insert(ctx context.Context, rec *models.IdempotencyRecord) (bool, error) {
	query := squirrel.Insert("idempotency_keys").
		Columns("key", "response_status", "response_body").
		Values(rec.Key, rec.ResponseStatus, []byte(rec.ResponseBody)).
		Suffix("ON CONFLICT (key) DO NOTHING RETURNING created_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteOlderThan removes every record created before cutoff and returns
// the number removed. Runs live against concurrent traffic.
func (r *IdempotencyRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := squirrel.Delete("idempotency_keys").
		Where(squirrel.Lt{"created_at": cutoff}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
