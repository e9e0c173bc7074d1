package pgorders

import (
	"context"
	"time"

	"github.com/BearBump/courierlive/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type Storage struct {
	db *pgxpool.Pool
}

func New(connString string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "parse pg config")
	}

	db, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect pg")
	}

	s := &Storage{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Connect retries New until it succeeds, attempts run out or ctx is done.
func Connect(ctx context.Context, connString string, attempts int, delay time.Duration) (*Storage, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		s, err := New(connString)
		if err == nil {
			return s, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "connect pg")
		case <-time.After(delay):
		}
	}
	return nil, errors.Wrapf(models.ErrStoreUnavailable, "connect pg after %d attempts: %v", attempts, lastErr)
}

func (s *Storage) Ping(ctx context.Context) error {
	return mapErr(s.db.Ping(ctx), "ping")
}

func (s *Storage) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// mapErr folds driver errors into the shared error taxonomy.
func mapErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.Wrap(models.ErrNotFound, op)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, op)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return errors.Wrapf(models.ErrValidation, "%s: duplicate %s", op, pgErr.ConstraintName)
		}
		return errors.Wrap(err, op)
	}
	return errors.Wrapf(models.ErrStoreUnavailable, "%s: %v", op, err)
}
