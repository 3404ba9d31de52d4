package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/billing-engine/internal/models"
)

// IsAuthorized сообщает, входит ли адрес в набор авторизованных.
func (s *Storage) IsAuthorized(ctx context.Context, address string) (bool, error) {
	const op = "storage.IsAuthorized"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var authorized bool
	query := `SELECT authorized FROM authorized_callers WHERE address = $1`
	err := s.DB.QueryRowContext(ctx, query, address).Scan(&authorized)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return authorized, nil
}

// SetAuthorized выставляет или снимает авторизацию адреса.
func (s *Storage) SetAuthorized(ctx context.Context, address string, authorized bool) error {
	const op = "storage.SetAuthorized"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO authorized_callers (address, authorized)
			  VALUES ($1, $2)
			  ON CONFLICT (address) DO UPDATE SET authorized = EXCLUDED.authorized`
	_, err := s.DB.ExecContext(ctx, query, address, authorized)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IsProductPaused возвращает флаг паузы продукта.
func (s *Storage) IsProductPaused(ctx context.Context, productID string) (bool, error) {
	const op = "storage.IsProductPaused"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var paused bool
	query := `SELECT paused FROM product_pauses WHERE product_id = $1`
	err := s.DB.QueryRowContext(ctx, query, productID).Scan(&paused)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return paused, nil
}

// SetProductPaused выставляет флаг паузы продукта и пишет событие аудита
// одной транзакцией.
func (s *Storage) SetProductPaused(ctx context.Context, productID string, paused bool, event models.Event) error {
	const op = "storage.SetProductPaused"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO product_pauses (product_id, paused)
			  VALUES ($1, $2)
			  ON CONFLICT (product_id) DO UPDATE SET paused = EXCLUDED.paused`
	_, err = tx.ExecContext(ctx, query, productID, paused)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = insertEvent(ctx, tx, event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IsSystemPaused возвращает флаг глобальной паузы системы.
func (s *Storage) IsSystemPaused(ctx context.Context) (bool, error) {
	const op = "storage.IsSystemPaused"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var paused bool
	query := `SELECT paused FROM system_state WHERE id = TRUE`
	err := s.DB.QueryRowContext(ctx, query).Scan(&paused)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return paused, nil
}

// SetSystemPaused выставляет флаг глобальной паузы системы.
func (s *Storage) SetSystemPaused(ctx context.Context, paused bool) error {
	const op = "storage.SetSystemPaused"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO system_state (id, paused)
			  VALUES (TRUE, $1)
			  ON CONFLICT (id) DO UPDATE SET paused = EXCLUDED.paused`
	_, err := s.DB.ExecContext(ctx, query, paused)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
