package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/billing-engine/internal/models"
)

// Get возвращает запись подписки по ключу или nil, если записи нет.
func (s *Storage) Get(ctx context.Context, id string) (*models.Subscription, error) {
	const op = "storage.Get"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_address, merchant_address, product_id, parent_product_id,
			      status, unlimited, billing_day, next_billing_time, billing_cycle_seconds,
			      total_cycles, price_per_cycle, successful_payments, last_payment_at
			  FROM subscriptions
			  WHERE id = $1`
	sub := &models.Subscription{}
	var status string
	var nextBillingTime, lastPaymentAt sql.NullTime
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.UserAddress, &sub.MerchantAddress, &sub.ProductID, &sub.ParentProductID,
		&status, &sub.Unlimited, &sub.BillingDay, &nextBillingTime, &sub.BillingCycleSecs,
		&sub.TotalCycles, &sub.PricePerCycle, &sub.SuccessfulPayments, &lastPaymentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sub.Status = models.Status(status)
	if nextBillingTime.Valid {
		sub.NextBillingTime = nextBillingTime.Time
	}
	if lastPaymentAt.Valid {
		sub.LastPaymentAt = &lastPaymentAt.Time
	}
	return sub, nil
}

// Create сохраняет новую запись подписки и событие аудита одной транзакцией.
// Запись поверх завершённой подписки под тем же ключом перезаписывает её;
// защита от перезаписи активной записи лежит на сервисном слое.
func (s *Storage) Create(ctx context.Context, sub *models.Subscription, event models.Event) error {
	const op = "storage.Create"
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

	query := `INSERT INTO subscriptions (id, user_address, merchant_address, product_id,
			      parent_product_id, status, unlimited, billing_day, next_billing_time,
			      billing_cycle_seconds, total_cycles, price_per_cycle, successful_payments)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			  ON CONFLICT (id) DO UPDATE SET
			      user_address = EXCLUDED.user_address,
			      merchant_address = EXCLUDED.merchant_address,
			      product_id = EXCLUDED.product_id,
			      parent_product_id = EXCLUDED.parent_product_id,
			      status = EXCLUDED.status,
			      unlimited = EXCLUDED.unlimited,
			      billing_day = EXCLUDED.billing_day,
			      next_billing_time = EXCLUDED.next_billing_time,
			      billing_cycle_seconds = EXCLUDED.billing_cycle_seconds,
			      total_cycles = EXCLUDED.total_cycles,
			      price_per_cycle = EXCLUDED.price_per_cycle,
			      successful_payments = EXCLUDED.successful_payments,
			      last_payment_at = NULL`
	_, err = tx.ExecContext(ctx, query,
		sub.ID, sub.UserAddress, sub.MerchantAddress, sub.ProductID, sub.ParentProductID,
		string(sub.Status), sub.Unlimited, sub.BillingDay, nullTime(sub.NextBillingTime),
		sub.BillingCycleSecs, sub.TotalCycles, sub.PricePerCycle, sub.SuccessfulPayments)
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

// CommitPayment фиксирует успешное списание: сдвиг расписания, счётчик,
// статус и время платежа вместе с событием аудита в одной транзакции.
func (s *Storage) CommitPayment(ctx context.Context, sub *models.Subscription, event models.Event) error {
	const op = "storage.CommitPayment"
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

	query := `UPDATE subscriptions
			  SET next_billing_time = $2,
			      status = $3,
			      successful_payments = $4,
			      last_payment_at = $5
			  WHERE id = $1`
	_, err = tx.ExecContext(ctx, query,
		sub.ID, sub.NextBillingTime, string(sub.Status), sub.SuccessfulPayments, sub.LastPaymentAt)
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

// CommitSchedule фиксирует только сдвиг плановой даты списания.
// Используется после неуспешной попытки: цикл потреблён, счётчики не тронуты.
func (s *Storage) CommitSchedule(ctx context.Context, id string, next time.Time) error {
	const op = "storage.CommitSchedule"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET next_billing_time = $2 WHERE id = $1`
	_, err := s.DB.ExecContext(ctx, query, id, next)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateStatus меняет статус подписки и пишет событие аудита одной транзакцией.
func (s *Storage) UpdateStatus(ctx context.Context, id string, status models.Status, event models.Event) error {
	const op = "storage.UpdateStatus"
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

	query := `UPDATE subscriptions SET status = $2 WHERE id = $1`
	_, err = tx.ExecContext(ctx, query, id, string(status))
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

// ListDue возвращает активные подписки с наступившей плановой датой списания.
func (s *Storage) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Subscription, error) {
	const op = "storage.ListDue"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_address, merchant_address, product_id, parent_product_id,
			      status, unlimited, billing_day, next_billing_time, billing_cycle_seconds,
			      total_cycles, price_per_cycle, successful_payments, last_payment_at
			  FROM subscriptions
			  WHERE status = $1
			    AND next_billing_time IS NOT NULL
			    AND next_billing_time <= $2
			    AND (unlimited OR successful_payments < total_cycles)
			  ORDER BY next_billing_time
			  LIMIT $3`
	rows, err := s.DB.QueryContext(ctx, query, string(models.StatusActive), now, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.Subscription
	for rows.Next() {
		sub := &models.Subscription{}
		var status string
		var nextBillingTime, lastPaymentAt sql.NullTime
		if err := rows.Scan(
			&sub.ID, &sub.UserAddress, &sub.MerchantAddress, &sub.ProductID, &sub.ParentProductID,
			&status, &sub.Unlimited, &sub.BillingDay, &nextBillingTime, &sub.BillingCycleSecs,
			&sub.TotalCycles, &sub.PricePerCycle, &sub.SuccessfulPayments, &lastPaymentAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sub.Status = models.Status(status)
		if nextBillingTime.Valid {
			sub.NextBillingTime = nextBillingTime.Time
		}
		if lastPaymentAt.Valid {
			sub.LastPaymentAt = &lastPaymentAt.Time
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
