// Package repository реализует хранилище данных на основе PostgreSQL
// для биллингового движка: записи подписок, флаги пауз продуктов,
// набор авторизованных адресов, учётные записи и журнал событий аудита.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/billing-engine/internal/models"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'subscriptions'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table subscriptions missing or query error: %w", err)
	}
	return nil
}

// insertEvent пишет строку журнала аудита внутри переданной транзакции.
func insertEvent(ctx context.Context, tx *sql.Tx, event models.Event) error {
	query := `INSERT INTO billing_events (event_type, subscription_id, product_id, actor,
			      correlation_id, currency, base_amount, token_amount, token_price, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := tx.ExecContext(ctx, query,
		string(event.Type), nullable(event.SubscriptionID), nullable(event.ProductID),
		event.Actor, nullable(event.CorrelationID), nullable(string(event.Currency)),
		event.BaseAmount, event.TokenAmount, event.TokenPrice, event.CreatedAt)
	return err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
