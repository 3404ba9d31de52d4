// Package access реализует контроль доступа биллингового движка:
// набор авторизованных вызывающих сторон, паузы продуктов на уровне мерчанта
// и глобальную паузу всей системы.
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/billing-engine/internal/models"
)

// ErrNotAuthorized — вызывающая сторона не входит в набор авторизованных.
var ErrNotAuthorized = errors.New("caller is not authorized")

// ErrSystemPaused — система глобально приостановлена администратором.
var ErrSystemPaused = errors.New("system is paused")

// Repository определяет методы хранилища для данных контроля доступа.
type Repository interface {
	// IsAuthorized сообщает, авторизован ли адрес.
	IsAuthorized(ctx context.Context, address string) (bool, error)
	// SetAuthorized выставляет или снимает авторизацию адреса.
	SetAuthorized(ctx context.Context, address string, authorized bool) error
	// IsProductPaused возвращает флаг паузы продукта.
	IsProductPaused(ctx context.Context, productID string) (bool, error)
	// SetProductPaused выставляет флаг паузы продукта и пишет событие аудита
	// в той же транзакции.
	SetProductPaused(ctx context.Context, productID string, paused bool, event models.Event) error
	// IsSystemPaused возвращает флаг глобальной паузы.
	IsSystemPaused(ctx context.Context) (bool, error)
	// SetSystemPaused выставляет флаг глобальной паузы.
	SetSystemPaused(ctx context.Context, paused bool) error
}

// Notifier публикует события аудита внешним потребителям.
type Notifier interface {
	Publish(event models.Event) error
}

// Service реализует проверки доступа и административные переключатели.
type Service struct {
	repo         Repository
	notifier     Notifier
	adminAddress string
	log          *slog.Logger
}

// New создает новый Service. adminAddress — единственный администратор,
// он всегда неявно авторизован.
func New(repo Repository, notifier Notifier, adminAddress string, log *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		notifier:     notifier,
		adminAddress: adminAddress,
		log:          log,
	}
}

// Authorize проверяет, что система не на глобальной паузе и вызывающая
// сторона авторизована. Администратор авторизован всегда.
func (s *Service) Authorize(ctx context.Context, caller string) error {
	const op = "access.Authorize"

	paused, err := s.repo.IsSystemPaused(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if paused {
		return fmt.Errorf("%s: %w", op, ErrSystemPaused)
	}

	if caller == s.adminAddress {
		return nil
	}
	ok, err := s.repo.IsAuthorized(ctx, caller)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrNotAuthorized)
	}
	return nil
}

// IsProductPaused сообщает, приостановлен ли продукт мерчантом.
// Пустой идентификатор (отсутствие родительского продукта) не приостановлен.
func (s *Service) IsProductPaused(ctx context.Context, productID string) (bool, error) {
	if productID == "" {
		return false, nil
	}
	return s.repo.IsProductPaused(ctx, productID)
}

// SetProductPaused переключает флаг паузы продукта. Доступно только
// авторизованным вызывающим сторонам. Статусы отдельных подписок продукта
// не меняются — блокируются лишь будущие списания.
func (s *Service) SetProductPaused(ctx context.Context, caller, productID string, paused bool) error {
	const op = "access.SetProductPaused"

	if err := s.Authorize(ctx, caller); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	eventType := models.EventProductPaused
	if !paused {
		eventType = models.EventProductUnpaused
	}
	event := models.Event{
		Type:      eventType,
		ProductID: productID,
		Actor:     caller,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.SetProductPaused(ctx, productID, paused, event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("product pause flag updated",
		slog.String("product_id", productID), slog.Bool("paused", paused))

	if err := s.notifier.Publish(event); err != nil {
		s.log.Warn("failed to publish product pause event", slog.Any("err", err))
	}
	return nil
}

// SetAuthorized выставляет или снимает авторизацию адреса.
// Доступно только администратору.
func (s *Service) SetAuthorized(ctx context.Context, caller, address string, authorized bool) error {
	const op = "access.SetAuthorized"

	if caller != s.adminAddress {
		return fmt.Errorf("%s: %w", op, ErrNotAuthorized)
	}
	if err := s.repo.SetAuthorized(ctx, address, authorized); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("authorization updated",
		slog.String("address", address), slog.Bool("authorized", authorized))
	return nil
}

// SetSystemPaused переключает глобальную паузу. Доступно только администратору.
// Пока пауза активна, все мутирующие операции движка отклоняются.
func (s *Service) SetSystemPaused(ctx context.Context, caller string, paused bool) error {
	const op = "access.SetSystemPaused"

	if caller != s.adminAddress {
		return fmt.Errorf("%s: %w", op, ErrNotAuthorized)
	}
	if err := s.repo.SetSystemPaused(ctx, paused); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("system pause flag updated", slog.Bool("paused", paused))
	return nil
}
