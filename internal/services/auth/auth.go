// Package auth содержит логику регистрации и аутентификации вызывающих сторон.
package auth

import (
	"context"
	"errors"

	"github.com/magabrotheeeer/billing-engine/internal/lib/jwt"
	"github.com/magabrotheeeer/billing-engine/internal/lib/password"
	"github.com/magabrotheeeer/billing-engine/internal/models"
)

// UserRepository описывает контракт для работы с учётными записями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет новую учётную запись и возвращает её ID.
	RegisterUser(ctx context.Context, user models.User) (string, error)

	// GetUserByUsername возвращает учётную запись по имени или ошибку, если не найдена.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service отвечает за регистрацию, авторизацию и валидацию JWT.
type Service struct {
	users    UserRepository
	jwtMaker jwt.Maker
}

// New создает новый Service.
func New(users UserRepository, jwtMaker jwt.Maker) *Service {
	return &Service{
		users:    users,
		jwtMaker: jwtMaker,
	}
}

// Register создает новую учётную запись с хэшированием пароля и ролью "service".
// Адрес вызывающей стороны попадает в claims выдаваемых токенов; право вызова
// операций движка выдаёт администратор отдельно.
func (s *Service) Register(ctx context.Context, email, username, address, rawPassword string) (string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", err
	}
	user := models.User{
		Email:        email,
		Username:     username,
		Address:      address,
		PasswordHash: hashed,
		Role:         "service",
	}
	return s.users.RegisterUser(ctx, user)
}

// Login проверяет пароль учётной записи и генерирует JWT.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (token, role string, err error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", "", err
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", errors.New("invalid credentials")
	}
	token, err = s.jwtMaker.GenerateToken(user.Username, user.Role, user.Address)
	if err != nil {
		return "", "", err
	}
	return token, user.Role, nil
}

// ValidateToken проверяет JWT и возвращает данные вызывающей стороны.
func (s *Service) ValidateToken(_ context.Context, token string) (*models.User, bool, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, false, err
	}
	user := &models.User{
		Username: claims.Username,
		Role:     claims.Role,
		Address:  claims.Address,
	}
	return user, true, nil
}
