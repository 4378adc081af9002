package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

type Claims struct {
	UserID uuid.UUID
	Role   string
	Exp    time.Time
}

type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshOpaque    string // выдаём клиенту
	RefreshExpiresAt time.Time
	RefreshHash      string // сохраняем в БД
}

type TokenProvider interface {
	SignAccess(ctx context.Context, sub uuid.UUID, role string, ttl time.Duration) (token string, exp time.Time, err error)
	NewRefresh(ctx context.Context, sub uuid.UUID, ttl time.Duration) (opaque string, hash string, exp time.Time, err error)
	ParseAndValidateAccess(ctx context.Context, token string) (*Claims, error)
}

// CacheClient — опциональный (nil отключает) кулдаун на выдачу OTP.
type CacheClient interface {
	CheckRateLimit(ctx context.Context, key string) (bool, error)
	SetRateLimit(ctx context.Context, key string, ttl time.Duration) error
}

// SMSNotifier публикует событие с кодом для внешнего сервиса доставки.
// Опционален: nil отключает публикацию, код остаётся в логе.
type SMSNotifier interface {
	SendCode(ctx context.Context, destination, code string, otpID uuid.UUID) error
}
