package service

import (
	"context"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/models"

	"github.com/google/uuid"
)

type ctxKey string

const ctxPrincipalKey ctxKey = "principal"

// Capability — именованное право, проверяемое независимо от владения объектом.
type Capability string

const (
	CapViewAllOrders  Capability = "view all orders"
	CapEditAnyOrder   Capability = "edit any order"
	CapDeleteAnyOrder Capability = "delete any order"
)

// Principal — аутентифицированный субъект запроса.
type Principal struct {
	UserID uuid.UUID
	Role   models.Role
}

// HasCapability: роль ADMIN несёт все три права на заказы, CUSTOMER — ни одного.
func (p Principal) HasCapability(c Capability) bool {
	switch c {
	case CapViewAllOrders, CapEditAnyOrder, CapDeleteAnyOrder:
		return p.Role == models.RoleAdmin
	default:
		return false
	}
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	v, ok := ctx.Value(ctxPrincipalKey).(Principal)
	return v, ok
}

func requirePrincipal(ctx context.Context) (Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.UserID == uuid.Nil {
		return Principal{}, ErrUnauthorized
	}
	return p, nil
}
