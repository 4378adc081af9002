package service

import "github.com/Aref-Yazdanpanah/orderflow-backend/internal/models"

// OrderAction — класс операции над заказом для объектной авторизации.
type OrderAction int

const (
	ActionRead OrderAction = iota
	ActionUpdate
	ActionDelete
)

// CanAccess — объектная проверка прав: чтение всегда проходит (видимость уже
// ограничена скоупингом выборки), изменение и удаление — владелец либо
// держатель соответствующего права.
func CanAccess(action OrderAction, ord *models.Order, p Principal) bool {
	switch action {
	case ActionRead:
		return true
	case ActionUpdate:
		return ord.CustomerID == p.UserID || p.HasCapability(CapEditAnyOrder)
	case ActionDelete:
		return ord.CustomerID == p.UserID || p.HasCapability(CapDeleteAnyOrder)
	default:
		return false
	}
}
