package service

import (
	"context"
	"time"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/models"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type orderService struct {
	repo   *repository.Repository
	events EventBus
	now    func() time.Time
	log    *zap.Logger
}

func NewOrderService(repo *repository.Repository, events EventBus, log *zap.Logger) OrderService {
	return &orderService{
		repo:   repo,
		events: events,
		now:    time.Now,
		log:    log,
	}
}

// CreateOrder материализует заказ из желаемого набора строк в одной
// транзакции. Товары лочатся до чтения цены, так что снимок не может
// разъехаться с конкурентным изменением каталога. Отсутствующие и
// неактивные товары молча не материализуются: строгая валидация входа —
// обязанность вышестоящего слоя, здесь это страховка от гонок.
func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if len(in.Items) == 0 {
		return nil, ErrEmptyItems
	}

	desired := dedupeItems(in.Items)
	ids := make([]uuid.UUID, 0, len(desired))
	for pid := range desired {
		ids = append(ids, pid)
	}

	var order *models.Order
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		locked, err := tx.Products.LockActiveByIDs(ctx, ids)
		if err != nil {
			return err
		}
		lockedByID := make(map[uuid.UUID]*models.Product, len(locked))
		for i := range locked {
			lockedByID[locked[i].ID] = &locked[i]
		}

		order = &models.Order{CustomerID: p.UserID, TotalPrice: decimal.Zero}
		if err := tx.Orders.Create(ctx, order); err != nil {
			return err
		}

		lines := make([]models.OrderItem, 0, len(desired))
		for pid, qty := range desired {
			prod, ok := lockedByID[pid]
			if qty == 0 || !ok {
				continue
			}
			lines = append(lines, snapshotLine(order.ID, prod, qty))
		}
		if err := tx.OrderItems.BulkCreate(ctx, lines); err != nil {
			return err
		}

		if err := tx.Orders.UpdateTotal(ctx, order.ID, RecomputeTotal(lines)); err != nil {
			return err
		}

		order, err = tx.Orders.GetByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Заказ создан",
		zap.String("order_id", order.ID.String()),
		zap.String("customer_id", order.CustomerID.String()),
		zap.String("total", order.TotalPrice.StringFixed(2)))

	if s.events != nil {
		_ = s.events.PublishOrderCreated(ctx, newOrderEvent(order, s.now()))
	}
	return order, nil
}

// UpdateOrder применяет upsert-by-replacement: payload — авторитетное
// желаемое состояние только для упомянутых товаров. Неупомянутые строки не
// трогаем; явный ноль удаляет строку; у существующих строк меняется только
// количество — снимок unit_price никогда не обновляется.
func (s *orderService) UpdateOrder(ctx context.Context, orderID uuid.UUID, in UpdateOrderInput) (*models.Order, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if len(in.Items) == 0 {
		return nil, ErrEmptyItems
	}

	desired := dedupeItems(in.Items)
	ids := make([]uuid.UUID, 0, len(desired))
	for pid := range desired {
		ids = append(ids, pid)
	}

	var order *models.Order
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		// Лок самого заказа сериализует конкурентные правки.
		ord, err := tx.Orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if ord == nil {
			return ErrOrderNotFound
		}
		if !CanAccess(ActionUpdate, ord, p) {
			return ErrForbidden
		}

		// Лок товаров нужен только строкам, которые будут созданы заново.
		locked, err := tx.Products.LockActiveByIDs(ctx, ids)
		if err != nil {
			return err
		}
		lockedByID := make(map[uuid.UUID]*models.Product, len(locked))
		for i := range locked {
			lockedByID[locked[i].ID] = &locked[i]
		}

		existingRows, err := tx.OrderItems.GetByOrderID(ctx, ord.ID)
		if err != nil {
			return err
		}
		existing := make(map[uuid.UUID]*models.OrderItem, len(existingRows))
		for i := range existingRows {
			existing[existingRows[i].ProductID] = &existingRows[i]
		}

		var (
			toDeleteIDs []uuid.UUID
			toUpdate    []*models.OrderItem
			toCreate    []models.OrderItem
		)
		for pid, qty := range desired {
			line := existing[pid]

			if qty == 0 {
				if line != nil {
					toDeleteIDs = append(toDeleteIDs, line.ID)
				}
				continue
			}

			if line != nil {
				if line.Quantity != qty {
					line.Quantity = qty
					toUpdate = append(toUpdate, line)
				}
				continue
			}

			if prod, ok := lockedByID[pid]; ok {
				toCreate = append(toCreate, snapshotLine(ord.ID, prod, qty))
			}
			// не найден или неактивен — молча пропускаем
		}

		if _, err := tx.OrderItems.DeleteByIDs(ctx, ord.ID, toDeleteIDs); err != nil {
			return err
		}
		for _, line := range toUpdate {
			if err := tx.OrderItems.UpdateQuantity(ctx, line.ID, line.Quantity); err != nil {
				return err
			}
		}
		if err := tx.OrderItems.BulkCreate(ctx, toCreate); err != nil {
			return err
		}

		rows, err := tx.OrderItems.GetByOrderID(ctx, ord.ID)
		if err != nil {
			return err
		}
		if err := tx.Orders.UpdateTotal(ctx, ord.ID, RecomputeTotal(rows)); err != nil {
			return err
		}

		order, err = tx.Orders.GetByID(ctx, ord.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		_ = s.events.PublishOrderUpdated(ctx, newOrderEvent(order, s.now()))
	}
	return order, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return err
	}

	var deleted *models.Order
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		ord, err := tx.Orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if ord == nil {
			return ErrOrderNotFound
		}
		if !CanAccess(ActionDelete, ord, p) {
			return ErrForbidden
		}

		ok, err := tx.Orders.Delete(ctx, ord.ID) // строки уходят каскадом
		if err != nil {
			return err
		}
		if !ok {
			return ErrOrderNotFound
		}
		deleted = ord
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("Заказ удалён", zap.String("order_id", orderID.String()))

	if s.events != nil {
		_ = s.events.PublishOrderDeleted(ctx, OrderDeletedEvent{
			OrderID:    deleted.ID,
			CustomerID: deleted.CustomerID,
			DeletedAt:  s.now(),
		})
	}
	return nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	var ord *models.Order
	if p.HasCapability(CapViewAllOrders) {
		ord, err = s.repo.Orders.GetByID(ctx, id)
	} else {
		ord, err = s.repo.Orders.GetByIDForCustomer(ctx, id, p.UserID)
	}
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	return ord, nil
}

func (s *orderService) ListOrders(ctx context.Context, f ListOrdersFilter) ([]models.Order, int64, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return nil, 0, err
	}

	rf := repository.OrderListFilter{
		CreatedFrom: f.CreatedFrom,
		CreatedTo:   f.CreatedTo,
		EditedFrom:  f.EditedFrom,
		EditedTo:    f.EditedTo,
		MinTotal:    f.MinTotal,
		MaxTotal:    f.MaxTotal,
		OrderBy:     f.OrderBy,
		Desc:        f.Desc,
		Limit:       f.Limit,
		Offset:      f.Offset,
	}
	// Скоупинг видимости: без права "view all orders" — только свои заказы.
	if !p.HasCapability(CapViewAllOrders) {
		rf.CustomerID = &p.UserID
	}

	ordersPtr, total, err := s.repo.Orders.List(ctx, rf)
	if err != nil {
		return nil, 0, err
	}
	orders := make([]models.Order, len(ordersPtr))
	for i, o := range ordersPtr {
		orders[i] = *o
	}
	return orders, total, nil
}
