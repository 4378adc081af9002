package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/migrate"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/models"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/repository"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/service"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func setupRepos(t *testing.T) *repository.Repository {
	t.Helper()
	db := testutil.SetupTestPostgres(t)

	// Запускаем миграцию явно в тесте
	if err := migrate.MigrateDB(context.Background(), db, zap.NewNop(), migrate.DefaultMigrateOptions()); err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	return repository.New(db)
}

func mustCreateUser(t *testing.T, repo *repository.Repository, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Role: models.RoleCustomer, IsActive: true}
	if err := repo.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return u
}

func mustCreateProduct(t *testing.T, repo *repository.Repository, name, price string, active bool) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:      name,
		UnitPrice: decimal.RequireFromString(price),
		IsActive:  active,
	}
	if err := repo.Products.Create(context.Background(), p); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}
	return p
}

func TestUserRepo(t *testing.T) {
	repo := setupRepos(t)
	ctx := context.Background()

	user := mustCreateUser(t, repo, "09121234567")

	// Уникальность без учёта регистра (функциональный индекс lower(username))
	dup := &models.User{Username: "09121234567", Role: models.RoleCustomer}
	if err := repo.Users.Create(ctx, dup); err == nil {
		t.Fatal("expected unique constraint error, got nil")
	}

	got, err := repo.Users.GetByID(ctx, user.ID)
	if err != nil || got == nil {
		t.Fatalf("failed to get user by ID: %v", err)
	}

	got, err = repo.Users.GetByUsername(ctx, "09121234567")
	if err != nil || got == nil {
		t.Fatalf("failed to get user by username: %v", err)
	}

	if exists, err := repo.Users.ExistsByUsername(ctx, "09121234567"); err != nil || !exists {
		t.Fatalf("expected username to exist: %v", err)
	}
	if exists, err := repo.Users.ExistsByUsername(ctx, "09000000000"); err != nil || exists {
		t.Fatalf("expected username to not exist: %v", err)
	}

	user.Password = "new-hash"
	if err := repo.Users.UpdatePassword(ctx, user); err != nil {
		t.Fatalf("failed to update password: %v", err)
	}
	got, _ = repo.Users.GetByID(ctx, user.ID)
	if got.Password != "new-hash" {
		t.Fatalf("password not updated: got %s", got.Password)
	}
}

func TestOTPRepo(t *testing.T) {
	repo := setupRepos(t)
	ctx := context.Background()

	otp := &models.OTP{Code: "12345", Destination: "09121234567", Extra: []byte("{}")}
	if err := repo.OTPs.Create(ctx, otp); err != nil {
		t.Fatalf("failed to create otp: %v", err)
	}

	// Пара (id, code) должна совпасть целиком
	if got, err := repo.OTPs.GetForUpdate(ctx, otp.ID, "99999"); err != nil || got != nil {
		t.Fatalf("wrong code must not match: got=%v err=%v", got, err)
	}
	got, err := repo.OTPs.GetForUpdate(ctx, otp.ID, "12345")
	if err != nil || got == nil {
		t.Fatalf("failed to get otp for update: %v", err)
	}

	// Гасится ровно один раз
	if ok, err := repo.OTPs.MarkUsed(ctx, otp.ID); err != nil || !ok {
		t.Fatalf("failed to mark otp used: %v", err)
	}
	if ok, _ := repo.OTPs.MarkUsed(ctx, otp.ID); ok {
		t.Fatal("otp must not be marked used twice")
	}

	if n, err := repo.OTPs.DeleteOlderThan(ctx, time.Now().Add(time.Minute)); err != nil || n != 1 {
		t.Fatalf("expected 1 deleted otp, got %d (%v)", n, err)
	}
}

func TestRefreshRepo(t *testing.T) {
	repo := setupRepos(t)
	ctx := context.Background()
	now := time.Now()

	user := mustCreateUser(t, repo, "09121234567")

	rt := &models.RefreshToken{UserID: user.ID, TokenHash: "hash-1", ExpiresAt: now.Add(time.Hour)}
	if err := repo.Refresh.Create(ctx, rt); err != nil {
		t.Fatalf("failed to create refresh token: %v", err)
	}

	if active, err := repo.Refresh.IsActiveByHash(ctx, "hash-1", now); err != nil || !active {
		t.Fatalf("token must be active: %v", err)
	}
	if active, _ := repo.Refresh.IsActiveByHash(ctx, "hash-1", now.Add(2*time.Hour)); active {
		t.Fatal("token past expiry must not be active")
	}

	if ok, err := repo.Refresh.RevokeByHash(ctx, "hash-1"); err != nil || !ok {
		t.Fatalf("failed to revoke: %v", err)
	}
	if ok, _ := repo.Refresh.RevokeByHash(ctx, "hash-1"); ok {
		t.Fatal("token must not be revoked twice")
	}
	if active, _ := repo.Refresh.IsActiveByHash(ctx, "hash-1", now); active {
		t.Fatal("revoked token must not be active")
	}
}

func TestProductRepo(t *testing.T) {
	repo := setupRepos(t)
	ctx := context.Background()

	apple := mustCreateProduct(t, repo, "apple", "10.50", true)
	mustCreateProduct(t, repo, "pear", "5.80", false)

	// Имя уникально
	dup := &models.Product{Name: "apple", UnitPrice: decimal.RequireFromString("1.00")}
	if err := repo.Products.Create(ctx, dup); err == nil {
		t.Fatal("expected unique constraint error, got nil")
	}

	onlyActive := true
	active, total, err := repo.Products.List(ctx, repository.ProductListFilter{OnlyActive: &onlyActive})
	if err != nil {
		t.Fatalf("failed to list products: %v", err)
	}
	if total != 1 || len(active) != 1 || active[0].ID != apple.ID {
		t.Fatalf("expected only the active product, got total=%d", total)
	}

	if err := repo.Products.UpdateFields(ctx, apple.ID, map[string]any{"unit_price": decimal.RequireFromString("11.00")}); err != nil {
		t.Fatalf("failed to update product: %v", err)
	}
	got, _ := repo.Products.GetByID(ctx, apple.ID)
	if !got.UnitPrice.Equal(decimal.RequireFromString("11.00")) {
		t.Fatalf("price not updated: got %s", got.UnitPrice)
	}

	// LockActiveByIDs отдаёт только существующие активные
	locked, err := repo.Products.LockActiveByIDs(ctx, []uuid.UUID{apple.ID, uuid.New()})
	if err != nil {
		t.Fatalf("failed to lock products: %v", err)
	}
	if len(locked) != 1 || locked[0].ID != apple.ID {
		t.Fatalf("expected only apple locked, got %d rows", len(locked))
	}
}

func TestOrderRepos(t *testing.T) {
	repo := setupRepos(t)
	ctx := context.Background()

	alice := mustCreateUser(t, repo, "09121234567")
	bob := mustCreateUser(t, repo, "09121234568")
	apple := mustCreateProduct(t, repo, "apple", "10.50", true)
	pear := mustCreateProduct(t, repo, "pear", "5.80", true)

	order := &models.Order{CustomerID: alice.ID, TotalPrice: decimal.Zero}
	if err := repo.Orders.Create(ctx, order); err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	items := []models.OrderItem{
		{OrderID: order.ID, ProductID: apple.ID, Quantity: 2, UnitPrice: apple.UnitPrice},
		{OrderID: order.ID, ProductID: pear.ID, Quantity: 3, UnitPrice: pear.UnitPrice},
	}
	if err := repo.OrderItems.BulkCreate(ctx, items); err != nil {
		t.Fatalf("failed to create items: %v", err)
	}

	// Один товар — одна строка заказа
	dup := []models.OrderItem{{OrderID: order.ID, ProductID: apple.ID, Quantity: 1, UnitPrice: apple.UnitPrice}}
	if err := repo.OrderItems.BulkCreate(ctx, dup); err == nil {
		t.Fatal("expected unique constraint error on (order, product), got nil")
	}

	if err := repo.Orders.UpdateTotal(ctx, order.ID, decimal.RequireFromString("38.40")); err != nil {
		t.Fatalf("failed to update total: %v", err)
	}

	got, err := repo.Orders.GetByID(ctx, order.ID)
	if err != nil || got == nil {
		t.Fatalf("failed to get order: %v", err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("expected 2 preloaded items, got %d", len(got.Items))
	}
	if !got.TotalPrice.Equal(decimal.RequireFromString("38.40")) {
		t.Fatalf("total: got %s", got.TotalPrice)
	}

	// Скоупинг по владельцу
	if o, err := repo.Orders.GetByIDForCustomer(ctx, order.ID, bob.ID); err != nil || o != nil {
		t.Fatalf("stranger must not see the order: %v", err)
	}
	if o, err := repo.Orders.GetByIDForCustomer(ctx, order.ID, alice.ID); err != nil || o == nil {
		t.Fatalf("owner must see the order: %v", err)
	}

	// Фильтры списка
	minTotal := decimal.RequireFromString("38.00")
	list, total, err := repo.Orders.List(ctx, repository.OrderListFilter{CustomerID: &alice.ID, MinTotal: &minTotal})
	if err != nil || total != 1 || len(list) != 1 {
		t.Fatalf("expected 1 order over 38.00: total=%d err=%v", total, err)
	}
	maxTotal := decimal.RequireFromString("1.00")
	_, total, err = repo.Orders.List(ctx, repository.OrderListFilter{CustomerID: &alice.ID, MaxTotal: &maxTotal})
	if err != nil || total != 0 {
		t.Fatalf("expected no orders under 1.00: total=%d err=%v", total, err)
	}

	// Каскад: строки уходят вместе с заказом
	ok, err := repo.Orders.Delete(ctx, order.ID)
	if err != nil || !ok {
		t.Fatalf("failed to delete order: %v", err)
	}
	rows, err := repo.OrderItems.GetByOrderID(ctx, order.ID)
	if err != nil || len(rows) != 0 {
		t.Fatalf("items must cascade: got %d rows", len(rows))
	}
}

// Конкурентные правки одного заказа сериализуются локом строки заказа:
// после двух параллельных UpdateOrder итог согласован со строками.
func TestConcurrentOrderUpdates(t *testing.T) {
	repo := setupRepos(t)

	alice := mustCreateUser(t, repo, "09121234567")
	apple := mustCreateProduct(t, repo, "apple", "10.00", true)
	pear := mustCreateProduct(t, repo, "pear", "5.00", true)

	svc := service.NewOrderService(repo, nil, zap.NewNop())
	ctx := service.WithPrincipal(context.Background(), service.Principal{
		UserID: alice.ID,
		Role:   models.RoleCustomer,
	})

	order, err := svc.CreateOrder(ctx, service.CreateOrderInput{Items: []service.OrderItemInput{
		{ProductID: apple.ID, Quantity: 1},
	}})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	updates := []service.UpdateOrderInput{
		{Items: []service.OrderItemInput{{ProductID: apple.ID, Quantity: 7}}},
		{Items: []service.OrderItemInput{{ProductID: pear.ID, Quantity: 3}}},
	}
	for _, in := range updates {
		wg.Add(1)
		go func(in service.UpdateOrderInput) {
			defer wg.Done()
			if _, err := svc.UpdateOrder(ctx, order.ID, in); err != nil {
				errs <- err
			}
		}(in)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent UpdateOrder: %v", err)
	}

	got, err := repo.Orders.GetByID(context.Background(), order.ID)
	if err != nil || got == nil {
		t.Fatalf("failed to reload order: %v", err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("expected both lines to land, got %d", len(got.Items))
	}
	if want := service.RecomputeTotal(got.Items); !got.TotalPrice.Equal(want) {
		t.Fatalf("total %s diverged from lines %s", got.TotalPrice, want)
	}
}

// gorm.ErrRecordNotFound наружу не выходит: отсутствие — это (nil, nil)
func TestNotFoundIsNil(t *testing.T) {
	repo := setupRepos(t)
	ctx := context.Background()

	if o, err := repo.Orders.GetByID(ctx, uuid.New()); err != nil || o != nil {
		t.Fatalf("missing order: got %v, %v", o, err)
	}
	if u, err := repo.Users.GetByID(ctx, uuid.New()); err != nil || u != nil {
		t.Fatalf("missing user: got %v, %v", u, err)
	}
	if p, err := repo.Products.GetByID(ctx, uuid.New()); err != nil || p != nil {
		t.Fatalf("missing product: got %v, %v", p, err)
	}
}
