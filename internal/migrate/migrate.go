package migrate

import (
	"context"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto, uuid-ossp
	CreateChecks           bool // CHECK-constraint для целостности
	CreateIndexes          bool // индексы и UNIQUE
	CreateFKsViaSQL        bool // FK через SQL (поверх GORM-constraint)
	CreateUpdatedAtTrigger bool // триггер обновления updated_at
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateFKsViaSQL:        true,
		CreateUpdatedAtTrigger: true,
	}
}

func MigrateDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("Начало миграции базы данных")

	// Расширения
	if opt.CreateExtensions {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
			log.Error("Не удалось включить расширение pgcrypto", zap.Error(err))
			return err
		}
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
			log.Error("Не удалось включить расширение uuid-ossp", zap.Error(err))
			return err
		}
	}

	// Таблицы
	log.Info("Создание таблиц")
	if err := db.AutoMigrate(
		&models.User{},
		&models.OTP{},
		&models.RefreshToken{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		log.Error("Не удалось создать таблицы", zap.Error(err))
		return err
	}

	// Триггер updated_at
	if opt.CreateUpdatedAtTrigger {
		if err := db.Exec(`
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_users_updated ON users;
CREATE TRIGGER trg_users_updated
BEFORE UPDATE ON users
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_products_updated ON products;
CREATE TRIGGER trg_products_updated
BEFORE UPDATE ON products
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_orders_updated ON orders;
CREATE TRIGGER trg_orders_updated
BEFORE UPDATE ON orders
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`).Error; err != nil {
			log.Error("Не удалось создать триггер updated_at", zap.Error(err))
			return err
		}
	}

	// CHECK-constraint
	if opt.CreateChecks {
		if err := db.Exec(`
ALTER TABLE users
  DROP CONSTRAINT IF EXISTS chk_users_role_allowed;
ALTER TABLE users
  ADD CONSTRAINT chk_users_role_allowed
  CHECK (role IN ('ROLE_ADMIN','ROLE_CUSTOMER'));
`).Error; err != nil {
			log.Error("Не удалось создать CHECK для ролей", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE products
  DROP CONSTRAINT IF EXISTS chk_products_unit_price_gte_0;
ALTER TABLE products
  ADD CONSTRAINT chk_products_unit_price_gte_0
  CHECK (unit_price >= 0);

ALTER TABLE orders
  DROP CONSTRAINT IF EXISTS chk_orders_total_price_gte_0;
ALTER TABLE orders
  ADD CONSTRAINT chk_orders_total_price_gte_0
  CHECK (total_price >= 0);

ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS chk_order_items_quantity_gte_1;
ALTER TABLE order_items
  ADD CONSTRAINT chk_order_items_quantity_gte_1
  CHECK (quantity >= 1);

ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS chk_order_items_unit_price_gte_0;
ALTER TABLE order_items
  ADD CONSTRAINT chk_order_items_unit_price_gte_0
  CHECK (unit_price >= 0);
`).Error; err != nil {
			log.Error("Не удалось создать CHECK-ограничения", zap.Error(err))
			return err
		}
	}

	// Индексы
	if opt.CreateIndexes {
		if err := db.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS ux_users_username_lower ON users (lower(username));
`).Error; err != nil {
			log.Error("Не удалось создать индекс уникальности username", zap.Error(err))
			return err
		}
	}

	// FK через SQL: каскад на строки заказа, запрет удаления товара в заказах
	if opt.CreateFKsViaSQL {
		if err := db.Exec(`
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS fk_order_items_order;
ALTER TABLE order_items
  ADD CONSTRAINT fk_order_items_order
  FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE;

ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS fk_order_items_product;
ALTER TABLE order_items
  ADD CONSTRAINT fk_order_items_product
  FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT;

ALTER TABLE orders
  DROP CONSTRAINT IF EXISTS fk_orders_customer;
ALTER TABLE orders
  ADD CONSTRAINT fk_orders_customer
  FOREIGN KEY (customer_id) REFERENCES users(id) ON DELETE RESTRICT;

ALTER TABLE refresh_tokens
  DROP CONSTRAINT IF EXISTS fk_refresh_tokens_user;
ALTER TABLE refresh_tokens
  ADD CONSTRAINT fk_refresh_tokens_user
  FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE;
`).Error; err != nil {
			log.Error("Не удалось создать внешние ключи", zap.Error(err))
			return err
		}
	}

	log.Info("Миграция успешно завершена")
	return nil
}
