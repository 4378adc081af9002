package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdmin    Role = "ROLE_ADMIN"
	RoleCustomer Role = "ROLE_CUSTOMER"
)

// User — аккаунт клиента. Username — локальный мобильный номер (09121234567).
// Пустой Password означает "непригодный пароль": вход только по OTP.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Username  string    `gorm:"type:varchar(11);not null;index"` // уникальность — функциональный индекс lower(username)
	FirstName string    `gorm:"type:varchar(150);not null;default:''"`
	LastName  string    `gorm:"type:varchar(150);not null;default:''"`
	Password  string    `gorm:"not null;default:''"` // bcrypt hash
	Role      Role      `gorm:"type:text;not null;default:'ROLE_CUSTOMER';index"`
	IsActive  bool      `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (User) TableName() string { return "users" }

// OTPExpiration — окно валидности одноразового кода.
const OTPExpiration = 10 * time.Minute

type OTP struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Code        string    `gorm:"type:varchar(8);not null"`
	Destination string    `gorm:"type:varchar(128);not null;index:idx_otps_dest_used_created,priority:1"`
	IsUsed      bool      `gorm:"not null;default:false;index:idx_otps_dest_used_created,priority:2"`
	Extra       []byte    `gorm:"type:jsonb;not null;default:'{}'"`

	CreatedAt time.Time `gorm:"not null;default:now();index:idx_otps_dest_used_created,priority:3"`
}

func (OTP) TableName() string { return "otps" }

func (o *OTP) IsExpired(now time.Time) bool {
	return o.CreatedAt.Add(OTPExpiration).Before(now)
}

type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	TokenHash string    `gorm:"not null;index"` // sha256(opaque), base64url
	ExpiresAt time.Time `gorm:"not null;index"`
	Revoked   bool      `gorm:"not null;default:false;index"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

// Product — позиция каталога. UnitPrice — текущая цена; в строках заказа
// хранится её снимок на момент добавления.
type Product struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string          `gorm:"type:varchar(255);not null;uniqueIndex"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	IsActive  bool            `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Product) TableName() string { return "products" }

// Order — заказ клиента. TotalPrice денормализован: всегда равен сумме
// quantity × unit_price по строкам, пересчитывается в той же транзакции.
type Order struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID       `gorm:"type:uuid;not null;index:idx_orders_customer_created,priority:1"`
	TotalPrice decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0;index"`

	CreatedAt time.Time `gorm:"not null;default:now();index:idx_orders_customer_created,priority:2"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"` // каскад на позиции
}

func (Order) TableName() string { return "orders" }

// OrderItem — строка заказа. UnitPrice — снимок цены товара на момент
// создания строки; при изменении количества не обновляется.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:ux_order_items_order_product"` // композитный UNIQUE
	ProductID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_order_items_order_product"`
	Quantity  uint32          `gorm:"type:int;not null"` // CHECK >= 1 добавим в миграции
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (OrderItem) TableName() string { return "order_items" }

// LineTotal — производная величина, в БД не хранится.
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
