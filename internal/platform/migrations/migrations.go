package migrations

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Run applies the schema for the bounded contexts. Adapters do not automigrate.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&productRecord{},
		&orderRecord{},
		&orderProductRecord{},
		&checkoutIdempotencyRecord{},
	)
}

// Product schema mirrors the products Postgres adapter.
type productRecord struct {
	ID          int64          `gorm:"primaryKey;column:id"`
	SKU         string         `gorm:"column:sku;type:varchar(64);uniqueIndex"`
	Name        string         `gorm:"column:name;not null"`
	Description string         `gorm:"column:description"`
	PriceMinor  int64          `gorm:"column:price_minor;not null;default:0"`
	Quantity    int32          `gorm:"column:quantity;not null;default:0"`
	ImageURLs   pq.StringArray `gorm:"column:image_urls;type:text[]"`
	Status      string         `gorm:"column:status;type:varchar(32);index"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at"`
}

func (productRecord) TableName() string { return "products" }

// Order schema mirrors the orders Postgres adapter.
type orderRecord struct {
	ID            int64     `gorm:"primaryKey;column:id"`
	Reference     string    `gorm:"column:reference;type:varchar(64);uniqueIndex;not null"`
	CustomerID    int64     `gorm:"column:customer_id;index;not null"`
	AddressID     int64     `gorm:"column:address_id"`
	CourierID     int64     `gorm:"column:courier_id"`
	Status        string    `gorm:"column:status;type:varchar(32);index"`
	Payment       string    `gorm:"column:payment"`
	Discounts     int64     `gorm:"column:discounts;not null;default:0"`
	TotalProducts int64     `gorm:"column:total_products;not null;default:0"`
	Tax           int64     `gorm:"column:tax;not null;default:0"`
	Total         int64     `gorm:"column:total;not null;default:0"`
	TotalPaid     int64     `gorm:"column:total_paid;not null;default:0"`
	Invoice       string    `gorm:"column:invoice"`
	Metadata      string    `gorm:"column:metadata;type:text"`
	CreatedAt     time.Time `gorm:"column:created_at;index"`
	UpdatedAt     time.Time `gorm:"column:updated_at;index"`
}

func (orderRecord) TableName() string { return "orders" }

// Join table between orders and products.
type orderProductRecord struct {
	OrderID   int64     `gorm:"primaryKey;column:order_id;autoIncrement:false"`
	ProductID int64     `gorm:"primaryKey;column:product_id;autoIncrement:false;index"`
	Quantity  int32     `gorm:"column:quantity;not null;check:chk_order_products_quantity,quantity > 0"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (orderProductRecord) TableName() string { return "order_products" }

// Checkout idempotency schema mirrors the orders idempotency store.
type checkoutIdempotencyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:128"`
	OrderID     int64     `gorm:"column:order_id"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (checkoutIdempotencyRecord) TableName() string { return "checkout_idempotency_keys" }
