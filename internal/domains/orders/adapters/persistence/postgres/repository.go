package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	ordertypes "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application/types"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
	platformpostgres "github.com/Apurer/go-gin-storefront-api/internal/platform/postgres"
	"github.com/Apurer/go-gin-storefront-api/internal/shared/projection"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists orders in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// orderRecord maps the order aggregate to a relational table.
type orderRecord struct {
	ID            int64             `gorm:"primaryKey;column:id"`
	Reference     string            `gorm:"column:reference;type:varchar(64);uniqueIndex;not null"`
	CustomerID    int64             `gorm:"column:customer_id;index;not null"`
	AddressID     int64             `gorm:"column:address_id"`
	CourierID     int64             `gorm:"column:courier_id"`
	Status        string            `gorm:"column:status;type:varchar(32);index"`
	Payment       string            `gorm:"column:payment"`
	Discounts     int64             `gorm:"column:discounts;not null;default:0"`
	TotalProducts int64             `gorm:"column:total_products;not null;default:0"`
	Tax           int64             `gorm:"column:tax;not null;default:0"`
	Total         int64             `gorm:"column:total;not null;default:0"`
	TotalPaid     int64             `gorm:"column:total_paid;not null;default:0"`
	Invoice       string            `gorm:"column:invoice"`
	Metadata      map[string]string `gorm:"column:metadata;type:text;serializer:json"`
	CreatedAt     time.Time         `gorm:"column:created_at;index"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;index"`
}

func (orderRecord) TableName() string { return "orders" }

// lineItemRecord is the order/product join row carrying the associated quantity.
type lineItemRecord struct {
	OrderID   int64     `gorm:"primaryKey;column:order_id;autoIncrement:false"`
	ProductID int64     `gorm:"primaryKey;column:product_id;autoIncrement:false;index"`
	Quantity  int32     `gorm:"column:quantity;not null;check:chk_order_products_quantity,quantity > 0"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (lineItemRecord) TableName() string { return "order_products" }

// Create inserts an order and returns it with its generated identifier.
func (r *Repository) Create(ctx context.Context, order *domain.Order) (*ordertypes.OrderProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	record := toRecord(order)
	record.ID = 0
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, translateError(err)
	}
	return record.toProjection(), nil
}

// Update overwrites the order attributes.
func (r *Repository) Update(ctx context.Context, order *domain.Order) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	if order == nil {
		return errors.New("order is nil")
	}
	record := toRecord(order)
	// Select writes zero values too.
	result := r.db.WithContext(ctx).
		Model(&record).
		Select(
			"reference", "customer_id", "address_id", "courier_id", "status", "payment",
			"discounts", "total_products", "tax", "total", "total_paid", "invoice", "metadata", "updated_at",
		).
		Updates(&record)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// GetByID fetches an order by identifier.
func (r *Repository) GetByID(ctx context.Context, id int64) (*ordertypes.OrderProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	return r.first(r.db.WithContext(ctx), id)
}

// GetByIDForUpdate fetches an order with SELECT ... FOR UPDATE.
func (r *Repository) GetByIDForUpdate(ctx context.Context, id int64) (*ordertypes.OrderProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *Repository) first(db *gorm.DB, id int64) (*ordertypes.OrderProjection, error) {
	var record orderRecord
	if err := db.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toProjection(), nil
}

// List returns all orders sorted by a whitelisted column, ties broken by id.
func (r *Repository) List(ctx context.Context, sort domain.Sort) ([]*ordertypes.OrderProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	desc := sort.Direction == domain.SortDesc
	query := r.db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: string(sort.Field)}, Desc: desc})
	if sort.Field != domain.SortByID {
		query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
	}
	var records []orderRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*ordertypes.OrderProjection, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toProjection())
	}
	return orders, nil
}

// LineItems returns the products associated with an order.
func (r *Repository) LineItems(ctx context.Context, orderID int64) ([]domain.LineItem, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []lineItemRecord
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("product_id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	items := make([]domain.LineItem, 0, len(records))
	for _, rec := range records {
		items = append(items, domain.LineItem{OrderID: rec.OrderID, ProductID: rec.ProductID, Quantity: rec.Quantity})
	}
	return items, nil
}

// FindLineItem loads a single association.
func (r *Repository) FindLineItem(ctx context.Context, orderID, productID int64) (domain.LineItem, error) {
	if err := r.ensureDB(); err != nil {
		return domain.LineItem{}, err
	}
	var rec lineItemRecord
	err := r.db.WithContext(ctx).First(&rec, "order_id = ? AND product_id = ?", orderID, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.LineItem{}, ports.ErrNotFound
		}
		return domain.LineItem{}, err
	}
	return domain.LineItem{OrderID: rec.OrderID, ProductID: rec.ProductID, Quantity: rec.Quantity}, nil
}

// SaveLineItem inserts or overwrites an association.
func (r *Repository) SaveLineItem(ctx context.Context, line domain.LineItem) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	rec := lineItemRecord{OrderID: line.OrderID, ProductID: line.ProductID, Quantity: line.Quantity}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "order_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   rec.Quantity,
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).Create(&rec).Error
	return translateError(err)
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres order repository not configured")
	}
	return nil
}

func translateError(err error) error {
	if platformpostgres.IsConstraintViolation(err) {
		return fmt.Errorf("%w: %w", ports.ErrConstraintViolation, err)
	}
	return err
}

func toRecord(order *domain.Order) orderRecord {
	return orderRecord{
		ID:            order.ID,
		Reference:     order.Reference,
		CustomerID:    order.CustomerID,
		AddressID:     order.AddressID,
		CourierID:     order.CourierID,
		Status:        string(order.Status),
		Payment:       order.Payment,
		Discounts:     order.Discounts,
		TotalProducts: order.TotalProducts,
		Tax:           order.Tax,
		Total:         order.Total,
		TotalPaid:     order.TotalPaid,
		Invoice:       order.Invoice,
		Metadata:      order.Clone().Metadata,
	}
}

func (r orderRecord) toProjection() *ordertypes.OrderProjection {
	order := &domain.Order{
		ID:            r.ID,
		Reference:     r.Reference,
		CustomerID:    r.CustomerID,
		AddressID:     r.AddressID,
		CourierID:     r.CourierID,
		Status:        domain.Status(r.Status),
		Payment:       r.Payment,
		Discounts:     r.Discounts,
		TotalProducts: r.TotalProducts,
		Tax:           r.Tax,
		Total:         r.Total,
		TotalPaid:     r.TotalPaid,
		Invoice:       r.Invoice,
		Metadata:      r.Metadata,
	}
	return projection.New(order, r.CreatedAt, r.UpdatedAt)
}
