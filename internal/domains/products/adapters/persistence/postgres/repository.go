package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	producttypes "github.com/Apurer/go-gin-storefront-api/internal/domains/products/application/types"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/products/domain"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/products/ports"
	platformpostgres "github.com/Apurer/go-gin-storefront-api/internal/platform/postgres"
	"github.com/Apurer/go-gin-storefront-api/internal/shared/projection"
)

var (
	_ ports.Repository = (*Repository)(nil)
	_ ports.Transactor = (*Repository)(nil)
)

// Repository persists products in PostgreSQL using GORM. Bind it to a
// transaction handle to make its writes part of that transaction.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. The caller owns the DB lifecycle
// and applies the schema through platform/migrations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

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

// Create inserts a product and returns it with its generated identifier.
func (r *Repository) Create(ctx context.Context, product *domain.Product) (*producttypes.ProductProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errors.New("cannot create nil product")
	}
	record := toRecord(product)
	record.ID = 0
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, translateError(err)
	}
	return record.toProjection(), nil
}

// Update overwrites the mutable columns of an existing product.
func (r *Repository) Update(ctx context.Context, product *domain.Product) (*producttypes.ProductProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errors.New("cannot update nil product")
	}
	record := toRecord(product)
	result := r.db.WithContext(ctx).
		Model(&productRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"sku":         record.SKU,
			"name":        record.Name,
			"description": record.Description,
			"price_minor": record.PriceMinor,
			"quantity":    record.Quantity,
			"image_urls":  record.ImageURLs,
			"status":      record.Status,
			"updated_at":  gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return nil, translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ports.ErrNotFound
	}
	return r.GetByID(ctx, record.ID)
}

// GetByID fetches a product by identifier.
func (r *Repository) GetByID(ctx context.Context, id int64) (*producttypes.ProductProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	return r.first(r.db.WithContext(ctx), id)
}

// GetByIDForUpdate fetches a product with SELECT ... FOR UPDATE. Outside a
// transaction the lock is released as soon as the statement completes.
func (r *Repository) GetByIDForUpdate(ctx context.Context, id int64) (*producttypes.ProductProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

// List returns all products ordered by id.
func (r *Repository) List(ctx context.Context) ([]*producttypes.ProductProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []productRecord
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	result := make([]*producttypes.ProductProjection, 0, len(records))
	for i := range records {
		result = append(result, records[i].toProjection())
	}
	return result, nil
}

// WithinTx runs fn inside a gorm transaction, or a savepoint when the
// repository is already bound to one.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo ports.Repository) error) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewRepository(tx))
	})
}

func (r *Repository) first(db *gorm.DB, id int64) (*producttypes.ProductProjection, error) {
	var record productRecord
	if err := db.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toProjection(), nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres product repository not configured")
	}
	return nil
}

func translateError(err error) error {
	if platformpostgres.IsConstraintViolation(err) {
		return fmt.Errorf("%w: %w", ports.ErrConstraintViolation, err)
	}
	return err
}

func toRecord(p *domain.Product) productRecord {
	return productRecord{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		PriceMinor:  p.PriceMinor,
		Quantity:    p.Quantity,
		ImageURLs:   pq.StringArray(append([]string(nil), p.ImageURLs...)),
		Status:      string(p.Status),
	}
}

func (r productRecord) toProjection() *producttypes.ProductProjection {
	product := &domain.Product{
		ID:          r.ID,
		SKU:         r.SKU,
		Name:        r.Name,
		Description: r.Description,
		PriceMinor:  r.PriceMinor,
		Quantity:    r.Quantity,
		ImageURLs:   append([]string(nil), r.ImageURLs...),
		Status:      domain.Status(r.Status),
	}
	return projection.New(product, r.CreatedAt, r.UpdatedAt)
}
