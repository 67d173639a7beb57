package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	listingDomain "github.com/flexidesk/service-booking/internal/domain/listing"
	"github.com/flexidesk/service-booking/internal/platform/apperror"
)

// ListingModel is the GORM model for the listings projection table.
type ListingModel struct {
	ID               uuid.UUID                                `gorm:"type:uuid;primaryKey"`
	OwnerID          uuid.UUID                                `gorm:"type:uuid;not null;index"`
	Title            string                                   `gorm:"type:varchar(200)"`
	Venue            string                                   `gorm:"type:varchar(200)"`
	Category         string                                   `gorm:"type:varchar(50);index"`
	Scope            string                                   `gorm:"type:varchar(50)"`
	Brand            string                                   `gorm:"type:varchar(100);index"`
	City             string                                   `gorm:"type:varchar(100);index"`
	Region           string                                   `gorm:"type:varchar(100)"`
	Country          string                                   `gorm:"type:varchar(100)"`
	Seats            int                                      `gorm:"not null;default:0"`
	Rooms            int                                      `gorm:"not null;default:0"`
	Currency         string                                   `gorm:"type:varchar(3);not null;default:'PHP'"`
	Rates            datatypes.JSONType[listingDomain.Rates] `gorm:"type:jsonb;not null"`
	MultiplyByGuests bool                                     `gorm:"not null;default:false"`
	Status           string                                   `gorm:"type:varchar(20);not null;default:'active';index"`
	CreatedAt        time.Time                                `gorm:"not null"`
	UpdatedAt        time.Time                                `gorm:"not null"`
}

func (ListingModel) TableName() string { return "listings" }

// GormListingRepository implements listing.Repository using GORM.
type GormListingRepository struct {
	db *gorm.DB
}

func NewGormListingRepository(db *gorm.DB) *GormListingRepository {
	return &GormListingRepository{db: db}
}

func (r *GormListingRepository) FindByID(ctx context.Context, id uuid.UUID) (*listingDomain.Listing, error) {
	var model ListingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("Listing", id.String())
		}
		return nil, fmt.Errorf("failed to find listing: %w", err)
	}
	return toListingDomain(&model), nil
}

func (r *GormListingRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*listingDomain.Listing, error) {
	out := make(map[uuid.UUID]*listingDomain.Listing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var models []ListingModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find listings: %w", err)
	}
	for i := range models {
		l := toListingDomain(&models[i])
		out[l.ID] = l
	}
	return out, nil
}

func (r *GormListingRepository) Find(ctx context.Context, f listingDomain.Filter) ([]*listingDomain.Listing, error) {
	q := r.db.WithContext(ctx)
	if f.OwnerID != nil {
		q = q.Where("owner_id = ?", *f.OwnerID)
	}
	if f.Brand != "" {
		q = q.Where("brand = ?", f.Brand)
	}
	if f.City != "" {
		q = q.Where("city = ?", f.City)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}

	var models []ListingModel
	if err := q.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find listings: %w", err)
	}
	listings := make([]*listingDomain.Listing, len(models))
	for i := range models {
		listings[i] = toListingDomain(&models[i])
	}
	return listings, nil
}

// Upsert writes the latest state of a listing published by the listing service.
func (r *GormListingRepository) Upsert(ctx context.Context, l *listingDomain.Listing) error {
	model := toListingModel(l)
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(model).Error; err != nil {
		return fmt.Errorf("failed to upsert listing: %w", err)
	}
	return nil
}

// SetStatus changes the status of a listing in the projection.
func (r *GormListingRepository) SetStatus(ctx context.Context, id uuid.UUID, status listingDomain.Status) error {
	result := r.db.WithContext(ctx).Model(&ListingModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("failed to update listing status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NewNotFoundError("Listing", id.String())
	}
	return nil
}

func toListingModel(l *listingDomain.Listing) *ListingModel {
	now := time.Now().UTC()
	createdAt, updatedAt := l.CreatedAt, l.UpdatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = now
	}
	status := l.Status
	if status == "" {
		status = listingDomain.StatusActive
	}
	return &ListingModel{
		ID:               l.ID,
		OwnerID:          l.OwnerID,
		Title:            l.Title,
		Venue:            l.Venue,
		Category:         l.Category,
		Scope:            l.Scope,
		Brand:            l.Brand,
		City:             l.City,
		Region:           l.Region,
		Country:          l.Country,
		Seats:            l.Seats,
		Rooms:            l.Rooms,
		Currency:         l.CurrencyOrDefault(),
		Rates:            datatypes.NewJSONType(l.Rates),
		MultiplyByGuests: l.MultiplyByGuests,
		Status:           string(status),
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}
}

func toListingDomain(m *ListingModel) *listingDomain.Listing {
	return &listingDomain.Listing{
		ID:               m.ID,
		OwnerID:          m.OwnerID,
		Title:            m.Title,
		Venue:            m.Venue,
		Category:         m.Category,
		Scope:            m.Scope,
		Brand:            m.Brand,
		City:             m.City,
		Region:           m.Region,
		Country:          m.Country,
		Seats:            m.Seats,
		Rooms:            m.Rooms,
		Currency:         m.Currency,
		Rates:            m.Rates.Data(),
		MultiplyByGuests: m.MultiplyByGuests,
		Status:           listingDomain.Status(m.Status),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
