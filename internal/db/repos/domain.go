package repos

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/domainbrowser/searchjobs/internal/db/models"
)

// DomainRepository provides read access to the domain classification
type DomainRepository struct {
	db *gorm.DB
}

// NewDomainRepository creates a new domain repository instance
func NewDomainRepository(db *gorm.DB) *DomainRepository {
	return &DomainRepository{db: db}
}

// FindByKeys looks up domains by surrogate key or canonical id in a
// single query. Keys and ids that match nothing are simply absent.
func (r *DomainRepository) FindByKeys(ctx context.Context, keys []uint, ids []string) ([]models.Domain, error) {
	if len(keys) == 0 && len(ids) == 0 {
		return []models.Domain{}, nil
	}

	qry := r.db.WithContext(ctx).Model(&models.Domain{})
	switch {
	case len(keys) > 0 && len(ids) > 0:
		qry = qry.Where("id IN ? OR domain_id IN ?", keys, ids)
	case len(keys) > 0:
		qry = qry.Where("id IN ?", keys)
	default:
		qry = qry.Where("domain_id IN ?", ids)
	}

	var domains []models.Domain
	if err := qry.Find(&domains).Error; err != nil {
		return nil, fmt.Errorf("failed to find domains: %w", err)
	}
	return domains, nil
}

// Upsert creates or updates domains by canonical id
func (r *DomainRepository) Upsert(ctx context.Context, domains []models.Domain) error {
	if len(domains) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "domain_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"family_id", "family_name", "updated_at"}),
	}).Create(&domains).Error
}

// Count returns the number of domains
func (r *DomainRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Domain{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count domains: %w", err)
	}
	return n, nil
}
