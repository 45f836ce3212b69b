package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"signalbridge/src/database"
	"signalbridge/src/model"
)

const defaultAuditLimit = 50

// OrderAuditRepository handles persistence for order submission audits.
type OrderAuditRepository struct {
	db *gorm.DB
}

// NewOrderAuditRepository creates a repository instance using the main database.
func NewOrderAuditRepository() *OrderAuditRepository {
	return &OrderAuditRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *OrderAuditRepository) WithDB(db *gorm.DB) *OrderAuditRepository {
	return &OrderAuditRepository{db: db}
}

// Create inserts a new audit row.
func (r *OrderAuditRepository) Create(ctx context.Context, audit *model.OrderAudit) error {
	if err := r.db.WithContext(ctx).Create(audit).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OrderAuditRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create order audit")
		return err
	}
	return nil
}

// FindLatest returns the most recent audit rows, newest first.
func (r *OrderAuditRepository) FindLatest(ctx context.Context, limit int) ([]model.OrderAudit, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	var audits []model.OrderAudit
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&audits).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OrderAuditRepository",
			"op":   "FindLatest",
		}).WithError(err).Error("Failed to fetch order audits")
		return nil, err
	}

	return audits, nil
}
