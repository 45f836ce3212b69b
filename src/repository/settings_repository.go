package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"signalbridge/src/database"
	"signalbridge/src/model"
)

// SettingsRepository handles persistence for the single settings record.
type SettingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a repository instance using the main database.
func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *SettingsRepository) WithDB(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Load returns the stored settings record, creating the defaults on first
// run so callers always get a usable record.
func (r *SettingsRepository) Load(ctx context.Context) (model.Settings, error) {
	var settings model.Settings
	err := r.db.WithContext(ctx).First(&settings).Error
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.WithError(err).Error("Failed to load settings")
		return model.Settings{}, err
	}

	settings = model.DefaultSettings()
	if err := r.db.WithContext(ctx).Create(&settings).Error; err != nil {
		logger.WithError(err).Error("Failed to create default settings")
		return model.Settings{}, err
	}

	logger.Info("Created default settings record")
	return settings, nil
}

// Save replaces the stored settings record.
func (r *SettingsRepository) Save(ctx context.Context, settings *model.Settings) error {
	if err := r.db.WithContext(ctx).Save(settings).Error; err != nil {
		logger.WithError(err).Error("Failed to save settings")
		return err
	}
	return nil
}
