package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/voxcore/voxcore/internal/logger"
	"github.com/voxcore/voxcore/internal/models"
)

type CustomFunctionRepository struct {
	db *gorm.DB
}

func NewCustomFunctionRepository(db *gorm.DB) *CustomFunctionRepository {
	return &CustomFunctionRepository{db: db}
}

func (r *CustomFunctionRepository) GetByName(name string) (*models.CustomFunction, error) {
	var fn models.CustomFunction
	err := r.db.First(&fn, "name = ? AND is_active = ?", name, true).Error
	if err != nil {
		return nil, err
	}
	return &fn, nil
}

func (r *CustomFunctionRepository) List() ([]models.CustomFunction, error) {
	var fns []models.CustomFunction
	err := r.db.Where("is_active = ?", true).Find(&fns).Error
	return fns, err
}

// isSchemaDriftError recognizes the class of "unknown column" failures a
// live DB can return when its schema lags the model (spec.md §7, "Schema
// drift"). The exact driver error text varies; we match loosely on the
// column-not-found phrasing common to both Postgres and SQLite.
func isSchemaDriftError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "column") && (strings.Contains(msg, "does not exist") || strings.Contains(msg, "no such column") || strings.Contains(msg, "unknown column"))
}

// Upsert creates or updates a CustomFunction. On a schema-drift error it
// retries once with only the guaranteed base columns set.
func (r *CustomFunctionRepository) Upsert(fn *models.CustomFunction) error {
	err := r.db.Save(fn).Error
	if err == nil {
		return nil
	}
	if !isSchemaDriftError(err) {
		return err
	}

	log := logger.WithComponent("custom_function_repo")
	log.Warn().Err(err).Str("function", fn.Name).Msg("schema drift detected, retrying with base columns")

	stripped := &models.CustomFunction{
		BaseModel:      fn.BaseModel,
		Name:           fn.Name,
		Description:    fn.Description,
		Parameters:     fn.Parameters,
		WebhookURL:     fn.WebhookURL,
		Method:         fn.Method,
		Headers:        fn.Headers,
		TimeoutSeconds: fn.TimeoutSeconds,
		RetryCount:     fn.RetryCount,
		IsActive:       fn.IsActive,
	}
	return r.db.Save(stripped).Error
}

func (r *CustomFunctionRepository) Delete(name string) error {
	return r.db.Where("name = ?", name).Delete(&models.CustomFunction{}).Error
}
