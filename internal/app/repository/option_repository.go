package repository

import (
	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/pkg/logger"
	"gorm.io/gorm"
)

type OptionRepository interface {
	Create(option *model.CustomizationOption) error
	FindAll(kind *model.OptionKind) ([]model.CustomizationOption, error)
	FindByID(id uint) (*model.CustomizationOption, error)
	FindByIDs(ids []uint) ([]model.CustomizationOption, error)
	Update(option *model.CustomizationOption) error
	Delete(id uint) error
	CountProductReferences(id uint) (int64, error)
}

type optionRepository struct {
	db *gorm.DB
}

func NewOptionRepository(db *gorm.DB) OptionRepository {
	return &optionRepository{db: db}
}

func (r *optionRepository) Create(option *model.CustomizationOption) error {
	logger.Debug("Creating customization option in database", map[string]interface{}{
		"kind": option.Kind,
		"name": option.Name,
	})

	if err := r.db.Create(option).Error; err != nil {
		logger.Error("Failed to create customization option in database", err, map[string]interface{}{
			"kind": option.Kind,
			"name": option.Name,
		})
		return err
	}

	logger.Debug("Customization option created in database", map[string]interface{}{
		"option_id": option.ID,
	})
	return nil
}

// FindAll lists options in catalog order, optionally limited to one kind.
func (r *optionRepository) FindAll(kind *model.OptionKind) ([]model.CustomizationOption, error) {
	query := r.db.Model(&model.CustomizationOption{})
	if kind != nil {
		query = query.Where("kind = ?", *kind)
	}

	var options []model.CustomizationOption
	if err := query.Order("kind ASC, sort_order ASC, id ASC").Find(&options).Error; err != nil {
		logger.Error("Failed to list customization options", err, map[string]interface{}{
			"kind": kind,
		})
		return nil, err
	}

	logger.Debug("Customization options listed", map[string]interface{}{
		"count": len(options),
	})
	return options, nil
}

func (r *optionRepository) FindByID(id uint) (*model.CustomizationOption, error) {
	var option model.CustomizationOption
	if err := r.db.First(&option, id).Error; err != nil {
		logger.Debug("Customization option lookup failed", map[string]interface{}{
			"option_id": id,
			"error":     err.Error(),
		})
		return nil, err
	}
	return &option, nil
}

func (r *optionRepository) FindByIDs(ids []uint) ([]model.CustomizationOption, error) {
	if len(ids) == 0 {
		return []model.CustomizationOption{}, nil
	}

	var options []model.CustomizationOption
	if err := r.db.Where("id IN ?", ids).Find(&options).Error; err != nil {
		logger.Error("Failed to find customization options by IDs", err, map[string]interface{}{
			"option_ids": ids,
		})
		return nil, err
	}
	return options, nil
}

func (r *optionRepository) Update(option *model.CustomizationOption) error {
	logger.Debug("Updating customization option in database", map[string]interface{}{
		"option_id": option.ID,
	})

	if err := r.db.Save(option).Error; err != nil {
		logger.Error("Failed to update customization option in database", err, map[string]interface{}{
			"option_id": option.ID,
		})
		return err
	}
	return nil
}

func (r *optionRepository) Delete(id uint) error {
	logger.Debug("Deleting customization option from database", map[string]interface{}{
		"option_id": id,
	})

	result := r.db.Delete(&model.CustomizationOption{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete customization option from database", result.Error, map[string]interface{}{
			"option_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountProductReferences counts membership rows, soft-deleted products included.
func (r *optionRepository) CountProductReferences(id uint) (int64, error) {
	var count int64
	err := r.db.Table("product_options").
		Where("customization_option_id = ?", id).
		Count(&count).Error
	if err != nil {
		logger.Error("Failed to count option references", err, map[string]interface{}{
			"option_id": id,
		})
		return 0, err
	}
	return count, nil
}
