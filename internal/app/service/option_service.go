package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/internal/app/repository"
	apperrors "github.com/ikkim/candle-backend/internal/errors"
	"github.com/ikkim/candle-backend/pkg/logger"
	cache "github.com/ikkim/candle-backend/pkg/redis"
	"gorm.io/gorm"
)

// OptionInput is the admin payload for a customization option.
type OptionInput struct {
	Kind            model.OptionKind `json:"kind" binding:"required"`
	Name            string           `json:"name" binding:"required"`
	Description     string           `json:"description"`
	HexCode         string           `json:"hex_code"`
	BurnTimeHours   int              `json:"burn_time_hours"`
	Notes           []string         `json:"notes"`
	Available       *bool            `json:"available"`
	InStock         *bool            `json:"in_stock"`
	AdditionalPrice float64          `json:"additional_price"`
	SortOrder       int              `json:"sort_order"`
}

type OptionService interface {
	ListOptions(kind *model.OptionKind) ([]model.CustomizationOption, error)
	GetOption(id uint) (*model.CustomizationOption, error)
	CreateOption(ctx context.Context, input OptionInput) (*model.CustomizationOption, error)
	UpdateOption(ctx context.Context, id uint, input OptionInput) (*model.CustomizationOption, error)
	DeleteOption(ctx context.Context, id uint) error
}

type optionService struct {
	optionRepo repository.OptionRepository
	cache      *cache.Client
}

func NewOptionService(optionRepo repository.OptionRepository, cacheClient *cache.Client) OptionService {
	return &optionService{
		optionRepo: optionRepo,
		cache:      cacheClient,
	}
}

func (s *optionService) ListOptions(kind *model.OptionKind) ([]model.CustomizationOption, error) {
	if kind != nil && !kind.Valid() {
		return nil, apperrors.FieldValidation(apperrors.ValidationInvalidFormat, "kind", "kind must be scent, color or size")
	}
	options, err := s.optionRepo.FindAll(kind)
	if err != nil {
		logger.Error("Failed to list options", err, nil)
		return nil, apperrors.Internal(err)
	}
	return options, nil
}

func (s *optionService) GetOption(id uint) (*model.CustomizationOption, error) {
	option, err := s.optionRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOptionNotFound
		}
		return nil, apperrors.Internal(err)
	}
	return option, nil
}

func applyOptionInput(option *model.CustomizationOption, input OptionInput) error {
	if !input.Kind.Valid() {
		return apperrors.FieldValidation(apperrors.ValidationInvalidFormat, "kind", "kind must be scent, color or size")
	}
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.FieldValidation(apperrors.ValidationRequired, "name", "name is required")
	}
	if input.AdditionalPrice < 0 {
		return apperrors.FieldValidation(apperrors.ValidationInvalidRange, "additional_price", "additional_price must not be negative")
	}
	if input.HexCode != "" && (len(input.HexCode) != 7 || input.HexCode[0] != '#') {
		return apperrors.FieldValidation(apperrors.ValidationInvalidFormat, "hex_code", "hex_code must look like #aabbcc")
	}

	option.Kind = input.Kind
	option.Name = strings.TrimSpace(input.Name)
	option.Description = input.Description
	option.HexCode = input.HexCode
	option.BurnTimeHours = input.BurnTimeHours
	option.Notes = append([]string{}, input.Notes...)
	option.AdditionalPrice = input.AdditionalPrice
	option.SortOrder = input.SortOrder
	if input.Available != nil {
		option.Available = *input.Available
	}
	if input.InStock != nil {
		option.InStock = *input.InStock
	}
	return nil
}

func (s *optionService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateOptions(ctx); err != nil {
		logger.Warn("Failed to invalidate options cache", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *optionService) CreateOption(ctx context.Context, input OptionInput) (*model.CustomizationOption, error) {
	option := &model.CustomizationOption{Available: true, InStock: true}
	if err := applyOptionInput(option, input); err != nil {
		return nil, err
	}

	if err := s.optionRepo.Create(option); err != nil {
		return nil, apperrors.ParseError(err, "option")
	}

	logger.Info("Customization option created", map[string]interface{}{
		"option_id": option.ID,
		"kind":      option.Kind,
		"name":      option.Name,
	})
	s.invalidate(ctx)
	return option, nil
}

func (s *optionService) UpdateOption(ctx context.Context, id uint, input OptionInput) (*model.CustomizationOption, error) {
	option, err := s.GetOption(id)
	if err != nil {
		return nil, err
	}

	// A product's allowed set is per kind, so moving an offered option to
	// another kind would silently change what products offer.
	if input.Kind != option.Kind {
		refs, err := s.optionRepo.CountProductReferences(id)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		if refs > 0 {
			return nil, ErrOptionInUse
		}
	}

	if err := applyOptionInput(option, input); err != nil {
		return nil, err
	}
	if err := s.optionRepo.Update(option); err != nil {
		return nil, apperrors.ParseError(err, "option")
	}

	logger.Info("Customization option updated", map[string]interface{}{
		"option_id": id,
		"available": option.Available,
		"in_stock":  option.InStock,
	})
	s.invalidate(ctx)
	return option, nil
}

// DeleteOption refuses while any product still offers the option.
func (s *optionService) DeleteOption(ctx context.Context, id uint) error {
	if _, err := s.GetOption(id); err != nil {
		return err
	}

	refs, err := s.optionRepo.CountProductReferences(id)
	if err != nil {
		logger.Error("Failed to count option references", err, map[string]interface{}{
			"option_id": id,
		})
		return apperrors.Internal(err)
	}
	if refs > 0 {
		logger.Warn("Option delete refused: still referenced", map[string]interface{}{
			"option_id":  id,
			"references": refs,
		})
		return ErrOptionInUse
	}

	if err := s.optionRepo.Delete(id); err != nil {
		return apperrors.ParseError(err, "option")
	}

	logger.Info("Customization option deleted", map[string]interface{}{
		"option_id": id,
	})
	s.invalidate(ctx)
	return nil
}
