package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/internal/app/repository"
	apperrors "github.com/ikkim/candle-backend/internal/errors"
	"github.com/ikkim/candle-backend/internal/pricing"
	"github.com/ikkim/candle-backend/pkg/logger"
	cache "github.com/ikkim/candle-backend/pkg/redis"
	"gorm.io/gorm"
)

const optionsCacheTTL = 10 * time.Minute

// OptionRef is a client supplied option id. Clients send it either as a JSON
// number or a string, so it is kept as text until validated.
type OptionRef string

func (r *OptionRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = OptionRef(s)
		return nil
	}
	*r = OptionRef(strings.TrimSpace(string(data)))
	return nil
}

func refOf(id uint) *OptionRef {
	ref := OptionRef(strconv.FormatUint(uint64(id), 10))
	return &ref
}

// CustomizationInput is the unvalidated combination from a request body.
type CustomizationInput struct {
	ScentID *OptionRef `json:"scent_id"`
	ColorID *OptionRef `json:"color_id"`
	SizeID  *OptionRef `json:"size_id"`
}

func (in CustomizationInput) refFor(kind model.OptionKind) *OptionRef {
	switch kind {
	case model.OptionKindScent:
		return in.ScentID
	case model.OptionKindColor:
		return in.ColorID
	case model.OptionKindSize:
		return in.SizeID
	}
	return nil
}

// InputFromCustomization turns stored ids back into request form.
func InputFromCustomization(c model.Customization) CustomizationInput {
	var in CustomizationInput
	if c.ScentID != nil {
		in.ScentID = refOf(*c.ScentID)
	}
	if c.ColorID != nil {
		in.ColorID = refOf(*c.ColorID)
	}
	if c.SizeID != nil {
		in.SizeID = refOf(*c.SizeID)
	}
	return in
}

// ValidatedCombination is a combination that passed every check for Product.
type ValidatedCombination struct {
	Product       *model.Product
	Customization model.Customization
	Options       []model.CustomizationOption
}

// PriceQuote is a unit price. Skipped lists supplied ids that could not be
// resolved and therefore added nothing.
type PriceQuote struct {
	Price   float64 `json:"price"`
	Skipped []uint  `json:"skipped,omitempty"`
}

// CustomizationResult is a validated combination together with its unit price.
type CustomizationResult struct {
	ValidatedCombination
	Snapshot model.CustomizationSnapshot
	Price    float64
}

// ProductOptions are a product's selectable options grouped by kind.
type ProductOptions struct {
	Scents []model.CustomizationOption `json:"scents"`
	Colors []model.CustomizationOption `json:"colors"`
	Sizes  []model.CustomizationOption `json:"sizes"`
}

type CustomizationService interface {
	ValidateCombination(productID uint, input CustomizationInput) (*ValidatedCombination, error)
	ValidateCustomization(productID uint, custom model.Customization) (*ValidatedCombination, error)
	CalculatePrice(productID uint, custom model.Customization) (*PriceQuote, error)
	ValidateAndPrice(productID uint, input CustomizationInput) (*CustomizationResult, error)
	AvailableOptions(ctx context.Context, productID uint) (*ProductOptions, error)
	CustomizableWarnings(product *model.Product) []string
}

type customizationService struct {
	productRepo repository.ProductRepository
	optionRepo  repository.OptionRepository
	cache       *cache.Client
}

func NewCustomizationService(
	productRepo repository.ProductRepository,
	optionRepo repository.OptionRepository,
	cacheClient *cache.Client,
) CustomizationService {
	return &customizationService{
		productRepo: productRepo,
		optionRepo:  optionRepo,
		cache:       cacheClient,
	}
}

func fieldName(kind model.OptionKind) string {
	return string(kind) + "_id"
}

// parseInput checks that every supplied id is well formed. Blank values count
// as not supplied.
func parseInput(input CustomizationInput) (model.Customization, error) {
	var custom model.Customization
	for _, kind := range model.OptionKinds {
		ref := input.refFor(kind)
		if ref == nil || strings.TrimSpace(string(*ref)) == "" {
			continue
		}

		raw := strings.TrimSpace(string(*ref))
		parsed, err := strconv.ParseUint(raw, 10, 0)
		if err != nil || parsed == 0 {
			field := fieldName(kind)
			return custom, apperrors.FieldValidation(apperrors.ValidationInvalidID, field,
				fmt.Sprintf("%s must be a valid option id", field))
		}

		id := uint(parsed)
		switch kind {
		case model.OptionKindScent:
			custom.ScentID = &id
		case model.OptionKindColor:
			custom.ColorID = &id
		case model.OptionKindSize:
			custom.SizeID = &id
		}
	}
	return custom, nil
}

func (s *customizationService) ValidateCombination(productID uint, input CustomizationInput) (*ValidatedCombination, error) {
	custom, err := parseInput(input)
	if err != nil {
		logger.Debug("Customization rejected: malformed option id", map[string]interface{}{
			"product_id": productID,
			"error":      err.Error(),
		})
		return nil, err
	}
	return s.ValidateCustomization(productID, custom)
}

// ValidateCustomization runs the option, product and membership checks in
// that order and stops at the first failure. An empty combination is valid.
func (s *customizationService) ValidateCustomization(productID uint, custom model.Customization) (*ValidatedCombination, error) {
	selections := custom.Selections()
	options := make([]model.CustomizationOption, 0, len(selections))

	for _, sel := range selections {
		option, err := s.optionRepo.FindByID(sel.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to fetch customization option", err, map[string]interface{}{
				"option_id": sel.ID,
			})
			return nil, apperrors.Internal(err)
		}

		field := fieldName(sel.Kind)
		if option == nil || option.Kind != sel.Kind {
			logger.Debug("Customization rejected: option not found", map[string]interface{}{
				"product_id": productID,
				"kind":       sel.Kind,
				"option_id":  sel.ID,
			})
			return nil, apperrors.FieldValidation(apperrors.CatalogOptionNotFound, field,
				fmt.Sprintf("Selected %s was not found", sel.Kind))
		}
		if !option.Available {
			return nil, apperrors.FieldValidation(apperrors.CatalogInvalidCustomization, field,
				fmt.Sprintf("Selected %s is not available", sel.Kind))
		}
		if !option.InStock {
			return nil, apperrors.FieldValidation(apperrors.CatalogInvalidCustomization, field,
				fmt.Sprintf("Selected %s is out of stock", sel.Kind))
		}
		options = append(options, *option)
	}

	product, err := s.findActiveProduct(productID)
	if err != nil {
		return nil, err
	}

	for _, sel := range selections {
		if !product.Allows(sel.Kind, sel.ID) {
			logger.Debug("Customization rejected: option not offered for product", map[string]interface{}{
				"product_id": productID,
				"kind":       sel.Kind,
				"option_id":  sel.ID,
			})
			return nil, apperrors.FieldValidation(apperrors.CatalogInvalidCustomization, fieldName(sel.Kind),
				fmt.Sprintf("Selected %s is not available for this product", sel.Kind))
		}
	}

	return &ValidatedCombination{
		Product:       product,
		Customization: custom,
		Options:       options,
	}, nil
}

func (s *customizationService) findActiveProduct(productID uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, apperrors.Internal(err)
	}
	if !product.IsActive {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// CalculatePrice adds the price delta of every resolvable option to the base
// price. It does not validate; ids that cannot be resolved for their kind are
// reported in Skipped.
func (s *customizationService) CalculatePrice(productID uint, custom model.Customization) (*PriceQuote, error) {
	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, apperrors.Internal(err)
	}

	selections := custom.Selections()
	ids := make([]uint, 0, len(selections))
	for _, sel := range selections {
		ids = append(ids, sel.ID)
	}

	byID := map[uint]model.CustomizationOption{}
	if len(ids) > 0 {
		found, err := s.optionRepo.FindByIDs(ids)
		if err != nil {
			logger.Error("Failed to fetch options for pricing", err, map[string]interface{}{
				"product_id": productID,
			})
			return nil, apperrors.Internal(err)
		}
		for _, opt := range found {
			byID[opt.ID] = opt
		}
	}

	quote := &PriceQuote{Price: product.BasePrice}
	for _, sel := range selections {
		opt, ok := byID[sel.ID]
		if !ok || opt.Kind != sel.Kind {
			quote.Skipped = append(quote.Skipped, sel.ID)
			continue
		}
		quote.Price += opt.AdditionalPrice
	}
	quote.Price = pricing.Round2(quote.Price)

	if len(quote.Skipped) > 0 {
		logger.Warn("Unresolvable option ids ignored while pricing", map[string]interface{}{
			"product_id": productID,
			"skipped":    quote.Skipped,
		})
	}
	return quote, nil
}

func (s *customizationService) ValidateAndPrice(productID uint, input CustomizationInput) (*CustomizationResult, error) {
	validated, err := s.ValidateCombination(productID, input)
	if err != nil {
		return nil, err
	}
	return priceValidated(validated), nil
}

// priceValidated prices a combination whose options are already loaded.
func priceValidated(v *ValidatedCombination) *CustomizationResult {
	result := &CustomizationResult{ValidatedCombination: *v}
	price := v.Product.BasePrice
	for i := range v.Options {
		price += v.Options[i].AdditionalPrice
		result.Snapshot.Set(&v.Options[i])
	}
	result.Price = pricing.Round2(price)
	return result
}

func (s *customizationService) AvailableOptions(ctx context.Context, productID uint) (*ProductOptions, error) {
	key := cache.OptionsKey(productID)

	var cached ProductOptions
	if found, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		logger.Warn("Options cache read failed", map[string]interface{}{
			"product_id": productID,
			"error":      err.Error(),
		})
	} else if found {
		return &cached, nil
	}

	product, err := s.findActiveProduct(productID)
	if err != nil {
		return nil, err
	}

	grouped := &ProductOptions{
		Scents: []model.CustomizationOption{},
		Colors: []model.CustomizationOption{},
		Sizes:  []model.CustomizationOption{},
	}
	for _, opt := range product.Options {
		if !opt.Selectable() {
			continue
		}
		switch opt.Kind {
		case model.OptionKindScent:
			grouped.Scents = append(grouped.Scents, opt)
		case model.OptionKindColor:
			grouped.Colors = append(grouped.Colors, opt)
		case model.OptionKindSize:
			grouped.Sizes = append(grouped.Sizes, opt)
		}
	}

	if err := s.cache.SetJSON(ctx, key, grouped, optionsCacheTTL); err != nil {
		logger.Warn("Options cache write failed", map[string]interface{}{
			"product_id": productID,
			"error":      err.Error(),
		})
	}
	return grouped, nil
}

// CustomizableWarnings flags kinds the product offers where none of the
// offered options can currently be selected.
func (s *customizationService) CustomizableWarnings(product *model.Product) []string {
	var warnings []string
	for _, kind := range model.OptionKinds {
		offered := product.OptionsOfKind(kind)
		if len(offered) == 0 {
			continue
		}
		selectable := false
		for _, opt := range offered {
			if opt.Selectable() {
				selectable = true
				break
			}
		}
		if !selectable {
			warnings = append(warnings, fmt.Sprintf("%s is customizable but no %s option is available and in stock", product.Name, kind))
		}
	}
	return warnings
}
