package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/stitchpress/api/internal/domain"
	"github.com/stitchpress/api/internal/repositories"
)

var (
	// ErrCustomizationRepositoryMissing indicates a repository dependency is absent.
	ErrCustomizationRepositoryMissing = errors.New("customization service: repository is not configured")
	// ErrCustomizationInvalidInput indicates the selection does not form a valid customization.
	ErrCustomizationInvalidInput = errors.New("customization service: invalid input")
)

// CustomizationServiceDeps bundles constructor inputs for the customization service.
type CustomizationServiceDeps struct {
	Customizations repositories.CustomizationRepository
	Garments       repositories.GarmentRepository
	Designs        repositories.DesignRepository
	Pricing        PricingEngine
	Clock          func() time.Time
	IDGen          func() string
}

type customizationService struct {
	customizations repositories.CustomizationRepository
	garments       repositories.GarmentRepository
	designs        repositories.DesignRepository
	pricing        PricingEngine
	clock          func() time.Time
	idGen          func() string
}

// NewCustomizationService constructs the customization service with the supplied dependencies.
func NewCustomizationService(deps CustomizationServiceDeps) (CustomizationService, error) {
	if deps.Customizations == nil {
		return nil, fmt.Errorf("customization service: customization repository is required")
	}
	if deps.Garments == nil {
		return nil, fmt.Errorf("customization service: garment repository is required")
	}
	if deps.Designs == nil {
		return nil, fmt.Errorf("customization service: design repository is required")
	}
	if deps.Pricing == nil {
		return nil, fmt.Errorf("customization service: pricing engine is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &customizationService{
		customizations: deps.Customizations,
		garments:       deps.Garments,
		designs:        deps.Designs,
		pricing:        deps.Pricing,
		clock:          func() time.Time { return clock().UTC() },
		idGen:          idGen,
	}, nil
}

// CreateCustomization validates the selection against the catalog, prices
// it server-side, and stores an immutable record with a descriptive payload
// snapshot. Prices sent by callers are never trusted.
func (s *customizationService) CreateCustomization(ctx context.Context, cmd CreateCustomizationCommand) (Customization, error) {
	if s.customizations == nil {
		return Customization{}, ErrCustomizationRepositoryMissing
	}

	garmentID := strings.TrimSpace(cmd.GarmentID)
	designID := strings.TrimSpace(cmd.DesignID)
	colorID := strings.TrimSpace(cmd.ColorID)
	sizeID := strings.TrimSpace(cmd.SizeID)
	if garmentID == "" || designID == "" || colorID == "" || sizeID == "" {
		return Customization{}, fmt.Errorf("%w: garment, design, color and size are all required", ErrCustomizationInvalidInput)
	}

	garment, err := s.garments.FindByID(ctx, garmentID)
	if err != nil {
		return Customization{}, err
	}

	var color *domain.Color
	for i := range garment.Colors {
		if garment.Colors[i].ID == colorID {
			color = &garment.Colors[i]
			break
		}
	}
	if color == nil {
		return Customization{}, fmt.Errorf("%w: color %s does not belong to garment %s", ErrCustomizationInvalidInput, colorID, garmentID)
	}

	var size *domain.Size
	for i := range garment.Sizes {
		if garment.Sizes[i].ID == sizeID {
			size = &garment.Sizes[i]
			break
		}
	}
	if size == nil {
		return Customization{}, fmt.Errorf("%w: size %s does not belong to garment %s", ErrCustomizationInvalidInput, sizeID, garmentID)
	}

	design, err := s.designs.FindByID(ctx, designID)
	if err != nil {
		return Customization{}, err
	}
	if !design.IsActive {
		return Customization{}, fmt.Errorf("%w: design %s is not active", ErrCustomizationInvalidInput, designID)
	}
	attached, err := s.designs.ListForGarment(ctx, garmentID)
	if err != nil {
		return Customization{}, err
	}
	linked := false
	for _, entry := range attached {
		if entry.ID == designID {
			linked = true
			break
		}
	}
	if !linked {
		return Customization{}, fmt.Errorf("%w: design %s is not attached to garment %s", ErrCustomizationInvalidInput, designID, garmentID)
	}

	quote, err := s.pricing.Quote(ctx, garmentID, designID)
	if err != nil {
		return Customization{}, err
	}

	payload := map[string]any{
		"garment_name":     garment.Name,
		"garment_sku":      garment.SKU,
		"design_name":      design.Name,
		"design_thumbnail": design.ThumbnailURL,
		"color_name":       color.Name,
		"size_name":        size.Label,
		"total_price":      quote.Total.String(),
	}
	for key, value := range cmd.Payload {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, reserved := payload[key]; reserved {
			continue
		}
		payload[key] = value
	}

	customization := domain.Customization{
		ID:         s.idGen(),
		GarmentID:  garmentID,
		DesignID:   designID,
		ColorID:    colorID,
		SizeID:     sizeID,
		TotalPrice: quote.Total,
		Currency:   quote.Currency,
		Payload:    payload,
		CreatedAt:  s.clock(),
	}
	if err := s.customizations.Insert(ctx, customization); err != nil {
		return Customization{}, err
	}
	return customization, nil
}

// GetCustomization returns the stored record joined with the current names
// of its catalog references. References removed since finalize leave their
// fields empty; the payload snapshot remains authoritative for display.
func (s *customizationService) GetCustomization(ctx context.Context, customizationID string) (CustomizationDetail, error) {
	if s.customizations == nil {
		return CustomizationDetail{}, ErrCustomizationRepositoryMissing
	}
	customizationID = strings.TrimSpace(customizationID)
	if customizationID == "" {
		return CustomizationDetail{}, fmt.Errorf("%w: customization id is required", ErrCustomizationInvalidInput)
	}

	customization, err := s.customizations.FindByID(ctx, customizationID)
	if err != nil {
		return CustomizationDetail{}, err
	}
	detail := CustomizationDetail{Customization: customization}

	garment, err := s.garments.FindByID(ctx, customization.GarmentID)
	switch {
	case err == nil:
		detail.GarmentName = garment.Name
		detail.GarmentSKU = garment.SKU
		detail.BasePrice = garment.BasePrice
		for _, color := range garment.Colors {
			if color.ID == customization.ColorID {
				detail.ColorName = color.Name
				break
			}
		}
		for _, size := range garment.Sizes {
			if size.ID == customization.SizeID {
				detail.SizeLabel = size.Label
				break
			}
		}
	case isNotFound(err):
	default:
		return CustomizationDetail{}, err
	}

	design, err := s.designs.FindByID(ctx, customization.DesignID)
	switch {
	case err == nil:
		detail.DesignName = design.Name
	case isNotFound(err):
	default:
		return CustomizationDetail{}, err
	}

	return detail, nil
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
