package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stitchpress/api/internal/repositories"
)

var (
	// ErrPricingRepositoryMissing indicates a repository dependency is absent.
	ErrPricingRepositoryMissing = errors.New("pricing engine: repository is not configured")
	// ErrPricingInvalidInput indicates the caller supplied invalid identifiers.
	ErrPricingInvalidInput = errors.New("pricing engine: invalid input")
)

// PricingEngineDeps bundles constructor inputs for the pricing engine.
type PricingEngineDeps struct {
	Garments repositories.GarmentRepository
	Designs  repositories.DesignRepository
	Currency string
}

type pricingEngine struct {
	garments repositories.GarmentRepository
	designs  repositories.DesignRepository
	currency string
}

// NewPricingEngine constructs the pricing engine with the supplied dependencies.
func NewPricingEngine(deps PricingEngineDeps) (PricingEngine, error) {
	if deps.Garments == nil {
		return nil, fmt.Errorf("pricing engine: garment repository is required")
	}
	if deps.Designs == nil {
		return nil, fmt.Errorf("pricing engine: design repository is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "USD"
	}
	return &pricingEngine{
		garments: deps.Garments,
		designs:  deps.Designs,
		currency: currency,
	}, nil
}

// Currency reports the ISO 4217 code every quote is denominated in.
func (e *pricingEngine) Currency() string {
	return e.currency
}

// Quote computes the exact total for a garment and design pair. The total
// is the garment base price plus the design modifier, in minor units, so
// no rounding ever occurs.
func (e *pricingEngine) Quote(ctx context.Context, garmentID string, designID string) (PriceQuote, error) {
	if e.garments == nil || e.designs == nil {
		return PriceQuote{}, ErrPricingRepositoryMissing
	}
	garmentID = strings.TrimSpace(garmentID)
	designID = strings.TrimSpace(designID)
	if garmentID == "" || designID == "" {
		return PriceQuote{}, fmt.Errorf("%w: garment id and design id are required", ErrPricingInvalidInput)
	}

	garment, err := e.garments.FindByID(ctx, garmentID)
	if err != nil {
		return PriceQuote{}, err
	}
	design, err := e.designs.FindByID(ctx, designID)
	if err != nil {
		return PriceQuote{}, err
	}

	return PriceQuote{
		BasePrice:     garment.BasePrice,
		PriceModifier: design.PriceModifier,
		Total:         garment.BasePrice.Add(design.PriceModifier),
		Currency:      e.currency,
	}, nil
}
