package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/stitchpress/api/internal/domain"
)

func pricingFixture(basePrice, modifier domain.Cents) (PricingEngine, error) {
	garments := &stubGarmentRepository{
		findByID: func(_ context.Context, garmentID string) (domain.Garment, error) {
			if garmentID != "g1" {
				return domain.Garment{}, &stubRepositoryError{notFound: true}
			}
			return domain.Garment{ID: "g1", BasePrice: basePrice}, nil
		},
	}
	designs := &stubDesignRepository{
		findByID: func(_ context.Context, designID string) (domain.Design, error) {
			if designID != "d1" {
				return domain.Design{}, &stubRepositoryError{notFound: true}
			}
			return domain.Design{ID: "d1", PriceModifier: modifier, IsActive: true}, nil
		},
	}
	return NewPricingEngine(PricingEngineDeps{Garments: garments, Designs: designs, Currency: "usd"})
}

func TestQuoteAddsModifierExactly(t *testing.T) {
	engine, err := pricingFixture(1999, 500)
	if err != nil {
		t.Fatalf("NewPricingEngine: %v", err)
	}

	quote, err := engine.Quote(context.Background(), "g1", "d1")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Total != 2499 {
		t.Fatalf("expected total 2499, got %d", quote.Total)
	}
	if quote.Total.String() != "24.99" {
		t.Fatalf("expected display 24.99, got %s", quote.Total.String())
	}
	if quote.Currency != "USD" {
		t.Fatalf("expected normalized currency USD, got %s", quote.Currency)
	}
}

func TestQuoteDiscountModifier(t *testing.T) {
	engine, err := pricingFixture(2000, -350)
	if err != nil {
		t.Fatalf("NewPricingEngine: %v", err)
	}

	quote, err := engine.Quote(context.Background(), "g1", "d1")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Total != 1650 {
		t.Fatalf("expected total 1650, got %d", quote.Total)
	}
	if quote.Total.String() != "16.50" {
		t.Fatalf("expected display 16.50, got %s", quote.Total.String())
	}
}

func TestQuoteZeroModifier(t *testing.T) {
	engine, err := pricingFixture(1999, 0)
	if err != nil {
		t.Fatalf("NewPricingEngine: %v", err)
	}
	quote, err := engine.Quote(context.Background(), "g1", "d1")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Total != 1999 {
		t.Fatalf("expected total to equal base price, got %d", quote.Total)
	}
}

func TestQuoteUnknownReferences(t *testing.T) {
	engine, err := pricingFixture(1999, 500)
	if err != nil {
		t.Fatalf("NewPricingEngine: %v", err)
	}

	var repoErr *stubRepositoryError
	if _, err := engine.Quote(context.Background(), "missing", "d1"); !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not found for unknown garment, got %v", err)
	}
	if _, err := engine.Quote(context.Background(), "g1", "missing"); !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not found for unknown design, got %v", err)
	}
	if _, err := engine.Quote(context.Background(), "", "d1"); !errors.Is(err, ErrPricingInvalidInput) {
		t.Fatalf("expected invalid input for blank garment id, got %v", err)
	}
}
