package domain

import (
	"time"
)

// Garment is a sellable base product carrying a unique SKU and a base
// price. Colors and sizes belong to exactly one garment and are deleted
// with it.
type Garment struct {
	ID          string
	Name        string
	SKU         string
	BasePrice   Cents
	Description string
	Colors      []Color
	Sizes       []Size
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Color is one of a garment's available colors. HexCode is optional.
type Color struct {
	ID        string
	GarmentID string
	Name      string
	HexCode   string
}

// Size is one of a garment's available size labels.
type Size struct {
	ID        string
	GarmentID string
	Label     string
}

// Design is a decorative graphic applicable to garments. PriceModifier
// may be zero or negative (a discount design).
type Design struct {
	ID            string
	Name          string
	ImageURL      string
	ThumbnailURL  string
	PriceModifier Cents
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// GarmentDesign is the garment<->design association. The pair is unique:
// a design attaches to a garment at most once.
type GarmentDesign struct {
	GarmentID    string
	DesignID     string
	DisplayOrder *int
	CreatedAt    time.Time
}

// AttachedDesign is a design as seen through a garment, carrying the
// association's display order.
type AttachedDesign struct {
	Design
	DisplayOrder *int
}

// GarmentDetail is a garment enriched with its attached designs for
// storefront consumption. Any of the lists may be empty.
type GarmentDetail struct {
	Garment
	Designs []AttachedDesign
}

// Customization is one finalized shopper selection. It is immutable
// once created; Payload is the denormalized descriptive snapshot
// captured at finalize time and never updated afterwards.
type Customization struct {
	ID         string
	GarmentID  string
	DesignID   string
	ColorID    string
	SizeID     string
	TotalPrice Cents
	Currency   string
	Payload    map[string]any
	CreatedAt  time.Time
}

// CustomizationDetail joins a customization with the current names of
// its references for display. These may diverge from the snapshot in
// Payload when catalog entities were edited after finalize; that
// divergence is expected.
type CustomizationDetail struct {
	Customization
	GarmentName string
	GarmentSKU  string
	BasePrice   Cents
	DesignName  string
	ColorName   string
	SizeLabel   string
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates a dependency is degraded but the service keeps running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck is the probe outcome for a single dependency.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency probe outcomes.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	GeneratedAt time.Time
}
