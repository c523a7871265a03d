package services

import (
	"context"
	"time"

	domain "github.com/stitchpress/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Cents               = domain.Cents
	Garment             = domain.Garment
	GarmentDetail       = domain.GarmentDetail
	Color               = domain.Color
	Size                = domain.Size
	Design              = domain.Design
	AttachedDesign      = domain.AttachedDesign
	GarmentDesign       = domain.GarmentDesign
	Customization       = domain.Customization
	CustomizationDetail = domain.CustomizationDetail
	SystemHealthReport  = domain.SystemHealthReport
)

// CatalogService manages garments and their embedded colors and sizes.
type CatalogService interface {
	ListGarments(ctx context.Context) ([]GarmentDetail, error)
	GetGarment(ctx context.Context, garmentID string) (GarmentDetail, error)
	CreateGarment(ctx context.Context, cmd CreateGarmentCommand) (Garment, error)
	UpdateGarment(ctx context.Context, cmd UpdateGarmentCommand) (Garment, error)
	DeleteGarment(ctx context.Context, garmentID string) error
	AddColor(ctx context.Context, cmd AddColorCommand) (Color, error)
	RemoveColor(ctx context.Context, garmentID string, colorID string) error
	AddSize(ctx context.Context, cmd AddSizeCommand) (Size, error)
	RemoveSize(ctx context.Context, garmentID string, sizeID string) error
}

// DesignService manages designs and their garment attachments.
type DesignService interface {
	ListDesigns(ctx context.Context, includeInactive bool) ([]Design, error)
	GetDesign(ctx context.Context, designID string) (Design, error)
	CreateDesign(ctx context.Context, cmd CreateDesignCommand) (Design, error)
	UpdateDesign(ctx context.Context, cmd UpdateDesignCommand) (Design, error)
	DeleteDesign(ctx context.Context, designID string) error
	AttachDesign(ctx context.Context, cmd AttachDesignCommand) error
	DetachDesign(ctx context.Context, garmentID string, designID string) error
}

// PricingEngine computes the exact price of a garment and design combination.
type PricingEngine interface {
	Quote(ctx context.Context, garmentID string, designID string) (PriceQuote, error)
	Currency() string
}

// CustomizationService records finalized selections and serves them back for display.
type CustomizationService interface {
	CreateCustomization(ctx context.Context, cmd CreateCustomizationCommand) (Customization, error)
	GetCustomization(ctx context.Context, customizationID string) (CustomizationDetail, error)
}

// SelectionEngine drives in-progress shopper sessions from first garment
// pick through finalize.
type SelectionEngine interface {
	StartSession(ctx context.Context, garmentID string) (SelectionState, error)
	GetSession(ctx context.Context, sessionID string) (SelectionState, error)
	Select(ctx context.Context, cmd SelectCommand) (SelectionState, error)
	Finalize(ctx context.Context, cmd FinalizeCommand) (FinalizeResult, error)
	Abandon(ctx context.Context, sessionID string) error
	Close()
}

// CartDispatcher hands a finalized customization to the external cart platform.
type CartDispatcher interface {
	Dispatch(ctx context.Context, handoff CartHandoff) error
}

// SystemService aggregates dependency health for readiness probes.
type SystemService interface {
	Health(ctx context.Context) (SystemHealthReport, error)
}

// CreateGarmentCommand carries validated admin input for a new garment.
type CreateGarmentCommand struct {
	Name        string
	SKU         string
	BasePrice   Cents
	Description string
	Colors      []ColorInput
	Sizes       []SizeInput
}

// UpdateGarmentCommand carries replacement state for an existing garment.
type UpdateGarmentCommand struct {
	GarmentID   string
	Name        string
	SKU         string
	BasePrice   Cents
	Description string
}

// ColorInput is an embedded color supplied at garment creation.
type ColorInput struct {
	Name    string
	HexCode string
}

// SizeInput is an embedded size supplied at garment creation.
type SizeInput struct {
	Label string
}

// AddColorCommand appends a color to an existing garment.
type AddColorCommand struct {
	GarmentID string
	Name      string
	HexCode   string
}

// AddSizeCommand appends a size to an existing garment.
type AddSizeCommand struct {
	GarmentID string
	Label     string
}

// CreateDesignCommand carries validated admin input for a new design.
type CreateDesignCommand struct {
	Name          string
	ImageURL      string
	ThumbnailURL  string
	PriceModifier Cents
	IsActive      bool
}

// UpdateDesignCommand carries replacement state for an existing design.
type UpdateDesignCommand struct {
	DesignID      string
	Name          string
	ImageURL      string
	ThumbnailURL  string
	PriceModifier Cents
	IsActive      bool
}

// AttachDesignCommand links a design to a garment.
type AttachDesignCommand struct {
	GarmentID    string
	DesignID     string
	DisplayOrder *int
}

// PriceQuote is the exact price breakdown for one garment and design pair.
type PriceQuote struct {
	BasePrice     Cents
	PriceModifier Cents
	Total         Cents
	Currency      string
}

// CreateCustomizationCommand captures a complete selection to be recorded.
type CreateCustomizationCommand struct {
	GarmentID string
	DesignID  string
	ColorID   string
	SizeID    string
	Payload   map[string]any
}

// SelectCommand applies one axis choice to a session. Exactly one of the
// ID fields should be set; a later choice on the same axis overwrites the
// earlier one.
type SelectCommand struct {
	SessionID string
	DesignID  string
	ColorID   string
	SizeID    string
}

// FinalizeCommand closes a session and records its customization. VariantID
// identifies the cart platform variant used during handoff.
type FinalizeCommand struct {
	SessionID string
	VariantID string
}

// SelectionState is a read-only snapshot of a session.
type SelectionState struct {
	SessionID string
	GarmentID string
	DesignID  string
	ColorID   string
	SizeID    string
	Total     *Cents
	Currency  string
	Complete  bool
	UpdatedAt time.Time
}

// FinalizeResult reports the recorded customization and whether a cart
// handoff was started.
type FinalizeResult struct {
	Customization Customization
	HandoffSent   bool
}

// CartHandoff is the payload delivered to the external cart platform.
type CartHandoff struct {
	CustomizationID string
	VariantID       string
	Quantity        int
	Properties      map[string]string
}
