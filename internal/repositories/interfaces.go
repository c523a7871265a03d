package repositories

import (
	"context"

	domain "github.com/stitchpress/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// GarmentRepository persists garments together with their embedded colors and sizes.
type GarmentRepository interface {
	Insert(ctx context.Context, garment domain.Garment) error
	Update(ctx context.Context, garment domain.Garment) error
	Delete(ctx context.Context, garmentID string) error
	FindByID(ctx context.Context, garmentID string) (domain.Garment, error)
	List(ctx context.Context) ([]domain.Garment, error)
	AddColor(ctx context.Context, garmentID string, color domain.Color) error
	RemoveColor(ctx context.Context, garmentID string, colorID string) error
	AddSize(ctx context.Context, garmentID string, size domain.Size) error
	RemoveSize(ctx context.Context, garmentID string, sizeID string) error
}

// DesignRepository persists design documents and the garment associations they hang off.
type DesignRepository interface {
	Insert(ctx context.Context, design domain.Design) error
	Update(ctx context.Context, design domain.Design) error
	Delete(ctx context.Context, designID string) error
	FindByID(ctx context.Context, designID string) (domain.Design, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Design, error)
	Attach(ctx context.Context, link domain.GarmentDesign) error
	Detach(ctx context.Context, garmentID string, designID string) error
	ListForGarment(ctx context.Context, garmentID string) ([]domain.AttachedDesign, error)
}

// CustomizationRepository stores finalized customization records.
type CustomizationRepository interface {
	Insert(ctx context.Context, customization domain.Customization) error
	FindByID(ctx context.Context, customizationID string) (domain.Customization, error)
}

// HealthRepository exposes status of downstream dependencies for readiness checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
