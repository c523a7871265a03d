package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/stitchpress/api/internal/domain"
	"github.com/stitchpress/api/internal/repositories"
)

const (
	maxNameLength        = 160
	maxSKULength         = 64
	maxDescriptionLength = 4000
	maxHexCodeLength     = 16
	maxSizeLabelLength   = 32
)

var (
	// ErrCatalogRepositoryMissing indicates the repository dependency is absent.
	ErrCatalogRepositoryMissing = errors.New("catalog service: repository is not configured")
	// ErrCatalogInvalidInput indicates the caller supplied invalid data to a catalog mutation.
	ErrCatalogInvalidInput = errors.New("catalog service: invalid input")
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Garments repositories.GarmentRepository
	Designs  repositories.DesignRepository
	Clock    func() time.Time
	IDGen    func() string
}

type catalogService struct {
	garments repositories.GarmentRepository
	designs  repositories.DesignRepository
	clock    func() time.Time
	idGen    func() string
	policy   *bluemonday.Policy
}

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Garments == nil {
		return nil, fmt.Errorf("catalog service: garment repository is required")
	}
	if deps.Designs == nil {
		return nil, fmt.Errorf("catalog service: design repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &catalogService{
		garments: deps.Garments,
		designs:  deps.Designs,
		clock:    func() time.Time { return clock().UTC() },
		idGen:    idGen,
		policy:   bluemonday.StrictPolicy(),
	}, nil
}

func (s *catalogService) ListGarments(ctx context.Context) ([]GarmentDetail, error) {
	if s.garments == nil {
		return nil, ErrCatalogRepositoryMissing
	}
	garments, err := s.garments.List(ctx)
	if err != nil {
		return nil, err
	}
	details := make([]GarmentDetail, 0, len(garments))
	for _, garment := range garments {
		attached, err := s.designs.ListForGarment(ctx, garment.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, GarmentDetail{Garment: garment, Designs: attached})
	}
	return details, nil
}

func (s *catalogService) GetGarment(ctx context.Context, garmentID string) (GarmentDetail, error) {
	if s.garments == nil {
		return GarmentDetail{}, ErrCatalogRepositoryMissing
	}
	garmentID = strings.TrimSpace(garmentID)
	if garmentID == "" {
		return GarmentDetail{}, fmt.Errorf("%w: garment id is required", ErrCatalogInvalidInput)
	}

	garment, err := s.garments.FindByID(ctx, garmentID)
	if err != nil {
		return GarmentDetail{}, err
	}
	attached, err := s.designs.ListForGarment(ctx, garmentID)
	if err != nil {
		return GarmentDetail{}, err
	}
	return GarmentDetail{Garment: garment, Designs: attached}, nil
}

func (s *catalogService) CreateGarment(ctx context.Context, cmd CreateGarmentCommand) (Garment, error) {
	if s.garments == nil {
		return Garment{}, ErrCatalogRepositoryMissing
	}

	name, err := s.normalizeName(cmd.Name)
	if err != nil {
		return Garment{}, err
	}
	sku, err := normalizeSKU(cmd.SKU)
	if err != nil {
		return Garment{}, err
	}
	if cmd.BasePrice < 0 {
		return Garment{}, fmt.Errorf("%w: base price must not be negative", ErrCatalogInvalidInput)
	}

	now := s.clock()
	garment := domain.Garment{
		ID:          s.idGen(),
		Name:        name,
		SKU:         sku,
		BasePrice:   cmd.BasePrice,
		Description: s.sanitizeDescription(cmd.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, color := range cmd.Colors {
		normalized, err := s.normalizeColor(color.Name, color.HexCode)
		if err != nil {
			return Garment{}, err
		}
		normalized.ID = s.idGen()
		normalized.GarmentID = garment.ID
		garment.Colors = append(garment.Colors, normalized)
	}
	for _, size := range cmd.Sizes {
		label, err := normalizeSizeLabel(size.Label)
		if err != nil {
			return Garment{}, err
		}
		garment.Sizes = append(garment.Sizes, domain.Size{
			ID:        s.idGen(),
			GarmentID: garment.ID,
			Label:     label,
		})
	}

	if err := s.garments.Insert(ctx, garment); err != nil {
		return Garment{}, err
	}
	return garment, nil
}

func (s *catalogService) UpdateGarment(ctx context.Context, cmd UpdateGarmentCommand) (Garment, error) {
	if s.garments == nil {
		return Garment{}, ErrCatalogRepositoryMissing
	}
	garmentID := strings.TrimSpace(cmd.GarmentID)
	if garmentID == "" {
		return Garment{}, fmt.Errorf("%w: garment id is required", ErrCatalogInvalidInput)
	}
	name, err := s.normalizeName(cmd.Name)
	if err != nil {
		return Garment{}, err
	}
	sku, err := normalizeSKU(cmd.SKU)
	if err != nil {
		return Garment{}, err
	}
	if cmd.BasePrice < 0 {
		return Garment{}, fmt.Errorf("%w: base price must not be negative", ErrCatalogInvalidInput)
	}

	garment, err := s.garments.FindByID(ctx, garmentID)
	if err != nil {
		return Garment{}, err
	}
	garment.Name = name
	garment.SKU = sku
	garment.BasePrice = cmd.BasePrice
	garment.Description = s.sanitizeDescription(cmd.Description)
	garment.UpdatedAt = s.clock()

	if err := s.garments.Update(ctx, garment); err != nil {
		return Garment{}, err
	}
	return garment, nil
}

func (s *catalogService) DeleteGarment(ctx context.Context, garmentID string) error {
	if s.garments == nil {
		return ErrCatalogRepositoryMissing
	}
	garmentID = strings.TrimSpace(garmentID)
	if garmentID == "" {
		return fmt.Errorf("%w: garment id is required", ErrCatalogInvalidInput)
	}
	return s.garments.Delete(ctx, garmentID)
}

func (s *catalogService) AddColor(ctx context.Context, cmd AddColorCommand) (Color, error) {
	if s.garments == nil {
		return Color{}, ErrCatalogRepositoryMissing
	}
	garmentID := strings.TrimSpace(cmd.GarmentID)
	if garmentID == "" {
		return Color{}, fmt.Errorf("%w: garment id is required", ErrCatalogInvalidInput)
	}
	color, err := s.normalizeColor(cmd.Name, cmd.HexCode)
	if err != nil {
		return Color{}, err
	}
	color.ID = s.idGen()
	color.GarmentID = garmentID

	if err := s.garments.AddColor(ctx, garmentID, color); err != nil {
		return Color{}, err
	}
	return color, nil
}

func (s *catalogService) RemoveColor(ctx context.Context, garmentID string, colorID string) error {
	if s.garments == nil {
		return ErrCatalogRepositoryMissing
	}
	garmentID = strings.TrimSpace(garmentID)
	colorID = strings.TrimSpace(colorID)
	if garmentID == "" || colorID == "" {
		return fmt.Errorf("%w: garment id and color id are required", ErrCatalogInvalidInput)
	}
	return s.garments.RemoveColor(ctx, garmentID, colorID)
}

func (s *catalogService) AddSize(ctx context.Context, cmd AddSizeCommand) (Size, error) {
	if s.garments == nil {
		return Size{}, ErrCatalogRepositoryMissing
	}
	garmentID := strings.TrimSpace(cmd.GarmentID)
	if garmentID == "" {
		return Size{}, fmt.Errorf("%w: garment id is required", ErrCatalogInvalidInput)
	}
	label, err := normalizeSizeLabel(cmd.Label)
	if err != nil {
		return Size{}, err
	}
	size := domain.Size{
		ID:        s.idGen(),
		GarmentID: garmentID,
		Label:     label,
	}
	if err := s.garments.AddSize(ctx, garmentID, size); err != nil {
		return Size{}, err
	}
	return size, nil
}

func (s *catalogService) RemoveSize(ctx context.Context, garmentID string, sizeID string) error {
	if s.garments == nil {
		return ErrCatalogRepositoryMissing
	}
	garmentID = strings.TrimSpace(garmentID)
	sizeID = strings.TrimSpace(sizeID)
	if garmentID == "" || sizeID == "" {
		return fmt.Errorf("%w: garment id and size id are required", ErrCatalogInvalidInput)
	}
	return s.garments.RemoveSize(ctx, garmentID, sizeID)
}

func (s *catalogService) normalizeName(name string) (string, error) {
	name = strings.TrimSpace(s.policy.Sanitize(name))
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrCatalogInvalidInput)
	}
	if len(name) > maxNameLength {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrCatalogInvalidInput, maxNameLength)
	}
	return name, nil
}

func (s *catalogService) normalizeColor(name, hexCode string) (Color, error) {
	name = strings.TrimSpace(s.policy.Sanitize(name))
	if name == "" {
		return Color{}, fmt.Errorf("%w: color name is required", ErrCatalogInvalidInput)
	}
	if len(name) > maxNameLength {
		return Color{}, fmt.Errorf("%w: color name exceeds %d characters", ErrCatalogInvalidInput, maxNameLength)
	}
	hexCode = strings.TrimSpace(hexCode)
	if len(hexCode) > maxHexCodeLength {
		return Color{}, fmt.Errorf("%w: hex code exceeds %d characters", ErrCatalogInvalidInput, maxHexCodeLength)
	}
	return Color{Name: name, HexCode: hexCode}, nil
}

func (s *catalogService) sanitizeDescription(description string) string {
	description = strings.TrimSpace(s.policy.Sanitize(description))
	if len(description) > maxDescriptionLength {
		description = description[:maxDescriptionLength]
	}
	return description
}

func normalizeSKU(sku string) (string, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return "", fmt.Errorf("%w: sku is required", ErrCatalogInvalidInput)
	}
	if len(sku) > maxSKULength {
		return "", fmt.Errorf("%w: sku exceeds %d characters", ErrCatalogInvalidInput, maxSKULength)
	}
	if strings.ContainsAny(sku, " \t\n") {
		return "", fmt.Errorf("%w: sku must not contain whitespace", ErrCatalogInvalidInput)
	}
	return sku, nil
}

func normalizeSizeLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", fmt.Errorf("%w: size label is required", ErrCatalogInvalidInput)
	}
	if len(label) > maxSizeLabelLength {
		return "", fmt.Errorf("%w: size label exceeds %d characters", ErrCatalogInvalidInput, maxSizeLabelLength)
	}
	return label, nil
}
