package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/stitchpress/api/internal/domain"
	"github.com/stitchpress/api/internal/repositories"
)

var (
	// ErrDesignRepositoryMissing indicates the repository dependency is absent.
	ErrDesignRepositoryMissing = errors.New("design service: repository is not configured")
	// ErrDesignInvalidInput indicates the caller supplied invalid data to a design mutation.
	ErrDesignInvalidInput = errors.New("design service: invalid input")
)

// DesignServiceDeps bundles constructor inputs for the design service.
type DesignServiceDeps struct {
	Designs  repositories.DesignRepository
	Garments repositories.GarmentRepository
	Clock    func() time.Time
	IDGen    func() string
}

type designService struct {
	designs  repositories.DesignRepository
	garments repositories.GarmentRepository
	clock    func() time.Time
	idGen    func() string
	policy   *bluemonday.Policy
}

// NewDesignService constructs the design service with the supplied dependencies.
func NewDesignService(deps DesignServiceDeps) (DesignService, error) {
	if deps.Designs == nil {
		return nil, fmt.Errorf("design service: design repository is required")
	}
	if deps.Garments == nil {
		return nil, fmt.Errorf("design service: garment repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &designService{
		designs:  deps.Designs,
		garments: deps.Garments,
		clock:    func() time.Time { return clock().UTC() },
		idGen:    idGen,
		policy:   bluemonday.StrictPolicy(),
	}, nil
}

func (s *designService) ListDesigns(ctx context.Context, includeInactive bool) ([]Design, error) {
	if s.designs == nil {
		return nil, ErrDesignRepositoryMissing
	}
	designs, err := s.designs.List(ctx, !includeInactive)
	if err != nil {
		return nil, err
	}
	if designs == nil {
		designs = []Design{}
	}
	return designs, nil
}

func (s *designService) GetDesign(ctx context.Context, designID string) (Design, error) {
	if s.designs == nil {
		return Design{}, ErrDesignRepositoryMissing
	}
	designID = strings.TrimSpace(designID)
	if designID == "" {
		return Design{}, fmt.Errorf("%w: design id is required", ErrDesignInvalidInput)
	}
	return s.designs.FindByID(ctx, designID)
}

func (s *designService) CreateDesign(ctx context.Context, cmd CreateDesignCommand) (Design, error) {
	if s.designs == nil {
		return Design{}, ErrDesignRepositoryMissing
	}
	name, err := s.normalizeDesignName(cmd.Name)
	if err != nil {
		return Design{}, err
	}
	imageURL, err := normalizeAssetURL("image url", cmd.ImageURL, true)
	if err != nil {
		return Design{}, err
	}
	thumbnailURL, err := normalizeAssetURL("thumbnail url", cmd.ThumbnailURL, false)
	if err != nil {
		return Design{}, err
	}
	if thumbnailURL == "" {
		thumbnailURL = imageURL
	}

	now := s.clock()
	design := domain.Design{
		ID:            s.idGen(),
		Name:          name,
		ImageURL:      imageURL,
		ThumbnailURL:  thumbnailURL,
		PriceModifier: cmd.PriceModifier,
		IsActive:      cmd.IsActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.designs.Insert(ctx, design); err != nil {
		return Design{}, err
	}
	return design, nil
}

func (s *designService) UpdateDesign(ctx context.Context, cmd UpdateDesignCommand) (Design, error) {
	if s.designs == nil {
		return Design{}, ErrDesignRepositoryMissing
	}
	designID := strings.TrimSpace(cmd.DesignID)
	if designID == "" {
		return Design{}, fmt.Errorf("%w: design id is required", ErrDesignInvalidInput)
	}
	name, err := s.normalizeDesignName(cmd.Name)
	if err != nil {
		return Design{}, err
	}
	imageURL, err := normalizeAssetURL("image url", cmd.ImageURL, true)
	if err != nil {
		return Design{}, err
	}
	thumbnailURL, err := normalizeAssetURL("thumbnail url", cmd.ThumbnailURL, false)
	if err != nil {
		return Design{}, err
	}
	if thumbnailURL == "" {
		thumbnailURL = imageURL
	}

	design, err := s.designs.FindByID(ctx, designID)
	if err != nil {
		return Design{}, err
	}
	design.Name = name
	design.ImageURL = imageURL
	design.ThumbnailURL = thumbnailURL
	design.PriceModifier = cmd.PriceModifier
	design.IsActive = cmd.IsActive
	design.UpdatedAt = s.clock()

	if err := s.designs.Update(ctx, design); err != nil {
		return Design{}, err
	}
	return design, nil
}

func (s *designService) DeleteDesign(ctx context.Context, designID string) error {
	if s.designs == nil {
		return ErrDesignRepositoryMissing
	}
	designID = strings.TrimSpace(designID)
	if designID == "" {
		return fmt.Errorf("%w: design id is required", ErrDesignInvalidInput)
	}
	return s.designs.Delete(ctx, designID)
}

func (s *designService) AttachDesign(ctx context.Context, cmd AttachDesignCommand) error {
	if s.designs == nil {
		return ErrDesignRepositoryMissing
	}
	garmentID := strings.TrimSpace(cmd.GarmentID)
	designID := strings.TrimSpace(cmd.DesignID)
	if garmentID == "" || designID == "" {
		return fmt.Errorf("%w: garment id and design id are required", ErrDesignInvalidInput)
	}
	if cmd.DisplayOrder != nil && *cmd.DisplayOrder < 0 {
		return fmt.Errorf("%w: display order must not be negative", ErrDesignInvalidInput)
	}

	// Both endpoints of the link must exist before it is created.
	if _, err := s.garments.FindByID(ctx, garmentID); err != nil {
		return err
	}
	if _, err := s.designs.FindByID(ctx, designID); err != nil {
		return err
	}

	return s.designs.Attach(ctx, domain.GarmentDesign{
		GarmentID:    garmentID,
		DesignID:     designID,
		DisplayOrder: cmd.DisplayOrder,
		CreatedAt:    s.clock(),
	})
}

func (s *designService) DetachDesign(ctx context.Context, garmentID string, designID string) error {
	if s.designs == nil {
		return ErrDesignRepositoryMissing
	}
	garmentID = strings.TrimSpace(garmentID)
	designID = strings.TrimSpace(designID)
	if garmentID == "" || designID == "" {
		return fmt.Errorf("%w: garment id and design id are required", ErrDesignInvalidInput)
	}
	return s.designs.Detach(ctx, garmentID, designID)
}

func (s *designService) normalizeDesignName(name string) (string, error) {
	name = strings.TrimSpace(s.policy.Sanitize(name))
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrDesignInvalidInput)
	}
	if len(name) > maxNameLength {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrDesignInvalidInput, maxNameLength)
	}
	return name, nil
}

func normalizeAssetURL(field string, raw string, required bool) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			return "", fmt.Errorf("%w: %s is required", ErrDesignInvalidInput, field)
		}
		return "", nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("%w: %s must be an absolute http(s) url", ErrDesignInvalidInput, field)
	}
	return parsed.String(), nil
}
