package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/stitchpress/api/internal/repositories"
)

// ErrSystemRepositoryMissing indicates the health repository dependency is absent.
var ErrSystemRepositoryMissing = errors.New("system service: health repository is not configured")

// SystemServiceDeps bundles constructor inputs for the system service.
type SystemServiceDeps struct {
	Health repositories.HealthRepository
}

type systemService struct {
	health repositories.HealthRepository
}

// NewSystemService constructs the system service with the supplied dependencies.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("system service: health repository is required")
	}
	return &systemService{health: deps.Health}, nil
}

func (s *systemService) Health(ctx context.Context) (SystemHealthReport, error) {
	if s.health == nil {
		return SystemHealthReport{}, ErrSystemRepositoryMissing
	}
	return s.health.Collect(ctx)
}
