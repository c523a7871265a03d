package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/stitchpress/api/internal/domain"
	pfirestore "github.com/stitchpress/api/internal/platform/firestore"
)

const customizationsCollection = "customizations"

// CustomizationRepository stores finalized customization records. Documents
// are immutable once written.
type CustomizationRepository struct {
	customizations *pfirestore.Collection[customizationDocument]
}

type customizationDocument struct {
	GarmentID  string         `firestore:"garmentId"`
	DesignID   string         `firestore:"designId"`
	ColorID    string         `firestore:"colorId"`
	SizeID     string         `firestore:"sizeId"`
	TotalPrice int64          `firestore:"totalPrice"`
	Currency   string         `firestore:"currency"`
	Payload    map[string]any `firestore:"payload"`
	CreatedAt  time.Time      `firestore:"createdAt"`
}

// NewCustomizationRepository constructs a Firestore-backed customization repository.
func NewCustomizationRepository(provider *pfirestore.Provider) (*CustomizationRepository, error) {
	if provider == nil {
		return nil, errors.New("customization repository: firestore provider is required")
	}
	return &CustomizationRepository{
		customizations: pfirestore.NewCollection[customizationDocument](provider, customizationsCollection),
	}, nil
}

// Insert stores a new customization document.
func (r *CustomizationRepository) Insert(ctx context.Context, customization domain.Customization) error {
	if r == nil || r.customizations == nil {
		return errors.New("customization repository not initialised")
	}
	customization.ID = strings.TrimSpace(customization.ID)
	if customization.ID == "" {
		return errors.New("customization repository: id is required")
	}

	docRef, err := r.customizations.Doc(ctx, customization.ID)
	if err != nil {
		return err
	}
	doc := customizationDocument{
		GarmentID:  customization.GarmentID,
		DesignID:   customization.DesignID,
		ColorID:    customization.ColorID,
		SizeID:     customization.SizeID,
		TotalPrice: int64(customization.TotalPrice),
		Currency:   customization.Currency,
		Payload:    customization.Payload,
		CreatedAt:  customization.CreatedAt,
	}
	if _, err := docRef.Create(ctx, doc); err != nil {
		return pfirestore.WrapError("customizations.insert", err)
	}
	return nil
}

// FindByID loads a customization by its identifier.
func (r *CustomizationRepository) FindByID(ctx context.Context, customizationID string) (domain.Customization, error) {
	if r == nil || r.customizations == nil {
		return domain.Customization{}, errors.New("customization repository not initialised")
	}
	customizationID = strings.TrimSpace(customizationID)
	if customizationID == "" {
		return domain.Customization{}, errors.New("customization repository: id is required")
	}

	doc, err := r.customizations.Get(ctx, customizationID)
	if err != nil {
		return domain.Customization{}, err
	}
	return domain.Customization{
		ID:         doc.ID,
		GarmentID:  doc.Data.GarmentID,
		DesignID:   doc.Data.DesignID,
		ColorID:    doc.Data.ColorID,
		SizeID:     doc.Data.SizeID,
		TotalPrice: domain.Cents(doc.Data.TotalPrice),
		Currency:   doc.Data.Currency,
		Payload:    doc.Data.Payload,
		CreatedAt:  doc.Data.CreatedAt,
	}, nil
}
