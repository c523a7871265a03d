package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/stitchpress/api/internal/domain"
	pfirestore "github.com/stitchpress/api/internal/platform/firestore"
)

const (
	garmentsCollection = "garments"
	skusCollection     = "skus"
)

// GarmentRepository persists garments with embedded colors and sizes. SKU
// uniqueness is enforced through an index collection keyed by the SKU value.
type GarmentRepository struct {
	provider *pfirestore.Provider
	garments *pfirestore.Collection[garmentDocument]
}

type garmentDocument struct {
	Name        string          `firestore:"name"`
	SKU         string          `firestore:"sku"`
	BasePrice   int64           `firestore:"basePrice"`
	Description string          `firestore:"description"`
	Colors      []colorDocument `firestore:"colors"`
	Sizes       []sizeDocument  `firestore:"sizes"`
	CreatedAt   time.Time       `firestore:"createdAt"`
	UpdatedAt   time.Time       `firestore:"updatedAt"`
}

type colorDocument struct {
	ID      string `firestore:"id"`
	Name    string `firestore:"name"`
	HexCode string `firestore:"hexCode"`
}

type sizeDocument struct {
	ID    string `firestore:"id"`
	Label string `firestore:"label"`
}

type skuDocument struct {
	GarmentID string `firestore:"garmentId"`
}

// NewGarmentRepository constructs a Firestore-backed garment repository.
func NewGarmentRepository(provider *pfirestore.Provider) (*GarmentRepository, error) {
	if provider == nil {
		return nil, errors.New("garment repository: firestore provider is required")
	}
	return &GarmentRepository{
		provider: provider,
		garments: pfirestore.NewCollection[garmentDocument](provider, garmentsCollection),
	}, nil
}

// Insert stores a new garment and claims its SKU atomically.
func (r *GarmentRepository) Insert(ctx context.Context, garment domain.Garment) error {
	if r == nil || r.provider == nil {
		return errors.New("garment repository not initialised")
	}
	garment.ID = strings.TrimSpace(garment.ID)
	if garment.ID == "" {
		return errors.New("garment repository: id is required")
	}
	garment.SKU = strings.TrimSpace(garment.SKU)
	if garment.SKU == "" {
		return errors.New("garment repository: sku is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}

	garmentRef := client.Collection(garmentsCollection).Doc(garment.ID)
	skuRef := client.Collection(skusCollection).Doc(garment.SKU)

	return pfirestore.RunTransaction(ctx, client, func(ctx context.Context, tx *firestore.Transaction) error {
		skuSnap, err := tx.Get(skuRef)
		if err == nil && skuSnap.Exists() {
			return pfirestore.ConflictError("garments.insert", fmt.Errorf("sku %s already in use", garment.SKU))
		}
		if err != nil && !isMissingDoc(err) {
			return err
		}
		if err := tx.Create(garmentRef, encodeGarmentDocument(garment)); err != nil {
			return err
		}
		return tx.Create(skuRef, skuDocument{GarmentID: garment.ID})
	})
}

// Update replaces the garment document, moving the SKU claim when it changed.
func (r *GarmentRepository) Update(ctx context.Context, garment domain.Garment) error {
	if r == nil || r.provider == nil {
		return errors.New("garment repository not initialised")
	}
	garment.ID = strings.TrimSpace(garment.ID)
	if garment.ID == "" {
		return errors.New("garment repository: id is required")
	}
	garment.SKU = strings.TrimSpace(garment.SKU)
	if garment.SKU == "" {
		return errors.New("garment repository: sku is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}

	garmentRef := client.Collection(garmentsCollection).Doc(garment.ID)

	return pfirestore.RunTransaction(ctx, client, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(garmentRef)
		if err != nil {
			return err
		}
		var stored garmentDocument
		if err := snap.DataTo(&stored); err != nil {
			return fmt.Errorf("garments.update: decode document %s: %w", garment.ID, err)
		}

		if stored.SKU != garment.SKU {
			newSKURef := client.Collection(skusCollection).Doc(garment.SKU)
			newSKUSnap, err := tx.Get(newSKURef)
			if err == nil && newSKUSnap.Exists() {
				return pfirestore.ConflictError("garments.update", fmt.Errorf("sku %s already in use", garment.SKU))
			}
			if err != nil && !isMissingDoc(err) {
				return err
			}
			if err := tx.Delete(client.Collection(skusCollection).Doc(stored.SKU)); err != nil {
				return err
			}
			if err := tx.Create(newSKURef, skuDocument{GarmentID: garment.ID}); err != nil {
				return err
			}
		}

		garment.CreatedAt = stored.CreatedAt
		return tx.Set(garmentRef, encodeGarmentDocument(garment))
	})
}

// Delete removes the garment, its SKU claim, and its design associations.
func (r *GarmentRepository) Delete(ctx context.Context, garmentID string) error {
	if r == nil || r.provider == nil {
		return errors.New("garment repository not initialised")
	}
	garmentID = strings.TrimSpace(garmentID)
	if garmentID == "" {
		return errors.New("garment repository: id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}

	garmentRef := client.Collection(garmentsCollection).Doc(garmentID)
	linkQuery := client.Collection(garmentDesignsCollection).Where("garmentId", "==", garmentID)

	return pfirestore.RunTransaction(ctx, client, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(garmentRef)
		if err != nil {
			return err
		}
		var stored garmentDocument
		if err := snap.DataTo(&stored); err != nil {
			return fmt.Errorf("garments.delete: decode document %s: %w", garmentID, err)
		}

		links, err := tx.Documents(linkQuery).GetAll()
		if err != nil {
			return err
		}
		for _, link := range links {
			if err := tx.Delete(link.Ref); err != nil {
				return err
			}
		}

		if stored.SKU != "" {
			if err := tx.Delete(client.Collection(skusCollection).Doc(stored.SKU)); err != nil {
				return err
			}
		}
		return tx.Delete(garmentRef)
	})
}

// FindByID loads a garment by its identifier.
func (r *GarmentRepository) FindByID(ctx context.Context, garmentID string) (domain.Garment, error) {
	if r == nil || r.garments == nil {
		return domain.Garment{}, errors.New("garment repository not initialised")
	}
	garmentID = strings.TrimSpace(garmentID)
	if garmentID == "" {
		return domain.Garment{}, errors.New("garment repository: id is required")
	}
	doc, err := r.garments.Get(ctx, garmentID)
	if err != nil {
		return domain.Garment{}, err
	}
	return decodeGarmentDocument(doc.ID, doc.Data), nil
}

// List returns all garments, newest first.
func (r *GarmentRepository) List(ctx context.Context) ([]domain.Garment, error) {
	if r == nil || r.garments == nil {
		return nil, errors.New("garment repository not initialised")
	}
	docs, err := r.garments.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	garments := make([]domain.Garment, 0, len(docs))
	for _, doc := range docs {
		garments = append(garments, decodeGarmentDocument(doc.ID, doc.Data))
	}
	return garments, nil
}

// AddColor appends a color to the garment's embedded color list.
func (r *GarmentRepository) AddColor(ctx context.Context, garmentID string, color domain.Color) error {
	return r.mutateGarment(ctx, garmentID, "garments.add_color", func(doc *garmentDocument) error {
		doc.Colors = append(doc.Colors, colorDocument{
			ID:      color.ID,
			Name:    color.Name,
			HexCode: color.HexCode,
		})
		return nil
	})
}

// RemoveColor deletes a color from the garment's embedded color list.
func (r *GarmentRepository) RemoveColor(ctx context.Context, garmentID string, colorID string) error {
	return r.mutateGarment(ctx, garmentID, "garments.remove_color", func(doc *garmentDocument) error {
		kept := doc.Colors[:0]
		found := false
		for _, color := range doc.Colors {
			if color.ID == colorID {
				found = true
				continue
			}
			kept = append(kept, color)
		}
		if !found {
			return pfirestore.NotFoundError("garments.remove_color", fmt.Errorf("color %s not found", colorID))
		}
		doc.Colors = kept
		return nil
	})
}

// AddSize appends a size to the garment's embedded size list.
func (r *GarmentRepository) AddSize(ctx context.Context, garmentID string, size domain.Size) error {
	return r.mutateGarment(ctx, garmentID, "garments.add_size", func(doc *garmentDocument) error {
		doc.Sizes = append(doc.Sizes, sizeDocument{ID: size.ID, Label: size.Label})
		return nil
	})
}

// RemoveSize deletes a size from the garment's embedded size list.
func (r *GarmentRepository) RemoveSize(ctx context.Context, garmentID string, sizeID string) error {
	return r.mutateGarment(ctx, garmentID, "garments.remove_size", func(doc *garmentDocument) error {
		kept := doc.Sizes[:0]
		found := false
		for _, size := range doc.Sizes {
			if size.ID == sizeID {
				found = true
				continue
			}
			kept = append(kept, size)
		}
		if !found {
			return pfirestore.NotFoundError("garments.remove_size", fmt.Errorf("size %s not found", sizeID))
		}
		doc.Sizes = kept
		return nil
	})
}

func (r *GarmentRepository) mutateGarment(ctx context.Context, garmentID string, op string, mutate func(*garmentDocument) error) error {
	if r == nil || r.provider == nil {
		return errors.New("garment repository not initialised")
	}
	garmentID = strings.TrimSpace(garmentID)
	if garmentID == "" {
		return errors.New("garment repository: id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}
	garmentRef := client.Collection(garmentsCollection).Doc(garmentID)

	return pfirestore.RunTransaction(ctx, client, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(garmentRef)
		if err != nil {
			return err
		}
		var doc garmentDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("%s: decode document %s: %w", op, garmentID, err)
		}
		if err := mutate(&doc); err != nil {
			return err
		}
		doc.UpdatedAt = time.Now().UTC()
		return tx.Set(garmentRef, doc)
	})
}

// isMissingDoc reports whether a transaction read failed because the
// document does not exist.
func isMissingDoc(err error) bool {
	return status.Code(err) == codes.NotFound
}

func encodeGarmentDocument(garment domain.Garment) garmentDocument {
	colors := make([]colorDocument, 0, len(garment.Colors))
	for _, color := range garment.Colors {
		colors = append(colors, colorDocument{ID: color.ID, Name: color.Name, HexCode: color.HexCode})
	}
	sizes := make([]sizeDocument, 0, len(garment.Sizes))
	for _, size := range garment.Sizes {
		sizes = append(sizes, sizeDocument{ID: size.ID, Label: size.Label})
	}
	return garmentDocument{
		Name:        garment.Name,
		SKU:         garment.SKU,
		BasePrice:   int64(garment.BasePrice),
		Description: garment.Description,
		Colors:      colors,
		Sizes:       sizes,
		CreatedAt:   garment.CreatedAt,
		UpdatedAt:   garment.UpdatedAt,
	}
}

func decodeGarmentDocument(id string, doc garmentDocument) domain.Garment {
	colors := make([]domain.Color, 0, len(doc.Colors))
	for _, color := range doc.Colors {
		colors = append(colors, domain.Color{
			ID:        color.ID,
			GarmentID: id,
			Name:      color.Name,
			HexCode:   color.HexCode,
		})
	}
	sizes := make([]domain.Size, 0, len(doc.Sizes))
	for _, size := range doc.Sizes {
		sizes = append(sizes, domain.Size{ID: size.ID, GarmentID: id, Label: size.Label})
	}
	return domain.Garment{
		ID:          id,
		Name:        doc.Name,
		SKU:         doc.SKU,
		BasePrice:   domain.Cents(doc.BasePrice),
		Description: doc.Description,
		Colors:      colors,
		Sizes:       sizes,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}
