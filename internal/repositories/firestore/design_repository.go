package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/stitchpress/api/internal/domain"
	pfirestore "github.com/stitchpress/api/internal/platform/firestore"
)

const (
	designsCollection        = "designs"
	garmentDesignsCollection = "garment_designs"
)

// DesignRepository persists design documents and the garment associations
// linking them to the catalog. Association documents use "garmentID_designID"
// as their ID so the pair is unique by construction.
type DesignRepository struct {
	provider *pfirestore.Provider
	designs  *pfirestore.Collection[designDocument]
	links    *pfirestore.Collection[garmentDesignDocument]
}

type designDocument struct {
	Name          string    `firestore:"name"`
	ImageURL      string    `firestore:"imageUrl"`
	ThumbnailURL  string    `firestore:"thumbnailUrl"`
	PriceModifier int64     `firestore:"priceModifier"`
	IsActive      bool      `firestore:"isActive"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

type garmentDesignDocument struct {
	GarmentID    string    `firestore:"garmentId"`
	DesignID     string    `firestore:"designId"`
	DisplayOrder *int      `firestore:"displayOrder"`
	CreatedAt    time.Time `firestore:"createdAt"`
}

// NewDesignRepository constructs a Firestore-backed design repository.
func NewDesignRepository(provider *pfirestore.Provider) (*DesignRepository, error) {
	if provider == nil {
		return nil, errors.New("design repository: firestore provider is required")
	}
	return &DesignRepository{
		provider: provider,
		designs:  pfirestore.NewCollection[designDocument](provider, designsCollection),
		links:    pfirestore.NewCollection[garmentDesignDocument](provider, garmentDesignsCollection),
	}, nil
}

func linkDocID(garmentID, designID string) string {
	return garmentID + "_" + designID
}

// Insert stores a new design document.
func (r *DesignRepository) Insert(ctx context.Context, design domain.Design) error {
	if r == nil || r.designs == nil {
		return errors.New("design repository not initialised")
	}
	design.ID = strings.TrimSpace(design.ID)
	if design.ID == "" {
		return errors.New("design repository: id is required")
	}
	docRef, err := r.designs.Doc(ctx, design.ID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeDesignDocument(design)); err != nil {
		return pfirestore.WrapError("designs.insert", err)
	}
	return nil
}

// Update replaces the design document state.
func (r *DesignRepository) Update(ctx context.Context, design domain.Design) error {
	if r == nil || r.designs == nil {
		return errors.New("design repository not initialised")
	}
	design.ID = strings.TrimSpace(design.ID)
	if design.ID == "" {
		return errors.New("design repository: id is required")
	}
	return r.designs.Set(ctx, design.ID, encodeDesignDocument(design))
}

// Delete removes the design and every garment association pointing at it.
func (r *DesignRepository) Delete(ctx context.Context, designID string) error {
	if r == nil || r.provider == nil {
		return errors.New("design repository not initialised")
	}
	designID = strings.TrimSpace(designID)
	if designID == "" {
		return errors.New("design repository: id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}

	designRef := client.Collection(designsCollection).Doc(designID)
	linkQuery := client.Collection(garmentDesignsCollection).Where("designId", "==", designID)

	return pfirestore.RunTransaction(ctx, client, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(designRef); err != nil {
			return err
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
		return tx.Delete(designRef)
	})
}

// FindByID loads a design by its identifier.
func (r *DesignRepository) FindByID(ctx context.Context, designID string) (domain.Design, error) {
	if r == nil || r.designs == nil {
		return domain.Design{}, errors.New("design repository not initialised")
	}
	designID = strings.TrimSpace(designID)
	if designID == "" {
		return domain.Design{}, errors.New("design repository: id is required")
	}
	doc, err := r.designs.Get(ctx, designID)
	if err != nil {
		return domain.Design{}, err
	}
	return decodeDesignDocument(doc.ID, doc.Data), nil
}

// List returns designs newest first, optionally restricted to active ones.
func (r *DesignRepository) List(ctx context.Context, activeOnly bool) ([]domain.Design, error) {
	if r == nil || r.designs == nil {
		return nil, errors.New("design repository not initialised")
	}
	docs, err := r.designs.Query(ctx, func(q firestore.Query) firestore.Query {
		if activeOnly {
			q = q.Where("isActive", "==", true)
		}
		return q.OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	designs := make([]domain.Design, 0, len(docs))
	for _, doc := range docs {
		designs = append(designs, decodeDesignDocument(doc.ID, doc.Data))
	}
	return designs, nil
}

// Attach links a design to a garment. Linking an already attached pair
// reports a conflict.
func (r *DesignRepository) Attach(ctx context.Context, link domain.GarmentDesign) error {
	if r == nil || r.links == nil {
		return errors.New("design repository not initialised")
	}
	link.GarmentID = strings.TrimSpace(link.GarmentID)
	link.DesignID = strings.TrimSpace(link.DesignID)
	if link.GarmentID == "" || link.DesignID == "" {
		return errors.New("design repository: garment id and design id are required")
	}

	docRef, err := r.links.Doc(ctx, linkDocID(link.GarmentID, link.DesignID))
	if err != nil {
		return err
	}
	doc := garmentDesignDocument{
		GarmentID:    link.GarmentID,
		DesignID:     link.DesignID,
		DisplayOrder: link.DisplayOrder,
		CreatedAt:    link.CreatedAt,
	}
	if _, err := docRef.Create(ctx, doc); err != nil {
		return pfirestore.WrapError("garment_designs.attach", err)
	}
	return nil
}

// Detach removes the association between a garment and a design.
func (r *DesignRepository) Detach(ctx context.Context, garmentID string, designID string) error {
	if r == nil || r.provider == nil {
		return errors.New("design repository not initialised")
	}
	garmentID = strings.TrimSpace(garmentID)
	designID = strings.TrimSpace(designID)
	if garmentID == "" || designID == "" {
		return errors.New("design repository: garment id and design id are required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}
	linkRef := client.Collection(garmentDesignsCollection).Doc(linkDocID(garmentID, designID))

	return pfirestore.RunTransaction(ctx, client, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(linkRef)
		if err != nil {
			if isMissingDoc(err) {
				return pfirestore.NotFoundError("garment_designs.detach",
					fmt.Errorf("design %s is not attached to garment %s", designID, garmentID))
			}
			return err
		}
		return tx.Delete(snap.Ref)
	})
}

// ListForGarment returns the designs attached to a garment ordered by
// display order, unordered entries last.
func (r *DesignRepository) ListForGarment(ctx context.Context, garmentID string) ([]domain.AttachedDesign, error) {
	if r == nil || r.links == nil || r.designs == nil {
		return nil, errors.New("design repository not initialised")
	}
	garmentID = strings.TrimSpace(garmentID)
	if garmentID == "" {
		return nil, errors.New("design repository: garment id is required")
	}

	links, err := r.links.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("garmentId", "==", garmentID)
	})
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return []domain.AttachedDesign{}, nil
	}

	attached := make([]domain.AttachedDesign, 0, len(links))
	for _, link := range links {
		doc, err := r.designs.Get(ctx, link.Data.DesignID)
		if err != nil {
			var repoErr *pfirestore.Error
			if errors.As(err, &repoErr) && repoErr.IsNotFound() {
				// Dangling association, skip it.
				continue
			}
			return nil, err
		}
		attached = append(attached, domain.AttachedDesign{
			Design:       decodeDesignDocument(doc.ID, doc.Data),
			DisplayOrder: link.Data.DisplayOrder,
		})
	}

	sort.SliceStable(attached, func(i, j int) bool {
		left, right := attached[i].DisplayOrder, attached[j].DisplayOrder
		switch {
		case left != nil && right != nil:
			if *left != *right {
				return *left < *right
			}
			return attached[i].Name < attached[j].Name
		case left != nil:
			return true
		case right != nil:
			return false
		default:
			return attached[i].Name < attached[j].Name
		}
	})
	return attached, nil
}

func encodeDesignDocument(design domain.Design) designDocument {
	return designDocument{
		Name:          design.Name,
		ImageURL:      design.ImageURL,
		ThumbnailURL:  design.ThumbnailURL,
		PriceModifier: int64(design.PriceModifier),
		IsActive:      design.IsActive,
		CreatedAt:     design.CreatedAt,
		UpdatedAt:     design.UpdatedAt,
	}
}

func decodeDesignDocument(id string, doc designDocument) domain.Design {
	return domain.Design{
		ID:            id,
		Name:          doc.Name,
		ImageURL:      doc.ImageURL,
		ThumbnailURL:  doc.ThumbnailURL,
		PriceModifier: domain.Cents(doc.PriceModifier),
		IsActive:      doc.IsActive,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}
