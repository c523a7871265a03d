package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domain "github.com/stitchpress/api/internal/domain"
)

type stubCartDispatcher struct {
	handoffs chan CartHandoff
	err      error
}

func (s *stubCartDispatcher) Dispatch(ctx context.Context, handoff CartHandoff) error {
	if s.handoffs != nil {
		s.handoffs <- handoff
	}
	return s.err
}

type mutableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mutableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mutableClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type selectionFixture struct {
	engine SelectionEngine
	stored *domain.Customization
	cart   *stubCartDispatcher
	clock  *mutableClock
}

func newSelectionFixture(t *testing.T, configure func(*SelectionEngineDeps)) *selectionFixture {
	t.Helper()

	garment := domain.Garment{
		ID:        "g1",
		Name:      "Classic Tee",
		SKU:       "TEE-001",
		BasePrice: 2000,
		Colors: []domain.Color{
			{ID: "c1", GarmentID: "g1", Name: "Black"},
			{ID: "c2", GarmentID: "g1", Name: "White"},
		},
		Sizes: []domain.Size{
			{ID: "s1", GarmentID: "g1", Label: "M"},
			{ID: "s2", GarmentID: "g1", Label: "L"},
		},
	}
	catalogDesigns := map[string]domain.Design{
		"d1": {ID: "d1", Name: "Skull Print", ThumbnailURL: "https://cdn.example.com/skull-thumb.png", PriceModifier: 500, IsActive: true},
		"d2": {ID: "d2", Name: "Clearance Patch", PriceModifier: -350, IsActive: true},
		"d3": {ID: "d3", Name: "Retired Print", PriceModifier: 0, IsActive: false},
		"d4": {ID: "d4", Name: "Loose Print", PriceModifier: 100, IsActive: true},
	}
	attached := []string{"d1", "d2", "d3"}

	garments := &stubGarmentRepository{
		findByID: func(_ context.Context, garmentID string) (domain.Garment, error) {
			if garmentID != garment.ID {
				return domain.Garment{}, &stubRepositoryError{notFound: true}
			}
			return garment, nil
		},
	}
	designs := &stubDesignRepository{
		findByID: func(_ context.Context, designID string) (domain.Design, error) {
			design, ok := catalogDesigns[designID]
			if !ok {
				return domain.Design{}, &stubRepositoryError{notFound: true}
			}
			return design, nil
		},
		listForGarment: func(_ context.Context, garmentID string) ([]domain.AttachedDesign, error) {
			out := make([]domain.AttachedDesign, 0, len(attached))
			for _, id := range attached {
				out = append(out, domain.AttachedDesign{Design: catalogDesigns[id]})
			}
			return out, nil
		},
	}

	pricing, err := NewPricingEngine(PricingEngineDeps{Garments: garments, Designs: designs, Currency: "USD"})
	if err != nil {
		t.Fatalf("NewPricingEngine: %v", err)
	}

	stored := &domain.Customization{}
	customizations, err := NewCustomizationService(CustomizationServiceDeps{
		Customizations: &stubCustomizationRepository{
			insert: func(_ context.Context, customization domain.Customization) error {
				*stored = customization
				return nil
			},
		},
		Garments: garments,
		Designs:  designs,
		Pricing:  pricing,
		IDGen:    sequenceIDGen("cust"),
	})
	if err != nil {
		t.Fatalf("NewCustomizationService: %v", err)
	}

	cart := &stubCartDispatcher{handoffs: make(chan CartHandoff, 1)}
	clock := &mutableClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}

	deps := SelectionEngineDeps{
		Garments:       garments,
		Designs:        designs,
		Pricing:        pricing,
		Customizations: customizations,
		Cart:           cart,
		Clock:          clock.Now,
		IDGen:          sequenceIDGen("sess"),
	}
	if configure != nil {
		configure(&deps)
	}

	engine, err := NewSelectionEngine(deps)
	if err != nil {
		t.Fatalf("NewSelectionEngine: %v", err)
	}
	t.Cleanup(engine.Close)

	return &selectionFixture{engine: engine, stored: stored, cart: cart, clock: clock}
}

func (f *selectionFixture) mustSelect(t *testing.T, cmd SelectCommand) SelectionState {
	t.Helper()
	state, err := f.engine.Select(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Select(%+v): %v", cmd, err)
	}
	return state
}

func TestStartSessionValidatesGarment(t *testing.T) {
	fix := newSelectionFixture(t, nil)

	state, err := fix.engine.StartSession(context.Background(), "g1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if state.GarmentID != "g1" || state.Complete {
		t.Fatalf("unexpected initial state %+v", state)
	}
	if state.Total == nil || *state.Total != 2000 || state.Currency != "USD" {
		t.Fatalf("expected base price total on a fresh session, got %+v", state)
	}

	var repoErr *stubRepositoryError
	if _, err := fix.engine.StartSession(context.Background(), "missing"); !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not found for unknown garment, got %v", err)
	}
	if _, err := fix.engine.StartSession(context.Background(), " "); !errors.Is(err, ErrSelectionInvalidInput) {
		t.Fatalf("expected invalid input for blank garment id, got %v", err)
	}
}

func TestSelectOverwritesAxisChoice(t *testing.T) {
	fix := newSelectionFixture(t, nil)
	state, err := fix.engine.StartSession(context.Background(), "g1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	state = fix.mustSelect(t, SelectCommand{SessionID: state.SessionID, DesignID: "d1"})
	if state.Total == nil || *state.Total != 2500 {
		t.Fatalf("expected total 2500 after first design, got %+v", state.Total)
	}

	state = fix.mustSelect(t, SelectCommand{SessionID: state.SessionID, DesignID: "d2"})
	if state.DesignID != "d2" {
		t.Fatalf("expected design replaced, got %s", state.DesignID)
	}
	if state.Total == nil || *state.Total != 1650 {
		t.Fatalf("expected total 1650 after discount design, got %+v", state.Total)
	}
	if state.Total.String() != "16.50" {
		t.Fatalf("expected discounted total to render as 16.50, got %q", state.Total.String())
	}

	state = fix.mustSelect(t, SelectCommand{SessionID: state.SessionID, ColorID: "c1"})
	state = fix.mustSelect(t, SelectCommand{SessionID: state.SessionID, ColorID: "c2"})
	if state.ColorID != "c2" {
		t.Fatalf("expected color replaced, got %s", state.ColorID)
	}
	if state.DesignID != "d2" {
		t.Fatalf("expected design untouched by color choice, got %s", state.DesignID)
	}
}

func TestSelectRejectsInvalidChoiceWithoutMutation(t *testing.T) {
	fix := newSelectionFixture(t, nil)
	state, err := fix.engine.StartSession(context.Background(), "g1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	sessionID := state.SessionID
	fix.mustSelect(t, SelectCommand{SessionID: sessionID, ColorID: "c1"})

	if _, err := fix.engine.Select(context.Background(), SelectCommand{SessionID: sessionID, ColorID: "zz"}); !errors.Is(err, ErrSelectionInvalidInput) {
		t.Fatalf("expected invalid input for foreign color, got %v", err)
	}
	if _, err := fix.engine.Select(context.Background(), SelectCommand{SessionID: sessionID, SizeID: "zz"}); !errors.Is(err, ErrSelectionInvalidInput) {
		t.Fatalf("expected invalid input for foreign size, got %v", err)
	}
	if _, err := fix.engine.Select(context.Background(), SelectCommand{SessionID: sessionID, DesignID: "d3"}); !errors.Is(err, ErrSelectionInvalidInput) {
		t.Fatalf("expected invalid input for inactive design, got %v", err)
	}
	if _, err := fix.engine.Select(context.Background(), SelectCommand{SessionID: sessionID, DesignID: "d4"}); !errors.Is(err, ErrSelectionInvalidInput) {
		t.Fatalf("expected invalid input for unattached design, got %v", err)
	}
	if _, err := fix.engine.Select(context.Background(), SelectCommand{SessionID: sessionID}); !errors.Is(err, ErrSelectionInvalidInput) {
		t.Fatalf("expected invalid input for empty command, got %v", err)
	}
	if _, err := fix.engine.Select(context.Background(), SelectCommand{SessionID: sessionID, ColorID: "c1", SizeID: "s1"}); !errors.Is(err, ErrSelectionInvalidInput) {
		t.Fatalf("expected invalid input for two axes at once, got %v", err)
	}

	state, err = fix.engine.GetSession(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if state.ColorID != "c1" || state.DesignID != "" || state.SizeID != "" {
		t.Fatalf("expected session unchanged by rejected choices, got %+v", state)
	}
}

func TestFinalizeRequiresEveryAxis(t *testing.T) {
	fix := newSelectionFixture(t, nil)

	// Every strict subset of the three axes must be rejected.
	subsets := []struct {
		name   string
		design bool
		color  bool
		size   bool
	}{
		{"none", false, false, false},
		{"design only", true, false, false},
		{"color only", false, true, false},
		{"size only", false, false, true},
		{"design+color", true, true, false},
		{"design+size", true, false, true},
		{"color+size", false, true, true},
	}

	for _, subset := range subsets {
		state, err := fix.engine.StartSession(context.Background(), "g1")
		if err != nil {
			t.Fatalf("%s: StartSession: %v", subset.name, err)
		}
		if subset.design {
			fix.mustSelect(t, SelectCommand{SessionID: state.SessionID, DesignID: "d1"})
		}
		if subset.color {
			fix.mustSelect(t, SelectCommand{SessionID: state.SessionID, ColorID: "c1"})
		}
		if subset.size {
			fix.mustSelect(t, SelectCommand{SessionID: state.SessionID, SizeID: "s1"})
		}

		_, err = fix.engine.Finalize(context.Background(), FinalizeCommand{SessionID: state.SessionID})
		if !errors.Is(err, ErrSelectionIncomplete) {
			t.Fatalf("%s: expected incomplete error, got %v", subset.name, err)
		}

		// The failed finalize must not consume the session.
		if _, err := fix.engine.GetSession(context.Background(), state.SessionID); err != nil {
			t.Fatalf("%s: session lost after failed finalize: %v", subset.name, err)
		}
	}
}

func TestFinalizeRecordsCustomizationAndEndsSession(t *testing.T) {
	fix := newSelectionFixture(t, nil)
	state, err := fix.engine.StartSession(context.Background(), "g1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	sessionID := state.SessionID
	fix.mustSelect(t, SelectCommand{SessionID: sessionID, DesignID: "d1"})
	fix.mustSelect(t, SelectCommand{SessionID: sessionID, ColorID: "c1"})
	state = fix.mustSelect(t, SelectCommand{SessionID: sessionID, SizeID: "s1"})
	if !state.Complete {
		t.Fatalf("expected complete state, got %+v", state)
	}

	result, err := fix.engine.Finalize(context.Background(), FinalizeCommand{SessionID: sessionID, VariantID: "987654"})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if result.Customization.TotalPrice != 2500 {
		t.Fatalf("expected total 2500, got %d", result.Customization.TotalPrice)
	}
	if !result.HandoffSent {
		t.Fatal("expected handoff started")
	}
	if fix.stored.ID != result.Customization.ID {
		t.Fatalf("expected customization persisted, got %+v", fix.stored)
	}

	select {
	case handoff := <-fix.cart.handoffs:
		if handoff.CustomizationID != result.Customization.ID {
			t.Fatalf("unexpected handoff %+v", handoff)
		}
		if handoff.VariantID != "987654" {
			t.Fatalf("unexpected variant %q", handoff.VariantID)
		}
		expectProps := map[string]string{
			"Customization ID": result.Customization.ID,
			"Design":           "Skull Print",
			"Design Thumbnail": "https://cdn.example.com/skull-thumb.png",
			"Color":            "Black",
			"Size":             "M",
		}
		for key, want := range expectProps {
			if handoff.Properties[key] != want {
				t.Fatalf("property %s = %q, want %q", key, handoff.Properties[key], want)
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handoff never dispatched")
	}

	if _, err := fix.engine.GetSession(context.Background(), sessionID); !errors.Is(err, ErrSelectionSessionNotFound) {
		t.Fatalf("expected session gone after finalize, got %v", err)
	}
	if _, err := fix.engine.Finalize(context.Background(), FinalizeCommand{SessionID: sessionID}); !errors.Is(err, ErrSelectionSessionNotFound) {
		t.Fatalf("expected second finalize rejected, got %v", err)
	}
}

func TestFinalizeWithoutDispatcher(t *testing.T) {
	fix := newSelectionFixture(t, func(deps *SelectionEngineDeps) {
		deps.Cart = nil
	})
	state, err := fix.engine.StartSession(context.Background(), "g1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	fix.mustSelect(t, SelectCommand{SessionID: state.SessionID, DesignID: "d2"})
	fix.mustSelect(t, SelectCommand{SessionID: state.SessionID, ColorID: "c2"})
	fix.mustSelect(t, SelectCommand{SessionID: state.SessionID, SizeID: "s2"})

	result, err := fix.engine.Finalize(context.Background(), FinalizeCommand{SessionID: state.SessionID})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if result.HandoffSent {
		t.Fatal("expected no handoff without dispatcher")
	}
	if result.Customization.TotalPrice != 1650 {
		t.Fatalf("expected discounted total 1650, got %d", result.Customization.TotalPrice)
	}
}

func TestAbandonDiscardsSessionInAnyState(t *testing.T) {
	fix := newSelectionFixture(t, nil)
	state, err := fix.engine.StartSession(context.Background(), "g1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	fix.mustSelect(t, SelectCommand{SessionID: state.SessionID, DesignID: "d1"})

	if err := fix.engine.Abandon(context.Background(), state.SessionID); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if _, err := fix.engine.GetSession(context.Background(), state.SessionID); !errors.Is(err, ErrSelectionSessionNotFound) {
		t.Fatalf("expected session gone after abandon, got %v", err)
	}
	if err := fix.engine.Abandon(context.Background(), state.SessionID); !errors.Is(err, ErrSelectionSessionNotFound) {
		t.Fatalf("expected not found for repeated abandon, got %v", err)
	}
}

func TestIdleSessionsExpire(t *testing.T) {
	fix := newSelectionFixture(t, func(deps *SelectionEngineDeps) {
		deps.SessionTTL = time.Hour
		deps.SweepInterval = 10 * time.Millisecond
	})
	state, err := fix.engine.StartSession(context.Background(), "g1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	fix.clock.Advance(2 * time.Hour)

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err = fix.engine.GetSession(context.Background(), state.SessionID)
		if errors.Is(err, ErrSelectionSessionNotFound) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("session not expired, last err %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
