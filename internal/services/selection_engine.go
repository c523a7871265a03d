package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/stitchpress/api/internal/repositories"
)

const (
	defaultSessionTTL    = 30 * time.Minute
	defaultSweepInterval = 5 * time.Minute
	handoffTimeout       = 15 * time.Second
)

var (
	// ErrSelectionSessionNotFound indicates the session does not exist, expired, or was finalized.
	ErrSelectionSessionNotFound = errors.New("selection engine: session not found")
	// ErrSelectionInvalidInput indicates the choice does not belong to the session's garment.
	ErrSelectionInvalidInput = errors.New("selection engine: invalid input")
	// ErrSelectionIncomplete indicates finalize was called before every axis had a choice.
	ErrSelectionIncomplete = errors.New("selection engine: selection incomplete")
)

// SelectionEngineDeps bundles constructor inputs for the selection engine.
type SelectionEngineDeps struct {
	Garments       repositories.GarmentRepository
	Designs        repositories.DesignRepository
	Pricing        PricingEngine
	Customizations CustomizationService
	Cart           CartDispatcher
	Logger         *zap.Logger
	Clock          func() time.Time
	IDGen          func() string
	SessionTTL     time.Duration
	SweepInterval  time.Duration
}

type selectionSession struct {
	mu        sync.Mutex
	garmentID string
	designID  string
	colorID   string
	sizeID    string
	total     *Cents
	currency  string
	updatedAt time.Time
	finalized bool
}

type selectionEngine struct {
	garments       repositories.GarmentRepository
	designs        repositories.DesignRepository
	pricing        PricingEngine
	customizations CustomizationService
	cart           CartDispatcher
	logger         *zap.Logger
	clock          func() time.Time
	idGen          func() string
	ttl            time.Duration

	mu       sync.RWMutex
	sessions map[string]*selectionSession

	stopJanitor chan struct{}
	janitorDone chan struct{}
	closeOnce   sync.Once
}

// NewSelectionEngine constructs the selection engine and starts its session janitor.
func NewSelectionEngine(deps SelectionEngineDeps) (SelectionEngine, error) {
	if deps.Garments == nil {
		return nil, fmt.Errorf("selection engine: garment repository is required")
	}
	if deps.Designs == nil {
		return nil, fmt.Errorf("selection engine: design repository is required")
	}
	if deps.Pricing == nil {
		return nil, fmt.Errorf("selection engine: pricing engine is required")
	}
	if deps.Customizations == nil {
		return nil, fmt.Errorf("selection engine: customization service is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	sweep := deps.SweepInterval
	if sweep <= 0 {
		sweep = defaultSweepInterval
	}

	engine := &selectionEngine{
		garments:       deps.Garments,
		designs:        deps.Designs,
		pricing:        deps.Pricing,
		customizations: deps.Customizations,
		cart:           deps.Cart,
		logger:         logger,
		clock:          func() time.Time { return clock().UTC() },
		idGen:          idGen,
		ttl:            ttl,
		sessions:       make(map[string]*selectionSession),
		stopJanitor:    make(chan struct{}),
		janitorDone:    make(chan struct{}),
	}
	go engine.janitor(sweep)
	return engine, nil
}

// StartSession opens a new session anchored to an existing garment. The
// garment's base price is the session total until a design is chosen.
func (e *selectionEngine) StartSession(ctx context.Context, garmentID string) (SelectionState, error) {
	garmentID = strings.TrimSpace(garmentID)
	if garmentID == "" {
		return SelectionState{}, fmt.Errorf("%w: garment id is required", ErrSelectionInvalidInput)
	}
	garment, err := e.garments.FindByID(ctx, garmentID)
	if err != nil {
		return SelectionState{}, err
	}

	sessionID := e.idGen()
	base := garment.BasePrice
	session := &selectionSession{
		garmentID: garmentID,
		total:     &base,
		currency:  e.pricing.Currency(),
		updatedAt: e.clock(),
	}

	e.mu.Lock()
	e.sessions[sessionID] = session
	e.mu.Unlock()

	return e.snapshot(sessionID, session), nil
}

// GetSession returns the current state of a live session.
func (e *selectionEngine) GetSession(ctx context.Context, sessionID string) (SelectionState, error) {
	session, err := e.lookup(sessionID)
	if err != nil {
		return SelectionState{}, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.finalized {
		return SelectionState{}, ErrSelectionSessionNotFound
	}
	return e.snapshotLocked(sessionID, session), nil
}

// Select applies one axis choice. A later choice on the same axis replaces
// the earlier one; a rejected choice leaves the session untouched.
func (e *selectionEngine) Select(ctx context.Context, cmd SelectCommand) (SelectionState, error) {
	designID := strings.TrimSpace(cmd.DesignID)
	colorID := strings.TrimSpace(cmd.ColorID)
	sizeID := strings.TrimSpace(cmd.SizeID)

	chosen := 0
	for _, id := range []string{designID, colorID, sizeID} {
		if id != "" {
			chosen++
		}
	}
	if chosen != 1 {
		return SelectionState{}, fmt.Errorf("%w: exactly one of design, color or size must be chosen", ErrSelectionInvalidInput)
	}

	session, err := e.lookup(cmd.SessionID)
	if err != nil {
		return SelectionState{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.finalized {
		return SelectionState{}, ErrSelectionSessionNotFound
	}

	switch {
	case designID != "":
		if err := e.applyDesign(ctx, session, designID); err != nil {
			return SelectionState{}, err
		}
	case colorID != "":
		if err := e.applyColor(ctx, session, colorID); err != nil {
			return SelectionState{}, err
		}
	default:
		if err := e.applySize(ctx, session, sizeID); err != nil {
			return SelectionState{}, err
		}
	}

	session.updatedAt = e.clock()
	return e.snapshotLocked(cmd.SessionID, session), nil
}

// Finalize records the completed selection as a customization, ends the
// session, and starts the cart handoff without waiting for its outcome.
func (e *selectionEngine) Finalize(ctx context.Context, cmd FinalizeCommand) (FinalizeResult, error) {
	session, err := e.lookup(cmd.SessionID)
	if err != nil {
		return FinalizeResult{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.finalized {
		return FinalizeResult{}, ErrSelectionSessionNotFound
	}
	if session.designID == "" || session.colorID == "" || session.sizeID == "" {
		missing := make([]string, 0, 3)
		if session.designID == "" {
			missing = append(missing, "design")
		}
		if session.colorID == "" {
			missing = append(missing, "color")
		}
		if session.sizeID == "" {
			missing = append(missing, "size")
		}
		return FinalizeResult{}, fmt.Errorf("%w: missing %s", ErrSelectionIncomplete, strings.Join(missing, ", "))
	}

	customization, err := e.customizations.CreateCustomization(ctx, CreateCustomizationCommand{
		GarmentID: session.garmentID,
		DesignID:  session.designID,
		ColorID:   session.colorID,
		SizeID:    session.sizeID,
	})
	if err != nil {
		return FinalizeResult{}, err
	}

	session.finalized = true
	e.mu.Lock()
	delete(e.sessions, cmd.SessionID)
	e.mu.Unlock()

	result := FinalizeResult{Customization: customization}
	if e.cart != nil {
		e.dispatchHandoff(customization, strings.TrimSpace(cmd.VariantID))
		result.HandoffSent = true
	}
	return result, nil
}

// Abandon discards a session in any state.
func (e *selectionEngine) Abandon(ctx context.Context, sessionID string) error {
	session, err := e.lookup(sessionID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	session.finalized = true
	session.mu.Unlock()

	e.mu.Lock()
	delete(e.sessions, strings.TrimSpace(sessionID))
	e.mu.Unlock()
	return nil
}

// Close stops the janitor. Live sessions are discarded.
func (e *selectionEngine) Close() {
	e.closeOnce.Do(func() {
		close(e.stopJanitor)
		<-e.janitorDone
	})
}

func (e *selectionEngine) applyDesign(ctx context.Context, session *selectionSession, designID string) error {
	design, err := e.designs.FindByID(ctx, designID)
	if err != nil {
		return err
	}
	if !design.IsActive {
		return fmt.Errorf("%w: design %s is not active", ErrSelectionInvalidInput, designID)
	}
	attached, err := e.designs.ListForGarment(ctx, session.garmentID)
	if err != nil {
		return err
	}
	linked := false
	for _, entry := range attached {
		if entry.ID == designID {
			linked = true
			break
		}
	}
	if !linked {
		return fmt.Errorf("%w: design %s is not attached to garment %s", ErrSelectionInvalidInput, designID, session.garmentID)
	}

	quote, err := e.pricing.Quote(ctx, session.garmentID, designID)
	if err != nil {
		return err
	}

	session.designID = designID
	total := quote.Total
	session.total = &total
	session.currency = quote.Currency
	return nil
}

func (e *selectionEngine) applyColor(ctx context.Context, session *selectionSession, colorID string) error {
	garment, err := e.garments.FindByID(ctx, session.garmentID)
	if err != nil {
		return err
	}
	for _, color := range garment.Colors {
		if color.ID == colorID {
			session.colorID = colorID
			return nil
		}
	}
	return fmt.Errorf("%w: color %s does not belong to garment %s", ErrSelectionInvalidInput, colorID, session.garmentID)
}

func (e *selectionEngine) applySize(ctx context.Context, session *selectionSession, sizeID string) error {
	garment, err := e.garments.FindByID(ctx, session.garmentID)
	if err != nil {
		return err
	}
	for _, size := range garment.Sizes {
		if size.ID == sizeID {
			session.sizeID = sizeID
			return nil
		}
	}
	return fmt.Errorf("%w: size %s does not belong to garment %s", ErrSelectionInvalidInput, sizeID, session.garmentID)
}

// dispatchHandoff delivers the customization to the cart platform in the
// background. Failures are logged, never surfaced to the shopper.
func (e *selectionEngine) dispatchHandoff(customization Customization, variantID string) {
	properties := map[string]string{
		"Customization ID": customization.ID,
	}
	if name, ok := customization.Payload["design_name"].(string); ok && name != "" {
		properties["Design"] = name
	}
	if thumb, ok := customization.Payload["design_thumbnail"].(string); ok && thumb != "" {
		properties["Design Thumbnail"] = thumb
	}
	if color, ok := customization.Payload["color_name"].(string); ok && color != "" {
		properties["Color"] = color
	}
	if size, ok := customization.Payload["size_name"].(string); ok && size != "" {
		properties["Size"] = size
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), handoffTimeout)
		defer cancel()

		err := e.cart.Dispatch(ctx, CartHandoff{
			CustomizationID: customization.ID,
			VariantID:       variantID,
			Properties:      properties,
		})
		if err != nil {
			e.logger.Warn("cart handoff failed",
				zap.String("customization_id", customization.ID),
				zap.Error(err),
			)
			return
		}
		e.logger.Info("cart handoff delivered", zap.String("customization_id", customization.ID))
	}()
}

func (e *selectionEngine) lookup(sessionID string) (*selectionSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrSelectionInvalidInput)
	}
	e.mu.RLock()
	session, ok := e.sessions[sessionID]
	e.mu.RUnlock()
	if !ok {
		return nil, ErrSelectionSessionNotFound
	}
	return session, nil
}

func (e *selectionEngine) snapshot(sessionID string, session *selectionSession) SelectionState {
	session.mu.Lock()
	defer session.mu.Unlock()
	return e.snapshotLocked(sessionID, session)
}

func (e *selectionEngine) snapshotLocked(sessionID string, session *selectionSession) SelectionState {
	state := SelectionState{
		SessionID: sessionID,
		GarmentID: session.garmentID,
		DesignID:  session.designID,
		ColorID:   session.colorID,
		SizeID:    session.sizeID,
		Currency:  session.currency,
		Complete:  session.designID != "" && session.colorID != "" && session.sizeID != "",
		UpdatedAt: session.updatedAt,
	}
	if session.total != nil {
		total := *session.total
		state.Total = &total
	}
	return state
}

func (e *selectionEngine) janitor(interval time.Duration) {
	defer close(e.janitorDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopJanitor:
			return
		case <-ticker.C:
			e.sweep()
		}
	}
}

func (e *selectionEngine) sweep() {
	cutoff := e.clock().Add(-e.ttl)

	e.mu.Lock()
	var expired []string
	for id, session := range e.sessions {
		session.mu.Lock()
		stale := session.updatedAt.Before(cutoff)
		session.mu.Unlock()
		if stale {
			expired = append(expired, id)
			delete(e.sessions, id)
		}
	}
	e.mu.Unlock()

	if len(expired) > 0 {
		e.logger.Debug("expired idle selection sessions", zap.Int("count", len(expired)))
	}
}
