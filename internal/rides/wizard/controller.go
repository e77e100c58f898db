package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nemt_portal_backend/internal/events"
	"nemt_portal_backend/internal/rides/domain"
	"nemt_portal_backend/internal/rides/submission"
	"nemt_portal_backend/platform/apperr"
	"nemt_portal_backend/platform/logger"

	"github.com/google/uuid"
)

const sessionLockPrefix = "wizard:"

// Deps are the collaborators of a Controller.
type Deps struct {
	Store     SessionStore
	Guard     submission.Guard
	Directory Directory
	Zones     ZoneFinder
	Products  ProductFinder
	Submitter Submitter
	EventBus  events.Bus
	Logger    *logger.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Controller sequences the ride scheduling steps.
type Controller struct {
	store     SessionStore
	guard     submission.Guard
	directory Directory
	zones     ZoneFinder
	products  ProductFinder
	submitter Submitter
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
}

// NewController creates a controller.
func NewController(d Deps) *Controller {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		store:     d.Store,
		guard:     d.Guard,
		directory: d.Directory,
		zones:     d.Zones,
		products:  d.Products,
		submitter: d.Submitter,
		bus:       d.EventBus,
		log:       d.Logger,
		now:       now,
	}
}

// Start opens a new session at the first step.
func (c *Controller) Start(ctx context.Context, ownerID uuid.UUID) (*Session, error) {
	now := c.now()
	s := &Session{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Step:      StepClientLocations,
		Draft:     domain.NewRideDraft(now),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	c.log.WithContext(ctx).WithSessionID(s.ID).Info("ride wizard started")
	return s, nil
}

// Get returns the session owned by ownerID.
func (c *Controller) Get(ctx context.Context, ownerID uuid.UUID, id string) (*Session, error) {
	return c.load(ctx, ownerID, id)
}

// Discard drops the session so the operator can start over.
func (c *Controller) Discard(ctx context.Context, ownerID uuid.UUID, id string) error {
	release, err := c.lock(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	if _, err := c.load(ctx, ownerID, id); err != nil {
		return err
	}
	if err := c.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (c *Controller) load(ctx context.Context, ownerID uuid.UUID, id string) (*Session, error) {
	s, err := c.store.Load(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, apperr.NotFound("ride wizard session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s.OwnerID != ownerID {
		return nil, apperr.NotFound("ride wizard session not found")
	}
	return s, nil
}

func (c *Controller) lock(ctx context.Context, id string) (func(), error) {
	release, ok, err := c.guard.TryAcquire(ctx, sessionLockPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	if !ok {
		return nil, apperr.Conflict("another action on this ride is still in progress")
	}
	return release, nil
}

// withSession serializes fn per session, checks that the session may move to
// target and clears the previous error. fn is responsible for persisting the
// session.
func (c *Controller) withSession(ctx context.Context, ownerID uuid.UUID, id string, target Step, fn func(*Session) error) (*Session, error) {
	release, err := c.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	s, err := c.load(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(s.Step, target) {
		return nil, apperr.Conflict(fmt.Sprintf("ride wizard is at step %q and cannot move to %q", s.Step, target)).
			WithDetails(map[string]Step{"currentStep": s.Step})
	}

	s.LastError = ""
	if err := fn(s); err != nil {
		return s, err
	}
	return s, nil
}

// advance runs the step that moves the session to target. On failure the
// error message is stored on the session and the session is saved with its
// draft intact.
func (c *Controller) advance(ctx context.Context, ownerID uuid.UUID, id string, target Step, fn func(*Session) error) (*Session, error) {
	return c.withSession(ctx, ownerID, id, target, func(s *Session) error {
		stepErr := fn(s)
		if stepErr == nil {
			stepErr = s.moveTo(target)
		}
		if stepErr != nil {
			s.LastError = errorMessage(stepErr)
			c.log.WithContext(ctx).WithSessionID(s.ID).Warn("ride wizard step failed", "step", s.Step, "error", stepErr)
		}
		s.UpdatedAt = c.now()
		if err := c.store.Save(ctx, s); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return stepErr
	})
}

func errorMessage(err error) string {
	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}
