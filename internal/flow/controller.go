package flow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"onboarding-service/internal/kvstore"
	"onboarding-service/internal/models"
	"onboarding-service/internal/util"
)

// CompleteFunc is a flow's terminal side effect (send a code, place an
// order, initialize a payment redirect). A failure here is surfaced to the
// caller as retryable; session state is kept for the retry.
type CompleteFunc func(ctx context.Context, session *models.FlowSession) error

// Definition is one flow: a declarative step list plus a terminal action.
type Definition struct {
	Name     string
	Steps    []StepDefinition
	Complete CompleteFunc
}

// ValidationError carries per-field messages for a failed step advance.
// It is local and recoverable: the caller edits fields and retries.
type ValidationError struct {
	Errors FieldErrors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Errors))
}

// Controller drives a linear wizard of steps, validating each before
// advancing and persisting partial progress best-effort. Each instance owns
// exactly one session; instances are not shared across goroutines.
type Controller struct {
	def     Definition
	store   SessionStore
	slot    kvstore.Store
	logger  *zap.Logger
	session *models.FlowSession
	errors  FieldErrors
}

// NewController builds a controller for one flow definition. The slot is the
// durable key-value storage holding the active session id across reloads.
func NewController(def Definition, store SessionStore, slot kvstore.Store, logger *zap.Logger) *Controller {
	return &Controller{
		def:    def,
		store:  store,
		slot:   slot,
		logger: logger,
		errors: FieldErrors{},
	}
}

// Initialize creates or resumes a session. When resumeID names a stored
// record, fields are restored and the current step jumps to the furthest
// step implied by which fields are already populated. When the store is
// unreachable the flow degrades to a local, non-persisted session.
func (c *Controller) Initialize(ctx context.Context, resumeID string) error {
	if resumeID != "" && resumeID != models.LocalSessionID {
		if session, err := c.store.Get(ctx, resumeID); err == nil {
			c.session = session
			c.session.CurrentStep = c.furthestStep(session.Fields)
			c.persistSessionID(ctx)
			return nil
		} else {
			c.logger.Warn("Failed to resume flow session, starting fresh",
				util.String("flow", c.def.Name),
				util.String("session_id", resumeID),
				util.ErrorField(err))
		}
	}

	session, err := c.store.Create(ctx, c.def.Name)
	if err != nil {
		c.logger.Warn("Session store unreachable, degrading to local session",
			util.String("flow", c.def.Name),
			util.ErrorField(err))
		session = models.NewFlowSession(models.LocalSessionID, c.def.Name)
	}

	c.session = session
	c.persistSessionID(ctx)
	return nil
}

// Attach adopts an already-loaded session, for callers that do their own
// lookup (the HTTP session surface resolves ids itself and surfaces
// not-found instead of degrading). Pending validation errors are reset.
func (c *Controller) Attach(session *models.FlowSession) {
	c.session = session
	c.errors = FieldErrors{}
}

// UpdateField merges one value into the session fields and clears any
// pending validation error for that field. No network call.
func (c *Controller) UpdateField(name, value string) {
	c.session.Fields[name] = value
	delete(c.errors, name)
}

// Advance validates the active step. On failure the step does not change and
// a ValidationError is returned. On success the step's fields are persisted
// best-effort (a store failure never blocks progress) and the step advances.
func (c *Controller) Advance(ctx context.Context) error {
	step := c.activeStep()

	c.errors = FieldErrors{}
	if step.Validate != nil {
		if errs := step.Validate(Fields(c.session.Fields)); len(errs) > 0 {
			c.errors = errs
			return &ValidationError{Errors: errs}
		}
	}

	c.persistProgress(ctx)
	if c.session.CurrentStep < len(c.def.Steps) {
		c.session.CurrentStep++
	}
	return nil
}

// Retreat moves back one step, floor 1. It never fails.
func (c *Controller) Retreat() {
	if c.session.CurrentStep > 1 {
		c.session.CurrentStep--
	}
}

// Skip force-advances past an optional step, recording the skip sentinel
// into the given field.
func (c *Controller) Skip(ctx context.Context, field string) {
	c.session.Fields[field] = models.SkipSentinel
	delete(c.errors, field)

	c.persistProgress(ctx)
	if c.session.CurrentStep < len(c.def.Steps) {
		c.session.CurrentStep++
	}
}

// Complete runs the flow's terminal side effect and, on success, discards
// the durable session id so the flow cannot be resumed.
func (c *Controller) Complete(ctx context.Context) error {
	if c.def.Complete != nil {
		if err := c.def.Complete(ctx, c.session); err != nil {
			return fmt.Errorf("flow %s terminal action: %w", c.def.Name, err)
		}
	}

	if err := c.slot.Remove(ctx, kvstore.KeySessionID); err != nil {
		c.logger.Warn("Failed to clear session slot after completion",
			util.String("flow", c.def.Name),
			util.ErrorField(err))
	}
	return nil
}

// Session exposes the controller's session for rendering and persistence.
func (c *Controller) Session() *models.FlowSession {
	return c.session
}

// CurrentStep returns the 1-based active step index.
func (c *Controller) CurrentStep() int {
	return c.session.CurrentStep
}

// Errors returns the validation errors from the last advance attempt.
func (c *Controller) Errors() FieldErrors {
	return c.errors
}

func (c *Controller) activeStep() StepDefinition {
	idx := c.session.CurrentStep - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(c.def.Steps) {
		idx = len(c.def.Steps) - 1
	}
	return c.def.Steps[idx]
}

// furthestStep returns the first step whose fields are not yet populated.
func (c *Controller) furthestStep(fields map[string]string) int {
	for i, step := range c.def.Steps {
		if !step.populated(Fields(fields)) {
			return i + 1
		}
	}
	return len(c.def.Steps)
}

// persistProgress syncs the session to the store. Best-effort: failures are
// logged and swallowed so the wizard stays responsive.
func (c *Controller) persistProgress(ctx context.Context) {
	if c.session.IsLocal() {
		return
	}
	if err := c.store.Update(ctx, c.session); err != nil {
		c.logger.Warn("Best-effort session persist failed",
			util.String("flow", c.def.Name),
			util.String("session_id", c.session.ID),
			util.Int("step", c.session.CurrentStep),
			util.ErrorField(err))
	}
}

func (c *Controller) persistSessionID(ctx context.Context) {
	if err := c.slot.Set(ctx, kvstore.KeySessionID, c.session.ID); err != nil {
		c.logger.Warn("Failed to persist session id to durable slot",
			util.String("flow", c.def.Name),
			util.ErrorField(err))
	}
}
