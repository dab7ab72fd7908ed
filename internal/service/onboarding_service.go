package service

import (
	"context"
	"errors"
	"fmt"

	"onboarding-service/internal/analytics"
	"onboarding-service/internal/flow"
	"onboarding-service/internal/kvstore"
	"onboarding-service/internal/models"
	"onboarding-service/internal/util"
)

var ErrUnknownFlow = errors.New("unknown flow")

// FlowSessionStore is the persistence surface behind the session
// endpoints: the wizard store plus deletion of completed sessions.
type FlowSessionStore interface {
	flow.SessionStore
	Delete(ctx context.Context, id string) error
}

// OnboardingService manages server-side flow sessions. Every mutation
// runs through a flow.Controller for the session's flow definition, so
// step validation, furthest-step resume and the retreat floor apply to
// the HTTP surface exactly as they do to interactive wizards.
type OnboardingService struct {
	sessions FlowSessionStore
	slot     kvstore.Store
	recorder *analytics.Recorder
	flows    map[string]flow.Definition
}

func NewOnboardingService(sessions FlowSessionStore, slot kvstore.Store, recorder *analytics.Recorder) *OnboardingService {
	// Terminal side effects (placing the order, sending the code) live on
	// their own endpoints, so the definitions here carry no CompleteFunc.
	return &OnboardingService{
		sessions: sessions,
		slot:     slot,
		recorder: recorder,
		flows: map[string]flow.Definition{
			flow.FlowAuth:       flow.AuthFlow(nil),
			flow.FlowGetStarted: flow.GetStartedFlow(nil),
			flow.FlowContact:    flow.ContactFlow(nil),
			flow.FlowOrder:      flow.OrderFlow(nil),
		},
	}
}

func (s *OnboardingService) controllerFor(def flow.Definition, session *models.FlowSession) *flow.Controller {
	c := flow.NewController(def, s.sessions, s.slot, util.Get())
	c.Attach(session)
	return c
}

// CreateSession starts a session for a named flow, or resumes a stored
// one at its furthest completed step when resumeID names a session of
// the same flow.
func (s *OnboardingService) CreateSession(ctx context.Context, flowName, resumeID string) (*models.FlowSession, error) {
	def, ok := s.flows[flowName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlow, flowName)
	}

	if resumeID != "" {
		if existing, err := s.sessions.Get(ctx, resumeID); err != nil || existing.Flow != flowName {
			resumeID = ""
		}
	}

	c := flow.NewController(def, s.sessions, s.slot, util.Get())
	if err := c.Initialize(ctx, resumeID); err != nil {
		return nil, fmt.Errorf("initialize flow session: %w", err)
	}

	session := c.Session()
	s.recorder.Record(ctx, &models.FlowEvent{
		EventType: models.EventFlowStarted,
		Flow:      flowName,
		SessionID: session.ID,
		Step:      session.CurrentStep,
	})
	return session, nil
}

// GetSession resumes a stored session by id.
func (s *OnboardingService) GetSession(ctx context.Context, id string) (*models.FlowSession, error) {
	return s.sessions.Get(ctx, id)
}

// PatchSession merges field updates into a stored session and moves its
// step pointer through the flow's controller: advancing validates each
// step in turn (a *flow.ValidationError leaves the step unchanged),
// retreating floors at step one. Unknown sessions surface
// ErrSessionNotFound.
func (s *OnboardingService) PatchSession(ctx context.Context, id string, fields map[string]string, step int) (*models.FlowSession, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	def, ok := s.flows[session.Flow]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlow, session.Flow)
	}
	if step > len(def.Steps) {
		step = len(def.Steps)
	}

	c := s.controllerFor(def, session)
	for name, value := range fields {
		c.UpdateField(name, value)
	}
	for step > 0 && c.CurrentStep() < step {
		if err := c.Advance(ctx); err != nil {
			return nil, err
		}
	}
	for step > 0 && c.CurrentStep() > step {
		c.Retreat()
	}

	if err := s.sessions.Update(ctx, c.Session()); err != nil {
		return nil, fmt.Errorf("update flow session: %w", err)
	}

	s.recorder.Record(ctx, &models.FlowEvent{
		EventType: models.EventStepAdvanced,
		Flow:      session.Flow,
		SessionID: session.ID,
		Step:      c.CurrentStep(),
	})
	return c.Session(), nil
}

// CompleteSession runs the flow's terminal completion, which clears the
// durable session slot, then deletes the stored session so it cannot be
// resumed. A completion failure keeps the session for retry.
func (s *OnboardingService) CompleteSession(ctx context.Context, id string) error {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return err
	}

	def, ok := s.flows[session.Flow]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFlow, session.Flow)
	}

	if err := s.controllerFor(def, session).Complete(ctx); err != nil {
		return err
	}

	if err := s.sessions.Delete(ctx, id); err != nil {
		util.Warn("Failed to delete completed flow session",
			util.String("session_id", id),
			util.ErrorField(err))
	}

	s.recorder.Record(ctx, &models.FlowEvent{
		EventType: models.EventFlowCompleted,
		Flow:      session.Flow,
		SessionID: session.ID,
		Step:      session.CurrentStep,
	})
	return nil
}
