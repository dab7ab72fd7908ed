package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboarding-service/internal/analytics"
	"onboarding-service/internal/config"
	"onboarding-service/internal/flow"
	"onboarding-service/internal/kvstore"
)

func newTestOnboarding(t *testing.T) (*OnboardingService, *flow.MemorySessionStore, *kvstore.MemoryStore) {
	t.Helper()

	sessions := flow.NewMemorySessionStore()
	slot := kvstore.NewMemoryStore()
	recorder := analytics.NewRecorder(&config.Config{
		Clickhouse: config.ClickhouseConfig{FlushEvery: time.Hour, BatchSize: 100},
	}, nil, nil)

	return NewOnboardingService(sessions, slot, recorder), sessions, slot
}

func TestCreateSessionRejectsUnknownFlow(t *testing.T) {
	svc, _, _ := newTestOnboarding(t)

	_, err := svc.CreateSession(context.Background(), "mystery", "")
	assert.ErrorIs(t, err, ErrUnknownFlow)
}

func TestCreateSessionPersistsSessionSlot(t *testing.T) {
	svc, _, slot := newTestOnboarding(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, flow.FlowGetStarted, "")
	require.NoError(t, err)
	assert.Equal(t, 1, session.CurrentStep)

	stored, err := slot.Get(ctx, kvstore.KeySessionID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, stored)
}

func TestPatchSessionValidatesStepAdvance(t *testing.T) {
	svc, sessions, _ := newTestOnboarding(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, flow.FlowGetStarted, "")
	require.NoError(t, err)

	// No platform chosen: the advance must fail and the step must hold.
	_, err = svc.PatchSession(ctx, session.ID, nil, 2)
	var verr *flow.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "platform")

	stored, err := sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentStep)
}

func TestPatchSessionAdvancesValidatedStep(t *testing.T) {
	svc, sessions, _ := newTestOnboarding(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, flow.FlowGetStarted, "")
	require.NoError(t, err)

	patched, err := svc.PatchSession(ctx, session.ID, map[string]string{"platform": "shopify"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, patched.CurrentStep)

	stored, err := sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CurrentStep)
	assert.Equal(t, "shopify", stored.Fields["platform"])
}

func TestPatchSessionStepClampsAndFloors(t *testing.T) {
	svc, _, _ := newTestOnboarding(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, flow.FlowGetStarted, "")
	require.NoError(t, err)

	// A step request beyond the flow's length caps at the last step.
	patched, err := svc.PatchSession(ctx, session.ID, map[string]string{
		"platform":  "shopify",
		"store_url": "foo.myshopify.com",
		"email":     "user@example.com",
	}, 99)
	require.NoError(t, err)
	assert.Equal(t, 3, patched.CurrentStep)

	// Retreating floors at step one.
	patched, err = svc.PatchSession(ctx, session.ID, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, patched.CurrentStep)
}

func TestPatchSessionUnknownIDSurfacesNotFound(t *testing.T) {
	svc, _, _ := newTestOnboarding(t)

	_, err := svc.PatchSession(context.Background(), "missing", nil, 0)
	assert.ErrorIs(t, err, flow.ErrSessionNotFound)
}

func TestCreateSessionResumesFurthestStep(t *testing.T) {
	svc, _, _ := newTestOnboarding(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, flow.FlowGetStarted, "")
	require.NoError(t, err)

	_, err = svc.PatchSession(ctx, session.ID, map[string]string{"platform": "shopify"}, 0)
	require.NoError(t, err)

	resumed, err := svc.CreateSession(ctx, flow.FlowGetStarted, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, resumed.ID)
	assert.Equal(t, 2, resumed.CurrentStep)
}

func TestCreateSessionIgnoresResumeAcrossFlows(t *testing.T) {
	svc, _, _ := newTestOnboarding(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, flow.FlowAuth, "")
	require.NoError(t, err)

	resumed, err := svc.CreateSession(ctx, flow.FlowGetStarted, session.ID)
	require.NoError(t, err)
	assert.NotEqual(t, session.ID, resumed.ID)
	assert.Equal(t, flow.FlowGetStarted, resumed.Flow)
}

func TestCompleteSessionClearsSlotAndStore(t *testing.T) {
	svc, sessions, slot := newTestOnboarding(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, flow.FlowGetStarted, "")
	require.NoError(t, err)

	require.NoError(t, svc.CompleteSession(ctx, session.ID))

	_, err = slot.Get(ctx, kvstore.KeySessionID)
	assert.ErrorIs(t, err, kvstore.ErrKeyNotFound)

	_, err = sessions.Get(ctx, session.ID)
	assert.ErrorIs(t, err, flow.ErrSessionNotFound)
}
