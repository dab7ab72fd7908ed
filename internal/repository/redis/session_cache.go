package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"onboarding-service/internal/client"
	"onboarding-service/internal/flow"
	"onboarding-service/internal/models"
	"onboarding-service/internal/util"
)

const (
	sessionPrefix = "flow_session:"
	sessionTTL    = 7 * 24 * time.Hour
)

// SessionCache persists FlowSessions in Redis, JSON-serialized with a
// sliding TTL. It implements flow.SessionStore.
type SessionCache struct {
	client *client.RedisClient
}

func NewSessionCache(client *client.RedisClient) *SessionCache {
	return &SessionCache{client: client}
}

func (c *SessionCache) Create(ctx context.Context, flowName string) (*models.FlowSession, error) {
	session := models.NewFlowSession(uuid.New().String(), flowName)

	if err := c.put(ctx, session); err != nil {
		util.Error("Failed to create flow session",
			zap.String("flow", flowName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create flow session: %w", err)
	}

	util.Debug("Flow session created",
		zap.String("flow", flowName),
		zap.String("session_id", session.ID))

	return session, nil
}

func (c *SessionCache) Get(ctx context.Context, id string) (*models.FlowSession, error) {
	raw, err := c.client.Get(ctx, sessionPrefix+id)
	if err != nil {
		if strings.Contains(err.Error(), "key not found") {
			return nil, flow.ErrSessionNotFound
		}
		util.Error("Failed to get flow session",
			zap.String("session_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get flow session: %w", err)
	}

	var session models.FlowSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("corrupt flow session %s: %w", id, err)
	}
	if session.Fields == nil {
		session.Fields = make(map[string]string)
	}
	return &session, nil
}

func (c *SessionCache) Update(ctx context.Context, session *models.FlowSession) error {
	session.UpdatedAt = time.Now().UTC()

	if err := c.put(ctx, session); err != nil {
		util.Error("Failed to update flow session",
			zap.String("session_id", session.ID),
			zap.Error(err))
		return fmt.Errorf("failed to update flow session: %w", err)
	}
	return nil
}

// Delete removes a session record, e.g. on explicit abandonment.
func (c *SessionCache) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, sessionPrefix+id); err != nil {
		return fmt.Errorf("failed to delete flow session: %w", err)
	}
	util.Debug("Flow session deleted", zap.String("session_id", id))
	return nil
}

func (c *SessionCache) put(ctx context.Context, session *models.FlowSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sessionPrefix+session.ID, raw, sessionTTL)
}
