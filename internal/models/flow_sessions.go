package models

import "time"

// LocalSessionID is the sentinel id used when the session store is
// unreachable and the flow degrades to an in-memory, non-persisted session.
const LocalSessionID = "local"

// SkipSentinel is recorded into a field when an optional step is skipped.
const SkipSentinel = "skip"

// FlowSession represents one in-progress multi-step submission.
type FlowSession struct {
	ID          string            `json:"id"`
	Flow        string            `json:"flow"`
	CurrentStep int               `json:"current_step"`
	Fields      map[string]string `json:"fields"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewFlowSession returns a session positioned at step 1 with no fields.
func NewFlowSession(id, flow string) *FlowSession {
	now := time.Now().UTC()
	return &FlowSession{
		ID:          id,
		Flow:        flow,
		CurrentStep: 1,
		Fields:      make(map[string]string),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsLocal reports whether the session lives only in memory.
func (s *FlowSession) IsLocal() bool {
	return s.ID == LocalSessionID
}
