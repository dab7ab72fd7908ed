package models

import "time"

// Flow event types emitted to the analytics pipeline.
const (
	EventFlowStarted   = "flow.started"
	EventStepAdvanced  = "flow.step_advanced"
	EventFlowCompleted = "flow.completed"
	EventOrderPlaced   = "order.placed"
	EventStoreAnalysed = "store.analysed"
)

// FlowEvent is a best-effort analytics record. Emission never blocks or
// fails the request that produced it.
type FlowEvent struct {
	EventType  string    `json:"event_type"`
	Flow       string    `json:"flow"`
	SessionID  string    `json:"session_id"`
	Step       int       `json:"step"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
