package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboarding-service/internal/config"
	"onboarding-service/internal/models"
)

func testRecorder(batchSize int) *Recorder {
	cfg := &config.Config{
		Clickhouse: config.ClickhouseConfig{
			FlushEvery: time.Hour,
			BatchSize:  batchSize,
		},
	}
	// Both sinks nil: events buffer, drain on flush, and are discarded.
	return NewRecorder(cfg, nil, nil)
}

func (r *Recorder) pendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func TestRecordBuffersUntilFlush(t *testing.T) {
	r := testRecorder(100)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		r.Record(ctx, &models.FlowEvent{EventType: models.EventStepAdvanced, SessionID: "s-1", Step: i + 1})
	}
	assert.Equal(t, 5, r.pendingCount())

	r.Stop()
	assert.Equal(t, 0, r.pendingCount())
}

func TestRecordStampsOccurredAt(t *testing.T) {
	r := testRecorder(100)
	event := &models.FlowEvent{EventType: models.EventFlowStarted, SessionID: "s-1"}

	r.Record(context.Background(), event)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestRecordOverflowDrainsOffTheRequestPath(t *testing.T) {
	r := testRecorder(3)
	r.Start()
	defer r.Stop()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		r.Record(ctx, &models.FlowEvent{EventType: models.EventStepAdvanced, SessionID: "s-1", Step: i + 1})
	}

	// The flush interval is an hour: only the overflow handoff to the
	// flusher goroutine can empty the buffer this quickly.
	require.Eventually(t, func() bool {
		return r.pendingCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
