package analytics

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"onboarding-service/internal/client"
	"onboarding-service/internal/config"
	"onboarding-service/internal/models"
	"onboarding-service/internal/poller"
	"onboarding-service/internal/util"
)

const insertEventsQuery = `
	INSERT INTO flow_events (event_type, flow, session_id, step, detail, occurred_at)
	VALUES (?, ?, ?, ?, ?, ?)`

// Recorder fans flow events out to Kafka immediately and batches them
// into ClickHouse on a timer. Both sinks are best effort: analytics
// failures never surface to the request that produced the event.
type Recorder struct {
	config   *config.Config
	producer *client.KafkaProducer
	ch       *client.ClickHouseClient

	mu      sync.Mutex
	pending []*models.FlowEvent

	flusher *poller.Poller
}

func NewRecorder(cfg *config.Config, producer *client.KafkaProducer, ch *client.ClickHouseClient) *Recorder {
	r := &Recorder{
		config:   cfg,
		producer: producer,
		ch:       ch,
	}
	r.flusher = poller.New(cfg.Clickhouse.FlushEvery, r.drain, r.flush)
	return r
}

// Start begins the periodic ClickHouse flush.
func (r *Recorder) Start() {
	r.flusher.Start()
}

// Stop flushes whatever is buffered and halts the flusher.
func (r *Recorder) Stop() {
	r.flusher.Stop()
	if batch, _ := r.drain(context.Background()); batch != nil {
		r.flush(batch)
	}
}

// Record emits one event. Kafka publish happens inline (the producer is
// async); the ClickHouse copy is buffered for the next flush.
func (r *Recorder) Record(ctx context.Context, event *models.FlowEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if r.producer != nil {
		raw, err := json.Marshal(event)
		if err == nil {
			if err := r.producer.ProduceMessage(ctx, r.config.Kafka.EventTopic, []byte(event.SessionID), raw); err != nil {
				util.Warn("Failed to publish flow event",
					util.String("event_type", event.EventType),
					util.ErrorField(err))
			}
		}
	}

	r.mu.Lock()
	r.pending = append(r.pending, event)
	overflow := len(r.pending) >= r.config.Clickhouse.BatchSize
	r.mu.Unlock()

	// The insert itself runs on the flusher goroutine; the request path
	// only signals that the batch is full.
	if overflow {
		r.flusher.Trigger()
	}
}

func (r *Recorder) drain(_ context.Context) (interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return nil, nil
	}
	batch := r.pending
	r.pending = nil
	return batch, nil
}

func (r *Recorder) flush(result interface{}) {
	batch, ok := result.([]*models.FlowEvent)
	if !ok || len(batch) == 0 || r.ch == nil {
		return
	}

	rows := make([][]interface{}, 0, len(batch))
	for _, event := range batch {
		rows = append(rows, []interface{}{
			event.EventType,
			event.Flow,
			event.SessionID,
			event.Step,
			event.Detail,
			event.OccurredAt,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.ch.BatchInsert(ctx, insertEventsQuery, rows); err != nil {
		util.Warn("Failed to flush flow events",
			util.Int("batch_size", len(rows)),
			util.ErrorField(err))
		return
	}
	util.Debug("Flushed flow events", util.Int("batch_size", len(rows)))
}
