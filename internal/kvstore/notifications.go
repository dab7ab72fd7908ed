package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// maxNotifications caps the locally cached notification list.
const maxNotifications = 50

// Notification is one cached notification entry.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type notificationBlob struct {
	Entries  []Notification `json:"entries"`
	LastRead time.Time      `json:"last_read"`
}

// NotificationCache keeps a capped, JSON-serialized notification list with a
// last-read timestamp in one durable slot.
type NotificationCache struct {
	store Store
}

func NewNotificationCache(store Store) *NotificationCache {
	return &NotificationCache{store: store}
}

// Add prepends a notification, dropping the oldest entries beyond the cap.
func (c *NotificationCache) Add(ctx context.Context, n Notification) error {
	blob, err := c.load(ctx)
	if err != nil {
		return err
	}

	blob.Entries = append([]Notification{n}, blob.Entries...)
	if len(blob.Entries) > maxNotifications {
		blob.Entries = blob.Entries[:maxNotifications]
	}
	return c.save(ctx, blob)
}

// Replace swaps the whole list with a fresh server response.
func (c *NotificationCache) Replace(ctx context.Context, entries []Notification) error {
	blob, err := c.load(ctx)
	if err != nil {
		return err
	}

	if len(entries) > maxNotifications {
		entries = entries[:maxNotifications]
	}
	blob.Entries = entries
	return c.save(ctx, blob)
}

// List returns the cached entries and the last-read timestamp.
func (c *NotificationCache) List(ctx context.Context) ([]Notification, time.Time, error) {
	blob, err := c.load(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	return blob.Entries, blob.LastRead, nil
}

// MarkRead records now as the last-read timestamp.
func (c *NotificationCache) MarkRead(ctx context.Context) error {
	blob, err := c.load(ctx)
	if err != nil {
		return err
	}
	blob.LastRead = time.Now().UTC()
	return c.save(ctx, blob)
}

func (c *NotificationCache) load(ctx context.Context) (*notificationBlob, error) {
	raw, err := c.store.Get(ctx, KeyNotifications)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return &notificationBlob{}, nil
		}
		return nil, err
	}

	var blob notificationBlob
	if err := json.Unmarshal([]byte(raw), &blob); err != nil {
		// A corrupt cache is not worth failing over; start clean.
		return &notificationBlob{}, nil
	}
	return &blob, nil
}

func (c *NotificationCache) save(ctx context.Context, blob *notificationBlob) error {
	raw, err := json.Marshal(blob)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, KeyNotifications, string(raw))
}
