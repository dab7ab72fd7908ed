package models

import "time"

// StoreAudit is an analysed-store report indexed by normalized store URL.
type StoreAudit struct {
	StoreURL   string           `json:"store_url"`
	Scores     map[string]int   `json:"scores"`
	Overall    int              `json:"overall"`
	ResultJSON string           `json:"result_json,omitempty"`
	AnalysedAt time.Time        `json:"analysed_at"`
}

// AnalysedStore is the fire-and-forget record submitted when a visitor runs
// the store analyser.
type AnalysedStore struct {
	StoreURL   string    `json:"store_url"`
	ResultJSON string    `json:"result_json"`
	RecordedAt time.Time `json:"recorded_at"`
}
