package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"onboarding-service/internal/client"
	"onboarding-service/internal/config"
	"onboarding-service/internal/models"
	"onboarding-service/internal/util"
)

var (
	ErrInvalidStoreURL = errors.New("invalid store url")
	ErrAuditNotFound   = errors.New("store audit not found")
)

const analysedSuffix = "-analysed"

// Service records analysed stores and serves their audit reports out of
// Elasticsearch. Documents are keyed by normalized store URL so repeat
// submissions overwrite rather than duplicate.
type Service struct {
	es     *client.ESClient
	config *config.Config
}

func NewService(es *client.ESClient, cfg *config.Config) *Service {
	return &Service{es: es, config: cfg}
}

// RecordAnalysedStore stores a visitor-submitted analysis and indexes a
// fresh audit report for the same URL.
func (s *Service) RecordAnalysedStore(ctx context.Context, storeURL, resultJSON string) (*models.StoreAudit, error) {
	if !util.IsValidStoreURL(storeURL) {
		return nil, ErrInvalidStoreURL
	}
	normalized := util.NormalizeStoreURL(storeURL)
	now := time.Now()

	analysed := models.AnalysedStore{
		StoreURL:   normalized,
		ResultJSON: resultJSON,
		RecordedAt: now,
	}
	if err := s.es.IndexDocument(ctx, s.config.Elasticsearch.AuditIndex+analysedSuffix, normalized, analysed); err != nil {
		return nil, fmt.Errorf("index analysed store: %w", err)
	}

	scores, overall := GenerateScores(normalized)
	report := &models.StoreAudit{
		StoreURL:   normalized,
		Scores:     scores,
		Overall:    overall,
		ResultJSON: resultJSON,
		AnalysedAt: now,
	}
	if err := s.es.IndexDocument(ctx, s.config.Elasticsearch.AuditIndex, normalized, report); err != nil {
		return nil, fmt.Errorf("index audit report: %w", err)
	}

	util.Info("Store audit recorded",
		util.String("store_url", normalized),
		util.Int("overall", overall))
	return report, nil
}

// GetAudit fetches the audit report for a store URL. A URL that has
// never been analysed yields ErrAuditNotFound.
func (s *Service) GetAudit(ctx context.Context, storeURL string) (*models.StoreAudit, error) {
	if !util.IsValidStoreURL(storeURL) {
		return nil, ErrInvalidStoreURL
	}
	normalized := util.NormalizeStoreURL(storeURL)

	var report models.StoreAudit
	found, err := s.es.GetDocument(ctx, s.config.Elasticsearch.AuditIndex, normalized, &report)
	if err != nil {
		return nil, fmt.Errorf("fetch audit report: %w", err)
	}
	if !found {
		return nil, ErrAuditNotFound
	}
	return &report, nil
}
