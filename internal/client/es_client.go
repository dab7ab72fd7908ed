package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"onboarding-service/internal/config"
	"onboarding-service/internal/util"
)

// ESClient stores and retrieves store-audit reports.
type ESClient struct {
	Client *elasticsearch.Client
	config *config.ElasticsearchConfig
	logger *zap.Logger
}

func NewElasticsearchClient(cfg *config.Config, logger *zap.Logger) (*ESClient, error) {
	esConfig := cfg.Elasticsearch

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.IsDevelopment(), // skip verify in dev only
		},
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esConfig.URL},
		Username:  esConfig.Username,
		Password:  esConfig.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	esClient := &ESClient{
		Client: client,
		config: &esConfig,
		logger: util.Get(),
	}

	if err := esClient.HealthCheck(); err != nil {
		return nil, fmt.Errorf("elasticsearch connection test failed: %w", err)
	}

	util.Info("Elasticsearch client initialized", zap.String("url", esConfig.URL))

	return esClient, nil
}

func (e *ESClient) Close() {
	util.Info("Elasticsearch client shutdown")
}

func (e *ESClient) HealthCheck() error {
	res, err := e.Client.Info()
	if err != nil {
		return fmt.Errorf("failed to get cluster info: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

// IndexDocument stores a document under the given id.
func (e *ESClient) IndexDocument(ctx context.Context, index, id string, document interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(document); err != nil {
		return fmt.Errorf("error encoding document: %w", err)
	}

	res, err := e.Client.Index(
		index,
		&buf,
		e.Client.Index.WithContext(ctx),
		e.Client.Index.WithDocumentID(id),
		e.Client.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("error indexing document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch index error: %s", res.Status())
	}
	return nil
}

// GetDocument fetches a document by id into target. Returns esapi-level 404
// as a nil response with found=false.
func (e *ESClient) GetDocument(ctx context.Context, index, id string, target interface{}) (bool, error) {
	res, err := e.Client.Get(
		index,
		id,
		e.Client.Get.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("error getting document: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.IsError() {
		return false, fmt.Errorf("elasticsearch get error: %s", res.Status())
	}

	var envelope struct {
		Source json.RawMessage `json:"_source"`
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return false, fmt.Errorf("error reading response body: %w", err)
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false, fmt.Errorf("error unmarshaling response: %w", err)
	}
	if err := json.Unmarshal(envelope.Source, target); err != nil {
		return false, fmt.Errorf("error unmarshaling document source: %w", err)
	}
	return true, nil
}

// Search executes a query against an index.
func (e *ESClient) Search(ctx context.Context, index string, query map[string]interface{}) (*esapi.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("error encoding query: %w", err)
	}

	res, err := e.Client.Search(
		e.Client.Search.WithContext(ctx),
		e.Client.Search.WithIndex(index),
		e.Client.Search.WithBody(&buf),
		e.Client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("error executing search: %w", err)
	}
	return res, nil
}
