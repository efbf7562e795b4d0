package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	elastic "github.com/elastic/go-elasticsearch/v8"

	"github.com/gstech/itc-compliance/internal/config"
	"github.com/gstech/itc-compliance/internal/domain"
)

// AuditRepository ships signed query-audit records to the search index and
// answers audit-trail queries over them.
type AuditRepository struct {
	client *elastic.Client
	index  string
}

// NewAuditRepository creates a new audit index repository
func NewAuditRepository(cfg config.ElasticsearchConfig) (*AuditRepository, error) {
	client, err := elastic.NewClient(elastic.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	// Verify connection
	if _, err = client.Info(); err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}

	return &AuditRepository{
		client: client,
		index:  cfg.Index,
	}, nil
}

// IndexAudit indexes one signed query-audit record.
func (r *AuditRepository) IndexAudit(ctx context.Context, audit *domain.QueryAudit) error {
	data, err := json.Marshal(audit)
	if err != nil {
		return fmt.Errorf("failed to marshal audit: %w", err)
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(data),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(audit.AuditID.String()),
	)
	if err != nil {
		return fmt.Errorf("failed to index audit: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}

	return nil
}

// SearchAudits returns the most recent audits matching a query-string query,
// newest first.
func (r *AuditRepository) SearchAudits(ctx context.Context, query string, from, size int) ([]domain.QueryAudit, int64, error) {
	esQuery := map[string]interface{}{
		"from": from,
		"size": size,
		"query": map[string]interface{}{
			"query_string": map[string]interface{}{
				"query": query,
			},
		},
		"sort": []map[string]interface{}{
			{"timestamp": "desc"},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, 0, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to perform search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, fmt.Errorf("elasticsearch search error: %s", res.String())
	}

	var result struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source domain.QueryAudit `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, 0, fmt.Errorf("failed to decode response: %w", err)
	}

	audits := make([]domain.QueryAudit, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		audits = append(audits, hit.Source)
	}
	return audits, result.Hits.Total.Value, nil
}
