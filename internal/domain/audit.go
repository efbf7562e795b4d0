package domain

import (
	"time"

	"github.com/google/uuid"
)

// QueryType identifies which engine query was served.
type QueryType string

const (
	QueryReconcile         QueryType = "RECONCILE"
	QueryPaymentCompliance QueryType = "PAYMENT_COMPLIANCE"
	QueryChainValidation   QueryType = "CHAIN_VALIDATION"
	QueryRiskClusters      QueryType = "RISK_CLUSTERS"
	QueryPredict           QueryType = "PREDICT"
	QueryPredictAll        QueryType = "PREDICT_ALL"
	QueryGraphStats        QueryType = "GRAPH_STATS"
	QueryRebuild           QueryType = "REBUILD"
)

// QueryResult is the outcome of a served query.
type QueryResult string

const (
	QueryResultSuccess  QueryResult = "SUCCESS"
	QueryResultNotFound QueryResult = "NOT_FOUND"
	QueryResultFailure  QueryResult = "FAILURE"
)

// QueryAudit is an immutable record of a single query served by the engine,
// HMAC-signed for non-repudiation and shipped to the search index.
type QueryAudit struct {
	AuditID    uuid.UUID   `json:"audit_id"`
	QueryType  QueryType   `json:"query_type"`
	GSTIN      string      `json:"gstin,omitempty"`
	Period     string      `json:"period,omitempty"`
	Result     QueryResult `json:"result"`
	DurationMS int64       `json:"duration_ms"`
	Summary    string      `json:"summary,omitempty"`
	GraphBuild time.Time   `json:"graph_build"`
	Timestamp  time.Time   `json:"timestamp"`
	Signature  string      `json:"signature"`
}

// NewQueryAudit creates an audit record with a fresh id and timestamp; the
// signature is applied by the service once the outcome fields are final.
func NewQueryAudit(queryType QueryType, gstin string) *QueryAudit {
	return &QueryAudit{
		AuditID:   uuid.New(),
		QueryType: queryType,
		GSTIN:     gstin,
		Timestamp: time.Now().UTC(),
	}
}
