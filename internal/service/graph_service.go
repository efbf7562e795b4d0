package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/gstech/itc-compliance/internal/crypto"
	"github.com/gstech/itc-compliance/internal/domain"
	"github.com/gstech/itc-compliance/internal/engine"
	"github.com/gstech/itc-compliance/internal/graph"
)

// SnapshotRepository loads a full entity snapshot from wherever the
// deployment keeps it.
type SnapshotRepository interface {
	Load(ctx context.Context) (*domain.Snapshot, error)
}

// AuditIndexer ships signed query-audit records to the search index.
type AuditIndexer interface {
	IndexAudit(ctx context.Context, audit *domain.QueryAudit) error
}

// AuditSearcher answers audit-trail queries over the search index. The
// Elasticsearch repository implements it alongside AuditIndexer.
type AuditSearcher interface {
	SearchAudits(ctx context.Context, query string, from, size int) ([]domain.QueryAudit, int64, error)
}

// ErrAuditIndexDisabled is returned by SearchAudits when no audit index is
// configured.
var ErrAuditIndexDisabled = errors.New("audit index disabled")

// graphState bundles one graph build with its engines and lazily-computed
// caches. The whole bundle is swapped atomically on rebuild, so a reader
// always sees engines and caches that belong to the same build.
type graphState struct {
	snapshot   *domain.Snapshot
	graph      *graph.Graph
	reconciler *engine.Reconciler
	chains     *engine.ChainValidator
	clusters   *engine.ClusterDetector
	predictor  *engine.Predictor

	clusterOnce   sync.Once
	clusterReport *engine.ClusterReport

	predictOnce sync.Once
	predictions []*engine.RiskPrediction
}

// GraphService owns the current graph build and serves every query against
// it. Rebuilds load a fresh snapshot, construct a new state off to the side,
// and swap it in; in-flight queries keep reading the old build.
type GraphService struct {
	state atomic.Pointer[graphState]

	repo    SnapshotRepository
	indexer AuditIndexer
	signer  *crypto.Signer
	builder *graph.Builder
	cfg     engine.Config
	logger  *zap.Logger

	rebuildMu sync.Mutex
}

// NewGraphService wires the service. indexer may be nil when the audit index
// is disabled.
func NewGraphService(repo SnapshotRepository, indexer AuditIndexer, signer *crypto.Signer, cfg engine.Config, logger *zap.Logger) *GraphService {
	return &GraphService{
		repo:    repo,
		indexer: indexer,
		signer:  signer,
		builder: graph.NewBuilder(logger),
		cfg:     cfg,
		logger:  logger,
	}
}

// Rebuild loads a fresh snapshot, builds a new graph, and swaps it in. Only
// one rebuild runs at a time; concurrent callers queue behind the mutex.
func (s *GraphService) Rebuild(ctx context.Context) error {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	start := time.Now()
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	if issues := snap.Validate(); len(issues) > 0 {
		for _, issue := range issues {
			s.logger.Warn("snapshot record failed validation",
				zap.String("collection", issue.Collection),
				zap.String("record", issue.RecordID),
				zap.String("detail", issue.Detail))
		}
	}

	g := s.builder.Build(snap)
	st := &graphState{
		snapshot:   snap,
		graph:      g,
		reconciler: engine.NewReconciler(g, s.cfg, s.logger),
		chains:     engine.NewChainValidator(g, s.logger),
		clusters:   engine.NewClusterDetector(g, s.logger),
		predictor:  engine.NewPredictor(g, s.logger),
	}
	s.state.Store(st)

	s.logger.Info("graph state swapped",
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
		zap.Duration("took", time.Since(start)))

	s.emitAudit(domain.QueryRebuild, "", "", start, nil,
		fmt.Sprintf("nodes=%d edges=%d warnings=%d", g.NodeCount(), g.EdgeCount(), len(g.Warnings())))
	return nil
}

func (s *GraphService) current() *graphState {
	return s.state.Load()
}

// today returns the reference date for payment aging.
func today() domain.Date {
	now := time.Now().UTC()
	return domain.NewDate(now.Year(), now.Month(), now.Day())
}

// ReconcilePeriod reconciles a buyer's purchases for one return period.
func (s *GraphService) ReconcilePeriod(gstin, period string, asOf domain.Date) (*engine.ReconcileResult, error) {
	st := s.current()
	start := time.Now()
	if asOf.IsZero() {
		asOf = today()
	}
	res, err := st.reconciler.ReconcilePeriod(gstin, period, asOf)
	s.emitAudit(domain.QueryReconcile, gstin, period, start, err, summarizeReconcile(res))
	return res, err
}

// CheckPaymentCompliance ages a buyer's invoices against the 180-day window.
func (s *GraphService) CheckPaymentCompliance(gstin string, asOf domain.Date) (*engine.PaymentComplianceResult, error) {
	st := s.current()
	start := time.Now()
	if asOf.IsZero() {
		asOf = today()
	}
	res, err := st.reconciler.CheckPaymentCompliance(gstin, asOf)
	var summary string
	if res != nil {
		summary = fmt.Sprintf("invoices=%d overdue=%d exposure=%.2f",
			res.TotalInvoices, res.OverdueCount, res.TotalExposure)
	}
	s.emitAudit(domain.QueryPaymentCompliance, gstin, "", start, err, summary)
	return res, err
}

// ValidateChain walks a buyer's supplier network upstream.
func (s *GraphService) ValidateChain(gstin string, maxHops int) (*engine.ChainResult, error) {
	st := s.current()
	start := time.Now()
	if maxHops <= 0 {
		maxHops = s.cfg.DefaultMaxHops
	}
	res, err := st.chains.ValidateChain(gstin, maxHops)
	var summary string
	if res != nil {
		summary = fmt.Sprintf("suppliers=%d blocked=%d chain_risk=%s",
			res.SuppliersFound, res.BlockedCount, res.ChainRisk)
	}
	s.emitAudit(domain.QueryChainValidation, gstin, "", start, err, summary)
	return res, err
}

// RiskClusters returns the clustered trading network, computed once per
// build.
func (s *GraphService) RiskClusters() *engine.ClusterReport {
	st := s.current()
	start := time.Now()
	st.clusterOnce.Do(func() {
		st.clusterReport = st.clusters.FindRiskClusters()
	})
	s.emitAudit(domain.QueryRiskClusters, "", "", start, nil,
		fmt.Sprintf("clusters=%d", st.clusterReport.TotalClusters))
	return st.clusterReport
}

// Predict scores one vendor's forward-looking risk.
func (s *GraphService) Predict(gstin string) (*engine.RiskPrediction, error) {
	st := s.current()
	start := time.Now()
	res, err := st.predictor.Predict(gstin)
	var summary string
	if res != nil {
		summary = fmt.Sprintf("predicted=%.1f category=%s", res.PredictedScore, res.RiskCategory)
	}
	s.emitAudit(domain.QueryPredict, gstin, "", start, err, summary)
	return res, err
}

// PredictAll scores every profiled vendor, computed once per build.
func (s *GraphService) PredictAll() []*engine.RiskPrediction {
	st := s.current()
	start := time.Now()
	st.predictOnce.Do(func() {
		st.predictions = st.predictor.PredictAll()
	})
	s.emitAudit(domain.QueryPredictAll, "", "", start, nil,
		fmt.Sprintf("vendors=%d", len(st.predictions)))
	return st.predictions
}

// Features extracts the prediction feature vector for one vendor.
func (s *GraphService) Features(gstin string) (*engine.RiskFeatures, error) {
	return s.current().predictor.ComputeFeatures(gstin)
}

// VendorProfiles returns the top-n vendor risk profiles, worst first. n<=0
// means all.
func (s *GraphService) VendorProfiles(n int) []*domain.VendorRiskProfile {
	profiles := s.current().graph.Profiles()
	if n > 0 && n < len(profiles) {
		profiles = profiles[:n]
	}
	return profiles
}

// Stats summarizes the current graph build.
func (s *GraphService) Stats() graph.Stats {
	st := s.current()
	start := time.Now()
	stats := st.graph.Stats()
	s.emitAudit(domain.QueryGraphStats, "", "", start, nil,
		fmt.Sprintf("nodes=%d edges=%d", stats.NodeCount, stats.EdgeCount))
	return stats
}

// Warnings returns the integrity warnings of the current build.
func (s *GraphService) Warnings() []graph.IntegrityWarning {
	return s.current().graph.Warnings()
}

// BuiltAt returns the construction time of the current build.
func (s *GraphService) BuiltAt() time.Time {
	return s.current().graph.BuiltAt()
}

// SearchAudits queries the audit trail, verifying the HMAC signature of every
// record on the way out. A record that fails verification poisons the whole
// page: the trail cannot be trusted if any part of it was tampered with.
func (s *GraphService) SearchAudits(ctx context.Context, query string, from, size int) ([]domain.QueryAudit, int64, error) {
	searcher, ok := s.indexer.(AuditSearcher)
	if !ok {
		return nil, 0, ErrAuditIndexDisabled
	}

	audits, total, err := searcher.SearchAudits(ctx, query, from, size)
	if err != nil {
		return nil, 0, err
	}

	for _, audit := range audits {
		valid := s.signer.VerifyAuditRecord(
			audit.AuditID.String(), string(audit.QueryType), audit.GSTIN,
			audit.Timestamp.Format(time.RFC3339Nano), string(audit.Result),
			audit.Signature)
		if !valid {
			s.logger.Error("audit signature verification failed",
				zap.String("audit_id", audit.AuditID.String()))
			return nil, 0, fmt.Errorf("audit integrity failure: record %s signature invalid", audit.AuditID)
		}
	}
	return audits, total, nil
}

func summarizeReconcile(res *engine.ReconcileResult) string {
	if res == nil {
		return ""
	}
	return fmt.Sprintf("status=%s invoices=%d match_rate=%.1f at_risk=%.2f",
		res.Status, res.TotalInvoices, res.MatchRate, res.TotalITCAtRisk)
}

// emitAudit signs and ships a query-audit record without blocking the query
// path. Indexing failures are logged and dropped.
func (s *GraphService) emitAudit(queryType domain.QueryType, gstin, period string, start time.Time, queryErr error, summary string) {
	if s.indexer == nil {
		return
	}

	audit := domain.NewQueryAudit(queryType, gstin)
	audit.Period = period
	audit.DurationMS = time.Since(start).Milliseconds()
	audit.Summary = summary
	if st := s.current(); st != nil {
		audit.GraphBuild = st.graph.BuiltAt()
	}
	switch {
	case queryErr == nil:
		audit.Result = domain.QueryResultSuccess
	case errors.Is(queryErr, graph.ErrGSTINNotFound):
		audit.Result = domain.QueryResultNotFound
	default:
		audit.Result = domain.QueryResultFailure
	}
	audit.Signature = s.signer.SignAuditRecord(
		audit.AuditID.String(), string(audit.QueryType), audit.GSTIN,
		audit.Timestamp.Format(time.RFC3339Nano), string(audit.Result))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic in async audit index", zap.Any("panic", r))
			}
		}()

		// Use a detached context for async operations
		asyncCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.indexer.IndexAudit(asyncCtx, audit); err != nil {
			s.logger.Error("Failed to index query audit",
				zap.String("audit_id", audit.AuditID.String()),
				zap.Error(err),
			)
		}
	}()
}
