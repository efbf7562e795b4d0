package engine

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/gstech/itc-compliance/internal/domain"
	"github.com/gstech/itc-compliance/internal/graph"
)

// Movement of a vendor's predicted risk relative to its current category.
const (
	MovementUp     = "UP"
	MovementDown   = "DOWN"
	MovementStable = "STABLE"
)

// RiskFeatures is the feature vector extracted from the graph neighborhood
// of one vendor.
type RiskFeatures struct {
	GSTIN              string  `json:"gstin"`
	InDegree           int     `json:"in_degree"`
	OutDegree          int     `json:"out_degree"`
	TransactionVolume  int     `json:"transaction_volume"`
	InvoiceCount       int     `json:"invoice_count"`
	MismatchCount      int     `json:"mismatch_count"`
	MismatchRatio      float64 `json:"mismatch_ratio"`
	HasCriticalHistory bool    `json:"has_critical_history"`
	AvgNeighborRisk    float64 `json:"avg_neighbor_risk"`
	NetworkRiskAmp     float64 `json:"network_risk_amplification"`
	FilingStreak       int     `json:"filing_streak"`
	FilingConsistency  float64 `json:"filing_consistency"`
}

// RiskPrediction is the forward-looking risk assessment of one vendor.
type RiskPrediction struct {
	GSTIN          string           `json:"gstin"`
	Name           string           `json:"name,omitempty"`
	CurrentScore   float64          `json:"current_risk_score"`
	PredictedScore float64          `json:"predicted_risk_score"`
	RiskCategory   domain.RiskLevel `json:"risk_category"`
	Movement       string           `json:"movement"`
	Confidence     string           `json:"confidence"`
	KeyFactors     []string         `json:"key_factors"`
	Recommendation string           `json:"recommendation"`
	Features       RiskFeatures     `json:"features"`
}

// Predictor scores vendors on the likelihood of future compliance failure,
// combining their own history with the risk of the network around them.
type Predictor struct {
	g      *graph.Graph
	logger *zap.Logger
}

// NewPredictor binds a predictor to a graph build.
func NewPredictor(g *graph.Graph, logger *zap.Logger) *Predictor {
	return &Predictor{g: g, logger: logger}
}

// ComputeFeatures extracts the feature vector for one vendor.
func (p *Predictor) ComputeFeatures(gstin string) (*RiskFeatures, error) {
	node, ok := p.g.NodeByGSTIN(gstin)
	if !ok {
		return nil, fmt.Errorf("features %s: %w", gstin, graph.ErrGSTINNotFound)
	}

	f := &RiskFeatures{
		GSTIN:     gstin,
		InDegree:  p.g.InDegree(node),
		OutDegree: p.g.OutDegree(node),
	}
	// Trading-partner connection count, not a monetary sum.
	f.TransactionVolume = f.InDegree + f.OutDegree

	invoices := p.g.SupplierInvoices(gstin)
	f.InvoiceCount = len(invoices)
	for _, inv := range invoices {
		for _, m := range p.g.MismatchesForInvoice(inv.InvoiceID) {
			f.MismatchCount++
			if m.RiskLevel == domain.RiskCritical {
				f.HasCriticalHistory = true
			}
		}
	}
	denom := f.InvoiceCount
	if denom < 1 {
		denom = 1
	}
	f.MismatchRatio = domain.Round3(float64(f.MismatchCount) / float64(denom))

	neighbors := make(map[graph.NodeID]bool)
	for _, n := range p.g.UpstreamSuppliers(node) {
		neighbors[n] = true
	}
	for _, n := range p.g.DownstreamBuyers(node) {
		neighbors[n] = true
	}
	if len(neighbors) == 0 {
		f.AvgNeighborRisk = graph.DefaultRiskScore
	} else {
		sum := 0.0
		for n := range neighbors {
			score := graph.DefaultRiskScore
			if s, ok := p.g.RiskScore(p.g.GSTINOf(n)); ok {
				score = s
			}
			sum += score
		}
		f.AvgNeighborRisk = domain.Round1(sum / float64(len(neighbors)))
	}
	f.NetworkRiskAmp = domain.Round1(f.AvgNeighborRisk * 0.3)

	if tp, ok := p.g.Taxpayer(gstin); ok {
		f.FilingStreak = tp.FilingStreak
	}
	f.FilingConsistency = domain.Round3(float64(f.FilingStreak) / 24)

	return f, nil
}

// Predict scores one vendor.
func (p *Predictor) Predict(gstin string) (*RiskPrediction, error) {
	f, err := p.ComputeFeatures(gstin)
	if err != nil {
		return nil, err
	}

	current := graph.DefaultRiskScore
	if s, ok := p.g.RiskScore(gstin); ok {
		current = s
	}

	rule := 0.0
	var factors []string
	switch {
	case f.MismatchRatio > 0.4:
		rule += 35
		factors = append(factors, fmt.Sprintf("high mismatch ratio (%.1f%% of supplied invoices disputed)", f.MismatchRatio*100))
	case f.MismatchRatio > 0.2:
		rule += 15
		factors = append(factors, fmt.Sprintf("elevated mismatch ratio (%.1f%%)", f.MismatchRatio*100))
	}
	if f.AvgNeighborRisk > 65 {
		rule += 20
		factors = append(factors, fmt.Sprintf("high-risk trading network (avg neighbor risk %.1f)", f.AvgNeighborRisk))
	}
	if f.FilingStreak < 3 {
		rule += 25
		factors = append(factors, fmt.Sprintf("poor filing consistency (streak %d months)", f.FilingStreak))
	}
	if f.MismatchCount > 5 {
		rule += 15
		factors = append(factors, fmt.Sprintf("%d historical mismatches", f.MismatchCount))
	}
	if f.HasCriticalHistory {
		rule += 20
		factors = append(factors, "critical mismatch on record")
	}
	if f.FilingStreak > 12 {
		rule -= 15
		factors = append(factors, fmt.Sprintf("strong filing streak (%d months)", f.FilingStreak))
	}

	predicted := rule + current*0.3 + f.NetworkRiskAmp
	if predicted > 100 {
		predicted = 100
	}
	if predicted < 0 {
		predicted = 0
	}
	predicted = domain.Round1(predicted)

	category := domain.RiskLevelForScore(predicted)
	confidence := "MEDIUM"
	if f.InvoiceCount > 10 {
		confidence = "HIGH"
	}

	pred := &RiskPrediction{
		GSTIN:          gstin,
		CurrentScore:   current,
		PredictedScore: predicted,
		RiskCategory:   category,
		Movement:       movement(current, predicted),
		Confidence:     confidence,
		KeyFactors:     factors,
		Recommendation: recommendationFor(category),
		Features:       *f,
	}
	if tp, ok := p.g.Taxpayer(gstin); ok {
		pred.Name = tp.Name
	}
	return pred, nil
}

// PredictAll scores every profiled vendor, worst first.
func (p *Predictor) PredictAll() []*RiskPrediction {
	profiles := p.g.Profiles()
	out := make([]*RiskPrediction, 0, len(profiles))
	for _, profile := range profiles {
		pred, err := p.Predict(profile.GSTIN)
		if err != nil {
			// Profiles come from the same build, so this is unreachable
			// unless the graph is corrupt.
			p.logger.Error("prediction failed for profiled vendor",
				zap.String("gstin", profile.GSTIN), zap.Error(err))
			continue
		}
		out = append(out, pred)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PredictedScore > out[j].PredictedScore
	})
	return out
}

// movement compares the predicted category with the current one.
func movement(current, predicted float64) string {
	cur := domain.RiskLevelForScore(current).Rank()
	pre := domain.RiskLevelForScore(predicted).Rank()
	switch {
	case pre > cur:
		return MovementUp
	case pre < cur:
		return MovementDown
	default:
		return MovementStable
	}
}

func recommendationFor(category domain.RiskLevel) string {
	switch category {
	case domain.RiskCritical:
		return "Suspend ITC claims against this vendor pending Rule 36(4) verification; escalate to jurisdictional officer."
	case domain.RiskHigh:
		return "Hold provisional ITC, demand GSTR-1 vs GSTR-3B proof of tax payment before the next claim."
	case domain.RiskMedium:
		return "Continue claims with monthly 2B reconciliation; flag any new mismatch immediately."
	default:
		return "Routine monitoring; vendor is filing consistently with a clean mismatch record."
	}
}
