package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gstech/itc-compliance/internal/domain"
	"github.com/gstech/itc-compliance/internal/graph"
)

// Per-hop supplier statuses in a validated ITC chain.
const (
	HopClear   = "CLEAR"
	HopAtRisk  = "AT_RISK"
	HopBlocked = "BLOCKED"
)

// ChainHop is the verdict for one supplier encountered while walking the
// chain upstream.
type ChainHop struct {
	Hop          int              `json:"hop"`
	GSTIN        string           `json:"gstin"`
	Name         string           `json:"name,omitempty"`
	Status       string           `json:"status"`
	RiskScore    float64          `json:"risk_score"`
	RiskLevel    domain.RiskLevel `json:"risk_level"`
	InvoiceCount int              `json:"invoice_count"`
	EligibleITC  float64          `json:"eligible_itc"`
	ITCAtRisk    float64          `json:"itc_at_risk"`
}

// ChainResult is the upstream supply-chain validation for one buyer.
type ChainResult struct {
	GSTIN          string           `json:"gstin"`
	MaxHops        int              `json:"max_hops"`
	SuppliersFound int              `json:"suppliers_found"`
	BlockedCount   int              `json:"blocked_count"`
	AtRiskCount    int              `json:"at_risk_count"`
	TotalEligible  float64          `json:"total_eligible_itc"`
	TotalAtRisk    float64          `json:"total_itc_at_risk"`
	AvgRiskScore   float64          `json:"avg_risk_score"`
	ChainRisk      domain.RiskLevel `json:"chain_risk"`
	Hops           []ChainHop       `json:"hops"`
}

// ChainValidator walks the supplier network upstream to find where claimed
// ITC actually breaks.
type ChainValidator struct {
	g      *graph.Graph
	logger *zap.Logger
}

// NewChainValidator binds a validator to a graph build.
func NewChainValidator(g *graph.Graph, logger *zap.Logger) *ChainValidator {
	return &ChainValidator{g: g, logger: logger}
}

// ValidateChain runs a breadth-first walk from the buyer through its
// suppliers, their suppliers, and so on up to maxHops. The buyer itself is
// assessed at hop 0, so its own supplies count toward the chain totals and a
// critical mismatch on them blocks the chain outright. The visited set is
// load-bearing: circular trading rings are exactly the structures this query
// exists to find, and without it the walk would never terminate on one.
func (v *ChainValidator) ValidateChain(gstin string, maxHops int) (*ChainResult, error) {
	start, ok := v.g.NodeByGSTIN(gstin)
	if !ok {
		return nil, fmt.Errorf("chain validation %s: %w", gstin, graph.ErrGSTINNotFound)
	}

	result := &ChainResult{GSTIN: gstin, MaxHops: maxHops, Hops: []ChainHop{}}

	type frame struct {
		node graph.NodeID
		hop  int
	}
	queue := []frame{{start, 0}}
	visited := map[graph.NodeID]bool{start: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		result.Hops = append(result.Hops, v.assessSupplier(cur.node, cur.hop))

		if cur.hop >= maxHops {
			continue
		}
		for _, supplier := range v.g.UpstreamSuppliers(cur.node) {
			if !visited[supplier] {
				visited[supplier] = true
				queue = append(queue, frame{supplier, cur.hop + 1})
			}
		}
	}

	scoreSum := 0.0
	for _, hop := range result.Hops {
		result.SuppliersFound++
		result.TotalEligible += hop.EligibleITC
		result.TotalAtRisk += hop.ITCAtRisk
		scoreSum += hop.RiskScore
		switch hop.Status {
		case HopBlocked:
			result.BlockedCount++
		case HopAtRisk:
			result.AtRiskCount++
		}
	}
	if result.SuppliersFound > 0 {
		result.AvgRiskScore = domain.Round1(scoreSum / float64(result.SuppliersFound))
	}
	result.TotalEligible = domain.Round2(result.TotalEligible)
	result.TotalAtRisk = domain.Round2(result.TotalAtRisk)
	result.ChainRisk = chainRiskLevel(result)

	v.logger.Debug("chain validated",
		zap.String("gstin", gstin),
		zap.Int("suppliers", result.SuppliersFound),
		zap.Int("blocked", result.BlockedCount),
		zap.String("chain_risk", string(result.ChainRisk)))

	return result, nil
}

func (v *ChainValidator) assessSupplier(id graph.NodeID, hop int) ChainHop {
	gstin := v.g.GSTINOf(id)
	h := ChainHop{Hop: hop, GSTIN: gstin, Status: HopClear}
	if tp, ok := v.g.Taxpayer(gstin); ok {
		h.Name = tp.Name
	}

	score := graph.DefaultRiskScore
	if s, ok := v.g.RiskScore(gstin); ok {
		score = s
	}
	h.RiskScore = score
	h.RiskLevel = domain.RiskLevelForScore(score)

	critical := false
	for _, inv := range v.g.SupplierInvoices(gstin) {
		h.InvoiceCount++
		itc := inv.ITCValue()
		mismatches := v.g.MismatchesForInvoice(inv.InvoiceID)
		if len(mismatches) == 0 {
			h.EligibleITC += itc
			continue
		}
		for _, m := range mismatches {
			h.ITCAtRisk += m.AmountAtRisk
			if m.RiskLevel == domain.RiskCritical {
				critical = true
			}
		}
	}
	h.EligibleITC = domain.Round2(h.EligibleITC)
	h.ITCAtRisk = domain.Round2(h.ITCAtRisk)

	switch {
	case critical:
		h.Status = HopBlocked
	case h.ITCAtRisk > 0:
		h.Status = HopAtRisk
	}
	return h
}

// chainRiskLevel rolls the per-hop verdicts into a chain-wide level.
func chainRiskLevel(r *ChainResult) domain.RiskLevel {
	switch {
	case r.AvgRiskScore >= 70 || r.BlockedCount > 0:
		return domain.RiskCritical
	case r.AvgRiskScore >= 50 || r.TotalAtRisk > 0:
		return domain.RiskHigh
	case r.AvgRiskScore >= 30:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}
