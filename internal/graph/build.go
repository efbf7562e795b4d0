package graph

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/gstech/itc-compliance/internal/domain"
)

// IntegrityWarning records a reference the builder could not resolve. The
// offending record is skipped, never guessed at.
type IntegrityWarning struct {
	Collection string `json:"collection"`
	RecordID   string `json:"record_id"`
	Field      string `json:"field"`
	Value      string `json:"value"`
	Detail     string `json:"detail"`
}

// Builder constructs an immutable Graph from an entity snapshot.
type Builder struct {
	logger *zap.Logger
}

// NewBuilder creates a graph builder.
func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{logger: logger}
}

// Build runs the full ingestion: taxpayers first, then invoices with their
// IRN and party aggregates, then returns, mismatches and payments. Records
// referencing unknown parties or invoices are skipped and reported as
// integrity warnings.
func (b *Builder) Build(snap *domain.Snapshot) *Graph {
	start := time.Now()

	g := &Graph{
		snap:                snap,
		aggIndex:            make(map[[2]NodeID]int32),
		aggBySupplier:       make(map[NodeID][]int32),
		aggByBuyer:          make(map[NodeID][]int32),
		gstinNode:           make(map[string]NodeID, len(snap.Taxpayers)),
		taxpayerByGSTIN:     make(map[string]*domain.Taxpayer, len(snap.Taxpayers)),
		invoiceByID:         make(map[string]*domain.Invoice, len(snap.Invoices)),
		mismatchByID:        make(map[string]*domain.Mismatch, len(snap.Mismatches)),
		invoicesByBuyer:     make(map[partyPeriod][]*domain.Invoice),
		invoicesBySupplier:  make(map[partyPeriod][]*domain.Invoice),
		buyerInvoices:       make(map[string][]*domain.Invoice),
		supplierInvoices:    make(map[string][]*domain.Invoice),
		mismatchesByInvoice: make(map[string][]*domain.Mismatch),
		paymentByInvoice:    make(map[string]*domain.Payment),
		profiles:            make(map[string]*domain.VendorRiskProfile, len(snap.Taxpayers)),
	}

	b.addTaxpayers(g)
	invoiceNodes := b.addInvoices(g)
	b.addReturns(g)
	b.addMismatches(g, invoiceNodes)
	b.addPayments(g, invoiceNodes)
	b.computeVendorProfiles(g)

	g.builtAt = time.Now()

	b.logger.Info("graph built",
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
		zap.Int("taxpayers", len(snap.Taxpayers)),
		zap.Int("invoices", len(snap.Invoices)),
		zap.Int("warnings", len(g.warnings)),
		zap.Duration("took", time.Since(start)))

	return g
}

func (g *Graph) addNode(typ NodeType, ref int32) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, node{typ: typ, ref: ref})
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return id
}

func (g *Graph) addEdge(from, to NodeID, typ EdgeType, attr int32) {
	g.out[from] = append(g.out[from], Edge{Type: typ, To: to, Attr: attr})
	g.in[to] = append(g.in[to], Edge{Type: typ, To: from, Attr: attr})
}

func (b *Builder) addTaxpayers(g *Graph) {
	for i := range g.snap.Taxpayers {
		tp := &g.snap.Taxpayers[i]
		tpNode := g.addNode(NodeTaxpayer, int32(i))
		gstinNode := g.addNode(NodeGSTIN, int32(i))
		g.addEdge(tpNode, gstinNode, EdgeRegisteredAs, -1)
		g.gstinNode[tp.GSTIN] = gstinNode
		g.taxpayerByGSTIN[tp.GSTIN] = tp
	}
}

func (b *Builder) warn(g *Graph, collection, recordID, field, value, detail string) {
	g.warnings = append(g.warnings, IntegrityWarning{
		Collection: collection,
		RecordID:   recordID,
		Field:      field,
		Value:      value,
		Detail:     detail,
	})
	b.logger.Warn("skipping record with unresolved reference",
		zap.String("collection", collection),
		zap.String("record", recordID),
		zap.String("field", field),
		zap.String("value", value))
}

func (b *Builder) addInvoices(g *Graph) map[string]NodeID {
	nodes := make(map[string]NodeID, len(g.snap.Invoices))
	for i := range g.snap.Invoices {
		inv := &g.snap.Invoices[i]
		supplier, ok := g.gstinNode[inv.SupplierGSTIN]
		if !ok {
			b.warn(g, "invoices", inv.InvoiceID, "supplier_gstin", inv.SupplierGSTIN, "supplier not registered")
			continue
		}
		buyer, ok := g.gstinNode[inv.BuyerGSTIN]
		if !ok {
			b.warn(g, "invoices", inv.InvoiceID, "buyer_gstin", inv.BuyerGSTIN, "buyer not registered")
			continue
		}

		invNode := g.addNode(NodeInvoice, int32(i))
		g.addEdge(supplier, invNode, EdgeSupplierOf, -1)
		g.addEdge(invNode, buyer, EdgeRecipientOf, -1)
		// Cancelled e-invoices never register a validated IRN node.
		if inv.HasActiveIRN() {
			irnNode := g.addNode(NodeIRN, int32(i))
			g.addEdge(invNode, irnNode, EdgeHasIRN, -1)
		}

		g.upsertAggregate(supplier, buyer, inv)

		nodes[inv.InvoiceID] = invNode
		g.invoiceByID[inv.InvoiceID] = inv
		bp := partyPeriod{inv.BuyerGSTIN, inv.ReturnPeriod}
		sp := partyPeriod{inv.SupplierGSTIN, inv.ReturnPeriod}
		g.invoicesByBuyer[bp] = append(g.invoicesByBuyer[bp], inv)
		g.invoicesBySupplier[sp] = append(g.invoicesBySupplier[sp], inv)
		g.buyerInvoices[inv.BuyerGSTIN] = append(g.buyerInvoices[inv.BuyerGSTIN], inv)
		g.supplierInvoices[inv.SupplierGSTIN] = append(g.supplierInvoices[inv.SupplierGSTIN], inv)
	}
	return nodes
}

func (g *Graph) upsertAggregate(supplier, buyer NodeID, inv *domain.Invoice) {
	key := [2]NodeID{supplier, buyer}
	if i, ok := g.aggIndex[key]; ok {
		agg := &g.aggEdges[i]
		agg.TransactionCount++
		agg.TotalValue += inv.TotalValue
		return
	}
	i := int32(len(g.aggEdges))
	g.aggEdges = append(g.aggEdges, AggregateEdge{
		Supplier:         supplier,
		Buyer:            buyer,
		SupplierGSTIN:    inv.SupplierGSTIN,
		BuyerGSTIN:       inv.BuyerGSTIN,
		TransactionCount: 1,
		TotalValue:       inv.TotalValue,
	})
	g.aggIndex[key] = i
	g.aggBySupplier[supplier] = append(g.aggBySupplier[supplier], i)
	g.aggByBuyer[buyer] = append(g.aggByBuyer[buyer], i)
}

func (b *Builder) addReturns(g *Graph) {
	for i := range g.snap.Returns {
		ret := &g.snap.Returns[i]
		gstinNode, ok := g.gstinNode[ret.GSTIN]
		if !ok {
			b.warn(g, "returns", ret.ReturnID, "gstin", ret.GSTIN, "filer not registered")
			continue
		}
		retNode := g.addNode(NodeReturn, int32(i))
		g.addEdge(gstinNode, retNode, EdgeFiledReturn, -1)
	}
}

func (b *Builder) addMismatches(g *Graph, invoiceNodes map[string]NodeID) {
	for i := range g.snap.Mismatches {
		m := &g.snap.Mismatches[i]
		invNode, ok := invoiceNodes[m.InvoiceID]
		if !ok {
			b.warn(g, "mismatches", m.MismatchID, "invoice_id", m.InvoiceID, "invoice not in graph")
			continue
		}
		mNode := g.addNode(NodeMismatch, int32(i))
		g.addEdge(invNode, mNode, EdgeHasMismatch, -1)
		g.mismatchByID[m.MismatchID] = m
		g.mismatchesByInvoice[m.InvoiceID] = append(g.mismatchesByInvoice[m.InvoiceID], m)

		// A CRITICAL mismatch permanently flags the party pair behind the
		// invoice.
		if m.RiskLevel == domain.RiskCritical {
			inv := g.invoiceByID[m.InvoiceID]
			supplier := g.gstinNode[inv.SupplierGSTIN]
			buyer := g.gstinNode[inv.BuyerGSTIN]
			if idx, ok := g.aggIndex[[2]NodeID{supplier, buyer}]; ok {
				g.aggEdges[idx].RiskFlag = true
			}
		}
	}
}

func (b *Builder) addPayments(g *Graph, invoiceNodes map[string]NodeID) {
	for i := range g.snap.Payments {
		p := &g.snap.Payments[i]
		invNode, ok := invoiceNodes[p.InvoiceID]
		if !ok {
			b.warn(g, "payments", p.PaymentID, "invoice_id", p.InvoiceID, "invoice not in graph")
			continue
		}
		if prev, dup := g.paymentByInvoice[p.InvoiceID]; dup {
			b.warn(g, "payments", p.PaymentID, "invoice_id", p.InvoiceID,
				fmt.Sprintf("invoice already paid by %s", prev.PaymentID))
			continue
		}
		pNode := g.addNode(NodePayment, int32(i))
		attr := int32(len(g.paidByAttrs))
		g.paidByAttrs = append(g.paidByAttrs, PaidByAttrs{
			DaysFromInvoice: p.DaysFromInvoice,
			IsOverdue:       p.IsOverdue,
		})
		g.addEdge(invNode, pNode, EdgePaidBy, attr)
		g.paymentByInvoice[p.InvoiceID] = p
	}
}

// computeVendorProfiles scores every registered party from its filing record
// and the mismatches on invoices it supplied. Scores live for the lifetime
// of the graph.
func (b *Builder) computeVendorProfiles(g *Graph) {
	for i := range g.snap.Taxpayers {
		tp := &g.snap.Taxpayers[i]

		mismatchCount := 0
		criticalCount := 0
		totalAtRisk := 0.0
		breakdown := make(map[string]int)
		for _, inv := range g.supplierInvoices[tp.GSTIN] {
			for _, m := range g.mismatchesByInvoice[inv.InvoiceID] {
				mismatchCount++
				breakdown[string(m.Type)]++
				totalAtRisk += m.AmountAtRisk
				if m.RiskLevel == domain.RiskCritical {
					criticalCount++
				}
			}
		}

		baseRisk := 100 - tp.ComplianceScore
		mismatchPenalty := 3 * float64(mismatchCount)
		if mismatchPenalty > 30 {
			mismatchPenalty = 30
		}
		criticalPenalty := 10 * float64(criticalCount)
		filingBonus := 1.5 * float64(tp.FilingStreak)
		if filingBonus > 20 {
			filingBonus = 20
		}
		composite := baseRisk + mismatchPenalty + criticalPenalty - filingBonus
		if composite > 100 {
			composite = 100
		}
		if composite < 0 {
			composite = 0
		}
		composite = domain.Round1(composite)

		g.profiles[tp.GSTIN] = &domain.VendorRiskProfile{
			VendorID:           tp.TaxpayerID,
			GSTIN:              tp.GSTIN,
			Name:               tp.Name,
			State:              tp.State,
			Sector:             tp.Sector,
			FilingStreak:       tp.FilingStreak,
			ComplianceScore:    tp.ComplianceScore,
			BaseRisk:           domain.Round1(baseRisk),
			MismatchPenalty:    mismatchPenalty,
			CriticalPenalty:    criticalPenalty,
			FilingBonus:        filingBonus,
			CompositeRiskScore: composite,
			RiskCategory:       domain.RiskLevelForScore(composite),
			MismatchCount:      mismatchCount,
			TotalITCAtRisk:     domain.Round2(totalAtRisk),
			MismatchBreakdown:  breakdown,
		}
	}

	g.sortedProfiles = make([]*domain.VendorRiskProfile, 0, len(g.profiles))
	for _, p := range g.profiles {
		g.sortedProfiles = append(g.sortedProfiles, p)
	}
	sort.Slice(g.sortedProfiles, func(i, j int) bool {
		a, b := g.sortedProfiles[i], g.sortedProfiles[j]
		if a.CompositeRiskScore != b.CompositeRiskScore {
			return a.CompositeRiskScore > b.CompositeRiskScore
		}
		return a.GSTIN < b.GSTIN
	})
}
