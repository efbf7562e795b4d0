package graph

import (
	"errors"
	"time"

	"github.com/gstech/itc-compliance/internal/domain"
)

// ErrGSTINNotFound is returned by queries against a GSTIN that has no node in
// the graph. Callers branch on this with errors.Is; it is never a panic.
var ErrGSTINNotFound = errors.New("gstin not found in graph")

// DefaultRiskScore is the composite risk assumed for a party without a vendor
// risk profile. This is a policy constant of the scoring model, not an
// incidental default: chain averaging, clustering and prediction all depend
// on it.
const DefaultRiskScore = 50.0

// NodeID is a dense index into the graph's node arena. Nodes are referenced
// by stable integer index, never by pointer.
type NodeID int32

// NoNode marks an absent node reference.
const NoNode NodeID = -1

// NodeType tags the payload kind of a node.
type NodeType uint8

const (
	NodeTaxpayer NodeType = iota
	NodeGSTIN
	NodeInvoice
	NodeIRN
	NodeReturn
	NodeMismatch
	NodePayment
	nodeTypeCount
)

func (t NodeType) String() string {
	switch t {
	case NodeTaxpayer:
		return "Taxpayer"
	case NodeGSTIN:
		return "GSTIN"
	case NodeInvoice:
		return "Invoice"
	case NodeIRN:
		return "IRN"
	case NodeReturn:
		return "Return"
	case NodeMismatch:
		return "Mismatch"
	case NodePayment:
		return "Payment"
	default:
		return "Unknown"
	}
}

// EdgeType tags a relationship.
type EdgeType uint8

const (
	EdgeRegisteredAs EdgeType = iota // Taxpayer -> GSTIN
	EdgeSupplierOf                   // GSTIN -> Invoice
	EdgeRecipientOf                  // Invoice -> GSTIN
	EdgeHasIRN                       // Invoice -> IRN
	EdgeFiledReturn                  // GSTIN -> Return
	EdgeHasMismatch                  // Invoice -> Mismatch
	EdgePaidBy                       // Invoice -> Payment
	edgeTypeCount
)

func (t EdgeType) String() string {
	switch t {
	case EdgeRegisteredAs:
		return "REGISTERED_AS"
	case EdgeSupplierOf:
		return "SUPPLIER_OF"
	case EdgeRecipientOf:
		return "RECIPIENT_OF"
	case EdgeHasIRN:
		return "HAS_IRN"
	case EdgeFiledReturn:
		return "FILED_RETURN"
	case EdgeHasMismatch:
		return "HAS_MISMATCH"
	case EdgePaidBy:
		return "PAID_BY"
	default:
		return "Unknown"
	}
}

// Edge is one directed half-edge in the adjacency lists. Attr indexes the
// per-type attribute arena (PAID_BY edges carry payment aging attributes);
// it is -1 for edge types without attributes.
type Edge struct {
	Type EdgeType
	To   NodeID
	Attr int32
}

// PaidByAttrs are the attributes stored on a PAID_BY edge.
type PaidByAttrs struct {
	DaysFromInvoice int
	IsOverdue       bool
}

// AggregateEdge is the party-to-party TRANSACTS_WITH projection: one edge per
// (supplier, buyer) pair accumulating every invoice between them. RiskFlag
// goes true the moment any linked CRITICAL mismatch is seen and never
// reverts.
type AggregateEdge struct {
	Supplier         NodeID  `json:"-"`
	Buyer            NodeID  `json:"-"`
	SupplierGSTIN    string  `json:"supplier_gstin"`
	BuyerGSTIN       string  `json:"buyer_gstin"`
	TransactionCount int     `json:"transaction_count"`
	TotalValue       float64 `json:"total_value"`
	RiskFlag         bool    `json:"risk_flag"`
}

type node struct {
	typ NodeType
	ref int32 // index into the snapshot slice for the payload type
}

type partyPeriod struct {
	gstin  string
	period string
}

// Graph is the immutable GST knowledge graph built from one entity snapshot.
// All mutation happens inside Build; afterwards any number of readers may
// query it concurrently.
type Graph struct {
	snap  *domain.Snapshot
	nodes []node
	out   [][]Edge
	in    [][]Edge

	paidByAttrs []PaidByAttrs

	aggEdges      []AggregateEdge
	aggIndex      map[[2]NodeID]int32
	aggBySupplier map[NodeID][]int32
	aggByBuyer    map[NodeID][]int32

	// O(1) lookup indexes built in the same ingestion pass.
	gstinNode           map[string]NodeID
	taxpayerByGSTIN     map[string]*domain.Taxpayer
	invoiceByID         map[string]*domain.Invoice
	mismatchByID        map[string]*domain.Mismatch
	invoicesByBuyer     map[partyPeriod][]*domain.Invoice
	invoicesBySupplier  map[partyPeriod][]*domain.Invoice
	buyerInvoices       map[string][]*domain.Invoice
	supplierInvoices    map[string][]*domain.Invoice
	mismatchesByInvoice map[string][]*domain.Mismatch
	paymentByInvoice    map[string]*domain.Payment

	profiles       map[string]*domain.VendorRiskProfile
	sortedProfiles []*domain.VendorRiskProfile

	warnings []IntegrityWarning
	builtAt  time.Time
}

// NodeCount returns the number of nodes in the arena.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of directed edges, aggregate edges included.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, edges := range g.out {
		n += len(edges)
	}
	return n + len(g.aggEdges)
}

// NodeByGSTIN resolves a GSTIN to its node.
func (g *Graph) NodeByGSTIN(gstin string) (NodeID, bool) {
	id, ok := g.gstinNode[gstin]
	return id, ok
}

// HasGSTIN reports whether the GSTIN has a node in the graph.
func (g *Graph) HasGSTIN(gstin string) bool {
	_, ok := g.gstinNode[gstin]
	return ok
}

// Type returns the node's type tag.
func (g *Graph) Type(id NodeID) NodeType { return g.nodes[id].typ }

// Out returns the outgoing half-edges of a node.
func (g *Graph) Out(id NodeID) []Edge { return g.out[id] }

// In returns the incoming half-edges of a node.
func (g *Graph) In(id NodeID) []Edge { return g.in[id] }

// InDegree is the number of incoming edges (aggregate edges included).
func (g *Graph) InDegree(id NodeID) int {
	return len(g.in[id]) + len(g.aggByBuyer[id])
}

// OutDegree is the number of outgoing edges (aggregate edges included).
func (g *Graph) OutDegree(id NodeID) int {
	return len(g.out[id]) + len(g.aggBySupplier[id])
}

// PaidBy returns the attributes of a PAID_BY edge.
func (g *Graph) PaidBy(e Edge) (PaidByAttrs, bool) {
	if e.Type != EdgePaidBy || e.Attr < 0 {
		return PaidByAttrs{}, false
	}
	return g.paidByAttrs[e.Attr], true
}

// GSTINOf returns the GSTIN string for a GSTIN node.
func (g *Graph) GSTINOf(id NodeID) string {
	if g.nodes[id].typ != NodeGSTIN {
		return ""
	}
	return g.snap.Taxpayers[g.nodes[id].ref].GSTIN
}

// TaxpayerOf returns the taxpayer behind a Taxpayer or GSTIN node.
func (g *Graph) TaxpayerOf(id NodeID) *domain.Taxpayer {
	n := g.nodes[id]
	if n.typ != NodeTaxpayer && n.typ != NodeGSTIN {
		return nil
	}
	return &g.snap.Taxpayers[n.ref]
}

// Taxpayer resolves a GSTIN to its taxpayer record.
func (g *Graph) Taxpayer(gstin string) (*domain.Taxpayer, bool) {
	tp, ok := g.taxpayerByGSTIN[gstin]
	return tp, ok
}

// Invoice resolves an invoice id.
func (g *Graph) Invoice(id string) (*domain.Invoice, bool) {
	inv, ok := g.invoiceByID[id]
	return inv, ok
}

// Mismatch resolves a mismatch id.
func (g *Graph) Mismatch(id string) (*domain.Mismatch, bool) {
	m, ok := g.mismatchByID[id]
	return m, ok
}

// InvoicesForBuyer returns the invoices destined to a buyer in one period.
func (g *Graph) InvoicesForBuyer(gstin, period string) []*domain.Invoice {
	return g.invoicesByBuyer[partyPeriod{gstin, period}]
}

// InvoicesForSupplier returns the invoices issued by a supplier in one period.
func (g *Graph) InvoicesForSupplier(gstin, period string) []*domain.Invoice {
	return g.invoicesBySupplier[partyPeriod{gstin, period}]
}

// BuyerInvoices returns every invoice where the GSTIN is the buyer.
func (g *Graph) BuyerInvoices(gstin string) []*domain.Invoice {
	return g.buyerInvoices[gstin]
}

// SupplierInvoices returns every invoice where the GSTIN is the supplier.
func (g *Graph) SupplierInvoices(gstin string) []*domain.Invoice {
	return g.supplierInvoices[gstin]
}

// MismatchesForInvoice returns the mismatches attached to an invoice.
func (g *Graph) MismatchesForInvoice(invoiceID string) []*domain.Mismatch {
	return g.mismatchesByInvoice[invoiceID]
}

// PaymentForInvoice returns the single payment attached to an invoice, if
// any.
func (g *Graph) PaymentForInvoice(invoiceID string) (*domain.Payment, bool) {
	p, ok := g.paymentByInvoice[invoiceID]
	return p, ok
}

// AggregateEdges returns all party-to-party transaction edges.
func (g *Graph) AggregateEdges() []AggregateEdge { return g.aggEdges }

// aggregateBetween returns the aggregate edge from supplier to buyer.
func (g *Graph) aggregateBetween(supplier, buyer NodeID) (*AggregateEdge, bool) {
	i, ok := g.aggIndex[[2]NodeID{supplier, buyer}]
	if !ok {
		return nil, false
	}
	return &g.aggEdges[i], true
}

// UpstreamSuppliers returns the GSTIN nodes that supply to the given node.
func (g *Graph) UpstreamSuppliers(id NodeID) []NodeID {
	idxs := g.aggByBuyer[id]
	out := make([]NodeID, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, g.aggEdges[i].Supplier)
	}
	return out
}

// DownstreamBuyers returns the GSTIN nodes the given node supplies to.
func (g *Graph) DownstreamBuyers(id NodeID) []NodeID {
	idxs := g.aggBySupplier[id]
	out := make([]NodeID, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, g.aggEdges[i].Buyer)
	}
	return out
}

// RiskScore returns the composite vendor risk score for a GSTIN. The second
// return is false when the party has no profile; callers substitute
// DefaultRiskScore.
func (g *Graph) RiskScore(gstin string) (float64, bool) {
	p, ok := g.profiles[gstin]
	if !ok {
		return 0, false
	}
	return p.CompositeRiskScore, true
}

// Profile returns the vendor risk profile for a GSTIN.
func (g *Graph) Profile(gstin string) (*domain.VendorRiskProfile, bool) {
	p, ok := g.profiles[gstin]
	return p, ok
}

// Profiles returns all vendor risk profiles sorted by composite score
// descending.
func (g *Graph) Profiles() []*domain.VendorRiskProfile { return g.sortedProfiles }

// Snapshot returns the entity snapshot this graph was built from.
func (g *Graph) Snapshot() *domain.Snapshot { return g.snap }

// Warnings returns the integrity warnings collected during construction
// (dangling references, duplicate payments). Construction never fails on
// these; the warnings make the data-quality gaps visible to the caller.
func (g *Graph) Warnings() []IntegrityWarning { return g.warnings }

// BuiltAt returns the construction timestamp.
func (g *Graph) BuiltAt() time.Time { return g.builtAt }
