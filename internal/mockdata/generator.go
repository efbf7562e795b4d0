// Package mockdata produces deterministic synthetic GST entity snapshots for
// demos and tests. The distributions mirror the shape of real GSTN feeds:
// mostly small invoices with a long tail of large ones, roughly a third of
// invoices disputed, and a B2B payment market where a fifth of invoices are
// settled past the statutory 180-day window.
package mockdata

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/gstech/itc-compliance/internal/crypto"
	"github.com/gstech/itc-compliance/internal/domain"
)

var (
	stateCodes = []string{"07", "27", "24", "33", "29", "09"}
	stateNames = map[string]string{
		"07": "Delhi", "27": "Maharashtra",
		"24": "Gujarat", "33": "Tamil Nadu",
		"29": "Karnataka", "09": "Uttar Pradesh",
	}

	sectors  = []string{"Manufacturing", "Trading", "Services", "Export", "E-commerce"}
	gstRates = []float64{0, 5, 12, 18, 28}

	companyPrefixes = []string{
		"Tata", "Reliance", "Infosys", "Wipro", "Bajaj", "Mahindra", "Larsen",
		"Asian", "Havells", "Dixon", "Sundaram", "Minda", "Amara", "Exide",
		"Subros", "Allied", "Pioneer", "Sterling", "Apex", "Global", "National",
		"Prime", "Star", "Royal", "Supreme", "United", "Continental", "Premier",
		"Indian", "Modern", "Classic", "Century", "Horizon", "Zenith", "Alpha",
		"Beta", "Gamma", "Delta", "Sigma", "Omega", "Nova", "Vega", "Atlas",
		"Titan", "Bharat", "Hindustan", "Eastern", "Western", "Northern",
	}
	companySuffixes = []string{
		"Industries Ltd", "Trading Co", "Pvt Ltd", "Exports Ltd",
		"Manufacturing", "Components Ltd", "Supplies", "Solutions",
	}

	paymentModes = []domain.PaymentMode{
		domain.PaymentNEFT, domain.PaymentRTGS, domain.PaymentCheque,
		domain.PaymentUPI, domain.PaymentIMPS,
	}
)

// e-invoice mandate and E-Way Bill thresholds on taxable value.
const (
	irnThreshold = 500_000
	ewbThreshold = 50_000
)

type mismatchSpec struct {
	typ        domain.MismatchType
	weight     float64
	riskLevel  domain.RiskLevel
	multiplier float64
	rootCause  string
}

var mismatchSpecs = []mismatchSpec{
	{domain.MismatchAmount, 0.30, domain.RiskHigh, 1.0,
		"Supplier filed GSTR-1A amendment post-GSTR-2B generation"},
	{domain.MismatchMissing2B, 0.22, domain.RiskHigh, 1.2,
		"Supplier did not file GSTR-1 for the return period"},
	{domain.MismatchExtra2B, 0.09, domain.RiskMedium, 0.5,
		"Duplicate invoice uploaded by supplier in GSTR-1"},
	{domain.MismatchGSTIN, 0.09, domain.RiskHigh, 1.3,
		"Incorrect GSTIN provided at point of purchase"},
	{domain.MismatchDate, 0.09, domain.RiskMedium, 0.8,
		"Invoice booked in Period T; reported in Period T+1"},
	{domain.MismatchIRN, 0.05, domain.RiskCritical, 1.5,
		"IRN cryptographic validation failed, possible tampering"},
	{domain.MismatchEWayBillMissing, 0.05, domain.RiskMedium, 0.6,
		"Consignment above Rs 50,000 without E-Way Bill"},
	{domain.MismatchPaymentOverdue, 0.11, domain.RiskCritical, 1.0,
		"Buyer has not paid supplier within 180 days of invoice date, Section 16(2)(b) ITC reversal triggered"},
}

// Options controls snapshot volume and randomness.
type Options struct {
	Seed         int64
	Taxpayers    int
	Invoices     int
	MismatchRate float64
}

// DefaultOptions mirrors the demo dataset volume.
func DefaultOptions() Options {
	return Options{
		Seed:         2024,
		Taxpayers:    50,
		Invoices:     500,
		MismatchRate: 0.30,
	}
}

// Generator builds deterministic snapshots from a seeded PRNG.
type Generator struct {
	opts Options
	rng  *rand.Rand
}

// NewGenerator creates a generator; the same options always yield the same
// snapshot.
func NewGenerator(opts Options) *Generator {
	if opts.Taxpayers < 2 {
		opts.Taxpayers = 2
	}
	return &Generator{opts: opts, rng: rand.New(rand.NewSource(opts.Seed))}
}

// Generate builds a full snapshot.
func (g *Generator) Generate() *domain.Snapshot {
	taxpayers := g.generateTaxpayers()
	invoices := g.generateInvoices(taxpayers)
	mismatches := g.generateMismatches(invoices)
	payments := g.generatePayments(invoices)
	returns := g.generateReturns(taxpayers, invoices)

	return &domain.Snapshot{
		Taxpayers:  taxpayers,
		Invoices:   invoices,
		Mismatches: mismatches,
		Returns:    returns,
		Payments:   payments,
		LoadedAt:   time.Now().UTC(),
	}
}

// SnapshotRepository adapts the generator to the snapshot loader interface.
type SnapshotRepository struct {
	opts Options
}

// NewSnapshotRepository creates a generator-backed loader.
func NewSnapshotRepository(opts Options) *SnapshotRepository {
	return &SnapshotRepository{opts: opts}
}

// Load generates a fresh snapshot. A new generator per call keeps repeated
// loads identical.
func (r *SnapshotRepository) Load(ctx context.Context) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewGenerator(r.opts).Generate(), nil
}

func (g *Generator) periods() []string {
	out := make([]string, 12)
	for m := 1; m <= 12; m++ {
		out[m-1] = fmt.Sprintf("%02d2024", m)
	}
	return out
}

func pan(idx int) string {
	const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	const check = "ABCDEFGHJ"
	prefix := fmt.Sprintf("AA%c%c%c",
		letters[idx%24], letters[(idx/24)%24], letters[(idx/576)%24])
	return fmt.Sprintf("%s%04d%c", prefix, (idx*7+1000)%9000+1000, check[idx%9])
}

func gstin(stateCode string, idx int) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	return fmt.Sprintf("%s%s1Z%c", stateCode, pan(idx), alphabet[idx%36])
}

func (g *Generator) complianceScore() float64 {
	score := g.rng.NormFloat64()*15 + 75
	if score < 20 {
		score = 20
	}
	if score > 98 {
		score = 98
	}
	return domain.Round1(score)
}

func (g *Generator) generateTaxpayers() []domain.Taxpayer {
	categories := []domain.TaxpayerCategory{
		domain.CategoryRegular, domain.CategoryComposition, domain.CategorySEZ,
		domain.CategoryRegular, domain.CategoryRegular,
	}
	categoryWeights := []float64{5, 1, 1, 5, 2}

	out := make([]domain.Taxpayer, 0, g.opts.Taxpayers)
	for i := 0; i < g.opts.Taxpayers; i++ {
		stateCode := stateCodes[i%len(stateCodes)]
		compliance := g.complianceScore()
		category := categories[g.weightedIndex(categoryWeights)]

		frequency := "Monthly"
		if category != domain.CategoryRegular {
			frequency = "Quarterly"
		}
		status := domain.StatusActive
		if compliance <= 30 {
			status = domain.StatusSuspended
		}

		out = append(out, domain.Taxpayer{
			TaxpayerID: fmt.Sprintf("TP%03d", i+1),
			Name: fmt.Sprintf("%s %s",
				companyPrefixes[g.rng.Intn(len(companyPrefixes))],
				companySuffixes[g.rng.Intn(len(companySuffixes))]),
			PAN:       pan(i),
			GSTIN:     gstin(stateCode, i),
			StateCode: stateCode,
			State:     stateNames[stateCode],
			RegistrationDate: domain.NewDate(
				2017+g.rng.Intn(6), time.Month(1+g.rng.Intn(12)), 1),
			Category:        category,
			Sector:          sectors[g.rng.Intn(len(sectors))],
			FilingFrequency: frequency,
			AnnualTurnover:  domain.Round2(g.uniform(50_00_000, 50_00_00_000)),
			ComplianceScore: compliance,
			FilingStreak:    g.rng.Intn(25),
			Status:          status,
		})
	}
	return out
}

func (g *Generator) generateInvoices(taxpayers []domain.Taxpayer) []domain.Invoice {
	periods := g.periods()
	out := make([]domain.Invoice, 0, g.opts.Invoices)

	for i := 0; i < g.opts.Invoices; i++ {
		supplier := &taxpayers[i%len(taxpayers)]
		buyer := &taxpayers[(i+1+g.rng.Intn(len(taxpayers)-1))%len(taxpayers)]

		period := periods[g.rng.Intn(len(periods))]
		invDate := g.dateInPeriod(period)
		rate := gstRates[g.rng.Intn(len(gstRates))]

		// Mostly small invoices, a long tail of large ones.
		var taxable float64
		switch {
		case g.rng.Float64() < 0.6:
			taxable = g.uniform(10_000, 2_00_000)
		case g.rng.Float64() < 0.8:
			taxable = g.uniform(2_00_000, 10_00_000)
		default:
			taxable = g.uniform(10_00_000, 1_00_00_000)
		}
		taxable = domain.Round2(taxable)

		taxAmt := domain.Round2(taxable * rate / 100)
		cess := 0.0
		if rate == 28 {
			cess = domain.Round2(taxable * 0.01)
		}

		isInter := supplier.StateCode != buyer.StateCode
		var cgst, sgst, igst float64
		supplyType := domain.SupplyIntraState
		if isInter {
			igst = taxAmt
			supplyType = domain.SupplyInterState
		} else {
			cgst = domain.Round2(taxAmt / 2)
			sgst = cgst
		}

		invNo := fmt.Sprintf("%s/2024/%05d", supplier.TaxpayerID, i+1)

		var irn string
		var irnStatus domain.IRNStatus
		if taxable >= irnThreshold {
			irn = crypto.IRNHash(supplier.GSTIN, invNo, invDate.String())
			irnStatus = domain.IRNActive
			if g.rng.Float64() < 0.02 {
				irnStatus = domain.IRNCancelled
			}
		}

		var ewbNo string
		if taxable >= ewbThreshold && g.rng.Float64() > 0.1 {
			ewbNo = fmt.Sprintf("EWB%012d", 100_000_000_000+g.rng.Int63n(900_000_000_000))
		}

		out = append(out, domain.Invoice{
			InvoiceID:     fmt.Sprintf("INV%05d", i+1),
			InvoiceNo:     invNo,
			InvoiceDate:   invDate,
			InvoiceType:   "B2B",
			SupplyType:    supplyType,
			ReturnPeriod:  period,
			SupplierID:    supplier.TaxpayerID,
			SupplierGSTIN: supplier.GSTIN,
			SupplierName:  supplier.Name,
			BuyerID:       buyer.TaxpayerID,
			BuyerGSTIN:    buyer.GSTIN,
			BuyerName:     buyer.Name,
			TaxableValue:  taxable,
			GSTRate:       rate,
			CGST:          cgst,
			SGST:          sgst,
			IGST:          igst,
			Cess:          cess,
			TotalValue:    domain.Round2(taxable + taxAmt + cess),
			PlaceOfSupply: buyer.StateCode,
			IRN:           irn,
			IRNStatus:     irnStatus,
			EWBNo:         ewbNo,
		})
	}
	return out
}

func (g *Generator) generateMismatches(invoices []domain.Invoice) []domain.Mismatch {
	n := int(float64(len(invoices)) * g.opts.MismatchRate)
	picked := g.rng.Perm(len(invoices))[:n]

	weights := make([]float64, len(mismatchSpecs))
	for i, s := range mismatchSpecs {
		weights[i] = s.weight
	}

	resolutions := []domain.ResolutionStatus{
		domain.ResolutionPending, domain.ResolutionInProgress, domain.ResolutionResolved,
	}
	resolutionWeights := []float64{60, 25, 15}

	out := make([]domain.Mismatch, 0, n)
	for i, invIdx := range picked {
		inv := &invoices[invIdx]
		spec := mismatchSpecs[g.weightedIndex(weights)]

		atRisk := domain.Round2(inv.TaxableValue * spec.multiplier * g.uniform(0.05, 0.30))
		g1 := inv.TaxableValue
		g2b := g1
		if spec.typ == domain.MismatchAmount {
			g2b = domain.Round2(g1 * g.uniform(0.75, 0.98))
		}

		// GSTR-2B lands on the 14th of the month after the return period.
		month := int(inv.ReturnPeriod[0]-'0')*10 + int(inv.ReturnPeriod[1]-'0')
		year := 2024
		month++
		if month > 12 {
			month = 1
			year++
		}

		out = append(out, domain.Mismatch{
			MismatchID:       fmt.Sprintf("MIS%04d", i+1),
			Type:             spec.typ,
			InvoiceID:        inv.InvoiceID,
			InvoiceNo:        inv.InvoiceNo,
			SupplierGSTIN:    inv.SupplierGSTIN,
			SupplierName:     inv.SupplierName,
			BuyerGSTIN:       inv.BuyerGSTIN,
			ReturnPeriod:     inv.ReturnPeriod,
			DetectedDate:     domain.NewDate(year, time.Month(month), 14),
			GSTR1Value:       g1,
			GSTR2BValue:      g2b,
			AmountAtRisk:     atRisk,
			RiskLevel:        spec.riskLevel,
			RootCause:        spec.rootCause,
			ResolutionStatus: resolutions[g.weightedIndex(resolutionWeights)],
		})
	}
	return out
}

// generatePayments settles invoices across the four B2B credit-market
// scenarios: 40% on time, 25% late within the window, 20% after 180 days,
// 15% never paid. Unpaid invoices get no record; the missing payment node is
// the violation.
func (g *Generator) generatePayments(invoices []domain.Invoice) []domain.Payment {
	scenarioWeights := []float64{40, 25, 20, 15}

	out := make([]domain.Payment, 0, len(invoices))
	for i := range invoices {
		inv := &invoices[i]
		scenario := g.weightedIndex(scenarioWeights)

		var delayDays int
		switch scenario {
		case 0: // on time
			delayDays = 7 + g.rng.Intn(54)
		case 1: // late within 180
			delayDays = 61 + g.rng.Intn(119)
		case 2: // after 180
			delayDays = 181 + g.rng.Intn(185)
		default: // unpaid
			continue
		}

		out = append(out, domain.Payment{
			PaymentID:       fmt.Sprintf("PAY-%s", inv.InvoiceID),
			InvoiceID:       inv.InvoiceID,
			InvoiceNo:       inv.InvoiceNo,
			BuyerGSTIN:      inv.BuyerGSTIN,
			SupplierGSTIN:   inv.SupplierGSTIN,
			InvoiceDate:     inv.InvoiceDate,
			PaymentDate:     inv.InvoiceDate.AddDays(delayDays),
			AmountPaid:      domain.Round2(inv.TotalValue),
			BasePaid:        domain.Round2(inv.TaxableValue),
			GSTPaid:         domain.Round2(inv.ITCValue()),
			Mode:            paymentModes[g.rng.Intn(len(paymentModes))],
			BankRef:         fmt.Sprintf("UTR%012d", 100_000_000_000+g.rng.Int63n(900_000_000_000)),
			DaysFromInvoice: delayDays,
			IsOverdue:       delayDays > 180,
		})
	}
	return out
}

func (g *Generator) generateReturns(taxpayers []domain.Taxpayer, invoices []domain.Invoice) []domain.Return {
	periods := g.periods()

	bySupplierPeriod := make(map[string][]*domain.Invoice)
	for i := range invoices {
		inv := &invoices[i]
		key := inv.SupplierID + "|" + inv.ReturnPeriod
		bySupplierPeriod[key] = append(bySupplierPeriod[key], inv)
	}

	var out []domain.Return
	for i := range taxpayers {
		tp := &taxpayers[i]
		count := 6 + g.rng.Intn(7)
		for _, pIdx := range g.rng.Perm(len(periods))[:count] {
			period := periods[pIdx]
			supInvs := bySupplierPeriod[tp.TaxpayerID+"|"+period]

			liability := 0.0
			for _, inv := range supInvs {
				liability += inv.ITCValue()
			}

			month := pIdx + 1
			dueYear, dueMonth := 2024, month+1
			if dueMonth > 12 {
				dueMonth = 1
				dueYear++
			}
			due := domain.NewDate(dueYear, time.Month(dueMonth), 11)

			filed := g.rng.Float64() < tp.ComplianceScore/100
			var filedDate *domain.Date
			status := domain.ReturnPending
			if filed {
				d := due.AddDays(g.rng.Intn(11))
				filedDate = &d
				status = domain.ReturnFiled
			} else if g.rng.Float64() > 0.5 {
				status = domain.ReturnLate
			}

			out = append(out, domain.Return{
				ReturnID:       fmt.Sprintf("RET-%s-%s-GSTR1", tp.TaxpayerID, period),
				GSTIN:          tp.GSTIN,
				ReturnPeriod:   period,
				ReturnType:     "GSTR1",
				FiledDate:      filedDate,
				Status:         status,
				TotalLiability: domain.Round2(liability),
				InvoiceCount:   len(supInvs),
			})
		}
	}
	return out
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *Generator) weightedIndex(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	roll := g.rng.Float64() * total
	for i, w := range weights {
		roll -= w
		if roll < 0 {
			return i
		}
	}
	return len(weights) - 1
}

func (g *Generator) dateInPeriod(period string) domain.Date {
	month := int(period[0]-'0')*10 + int(period[1]-'0')
	maxDay := 31
	switch month {
	case 2:
		maxDay = 28
	case 4, 6, 9, 11:
		maxDay = 30
	}
	return domain.NewDate(2024, time.Month(month), 1+g.rng.Intn(maxDay))
}
