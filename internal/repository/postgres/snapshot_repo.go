package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gstech/itc-compliance/internal/config"
	"github.com/gstech/itc-compliance/internal/domain"
)

// SnapshotRepository loads entity snapshots from the upstream GSTN staging
// database. The tables are read-only from this service's point of view; the
// ingestion pipeline that fills them is a separate system.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a Postgres-backed snapshot loader.
func NewSnapshotRepository(cfg config.DatabaseConfig) (*SnapshotRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	return &SnapshotRepository{pool: pool}, nil
}

// Close releases the connection pool.
func (r *SnapshotRepository) Close() {
	r.pool.Close()
}

// Load reads every collection in one pass.
func (r *SnapshotRepository) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{LoadedAt: time.Now().UTC()}

	if err := r.loadTaxpayers(ctx, snap); err != nil {
		return nil, err
	}
	if err := r.loadInvoices(ctx, snap); err != nil {
		return nil, err
	}
	if err := r.loadMismatches(ctx, snap); err != nil {
		return nil, err
	}
	if err := r.loadReturns(ctx, snap); err != nil {
		return nil, err
	}
	if err := r.loadPayments(ctx, snap); err != nil {
		return nil, err
	}

	return snap, nil
}

func (r *SnapshotRepository) loadTaxpayers(ctx context.Context, snap *domain.Snapshot) error {
	const query = `
		SELECT taxpayer_id, name, pan, gstin, state_code, state,
		       registration_date, category, sector, filing_frequency,
		       annual_turnover, compliance_score, filing_streak, status
		FROM taxpayers
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query taxpayers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tp domain.Taxpayer
		var regDate time.Time
		if err := rows.Scan(
			&tp.TaxpayerID, &tp.Name, &tp.PAN, &tp.GSTIN, &tp.StateCode, &tp.State,
			&regDate, &tp.Category, &tp.Sector, &tp.FilingFrequency,
			&tp.AnnualTurnover, &tp.ComplianceScore, &tp.FilingStreak, &tp.Status,
		); err != nil {
			return fmt.Errorf("failed to scan taxpayer: %w", err)
		}
		tp.RegistrationDate = domain.Date{Time: regDate}
		snap.Taxpayers = append(snap.Taxpayers, tp)
	}
	return rows.Err()
}

func (r *SnapshotRepository) loadInvoices(ctx context.Context, snap *domain.Snapshot) error {
	const query = `
		SELECT invoice_id, invoice_no, invoice_date, invoice_type, supply_type,
		       return_period, supplier_id, supplier_gstin, supplier_name,
		       buyer_id, buyer_gstin, buyer_name, taxable_value, gst_rate,
		       cgst, sgst, igst, cess, total_value, place_of_supply,
		       COALESCE(irn, ''), COALESCE(irn_status, ''), COALESCE(ewb_no, '')
		FROM invoices
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var inv domain.Invoice
		var invDate time.Time
		if err := rows.Scan(
			&inv.InvoiceID, &inv.InvoiceNo, &invDate, &inv.InvoiceType, &inv.SupplyType,
			&inv.ReturnPeriod, &inv.SupplierID, &inv.SupplierGSTIN, &inv.SupplierName,
			&inv.BuyerID, &inv.BuyerGSTIN, &inv.BuyerName, &inv.TaxableValue, &inv.GSTRate,
			&inv.CGST, &inv.SGST, &inv.IGST, &inv.Cess, &inv.TotalValue, &inv.PlaceOfSupply,
			&inv.IRN, &inv.IRNStatus, &inv.EWBNo,
		); err != nil {
			return fmt.Errorf("failed to scan invoice: %w", err)
		}
		inv.InvoiceDate = domain.Date{Time: invDate}
		snap.Invoices = append(snap.Invoices, inv)
	}
	return rows.Err()
}

func (r *SnapshotRepository) loadMismatches(ctx context.Context, snap *domain.Snapshot) error {
	const query = `
		SELECT mismatch_id, mismatch_type, invoice_id, invoice_no,
		       supplier_gstin, supplier_name, buyer_gstin, return_period,
		       detected_date, gstr1_value, gstr2b_value, amount_at_risk,
		       risk_level, root_cause, resolution_status
		FROM mismatches
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query mismatches: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.Mismatch
		var detected time.Time
		if err := rows.Scan(
			&m.MismatchID, &m.Type, &m.InvoiceID, &m.InvoiceNo,
			&m.SupplierGSTIN, &m.SupplierName, &m.BuyerGSTIN, &m.ReturnPeriod,
			&detected, &m.GSTR1Value, &m.GSTR2BValue, &m.AmountAtRisk,
			&m.RiskLevel, &m.RootCause, &m.ResolutionStatus,
		); err != nil {
			return fmt.Errorf("failed to scan mismatch: %w", err)
		}
		m.DetectedDate = domain.Date{Time: detected}
		snap.Mismatches = append(snap.Mismatches, m)
	}
	return rows.Err()
}

func (r *SnapshotRepository) loadReturns(ctx context.Context, snap *domain.Snapshot) error {
	const query = `
		SELECT return_id, gstin, return_period, return_type, filed_date,
		       status, total_itc, total_liability, invoice_count
		FROM returns
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query returns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ret domain.Return
		var filed *time.Time
		if err := rows.Scan(
			&ret.ReturnID, &ret.GSTIN, &ret.ReturnPeriod, &ret.ReturnType, &filed,
			&ret.Status, &ret.TotalITC, &ret.TotalLiability, &ret.InvoiceCount,
		); err != nil {
			return fmt.Errorf("failed to scan return: %w", err)
		}
		if filed != nil {
			ret.FiledDate = &domain.Date{Time: *filed}
		}
		snap.Returns = append(snap.Returns, ret)
	}
	return rows.Err()
}

func (r *SnapshotRepository) loadPayments(ctx context.Context, snap *domain.Snapshot) error {
	const query = `
		SELECT payment_id, invoice_id, invoice_no, buyer_gstin, supplier_gstin,
		       invoice_date, payment_date, amount_paid, base_paid, gst_paid,
		       payment_mode, bank_ref, days_from_invoice, is_overdue
		FROM payments
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Payment
		var invDate, payDate time.Time
		if err := rows.Scan(
			&p.PaymentID, &p.InvoiceID, &p.InvoiceNo, &p.BuyerGSTIN, &p.SupplierGSTIN,
			&invDate, &payDate, &p.AmountPaid, &p.BasePaid, &p.GSTPaid,
			&p.Mode, &p.BankRef, &p.DaysFromInvoice, &p.IsOverdue,
		); err != nil {
			return fmt.Errorf("failed to scan payment: %w", err)
		}
		p.InvoiceDate = domain.Date{Time: invDate}
		p.PaymentDate = domain.Date{Time: payDate}
		snap.Payments = append(snap.Payments, p)
	}
	return rows.Err()
}
