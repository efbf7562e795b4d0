package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Signer provides HMAC-SHA256 signatures for query-audit records and SHA-256
// hashing for e-invoice reference numbers (IRN).
type Signer struct {
	secret []byte
}

// NewSigner creates a signer from a base64-encoded HMAC secret.
func NewSigner(secretBase64 string) (*Signer, error) {
	secret, err := base64.StdEncoding.DecodeString(secretBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode HMAC secret: %w", err)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("HMAC secret must not be empty")
	}
	return &Signer{secret: secret}, nil
}

// Sign creates an HMAC-SHA256 signature over the given data.
func (s *Signer) Sign(data string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify checks a signature produced by Sign.
func (s *Signer) Verify(data, signature string) bool {
	expected := s.Sign(data)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignAuditRecord signs the critical fields of a query-audit record.
func (s *Signer) SignAuditRecord(auditID, queryType, gstin, timestamp, result string) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s", auditID, queryType, gstin, timestamp, result)
	return s.Sign(data)
}

// VerifyAuditRecord verifies a signature produced by SignAuditRecord.
func (s *Signer) VerifyAuditRecord(auditID, queryType, gstin, timestamp, result, signature string) bool {
	data := fmt.Sprintf("%s|%s|%s|%s|%s", auditID, queryType, gstin, timestamp, result)
	return s.Verify(data, signature)
}

// IRNHash computes the SHA-256 invoice reference number registered on the
// e-invoice portal: hash(supplierGSTIN|INV|invoiceNo|invoiceDate).
func IRNHash(supplierGSTIN, invoiceNo, invoiceDate string) string {
	payload := fmt.Sprintf("%s|INV|%s|%s", supplierGSTIN, invoiceNo, invoiceDate)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
