package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Generate hashes the concatenation of fields with SHA256 and returns the hex digest.
func Generate(fields ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(fields, "")))
	return hex.EncodeToString(hash[:])
}

// ForRow fingerprints a raw sale row. Field order is fixed: period, transaction
// number, memo, invoiced, paid, sales rep. Changing it changes every stored hash.
func ForRow(row models.RawSaleRow) string {
	return Generate(
		row.Period().String(),
		row.Num,
		row.Memo,
		row.Invoiced,
		row.Paid,
		row.SalesRep,
	)
}

// Apply sets RowHash on every row in place.
func Apply(rows []models.RawSaleRow) {
	for i := range rows {
		rows[i].RowHash = ForRow(rows[i])
	}
}

// HasChanged checks if the fingerprint has changed
func HasChanged(oldFingerprint, newFingerprint string) bool {
	return oldFingerprint != newFingerprint
}
