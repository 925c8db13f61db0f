package savings

import (
	"fmt"
	"math/rand"
	"time"
)

// Identifier formats follow the cooperative's printed receipts:
// transactions carry TRX-YYYYMMDD-NNNN, accounts SAV-YYYYMM-NNNN.
// The 4-digit suffix is random; uniqueness is enforced by the storage
// layer's unique index and the repository retries on collision.

// NewTransactionCode builds a transaction code for the given posting time.
func NewTransactionCode(now time.Time) string {
	return fmt.Sprintf("TRX-%s-%04d", now.Format("20060102"), rand.Intn(10000))
}

// NewAccountNumber builds an account number for the given provisioning time.
func NewAccountNumber(now time.Time) string {
	return fmt.Sprintf("SAV-%s-%04d", now.Format("200601"), rand.Intn(10000))
}
