package savings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransactionCode(t *testing.T) {
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	code := NewTransactionCode(at)
	require.Len(t, code, len("TRX-20240315-0000"))
	assert.Equal(t, "TRX-20240315-", code[:13])
}

func TestNewAccountNumber(t *testing.T) {
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	number := NewAccountNumber(at)
	require.Len(t, number, len("SAV-202403-0000"))
	assert.Equal(t, "SAV-202403-", number[:11])
}
