package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatRupiah(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "Rp0"},
		{"1000", "Rp1.000"},
		{"1250000", "Rp1.250.000"},
	}
	for _, tc := range cases {
		v, err := decimal.NewFromString(tc.in)
		assert.NoError(t, err)
		assert.Equal(t, tc.want, FormatRupiah(v))
	}
}
