package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPair(t *testing.T) {
	p, err := NewPair(" usd", "eur ")
	require.NoError(t, err)
	assert.Equal(t, Pair{From: "USD", To: "EUR"}, p)
	assert.Equal(t, "USD_EUR", p.String())

	_, err = NewPair("", "EUR")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPair_Supported(t *testing.T) {
	tests := []struct {
		name    string
		pair    Pair
		wantErr bool
	}{
		{name: "regular pair", pair: Pair{From: "USD", To: "EUR"}},
		{name: "excluded source", pair: Pair{From: "TRY", To: "USD"}, wantErr: true},
		{name: "excluded target", pair: Pair{From: "USD", To: "PLN"}, wantErr: true},
		{name: "both excluded", pair: Pair{From: "THB", To: "MXN"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pair.Supported()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedCurrency)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestIsExcludedCurrency(t *testing.T) {
	for _, code := range ExcludedCurrencies() {
		assert.True(t, IsExcludedCurrency(code), code)
	}
	assert.True(t, IsExcludedCurrency("try"))
	assert.False(t, IsExcludedCurrency("USD"))
}
