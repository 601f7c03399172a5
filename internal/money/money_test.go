package money

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "0"},
		{"empty string", "", "0"},
		{"blank string", "   ", "0"},
		{"garbage string", "abc", "0"},
		{"numeric string", "12.5", "12.5"},
		{"comma separator", "12,5", "12.5"},
		{"negative string", "-3.25", "-3.25"},
		{"float", 42.42, "42.42"},
		{"int", 7, "7"},
		{"int64", int64(-7), "-7"},
		{"json number", json.Number("20.5"), "20.5"},
		{"nan", math.NaN(), "0"},
		{"inf", math.Inf(1), "0"},
		{"unknown type", struct{}{}, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			want, err := decimal.NewFromString(tc.want)
			require.NoError(t, err)
			require.True(t, Normalize(tc.in).Equal(want), "got %s", Normalize(tc.in))
		})
	}
}

func TestNormalizePassesDecimalThrough(t *testing.T) {
	d := decimal.RequireFromString("99.99")
	require.True(t, Normalize(d).Equal(d))
}

func TestSum(t *testing.T) {
	got := Sum([]any{"400.00", 200.0, nil, "", "abc"})
	require.True(t, got.Equal(decimal.RequireFromString("600")), "got %s", got)
}

func TestSumEmpty(t *testing.T) {
	require.True(t, Sum(nil).IsZero())
}
