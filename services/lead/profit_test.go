package lead

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateProfitMargin(t *testing.T) {
	tests := []struct {
		name    string
		sale    string
		product string
		want    string
		wantErr bool
	}{
		{name: "profit", sale: "1600", product: "1000", want: "600"},
		{name: "loss", sale: "80", product: "100", want: "-20"},
		{name: "rounds to cents", sale: "10.005", product: "0", want: "10.01"},
		{name: "zero prices allowed", sale: "0", product: "0", want: "0"},
		{name: "negative sale", sale: "-1", product: "10", wantErr: true},
		{name: "negative product", sale: "10", product: "-0.01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateProfitMargin(decPtr(tt.sale), decPtr(tt.product))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPrice)
				return
			}
			require.NoError(t, err)
			requireDecimal(t, tt.want, got)
		})
	}

	_, err := CalculateProfitMargin(nil, decPtr("1"))
	require.ErrorIs(t, err, ErrInvalidPrice)
}

func TestValidateSoldLead(t *testing.T) {
	res := ValidateSoldLead(PriceOf(decPtr("100")), PriceOf(decPtr("60")))
	require.True(t, res.IsValid)
	require.Empty(t, res.Errors)

	res = ValidateSoldLead(PriceOf(decPtr("0")), PriceOf(decPtr("-5")))
	require.False(t, res.IsValid)
	require.Equal(t, []string{msgSalePriceRequired, msgProductPriceRequired}, res.Errors)

	res = ValidateSoldLead(Price{Invalid: true}, Price{})
	require.Equal(t, []string{msgProductPriceRequired, msgPriceNotNumber}, res.Errors)
}

func TestPriceInput_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		body    string
		set     bool
		invalid bool
		want    string
	}{
		{body: `{}`},
		{body: `{"salePrice": null}`, set: true},
		{body: `{"salePrice": 1250.5}`, set: true, want: "1250.5"},
		{body: `{"salePrice": "99.999"}`, set: true, want: "100"},
		{body: `{"salePrice": ""}`, set: true},
		{body: `{"salePrice": "abc"}`, set: true, invalid: true},
		{body: `{"salePrice": true}`, set: true, invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var in LeadInput
			require.NoError(t, json.Unmarshal([]byte(tt.body), &in))
			require.Equal(t, tt.set, in.SalePrice.Set)
			require.Equal(t, tt.invalid, in.SalePrice.Invalid)
			if tt.want == "" {
				require.Nil(t, in.SalePrice.Value)
				return
			}
			require.NotNil(t, in.SalePrice.Value)
			requireDecimal(t, tt.want, *in.SalePrice.Value)
		})
	}
}

func TestApplyProfitMargin(t *testing.T) {
	l := &Lead{SalePrice: decPtr("300"), ProductPrice: decPtr("120.40")}
	l.ApplyProfitMargin()
	requireDecimal(t, "179.6", l.ProfitMargin)

	l.ProductPrice = nil
	l.ApplyProfitMargin()
	require.True(t, l.ProfitMargin.IsZero())

	l = &Lead{ProfitMargin: dec("42")}
	l.ApplyProfitMargin()
	requireDecimal(t, "42", l.ProfitMargin)
}
