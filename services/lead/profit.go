package lead

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInvalidPrice = errors.New("invalid price data: both sale price and product price must be valid, non-negative numbers")

const (
	msgSalePriceRequired    = "Sale price must be greater than 0 for sold leads"
	msgProductPriceRequired = "Product price must be greater than 0 for sold leads"
	msgPriceNotNumber       = "Sale price and product price must be valid numbers"
)

// CalculateProfitMargin returns sale - product rounded to cents. Zero prices
// are accepted, the result may be negative.
func CalculateProfitMargin(sale, product *decimal.Decimal) (decimal.Decimal, error) {
	if sale == nil || product == nil || sale.IsNegative() || product.IsNegative() {
		return decimal.Zero, ErrInvalidPrice
	}
	return sale.Sub(*product).Round(2), nil
}

// Price is a price as submitted. Invalid marks a value that was sent but
// could not be read as a number.
type Price struct {
	Value   *decimal.Decimal
	Invalid bool
}

func PriceOf(d *decimal.Decimal) Price {
	return Price{Value: d}
}

type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// ValidateSoldLead reports every rule a sold lead breaks.
func ValidateSoldLead(sale, product Price) ValidationResult {
	var errs []string
	if !sale.Invalid && (sale.Value == nil || !sale.Value.IsPositive()) {
		errs = append(errs, msgSalePriceRequired)
	}
	if !product.Invalid && (product.Value == nil || !product.Value.IsPositive()) {
		errs = append(errs, msgProductPriceRequired)
	}
	if sale.Invalid || product.Invalid {
		errs = append(errs, msgPriceNotNumber)
	}
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// PriceInput decodes a price field that may be absent, null, a JSON number
// or a numeric string.
type PriceInput struct {
	Set bool
	Price
}

func (p *PriceInput) UnmarshalJSON(b []byte) error {
	p.Set = true
	p.Value, p.Invalid = nil, false

	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		p.Invalid = true
		return nil
	}

	var s string
	switch v := raw.(type) {
	case float64:
		s = string(b)
	case string:
		if v == "" {
			return nil
		}
		s = v
	default:
		p.Invalid = true
		return nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		p.Invalid = true
		return nil
	}
	d = d.Round(2)
	p.Value = &d
	return nil
}
