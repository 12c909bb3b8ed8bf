package models

import "github.com/shopspring/decimal"

func init() {
	// The dashboard expects quantities and rates as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// DecimalPtr returns a pointer to d.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }
