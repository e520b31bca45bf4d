package pricing

import (
	"fmt"
	"regexp"

	"github.com/LoganXav/Nexmart/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var (
	pricePattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
	feeRate      = decimal.RequireFromString("0.01")
)

// Amount is expressed in minor currency units.
type Amount struct {
	Total int64
	Fee   int64
}

type Calculator struct {
	unit  currency.Unit
	scale int32
}

func NewCalculator(unit currency.Unit) *Calculator {
	scale, _ := currency.Standard.Rounding(unit)
	return &Calculator{unit: unit, scale: int32(scale)}
}

func (c *Calculator) Currency() currency.Unit {
	return c.unit
}

// Calculate sums price*quantity as exact decimals and rounds once when
// converting to minor units. The fee is a flat 1% of the major-unit total,
// rounded on its own.
func (c *Calculator) Calculate(items []domain.CartLineItem) (Amount, error) {
	sum := decimal.Zero
	for _, item := range items {
		price, err := ParsePrice(item.Price)
		if err != nil {
			return Amount{}, err
		}
		if item.Quantity < 0 {
			return Amount{}, domain.NewValidationError("quantity", fmt.Sprintf("product %d has negative quantity", item.ID))
		}
		sum = sum.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	return Amount{
		Total: c.toMinor(sum),
		Fee:   c.toMinor(sum.Mul(feeRate)),
	}, nil
}

// ToMinor converts a major-unit price string to minor units.
func (c *Calculator) ToMinor(price string) (int64, error) {
	d, err := ParsePrice(price)
	if err != nil {
		return 0, err
	}
	return c.toMinor(d), nil
}

func (c *Calculator) toMinor(major decimal.Decimal) int64 {
	return major.Shift(c.scale).Round(0).IntPart()
}

// ParsePrice accepts fixed-point strings with at most two fraction digits.
func ParsePrice(price string) (decimal.Decimal, error) {
	if !pricePattern.MatchString(price) {
		return decimal.Zero, domain.NewValidationError("price", fmt.Sprintf("%q is not a fixed-point amount", price))
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return decimal.Zero, domain.NewValidationError("price", err.Error())
	}
	return d, nil
}

// NormalizePrice renders a stored numeric value with exactly two fraction
// digits.
func NormalizePrice(raw string) (string, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "", fmt.Errorf("parse price %q: %w", raw, err)
	}
	return d.StringFixed(2), nil
}
