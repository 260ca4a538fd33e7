package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// CurrencyCode is the only currency the portfolio deals in.
const CurrencyCode = "BRL"

// centavos
const moneyFraction = 2

// Money is a BRL amount backed by an exact decimal.
// Arithmetic never goes through float64.
type Money struct {
	value decimal.Decimal
}

// ZeroMoney is R$0,00.
var ZeroMoney = Money{}

// ParseMoney parses a decimal string such as "1050.25".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{value: d}, nil
}

// MustMoney is like ParseMoney but panics on error. Intended for tests and constants.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err.Error())
	}
	return m
}

// Decimal exposes the underlying value.
func (m Money) Decimal() decimal.Decimal { return m.value }

// Round2 rounds to centavos, half away from zero.
func (m Money) Round2() Money { return Money{value: m.value.Round(moneyFraction)} }

func (m Money) Add(n Money) Money               { return Money{value: m.value.Add(n.value)} }
func (m Money) Sub(n Money) Money               { return Money{value: m.value.Sub(n.value)} }
func (m Money) Mul(d decimal.Decimal) Money     { return Money{value: m.value.Mul(d)} }
func (m Money) Div(d decimal.Decimal) Money     { return Money{value: m.value.Div(d)} }
func (m Money) Equal(n Money) bool              { return m.value.Equal(n.value) }
func (m Money) IsZero() bool                    { return m.value.IsZero() }
func (m Money) IsPositive() bool                { return m.value.IsPositive() }
func (m Money) IsNegative() bool                { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool           { return m.value.LessThan(n.value) }
func (m Money) GreaterThanOrEqual(n Money) bool { return m.value.GreaterThanOrEqual(n.value) }

// FloorZero returns m, or zero when m is negative.
func (m Money) FloorZero() Money {
	if m.value.IsNegative() {
		return ZeroMoney
	}
	return m
}

// Split divides m into n parts of round2(m/n) each; the last part absorbs the
// residual so the parts always sum back to round2(m).
func (m Money) Split(n int) []Money {
	if n <= 0 {
		return nil
	}
	total := m.Round2()
	count := decimal.NewFromInt(int64(n))
	part := total.Div(count).Round2()
	residual := total.Sub(part.Mul(count)).Round2()

	parts := make([]Money, n)
	for i := range parts {
		parts[i] = part
	}
	parts[n-1] = part.Add(residual)
	return parts
}

// Float64 is for metrics and logs only.
func (m Money) Float64() float64 { return m.value.InexactFloat64() }

// String formats the amount the Brazilian way, e.g. R$1.050,00.
func (m Money) String() string {
	cents := m.value.Shift(moneyFraction).Round(0).IntPart()
	return money.New(cents, CurrencyCode).Display()
}

// StringFixed returns the plain decimal form with two places, e.g. "1050.00".
func (m Money) StringFixed() string { return m.value.StringFixed(moneyFraction) }

// MarshalJSON writes the amount as a JSON number rounded to centavos.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.value.StringFixed(moneyFraction)), nil
}

// UnmarshalJSON accepts numbers and numeric strings.
func (m *Money) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = ZeroMoney
		return nil
	}
	var d decimal.Decimal
	if err := json.Unmarshal(b, &d); err != nil {
		return fmt.Errorf("invalid amount %s: %w", string(b), err)
	}
	m.value = d
	return nil
}

// Value implements driver.Valuer so Money can be stored as NUMERIC.
func (m Money) Value() (driver.Value, error) { return m.value.Value() }

// Scan implements sql.Scanner.
func (m *Money) Scan(src any) error { return m.value.Scan(src) }

// Rate is a monthly interest rate in percent (5 means 5% a month).
type Rate struct {
	value decimal.Decimal
}

// NewRate builds a Rate from a float percent.
func NewRate(percent float64) Rate { return Rate{value: decimal.NewFromFloat(percent)} }

// ParseRate parses a percent string such as "2.5".
func ParseRate(s string) (Rate, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Rate{}, fmt.Errorf("invalid rate %q: %w", s, err)
	}
	return Rate{value: d}, nil
}

func (r Rate) Decimal() decimal.Decimal { return r.value }
func (r Rate) IsZero() bool             { return r.value.IsZero() }
func (r Rate) IsNegative() bool         { return r.value.IsNegative() }
func (r Rate) Equal(o Rate) bool        { return r.value.Equal(o.value) }
func (r Rate) String() string           { return r.value.String() + "%" }

// Factor returns 1 + r/100.
func (r Rate) Factor() decimal.Decimal {
	return decimal.NewFromInt(1).Add(r.value.Div(decimal.NewFromInt(100)))
}

func (r Rate) MarshalJSON() ([]byte, error) { return []byte(r.value.String()), nil }

func (r *Rate) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = Rate{}
		return nil
	}
	var d decimal.Decimal
	if err := json.Unmarshal(b, &d); err != nil {
		return fmt.Errorf("invalid rate %s: %w", string(b), err)
	}
	r.value = d
	return nil
}

func (r Rate) Value() (driver.Value, error) { return r.value.Value() }
func (r *Rate) Scan(src any) error          { return r.value.Scan(src) }
