package beanport

import (
	"fmt"
	"strings"

	"github.com/beanport/beanport/date"
	"github.com/shopspring/decimal"
)

// Category partitions normalized rows into disjoint kinds. Every row gets
// exactly one, Unknown when nothing matched.
type Category int

const (
	Unknown Category = iota
	Trade
	ClosedLot
	Dividend
	WithholdingTax
	Fee
	Interest
	Deposit
	CorporateAction
	ForexAutoExchange
)

var categoryNames = map[Category]string{
	Unknown:           "unknown",
	Trade:             "trade",
	ClosedLot:         "closed-lot",
	Dividend:          "dividend",
	WithholdingTax:    "withholding-tax",
	Fee:               "fee",
	Interest:          "interest",
	Deposit:           "deposit",
	CorporateAction:   "corporate-action",
	ForexAutoExchange: "forex-auto-exchange",
}

func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Row is one source line after normalization. Rows are values, never mutated
// after creation; HasQuantity and HasPrice distinguish absent from zero.
type Row struct {
	Category    Category
	Date        date.Date
	Symbol      string
	Currency    string
	Amount      Money
	Quantity    Quantity
	HasQuantity bool
	Price       Money
	HasPrice    bool
	Fee         Money // commission or charge attached to the row
	HasFee      bool
	Sale        bool // trade direction: sells and their cancellations
	Account     string // source sub-ledger key, for multi-account files
	Description string
	Index       int // position in the source file
}

// Outcome is the result of normalizing one raw row: either a Row or a skip
// with its reason. Skip-and-continue is carried in the type so callers never
// drop a row without saying why.
type Outcome struct {
	row     Row
	skipped bool
	reason  string
}

// Ok wraps a successfully normalized row.
func Ok(r Row) Outcome { return Outcome{row: r} }

// Skipf marks a row as skipped with a formatted reason.
func Skipf(format string, args ...any) Outcome {
	return Outcome{skipped: true, reason: fmt.Sprintf(format, args...)}
}

// Row returns the row and whether it is usable.
func (o Outcome) Row() (Row, bool) { return o.row, !o.skipped }

// Skipped reports whether the row was skipped, with the reason.
func (o Outcome) Skipped() (string, bool) { return o.reason, o.skipped }

// decimalCleaner strips the separators banks decorate numbers with: Swiss
// apostrophes, spaces, non-breaking and narrow non-breaking spaces.
var decimalCleaner = strings.NewReplacer("'", "", "’", "", " ", "", " ", "", " ", "")

// ParseDecimal parses a number tolerating locale thousands separators and
// either "." or "," as the decimal mark. "1'234.56", "1 234,56" and
// "1,234.56" all parse to the same value.
func ParseDecimal(s string) (decimal.Decimal, error) {
	c := decimalCleaner.Replace(strings.TrimSpace(StripBOM(s)))
	dot, comma := strings.LastIndex(c, "."), strings.LastIndex(c, ",")
	switch {
	case dot >= 0 && comma >= 0:
		// the later mark is the decimal separator, the other is thousands
		if comma > dot {
			c = strings.ReplaceAll(c, ".", "")
			c = strings.Replace(c, ",", ".", 1)
		} else {
			c = strings.ReplaceAll(c, ",", "")
		}
	case comma >= 0:
		if strings.Count(c, ",") > 1 {
			c = strings.ReplaceAll(c, ",", "")
		} else {
			c = strings.Replace(c, ",", ".", 1)
		}
	case strings.Count(c, ".") > 1:
		i := strings.LastIndex(c, ".")
		c = strings.ReplaceAll(c[:i], ".", "") + c[i:]
	}
	d, err := decimal.NewFromString(c)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return d, nil
}

// ParseMoney parses a locale-tolerant decimal into a Money of the given currency.
func ParseMoney(s, currency string) (Money, error) {
	d, err := ParseDecimal(s)
	if err != nil {
		return Money{}, err
	}
	return M(d, currency), nil
}

// ParseQuantity parses a locale-tolerant decimal into a Quantity.
func ParseQuantity(s string) (Quantity, error) {
	d, err := ParseDecimal(s)
	if err != nil {
		return Quantity{}, err
	}
	return Q(d), nil
}

// StripBOM removes a leading UTF-8 byte order mark. Several banks export
// "utf-8-sig" files whose first header cell would otherwise fail matching.
func StripBOM(s string) string { return strings.TrimPrefix(s, "\uFEFF") }
