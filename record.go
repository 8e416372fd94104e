package beanport

import "github.com/beanport/beanport/date"

// Flags used on transactions. Cleared is the normal case; Pending marks a
// record a human must complete or review before the ledger accepts it.
const (
	Cleared = "*"
	Pending = "!"
)

// Record is a ledger entry produced by an importer, either a Transaction or a
// Balance assertion.
type Record interface {
	When() date.Date
	record()
}

// MetaKV is one transaction metadata entry. Order is preserved on output so
// provenance trails read in source-file order.
type MetaKV struct {
	Key   string
	Value string
}

// Metadata is an ordered list of key/value entries.
type Metadata []MetaKV

// Add appends an entry and returns the extended metadata.
func (m Metadata) Add(key, value string) Metadata { return append(m, MetaKV{key, value}) }

// Transaction is a dated double-entry record with its postings.
type Transaction struct {
	Date      date.Date
	Flag      string // Cleared or Pending
	Payee     string
	Narration string
	Tags      []string
	Links     []string
	Meta      Metadata
	Postings  []Posting
}

func (t Transaction) When() date.Date { return t.Date }
func (t Transaction) record()         {}

// Posting is one leg of a transaction. A cash leg carries Amount; a security
// leg carries Units and Symbol instead. A leg with neither is elided and left
// for the ledger to balance.
type Posting struct {
	Account string
	Amount  *Money
	Units   Quantity
	Symbol  string
	Cost    *CostSpec
	Price   *Money
}

// CashPosting returns a posting of a money amount against an account.
func CashPosting(account string, amount Money) Posting {
	return Posting{Account: account, Amount: &amount}
}

// UnitsPosting returns a posting of security units against an account.
func UnitsPosting(account string, units Quantity, symbol string) Posting {
	return Posting{Account: account, Units: units, Symbol: symbol}
}

// CostSpec describes the acquisition cost attached to a security posting.
// The zero CostSpec renders as the empty spec "{}", which tells the ledger to
// match whatever existing lot fits (used on sales and removals).
type CostSpec struct {
	PerUnit *Money
	Total   *Money
	Date    date.Date
	Label   string
}

// IsEmpty reports whether the spec is the match-existing-lot empty spec.
func (c CostSpec) IsEmpty() bool {
	return c.PerUnit == nil && c.Total == nil && c.Date.IsZero() && c.Label == ""
}

// PerUnitCost returns a spec pinning the per-unit acquisition cost.
func PerUnitCost(m Money) *CostSpec { return &CostSpec{PerUnit: &m} }

// Balance asserts an account's amount on a given day, before that day's
// entries.
type Balance struct {
	Date    date.Date
	Account string
	Amount  Money
}

func (b Balance) When() date.Date { return b.Date }
func (b Balance) record()         {}
