package ibkr

import (
	"testing"

	"github.com/beanport/beanport"
	"github.com/beanport/beanport/date"
)

func testAccounts(t *testing.T) accounts {
	t.Helper()
	imp, err := New(Config{MainAccount: "Assets:IB:Stock", DepositAccount: "Assets:Bank"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return newAccounts(imp.cfg, "")
}

func divRow(cat beanport.Category, amount float64, desc string) beanport.Row {
	return beanport.Row{
		Category:    cat,
		Symbol:      "VT",
		Currency:    "USD",
		Amount:      beanport.M(amount, "USD"),
		Date:        date.New(2025, 3, 20),
		Description: desc,
	}
}

const divDesc = "VT(US92204A6094) CASH DIVIDEND USD 0.59 PER SHARE (Ordinary Dividend)"
const whtDesc = "VT(US92204A6094) CASH DIVIDEND USD 0.59 PER SHARE - US TAX"

func postingAmount(t *testing.T, p beanport.Posting) beanport.Money {
	t.Helper()
	if p.Amount == nil {
		t.Fatalf("posting %s has no amount", p.Account)
	}
	return *p.Amount
}

func TestPairDividendWithTax(t *testing.T) {
	rows := []beanport.Row{
		divRow(beanport.Dividend, 100, divDesc),
		divRow(beanport.WithholdingTax, -15, whtDesc),
	}
	res := pairDividends(rows, testAccounts(t))
	if len(res.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(res.Records))
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %v", res.Warnings)
	}
	tx := res.Records[0].(beanport.Transaction)
	if len(tx.Postings) != 3 {
		t.Fatalf("postings = %d, want 3", len(tx.Postings))
	}
	if got := postingAmount(t, tx.Postings[0]); !got.Equal(beanport.M(-100, "USD")) {
		t.Errorf("income leg = %v", got)
	}
	if tx.Postings[0].Account != "Income:Dividends:VT" {
		t.Errorf("income account = %s", tx.Postings[0].Account)
	}
	if got := postingAmount(t, tx.Postings[1]); !got.Equal(beanport.M(15, "USD")) {
		t.Errorf("tax leg = %v", got)
	}
	if got := postingAmount(t, tx.Postings[2]); !got.Equal(beanport.M(85, "USD")) {
		t.Errorf("cash leg = %v", got)
	}
	if tx.Postings[2].Account != "Assets:IB:Cash:USD" {
		t.Errorf("cash account = %s", tx.Postings[2].Account)
	}
}

// Rows sharing symbol, rate and date are summed per leg, including the
// coincidental case of a correction row landing on the same key as an
// unrelated original.
func TestPairDividendSumsSharedKey(t *testing.T) {
	rows := []beanport.Row{
		divRow(beanport.Dividend, 100, divDesc),
		divRow(beanport.Dividend, 20, "VT(US92204A6094) CASH DIVIDEND USD 0.59 PER SHARE - CORRECTION"),
		divRow(beanport.WithholdingTax, -15, whtDesc),
		divRow(beanport.WithholdingTax, -3, whtDesc),
	}
	res := pairDividends(rows, testAccounts(t))
	if len(res.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(res.Records))
	}
	tx := res.Records[0].(beanport.Transaction)
	if got := postingAmount(t, tx.Postings[0]); !got.Equal(beanport.M(-120, "USD")) {
		t.Errorf("income leg = %v", got)
	}
	if got := postingAmount(t, tx.Postings[1]); !got.Equal(beanport.M(18, "USD")) {
		t.Errorf("tax leg = %v", got)
	}
	if got := postingAmount(t, tx.Postings[2]); !got.Equal(beanport.M(102, "USD")) {
		t.Errorf("cash leg = %v", got)
	}
	if len(tx.Tags) == 0 || tx.Tags[0] != "correction" {
		t.Errorf("tags = %v, want correction", tx.Tags)
	}
}

func TestPairDividendKeepsDistinctRates(t *testing.T) {
	rows := []beanport.Row{
		divRow(beanport.Dividend, 100, divDesc),
		divRow(beanport.Dividend, 40, "VT(US92204A6094) CASH DIVIDEND USD 0.25 PER SHARE (Special Dividend)"),
	}
	res := pairDividends(rows, testAccounts(t))
	if len(res.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(res.Records))
	}
}

func TestPairDividendAwaitingTax(t *testing.T) {
	res := pairDividends([]beanport.Row{divRow(beanport.Dividend, 100, divDesc)}, testAccounts(t))
	if len(res.Records) != 1 || len(res.Warnings) != 1 {
		t.Fatalf("records = %d warnings = %d", len(res.Records), len(res.Warnings))
	}
	tx := res.Records[0].(beanport.Transaction)
	if tx.Flag != beanport.Pending {
		t.Errorf("flag = %q, want pending", tx.Flag)
	}
	if len(tx.Tags) == 0 || tx.Tags[0] != "awaiting-wht" {
		t.Errorf("tags = %v", tx.Tags)
	}
	if len(tx.Postings) != 2 {
		t.Errorf("postings = %d, want 2", len(tx.Postings))
	}
}

func TestPairDividendAwaitingDividend(t *testing.T) {
	res := pairDividends([]beanport.Row{divRow(beanport.WithholdingTax, -15, whtDesc)}, testAccounts(t))
	if len(res.Records) != 1 || len(res.Warnings) != 1 {
		t.Fatalf("records = %d warnings = %d", len(res.Records), len(res.Warnings))
	}
	tx := res.Records[0].(beanport.Transaction)
	if len(tx.Tags) == 0 || tx.Tags[0] != "awaiting-dividend" {
		t.Errorf("tags = %v", tx.Tags)
	}
}

func TestGroupKey(t *testing.T) {
	row := divRow(beanport.Dividend, 100, divDesc)
	if got, want := groupKey(row), "VT_0.59_2025-03-20"; got != want {
		t.Errorf("groupKey = %q, want %q", got, want)
	}
}
