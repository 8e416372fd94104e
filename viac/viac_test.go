package viac

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beanport/beanport"
	"github.com/beanport/beanport/date"
)

const sampleJSON = `{"transactions": {
  "CH12.O": [
    {"type": "INTEREST", "valueDate": "2025-03-31", "amountInChf": 1.25,
     "balanceAfterBooking": 101.25, "description": "Zins", "documentNumber": "25V-AAA-BBB"},
    {"type": "FEE_CHARGE", "valueDate": "2025-02-28", "amountInChf": -0.45,
     "balanceAfterBooking": 100.00, "description": "Verwaltungsgebühr", "documentNumber": ""},
    {"type": "DIVIDEND", "valueDate": "2025-03-15", "amountInChf": 12.40,
     "balanceAfterBooking": 112.40, "description": "CSIF SMI", "documentNumber": "25V-DDD-EEE"},
    {"type": "TRADE_BUY", "valueDate": "2025-03-16", "amountInChf": -112.00,
     "balanceAfterBooking": 0.40, "description": "CSIF SMI", "documentNumber": "25V-FFF-GGG"},
    {"type": "TRADE_BUY", "valueDate": "2025-03-17", "amountInChf": -5.00,
     "balanceAfterBooking": -4.60, "description": "Unknown Fund", "documentNumber": ""}
  ],
  "CH12.U": [
    {"type": "CONTRIBUTION", "valueDate": "2025-03-01", "amountInChf": 500.00,
     "balanceAfterBooking": 500.00, "description": "Einzahlung", "documentNumber": ""}
  ],
  "CH12.D1": [
    {"type": "CONTRIBUTION", "valueDate": "2025-03-01", "amountInChf": 500.00,
     "balanceAfterBooking": 500.00, "description": "Transfer", "documentNumber": ""}
  ]
}}`

func extract(t *testing.T, cfg Config) beanport.Result {
	t.Helper()
	if cfg.Account == "" {
		cfg.Account = "Assets:Vorsorge:S2:Viac"
	}
	if cfg.ShareLookup == nil {
		cfg.ShareLookup = map[string]Share{
			"CSIF SMI": {Symbol: "CSSMI", ISIN: "CH0033782431"},
		}
	}
	imp, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "viac_transactions.json")
	if err := os.WriteFile(path, []byte(sampleJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	return imp.Extract(path, nil)
}

func TestTransferAccountsSkipped(t *testing.T) {
	res := extract(t, Config{DepositAccount: "Assets:Bank"})
	for _, r := range res.Records {
		if tx, ok := r.(beanport.Transaction); ok {
			for _, kv := range tx.Meta {
				if kv.Key == "source-account" && strings.HasSuffix(kv.Value, "D1") {
					t.Errorf("transfer account leaked into records: %+v", tx)
				}
			}
		}
	}
}

func TestSubAccountMapping(t *testing.T) {
	res := extract(t, Config{
		DepositAccount:           "Assets:Bank",
		ObligatoriumAccount:      "Assets:Vorsorge:S2:Viac:Obligatorium",
		UeberobligatoriumAccount: "Assets:Vorsorge:S2:Viac:Ueberobligatorium",
	})
	var contribution beanport.Transaction
	for _, r := range res.Records {
		if tx, ok := r.(beanport.Transaction); ok && tx.Narration == "Contribution" {
			contribution = tx
		}
	}
	if got := contribution.Postings[1].Account; got != "Assets:Vorsorge:S2:Viac:Ueberobligatorium:CHF" {
		t.Errorf("liquidity account = %q", got)
	}
}

func TestInterestAndFees(t *testing.T) {
	res := extract(t, Config{})
	var interest, fee beanport.Transaction
	for _, r := range res.Records {
		tx, ok := r.(beanport.Transaction)
		if !ok {
			continue
		}
		switch tx.Narration {
		case "Interest":
			interest = tx
		case "Fees":
			fee = tx
		}
	}
	if got := interest.Postings[0].Account; got != "Income:Vorsorge:S2:Viac:Interest:CHF" {
		t.Errorf("interest account = %q", got)
	}
	if !interest.Postings[0].Amount.Equal(beanport.M(-1.25, "CHF")) {
		t.Errorf("interest income = %v", interest.Postings[0].Amount)
	}
	if got := fee.Postings[0].Account; got != "Expenses:Vorsorge:S2:Viac:Fees:CHF" {
		t.Errorf("fees account = %q", got)
	}
	if !fee.Postings[0].Amount.Equal(beanport.M(0.45, "CHF")) {
		t.Errorf("fees leg = %v", fee.Postings[0].Amount)
	}
}

func TestTradeZeroQuantityPending(t *testing.T) {
	res := extract(t, Config{})
	var trade beanport.Transaction
	for _, r := range res.Records {
		if tx, ok := r.(beanport.Transaction); ok && strings.HasPrefix(tx.Narration, "BUY") {
			trade = tx
		}
	}
	if trade.Flag != beanport.Pending {
		t.Errorf("flag = %q, want pending", trade.Flag)
	}
	asset := trade.Postings[0]
	if !asset.Units.IsZero() || asset.Symbol != "CSSMI" || asset.Cost == nil || !asset.Cost.IsEmpty() {
		t.Errorf("asset posting = %+v", asset)
	}
	if !trade.Postings[1].Amount.Equal(beanport.M(-112, "CHF")) {
		t.Errorf("cash leg = %v", trade.Postings[1].Amount)
	}
}

func TestUnknownFundSkippedWithWarning(t *testing.T) {
	res := extract(t, Config{})
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "Unknown Fund") {
			found = true
		}
	}
	if !found {
		t.Errorf("no warning for unknown fund: %v", res.Warnings)
	}
}

func TestDividendDocumentLink(t *testing.T) {
	res := extract(t, Config{})
	var dividend beanport.Transaction
	for _, r := range res.Records {
		if tx, ok := r.(beanport.Transaction); ok && strings.HasPrefix(tx.Narration, "Dividend") {
			dividend = tx
		}
	}
	var document string
	for _, kv := range dividend.Meta {
		if kv.Key == "document" {
			document = kv.Value
		}
	}
	if want := "https://app.viac.ch/files/document/25V-DDD-EEE/content/25V-DDD-EEE.pdf"; document != want {
		t.Errorf("document = %q, want %q", document, want)
	}
}

func TestBalancePerSubAccount(t *testing.T) {
	res := extract(t, Config{DepositAccount: "Assets:Bank"})
	var balances []beanport.Balance
	for _, r := range res.Records {
		if b, ok := r.(beanport.Balance); ok {
			balances = append(balances, b)
		}
	}
	if len(balances) != 2 {
		t.Fatalf("balances = %d, want one per kept sub-account", len(balances))
	}
	// newest CH12.O row is the 2025-03-31 interest booking
	first := balances[0]
	if want := date.New(2025, 4, 1); first.Date != want {
		t.Errorf("balance date = %v, want %v", first.Date, want)
	}
	if !first.Amount.Equal(beanport.M(101.25, "CHF")) {
		t.Errorf("balance amount = %v", first.Amount)
	}
}
