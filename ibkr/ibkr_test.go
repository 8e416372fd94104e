package ibkr

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/beanport/beanport"
	"github.com/beanport/beanport/date"
)

const sampleStatement = `<FlexQueryResponse queryName="ledger" type="AF">
 <FlexStatements count="1">
  <FlexStatement accountId="U1234567" fromDate="20250301" toDate="20250331">
   <AccountInformation accountId="U1234567" acctAlias="main depot" currency="USD"/>
   <CashTransactions>
    <CashTransaction type="Dividends" symbol="VT" description="VT(US92204A6094) CASH DIVIDEND USD 0.59 PER SHARE (Ordinary Dividend)" currency="USD" amount="100" reportDate="20250320"/>
    <CashTransaction type="Withholding Tax" symbol="VT" description="VT(US92204A6094) CASH DIVIDEND USD 0.59 PER SHARE - US TAX" currency="USD" amount="-15" reportDate="20250320"/>
    <CashTransaction type="Broker Interest Received" description="USD CREDIT INT FOR FEB-2025" currency="USD" amount="1.23" reportDate="20250305"/>
    <CashTransaction type="Deposits/Withdrawals" description="CASH RECEIPTS / ELECTRONIC FUND TRANSFERS" currency="USD" amount="5000" reportDate="20250302"/>
   </CashTransactions>
   <Trades>
    <Trade transactionType="ExchTrade" levelOfDetail="EXECUTION" buySell="SELL" symbol="VT" description="VANGUARD TOTAL WORLD STOCK ETF" currency="USD" tradeDate="20250310" quantity="-10" tradePrice="50" proceeds="500" ibCommission="-1" ibCommissionCurrency="USD"/>
    <Lot levelOfDetail="CLOSED_LOT" symbol="VT" currency="USD" tradeDate="20241102" quantity="-4" tradePrice="40"/>
    <Lot levelOfDetail="CLOSED_LOT" symbol="VT" currency="USD" tradeDate="20241203" quantity="-6" tradePrice="42"/>
   </Trades>
   <CashReport>
    <CashReportCurrency currency="BASE_SUMMARY" endingCash="5585.23" toDate="20250331"/>
    <CashReportCurrency currency="USD" endingCash="5585.23" toDate="20250331"/>
   </CashReport>
   <OpenPositions>
    <OpenPosition symbol="VTz" currency="USD" markPrice="51.2" reportDate="20250331"/>
   </OpenPositions>
  </FlexStatement>
 </FlexStatements>
</FlexQueryResponse>`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ibkr-2025-03.xml")
	if err := os.WriteFile(path, []byte(sampleStatement), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewRequiresMainAccount(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New accepted an empty MainAccount")
	}
}

func TestIdentify(t *testing.T) {
	imp, err := New(Config{MainAccount: "Assets:IB:Stock"})
	if err != nil {
		t.Fatal(err)
	}
	for file, want := range map[string]bool{
		"ibkr-2025-03.xml":  true,
		"IBKR_yearly.XML":   true,
		"flex:":             true,
		"revolut-march.csv": false,
	} {
		if got := imp.Identify(file); got != want {
			t.Errorf("Identify(%q) = %v, want %v", file, got, want)
		}
	}
}

func TestExtractStatementFile(t *testing.T) {
	imp, err := New(Config{
		MainAccount:    "Assets:IB:{alias}:Stock",
		DepositAccount: "Assets:Bank:Checking",
	})
	if err != nil {
		t.Fatal(err)
	}
	res := imp.Extract(writeSample(t), nil)
	if len(res.Warnings) != 0 {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	if len(res.Records) != 5 {
		t.Fatalf("records = %d, want 5", len(res.Records))
	}

	var balance beanport.Balance
	var sale beanport.Transaction
	for _, r := range res.Records {
		switch v := r.(type) {
		case beanport.Balance:
			balance = v
		case beanport.Transaction:
			if strings.HasPrefix(v.Narration, "Sell") {
				sale = v
			}
		}
	}
	if balance.Account != "Assets:IB:Main-depot:Cash:USD" {
		t.Errorf("balance account = %s", balance.Account)
	}
	if want := date.New(2025, 4, 1); balance.Date != want {
		t.Errorf("balance date = %v, want day after period end %v", balance.Date, want)
	}
	if len(sale.Postings) != 5 {
		t.Errorf("sale postings = %d, want 2 lots + cash + fee + pnl", len(sale.Postings))
	}
	if sale.Postings[0].Account != "Assets:IB:Main-depot:Stock" {
		t.Errorf("lot account = %s", sale.Postings[0].Account)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	resp, err := ParseFlex([]byte(sampleStatement))
	if err != nil {
		t.Fatal(err)
	}
	st := resp.FlexStatements[0]
	var r1, r2 beanport.Result
	first := normalizeStatement(st, &r1)
	second := normalizeStatement(st, &r2)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("normalization is not idempotent")
	}
}

func TestLatestPrices(t *testing.T) {
	resp, err := ParseFlex([]byte(sampleStatement))
	if err != nil {
		t.Fatal(err)
	}
	prices, warnings := LatestPrices(resp.FlexStatements[0])
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	p, ok := prices["VT"]
	if !ok {
		t.Fatalf("no price for VT (trailing z not stripped?): %v", prices)
	}
	if !p.Value.Equal(beanport.M(51.2, "USD")) {
		t.Errorf("price = %v", p.Value)
	}
}

func TestFlexClientRetriesInProgress(t *testing.T) {
	var statementCalls int
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/send", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<FlexStatementResponse><Status>Success</Status><ReferenceCode>REF1</ReferenceCode><Url>%s/stmt</Url></FlexStatementResponse>`, server.URL)
	})
	mux.HandleFunc("/stmt", func(w http.ResponseWriter, r *http.Request) {
		statementCalls++
		if statementCalls == 1 {
			fmt.Fprint(w, `<FlexStatementResponse><Status>Warn</Status><ErrorCode>1018</ErrorCode><ErrorMessage>Statement generation in progress</ErrorMessage></FlexStatementResponse>`)
			return
		}
		fmt.Fprint(w, sampleStatement)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client := NewFlexClient("token", "query")
	client.base = server.URL + "/send"
	client.wait = time.Millisecond

	body, err := client.Download()
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if statementCalls != 2 {
		t.Errorf("statement calls = %d, want 2", statementCalls)
	}
	if _, err := ParseFlex(body); err != nil {
		t.Errorf("downloaded body does not parse: %v", err)
	}
}

func TestFlexClientGivesUpAfterOneRetry(t *testing.T) {
	var statementCalls int
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/send", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<FlexStatementResponse><Status>Success</Status><ReferenceCode>REF1</ReferenceCode><Url>%s/stmt</Url></FlexStatementResponse>`, server.URL)
	})
	mux.HandleFunc("/stmt", func(w http.ResponseWriter, r *http.Request) {
		statementCalls++
		fmt.Fprint(w, `<FlexStatementResponse><Status>Warn</Status><ErrorCode>1018</ErrorCode><ErrorMessage>Statement generation in progress</ErrorMessage></FlexStatementResponse>`)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client := NewFlexClient("token", "query")
	client.base = server.URL + "/send"
	client.wait = time.Millisecond

	if _, err := client.Download(); err == nil {
		t.Fatal("Download succeeded on a never-ready statement")
	}
	if statementCalls != 2 {
		t.Errorf("statement calls = %d, want exactly 2", statementCalls)
	}
}

func TestExtractWithoutCredentials(t *testing.T) {
	imp, err := New(Config{MainAccount: "Assets:IB:Stock"})
	if err != nil {
		t.Fatal(err)
	}
	res := imp.Extract("flex:", nil)
	if len(res.Records) != 0 {
		t.Errorf("records = %d, want 0", len(res.Records))
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %v, want one", res.Warnings)
	}
}
