package ibkr

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/beanport/beanport"
)

// Config declares one Interactive Brokers account. MainAccount is the only
// structurally required field; a missing one fails construction rather than
// producing misfiled records.
type Config struct {
	Name        string // importer name, default "ibkr"
	FilePattern string // filename regex for Identify, default `(?i)ibkr.*\.xml$`

	// MainAccount is the securities account, e.g. "Assets:IB:{alias}:Stock".
	// The {alias} placeholder is replaced per statement by the formatted
	// account alias.
	MainAccount string
	// StockAccountType/CashAccountType are the segments swapped to derive the
	// liquidity account from MainAccount. Defaults "Stock" and "Cash".
	StockAccountType string
	CashAccountType  string

	DivAccount     string // dividend income root, default "Income:Dividends"
	WHTAccount     string // withholding tax root, default "Expenses:Taxes:Withholding"
	PnLAccount     string // realized gains, default "Income:PnL"
	FeesAccount    string // broker fees, default "Expenses:Fees"
	DepositAccount string // counter account for deposits; empty skips them
	InterestSuffix string // leaf of the derived interest income account, default "Interest"

	Currency string // account base currency, default "USD"

	// SuppressClosedLotPrice drops historical lot prices from sale postings,
	// leaving the empty cost spec so the ledger matches its own lots.
	SuppressClosedLotPrice bool

	// Token and QueryID enable downloading statements from the Flex Web
	// Service instead of reading a local file.
	Token   string
	QueryID string
}

// Importer converts flex-query statements into ledger records.
type Importer struct {
	cfg     Config
	pattern *regexp.Regexp
	client  *FlexClient
}

// New validates the configuration and returns the importer.
func New(cfg Config) (*Importer, error) {
	if cfg.MainAccount == "" {
		return nil, fmt.Errorf("ibkr: MainAccount is required")
	}
	if cfg.Name == "" {
		cfg.Name = "ibkr"
	}
	if cfg.FilePattern == "" {
		cfg.FilePattern = `(?i)ibkr.*\.xml$`
	}
	if cfg.StockAccountType == "" {
		cfg.StockAccountType = "Stock"
	}
	if cfg.CashAccountType == "" {
		cfg.CashAccountType = "Cash"
	}
	if cfg.DivAccount == "" {
		cfg.DivAccount = "Income:Dividends"
	}
	if cfg.WHTAccount == "" {
		cfg.WHTAccount = "Expenses:Taxes:Withholding"
	}
	if cfg.PnLAccount == "" {
		cfg.PnLAccount = "Income:PnL"
	}
	if cfg.FeesAccount == "" {
		cfg.FeesAccount = "Expenses:Fees"
	}
	if cfg.InterestSuffix == "" {
		cfg.InterestSuffix = "Interest"
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	pattern, err := regexp.Compile(cfg.FilePattern)
	if err != nil {
		return nil, fmt.Errorf("ibkr: invalid file pattern %q: %w", cfg.FilePattern, err)
	}
	return &Importer{cfg: cfg, pattern: pattern, client: NewFlexClient(cfg.Token, cfg.QueryID)}, nil
}

func (imp *Importer) Name() string    { return imp.cfg.Name }
func (imp *Importer) Account() string { return imp.cfg.MainAccount }
func (imp *Importer) Pattern() string { return imp.cfg.FilePattern }

// Identify matches local statement files by the configured pattern, and the
// "flex:" pseudo path that triggers a Flex Web Service download.
func (imp *Importer) Identify(filename string) bool {
	return filename == flexPath || imp.pattern.MatchString(filename)
}

// flexPath asks Extract to download the statement instead of reading a file.
const flexPath = "flex:"

// Extract parses one statement file (or downloads it when path is "flex:")
// into ledger records. Network and credential failures return an empty result
// with a warning; they are never retried beyond the service's own
// not-ready-yet pause.
func (imp *Importer) Extract(path string, existing *beanport.Holdings) beanport.Result {
	var res beanport.Result
	data, err := imp.load(path)
	if err != nil {
		res.Warnf("ibkr: statement unavailable: %v", err)
		return res
	}
	resp, err := ParseFlex(data)
	if err != nil {
		res.Warnf("ibkr: %v", err)
		return res
	}
	for _, st := range resp.FlexStatements {
		res.Merge(imp.extractStatement(st, existing))
	}
	return res
}

func (imp *Importer) load(path string) ([]byte, error) {
	if path == flexPath {
		return imp.client.Download()
	}
	return os.ReadFile(path)
}

// extractStatement processes one account's statement. All per-statement state
// (the account names derived from the alias) is local to the call.
func (imp *Importer) extractStatement(st FlexStatement, existing *beanport.Holdings) beanport.Result {
	var res beanport.Result
	acc := newAccounts(imp.cfg, formatAlias(st.Info.Alias))

	rows := normalizeStatement(st, &res)
	res.Merge(pairDividends(rows, acc))
	res.Merge(convertTrades(rows, acc, imp.cfg.SuppressClosedLotPrice))
	res.Merge(convertCashRows(rows, acc, imp.cfg.DepositAccount))
	res.Merge(convertActions(st.Actions, acc, existing))
	res.Merge(convertCashReport(st.CashReport, acc))
	return res
}

// formatAlias turns an account alias like "main depot" into an account
// segment "Main-depot".
func formatAlias(alias string) string {
	alias = strings.ReplaceAll(strings.TrimSpace(alias), " ", "-")
	if alias == "" {
		return ""
	}
	r := []rune(alias)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
