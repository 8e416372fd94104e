// Package viac imports transaction exports of the VIAC pension platform.
//
// The export is one JSON document holding a "transactions" object keyed by
// sub-account. Pillar 2 accounts carry ".O" (mandatory) and ".U"
// (extra-mandatory) suffixes mapping to separate sub-ledgers; the "D1"/"D2"
// transfer accounts mirror internal moves and are skipped.
package viac

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/beanport/beanport"
	"github.com/beanport/beanport/date"
)

// Share identifies a fund of the share lookup.
type Share struct {
	Symbol string
	ISIN   string
}

// Config declares one VIAC portfolio.
type Config struct {
	Name        string // default "viac"
	FilePattern string // default `(?i)viac.*\.json$`
	Account     string // required, the portfolio's asset account
	// ObligatoriumAccount/UeberobligatoriumAccount override Account for
	// pillar 2 sub-accounts (".O"/".U" keys).
	ObligatoriumAccount      string
	UeberobligatoriumAccount string
	DepositAccount           string // counter account for contributions; empty skips them
	// ShareLookup maps the export's fund descriptions to symbols. Trades and
	// dividends of funds missing here are skipped with a warning.
	ShareLookup    map[string]Share
	DivSuffix      string // default "Div"
	InterestSuffix string // default "Interest"
	FeesSuffix     string // default "Fees"
}

type Importer struct {
	cfg     Config
	pattern *regexp.Regexp
}

func New(cfg Config) (*Importer, error) {
	if cfg.Account == "" {
		return nil, fmt.Errorf("viac: Account is required")
	}
	if cfg.Name == "" {
		cfg.Name = "viac"
	}
	if cfg.FilePattern == "" {
		cfg.FilePattern = `(?i)viac.*\.json$`
	}
	if cfg.DivSuffix == "" {
		cfg.DivSuffix = "Div"
	}
	if cfg.InterestSuffix == "" {
		cfg.InterestSuffix = "Interest"
	}
	if cfg.FeesSuffix == "" {
		cfg.FeesSuffix = "Fees"
	}
	pattern, err := regexp.Compile(cfg.FilePattern)
	if err != nil {
		return nil, fmt.Errorf("viac: invalid file pattern %q: %w", cfg.FilePattern, err)
	}
	return &Importer{cfg: cfg, pattern: pattern}, nil
}

func (imp *Importer) Name() string                  { return imp.cfg.Name }
func (imp *Importer) Account() string               { return imp.cfg.Account }
func (imp *Importer) Identify(filename string) bool { return imp.pattern.MatchString(filename) }
func (imp *Importer) Pattern() string               { return imp.cfg.FilePattern }

const currency = "CHF" // the platform books everything in francs

// Extract converts the JSON export, one sub-account at a time.
func (imp *Importer) Extract(path string, existing *beanport.Holdings) beanport.Result {
	var res beanport.Result
	raw, err := os.ReadFile(path)
	if err != nil {
		res.Warnf("viac: %v", err)
		return res
	}
	var doc any
	if err := json.Unmarshal([]byte(beanport.StripBOM(string(raw))), &doc); err != nil {
		res.Warnf("viac: %v", err)
		return res
	}
	byAccount, err := jsonpath.Get("$.transactions", doc)
	if err != nil {
		res.Warnf("viac: no transactions object: %v", err)
		return res
	}
	accounts, ok := byAccount.(map[string]any)
	if !ok {
		res.Warnf("viac: transactions is not keyed by account")
		return res
	}

	keys := make([]string, 0, len(accounts))
	for key := range accounts {
		if strings.HasSuffix(key, "D1") || strings.HasSuffix(key, "D2") {
			continue // transfer accounts mirror moves already booked elsewhere
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		list, ok := accounts[key].([]any)
		if !ok {
			res.Warnf("viac: account %s is not a transaction list", key)
			continue
		}
		imp.extractAccount(key, list, &res)
	}
	return res
}

// entry is one booking of a sub-account.
type entry struct {
	typ      string
	date     date.Date
	amount   beanport.Money
	balance  beanport.Money
	desc     string
	document string
}

func (imp *Importer) extractAccount(key string, list []any, res *beanport.Result) {
	account := imp.accountFor(key)
	var newest entry
	for i, item := range list {
		e, err := parseEntry(item)
		if err != nil {
			res.Warnf("viac: %s row %d: %v", key, i, err)
			continue
		}
		if newest.date.IsZero() || e.date.After(newest.date) {
			newest = e
		}
		imp.convert(key, account, e, res)
	}
	if !newest.date.IsZero() {
		res.Add(beanport.Balance{
			Date:    newest.date.Add(1),
			Account: liquidity(account),
			Amount:  newest.balance,
		})
	}
}

func parseEntry(item any) (entry, error) {
	str := func(path string) string {
		v, err := jsonpath.Get(path, item)
		if err != nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}
	num := func(path string, places int32) (beanport.Money, error) {
		v, err := jsonpath.Get(path, item)
		if err != nil {
			return beanport.Money{}, fmt.Errorf("missing %s", path)
		}
		f, ok := v.(float64)
		if !ok {
			return beanport.Money{}, fmt.Errorf("%s is not a number", path)
		}
		return beanport.M(f, currency).Round(places), nil
	}

	var e entry
	e.typ = str("$.type")
	e.desc = str("$.description")
	e.document = str("$.documentNumber")
	day, err := parseValueDate(str("$.valueDate"))
	if err != nil {
		return entry{}, err
	}
	e.date = day
	if e.amount, err = num("$.amountInChf", 4); err != nil {
		return entry{}, err
	}
	if e.balance, err = num("$.balanceAfterBooking", 3); err != nil {
		return entry{}, err
	}
	return e, nil
}

func parseValueDate(s string) (date.Date, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 10 {
		return date.Parse(s[:10])
	}
	return date.Parse(s)
}

func (imp *Importer) convert(key, account string, e entry, res *beanport.Result) {
	switch e.typ {
	case "INTEREST":
		res.Add(imp.cashPair(key, e, interestAccount(account, imp.cfg.InterestSuffix), "Interest"))
	case "FEE_CHARGE":
		res.Add(imp.cashPair(key, e, feesAccount(account, imp.cfg.FeesSuffix), "Fees"))
	case "CONTRIBUTION":
		if imp.cfg.DepositAccount == "" {
			return
		}
		tx := imp.cashPair(key, e, imp.cfg.DepositAccount, "Contribution")
		tx.Payee = "self"
		res.Add(tx)
	case "TRADE_BUY", "TRADE_SELL":
		imp.convertTrade(key, account, e, res)
	case "DIVIDEND", "DIVIDEND_CANCELLATION":
		imp.convertDividend(key, account, e, res)
	default:
		res.Warnf("viac: %s: unsupported booking type %q", key, e.typ)
	}
}

// cashPair books an amount on the liquidity account against a counter
// account, the shape shared by interest, fees and contributions.
func (imp *Importer) cashPair(key string, e entry, counterAccount, narration string) beanport.Transaction {
	return beanport.Transaction{
		Date:      e.date,
		Flag:      beanport.Cleared,
		Payee:     "Viac",
		Narration: narration,
		Meta:      entryMeta(key, e),
		Postings: []beanport.Posting{
			beanport.CashPosting(counterAccount, e.amount.Neg()),
			beanport.CashPosting(liquidity(imp.accountFor(key)), e.amount),
		},
	}
}

// entryMeta is the provenance trail every record carries: the sub-account
// key and, when the booking has one, the portal URL of its document.
func entryMeta(key string, e entry) beanport.Metadata {
	meta := beanport.Metadata{}.Add("source-account", key)
	if e.document != "" {
		meta = meta.Add("document", documentURL(e.document))
	}
	return meta
}

// convertTrade books a fund trade. The export carries no quantity or price,
// only the cash movement, so the security leg is zero units with an empty
// cost spec and the record is flagged for manual completion.
func (imp *Importer) convertTrade(key, account string, e entry, res *beanport.Result) {
	share, ok := imp.cfg.ShareLookup[e.desc]
	if !ok {
		res.Warnf("viac: %s: fund %q not in share lookup, trade skipped", key, e.desc)
		return
	}
	side := "BUY"
	if e.amount.IsPositive() {
		side = "SELL"
	}
	asset := beanport.UnitsPosting(account+":"+share.Symbol, beanport.Q(0), share.Symbol)
	asset.Cost = &beanport.CostSpec{}
	res.Add(beanport.Transaction{
		Date:      e.date,
		Flag:      beanport.Pending, // quantity must be filled in by hand
		Payee:     share.ISIN,
		Narration: fmt.Sprintf("%s %s; %s", side, share.Symbol, e.desc),
		Meta:      entryMeta(key, e),
		Postings: []beanport.Posting{
			asset,
			beanport.CashPosting(liquidity(account), e.amount),
		},
	})
}

func (imp *Importer) convertDividend(key, account string, e entry, res *beanport.Result) {
	share, ok := imp.cfg.ShareLookup[e.desc]
	if !ok {
		res.Warnf("viac: %s: fund %q not in share lookup, dividend skipped", key, e.desc)
		return
	}
	res.Add(beanport.Transaction{
		Date:      e.date,
		Flag:      beanport.Cleared,
		Payee:     share.ISIN,
		Narration: fmt.Sprintf("Dividend %s; %s", share.Symbol, e.desc),
		Meta:      entryMeta(key, e).Add("isin", share.ISIN),
		Postings: []beanport.Posting{
			beanport.CashPosting(divAccount(account, share.Symbol, imp.cfg.DivSuffix), e.amount.Neg()),
			beanport.CashPosting(liquidity(account), e.amount),
		},
	})
}

// accountFor maps a sub-account key to its asset account.
func (imp *Importer) accountFor(key string) string {
	switch {
	case strings.HasSuffix(key, ".O") && imp.cfg.ObligatoriumAccount != "":
		return imp.cfg.ObligatoriumAccount
	case strings.HasSuffix(key, ".U") && imp.cfg.UeberobligatoriumAccount != "":
		return imp.cfg.UeberobligatoriumAccount
	}
	return imp.cfg.Account
}

func liquidity(account string) string { return account + ":" + currency }

func divAccount(account, symbol, suffix string) string {
	return strings.Replace(account, "Assets", "Income", 1) + ":" + symbol + ":" + suffix
}

func interestAccount(account, suffix string) string {
	return strings.Replace(account, "Assets", "Income", 1) + ":" + suffix + ":" + currency
}

func feesAccount(account, suffix string) string {
	return strings.Replace(account, "Assets", "Expenses", 1) + ":" + suffix + ":" + currency
}

func documentURL(document string) string {
	return fmt.Sprintf("https://app.viac.ch/files/document/%s/content/%s.pdf", document, document)
}
