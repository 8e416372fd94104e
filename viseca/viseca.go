// Package viseca imports Viseca credit card JSON transaction exports.
package viseca

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/beanport/beanport"
	"github.com/beanport/beanport/date"
)

// Config declares one Viseca card.
type Config struct {
	Name        string // default "viseca"
	FilePattern string // default `(?i)viseca.*\.json$`
	Account     string // required, the card liability account
	// CategoryMap maps the export's pfm category ids to expense accounts.
	// Unmapped categories go to UnknownAccount with a warning suggesting the
	// closest known id.
	CategoryMap    map[string]string
	UnknownAccount string // default "Expenses:Unknown"
	// SplitAccount, when set, splits every expense between the mapped
	// account and this one according to SplitRatio.
	SplitAccount string
	SplitRatio   float64 // default 0.5
}

func defaultCategoryMap() map[string]string {
	return map[string]string{
		"food_and_drink": "Expenses:Food",
		"groceries":      "Expenses:Groceries",
		"shopping":       "Expenses:Shopping",
		"travel":         "Expenses:Travel",
		"personal_care":  "Expenses:PersonalCare",
		"leisure":        "Expenses:Leisure",
		"transport":      "Expenses:Transport",
	}
}

type Importer struct {
	cfg     Config
	pattern *regexp.Regexp
	ratio   beanport.Quantity
}

func New(cfg Config) (*Importer, error) {
	if cfg.Account == "" {
		return nil, fmt.Errorf("viseca: Account is required")
	}
	if cfg.Name == "" {
		cfg.Name = "viseca"
	}
	if cfg.FilePattern == "" {
		cfg.FilePattern = `(?i)viseca.*\.json$`
	}
	if cfg.CategoryMap == nil {
		cfg.CategoryMap = defaultCategoryMap()
	}
	if cfg.UnknownAccount == "" {
		cfg.UnknownAccount = "Expenses:Unknown"
	}
	if cfg.SplitRatio == 0 {
		cfg.SplitRatio = 0.5
	}
	pattern, err := regexp.Compile(cfg.FilePattern)
	if err != nil {
		return nil, fmt.Errorf("viseca: invalid file pattern %q: %w", cfg.FilePattern, err)
	}
	return &Importer{cfg: cfg, pattern: pattern, ratio: beanport.Q(cfg.SplitRatio)}, nil
}

func (imp *Importer) Name() string                  { return imp.cfg.Name }
func (imp *Importer) Account() string               { return imp.cfg.Account }
func (imp *Importer) Identify(filename string) bool { return imp.pattern.MatchString(filename) }
func (imp *Importer) Pattern() string               { return imp.cfg.FilePattern }

type export struct {
	List []transaction `json:"list"`
}

type transaction struct {
	TransactionID      string      `json:"transactionId"`
	Date               string      `json:"date"`
	PrettyName         string      `json:"prettyName"`
	MerchantName       string      `json:"merchantName"`
	Details            string      `json:"details"`
	Currency           string      `json:"currency"`
	Amount             json.Number `json:"amount"`
	OriginalAmount     json.Number `json:"originalAmount"`
	OriginalCurrency   string      `json:"originalCurrency"`
	ConversionRate     json.Number `json:"conversionRate"`
	ConversionRateDate string      `json:"conversionRateDate"`
	PfmCategory        struct {
		ID string `json:"id"`
	} `json:"pfmCategory"`
}

// Extract converts the export. Card payments (the "deposits" category) are
// the statement settlements and stay out; everything else posts the expense
// against the card liability.
func (imp *Importer) Extract(path string, existing *beanport.Holdings) beanport.Result {
	var res beanport.Result
	raw, err := os.ReadFile(path)
	if err != nil {
		res.Warnf("viseca: %v", err)
		return res
	}
	var doc export
	if err := json.Unmarshal([]byte(beanport.StripBOM(string(raw))), &doc); err != nil {
		res.Warnf("viseca: %v", err)
		return res
	}

	for i, tx := range doc.List {
		if tx.PfmCategory.ID == "deposits" {
			continue
		}
		record, ok := imp.convert(tx, i, &res)
		if ok {
			res.Add(record)
		}
	}
	return res
}

func (imp *Importer) convert(tx transaction, index int, res *beanport.Result) (beanport.Transaction, bool) {
	day, err := parseDate(tx.Date)
	if err != nil {
		res.Warnf("viseca: transaction %d: %v", index, err)
		return beanport.Transaction{}, false
	}
	currency := tx.Currency
	if currency == "" {
		currency = "CHF"
	}
	amount, err := beanport.ParseMoney(tx.Amount.String(), currency)
	if err != nil {
		res.Warnf("viseca: transaction %d: %v", index, err)
		return beanport.Transaction{}, false
	}
	// negative amounts are refunds, booked with the same orientation
	amount = amount.Abs()

	payee := tx.PrettyName
	if payee == "" {
		payee = tx.MerchantName
	}
	if payee == "" {
		payee = "Unknown"
	}

	category := tx.PfmCategory.ID
	expenseAccount, mapped := imp.cfg.CategoryMap[category]
	if !mapped {
		expenseAccount = imp.cfg.UnknownAccount
		if closest := imp.closestCategory(category); closest != "" {
			res.Warnf("viseca: unmapped category %q (closest known: %q)", category, closest)
		} else {
			res.Warnf("viseca: unmapped category %q", category)
		}
	}

	record := beanport.Transaction{
		Date:     day,
		Flag:     beanport.Cleared,
		Payee:    payee,
		Postings: []beanport.Posting{beanport.CashPosting(imp.cfg.Account, amount.Neg())},
	}
	if imp.cfg.SplitAccount != "" {
		// main share rounded to 3 decimals, remainder keeps the sum exact
		main := amount.Mul(imp.ratio).Round(3)
		record.Postings = append(record.Postings,
			beanport.CashPosting(expenseAccount, main),
			beanport.CashPosting(imp.cfg.SplitAccount, amount.Sub(main)),
		)
	} else {
		record.Postings = append(record.Postings, beanport.CashPosting(expenseAccount, amount))
	}

	record.Meta = metaIf(record.Meta, "transaction-id", tx.TransactionID)
	record.Meta = metaIf(record.Meta, "category", category)
	record.Meta = metaIf(record.Meta, "details", tx.Details)
	if tx.OriginalCurrency != "" && tx.OriginalCurrency != currency {
		record.Meta = metaIf(record.Meta, "original-amount", tx.OriginalAmount.String()+" "+tx.OriginalCurrency)
		record.Meta = metaIf(record.Meta, "conversion-rate", tx.ConversionRate.String())
		record.Meta = metaIf(record.Meta, "conversion-rate-date", tx.ConversionRateDate)
	}
	return record, true
}

func metaIf(meta beanport.Metadata, key, value string) beanport.Metadata {
	if value == "" {
		return meta
	}
	return meta.Add(key, value)
}

// closestCategory names the known category id nearest to the unmapped one,
// so the config fix is obvious from the warning.
func (imp *Importer) closestCategory(category string) string {
	best, bestDistance := "", -1
	for known := range imp.cfg.CategoryMap {
		d := levenshtein.ComputeDistance(category, known)
		if bestDistance < 0 || d < bestDistance || (d == bestDistance && known < best) {
			best, bestDistance = known, d
		}
	}
	return best
}

func parseDate(s string) (date.Date, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 10 {
		return date.Parse(s[:10])
	}
	return date.Parse(s)
}
