// Package revolut imports Revolut account CSV exports.
package revolut

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/beanport/beanport"
	"github.com/beanport/beanport/date"
)

// Config declares one Revolut account.
type Config struct {
	Name        string // default "revolut"
	FilePattern string // default `(?i)revolut.*\.csv$`
	Account     string // required, the asset account rows post to
	Currency    string // account currency for the balance assertion, default "CHF"
}

type Importer struct {
	cfg     Config
	pattern *regexp.Regexp
}

func New(cfg Config) (*Importer, error) {
	if cfg.Account == "" {
		return nil, fmt.Errorf("revolut: Account is required")
	}
	if cfg.Name == "" {
		cfg.Name = "revolut"
	}
	if cfg.FilePattern == "" {
		cfg.FilePattern = `(?i)revolut.*\.csv$`
	}
	if cfg.Currency == "" {
		cfg.Currency = "CHF"
	}
	pattern, err := regexp.Compile(cfg.FilePattern)
	if err != nil {
		return nil, fmt.Errorf("revolut: invalid file pattern %q: %w", cfg.FilePattern, err)
	}
	return &Importer{cfg: cfg, pattern: pattern}, nil
}

func (imp *Importer) Name() string                  { return imp.cfg.Name }
func (imp *Importer) Account() string               { return imp.cfg.Account }
func (imp *Importer) Identify(filename string) bool { return imp.pattern.MatchString(filename) }
func (imp *Importer) Pattern() string               { return imp.cfg.FilePattern }

// The export's fixed column set.
const (
	colType = iota
	colProduct
	colStarted
	colCompleted
	colDescription
	colAmount
	colFee
	colCurrency
	colState
	colBalance
	columnCount
)

// Extract converts the CSV into one transaction per completed row, followed
// by a balance assertion taken from the newest row's running balance, dated
// the day after so it checks against a complete day.
func (imp *Importer) Extract(path string, existing *beanport.Holdings) beanport.Result {
	var res beanport.Result
	f, err := os.Open(path)
	if err != nil {
		res.Warnf("revolut: %v", err)
		return res
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		res.Warnf("revolut: %v", err)
		return res
	}
	if len(records) < 2 {
		res.Warnf("revolut: %s has no data rows", path)
		return res
	}

	var lastDate date.Date
	var lastBalance beanport.Money
	for i, record := range records[1:] { // first row is the header
		o := normalize(record, imp.cfg.Currency)
		if reason, skipped := o.Skipped(); skipped {
			res.Warnf("revolut: row %d: %s", i+2, reason)
			continue
		}
		row, _ := o.Row()
		res.Add(beanport.Transaction{
			Date:     row.Date,
			Flag:     beanport.Cleared,
			Payee:    row.Description,
			Postings: []beanport.Posting{beanport.CashPosting(imp.cfg.Account, row.Amount)},
		})
		lastDate = row.Date
		// running balance of the newest parsed row backs the assertion
		balance, err := beanport.ParseMoney(record[colBalance], imp.cfg.Currency)
		if err == nil {
			lastBalance = balance
		}
	}

	if !lastDate.IsZero() {
		res.Add(beanport.Balance{
			Date:    lastDate.Add(1),
			Account: imp.cfg.Account,
			Amount:  lastBalance,
		})
	}
	return res
}

func normalize(record []string, fallbackCurrency string) beanport.Outcome {
	if len(record) < columnCount {
		return beanport.Skipf("short record, %d fields", len(record))
	}
	day, err := parseTimestamp(record[colCompleted])
	if err != nil {
		return beanport.Skipf("%v", err)
	}
	currency := strings.TrimSpace(record[colCurrency])
	if currency == "" {
		currency = fallbackCurrency
	}
	amount, err := beanport.ParseMoney(record[colAmount], currency)
	if err != nil {
		return beanport.Skipf("%v", err)
	}
	return beanport.Ok(beanport.Row{
		Date:        day,
		Currency:    currency,
		Amount:      amount,
		Description: strings.TrimSpace(record[colDescription]),
	})
}

// parseTimestamp handles "2025-03-01 12:34:56" completed-date values, with or
// without the time part.
func parseTimestamp(s string) (date.Date, error) {
	s = strings.TrimSpace(beanport.StripBOM(s))
	if len(s) >= 10 {
		if d, err := date.Parse(s[:10]); err == nil {
			return d, nil
		}
	}
	return date.ParseLayout("2/1/2006 15:04:05", s)
}
