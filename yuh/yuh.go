// Package yuh imports Yuh bank CSV exports: payments, card and Twint
// transactions, savings-goal moves, and the automatic currency exchanges the
// bank books next to foreign-currency spends.
package yuh

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/beanport/beanport"
	"github.com/beanport/beanport/date"
)

// Config declares one Yuh account.
type Config struct {
	Name        string // default "yuh"
	FilePattern string // default `(?i)yuh_.*\.csv$`
	Account     string // required, the pay account
	// GoalsBaseAccount is the parent of per-goal sub-accounts, default
	// Account + ":Goals".
	GoalsBaseAccount string
	Currency         string // home currency, default "CHF"
}

type Importer struct {
	cfg     Config
	pattern *regexp.Regexp
}

func New(cfg Config) (*Importer, error) {
	if cfg.Account == "" {
		return nil, fmt.Errorf("yuh: Account is required")
	}
	if cfg.Name == "" {
		cfg.Name = "yuh"
	}
	if cfg.FilePattern == "" {
		cfg.FilePattern = `(?i)yuh_.*\.csv$`
	}
	if cfg.GoalsBaseAccount == "" {
		cfg.GoalsBaseAccount = cfg.Account + ":Goals"
	}
	if cfg.Currency == "" {
		cfg.Currency = "CHF"
	}
	pattern, err := regexp.Compile(cfg.FilePattern)
	if err != nil {
		return nil, fmt.Errorf("yuh: invalid file pattern %q: %w", cfg.FilePattern, err)
	}
	return &Importer{cfg: cfg, pattern: pattern}, nil
}

func (imp *Importer) Name() string                  { return imp.cfg.Name }
func (imp *Importer) Account() string               { return imp.cfg.Account }
func (imp *Importer) Identify(filename string) bool { return imp.pattern.MatchString(filename) }
func (imp *Importer) Pattern() string               { return imp.cfg.FilePattern }

// Activity types of the export.
const (
	actReward         = "REWARD_RECEIVED"
	actGoalDeposit    = "GOAL_DEPOSIT"
	actGoalWithdrawal = "GOAL_WITHDRAWAL"
	actPaymentIn      = "PAYMENT_TRANSACTION_IN"
	actPaymentOut     = "PAYMENT_TRANSACTION_OUT"
	actCardIn         = "CARD_TRANSACTION_IN"
	actCardOut        = "CARD_TRANSACTION_OUT"
	actExchange       = "CURRENCY_EXCHANGE"
)

// line is one parsed export row. Exchange rows are two-legged (home debit,
// foreign credit), which the shared Row cannot carry, so the package keeps
// its own shape and derives a Row per leg where needed.
type line struct {
	activityType string
	name         string
	date         date.Date
	debit        beanport.Money
	hasDebit     bool
	credit       beanport.Money
	hasCredit    bool
	index        int
}

// Extract converts the semicolon CSV. Foreign-currency spends are paired
// with their automatic exchange row; rewards are skipped; goal moves post
// between the pay account and the goal's sub-account.
func (imp *Importer) Extract(path string, existing *beanport.Holdings) beanport.Result {
	var res beanport.Result
	f, err := os.Open(path)
	if err != nil {
		res.Warnf("yuh: %v", err)
		return res
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		res.Warnf("yuh: %v", err)
		return res
	}
	if len(records) < 2 {
		res.Warnf("yuh: %s has no data rows", path)
		return res
	}

	columns := headerIndex(records[0])
	var lines []line
	for i, record := range records[1:] {
		l, reason, ok := parseLine(record, columns, i)
		if !ok {
			if reason != "" {
				res.Warnf("yuh: row %d: %s", i+2, reason)
			}
			continue
		}
		lines = append(lines, l)
	}

	imp.convert(lines, &res)
	return res
}

func headerIndex(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(beanport.StripBOM(name))] = i
	}
	return columns
}

func parseLine(record []string, columns map[string]int, index int) (line, string, bool) {
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	activityType := field("ACTIVITY TYPE")
	if activityType == actReward {
		return line{}, "", false // rewards never hit the ledger
	}
	dateStr := field("DATE")
	if dateStr == "" {
		return line{}, "empty date", false
	}
	day, err := date.ParseLayout("02/01/2006", dateStr)
	if err != nil {
		return line{}, err.Error(), false
	}

	l := line{
		activityType: activityType,
		name:         strings.Trim(field("ACTIVITY NAME"), `"`),
		date:         day,
		index:        index,
	}
	if v := field("DEBIT"); v != "" {
		amount, err := beanport.ParseMoney(v, field("DEBIT CURRENCY"))
		if err != nil {
			return line{}, err.Error(), false
		}
		l.debit, l.hasDebit = amount, true
	}
	if v := field("CREDIT"); v != "" {
		amount, err := beanport.ParseMoney(v, field("CREDIT CURRENCY"))
		if err != nil {
			return line{}, err.Error(), false
		}
		l.credit, l.hasCredit = amount, true
	}
	return l, "", true
}

func (imp *Importer) convert(lines []line, res *beanport.Result) {
	used := make([]bool, len(lines))

	for _, l := range lines {
		switch l.activityType {
		case actGoalDeposit, actGoalWithdrawal:
			imp.convertGoal(l, res)
		case actExchange:
			// consumed by the foreign spend it belongs to; leftovers are
			// handled below
		default:
			imp.convertPayment(l, lines, used, res)
		}
	}

	for i, l := range lines {
		if l.activityType == actExchange && !used[i] {
			res.Warnf("yuh: exchange on %s has no matching foreign transaction", l.date)
			res.Add(imp.exchangeOnly(l))
		}
	}
}

// convertGoal moves money between the pay account and a savings goal. The
// goal name arrives decorated, e.g. `Deposit to «Taxes (16%)»`.
func (imp *Importer) convertGoal(l line, res *beanport.Result) {
	deposit := l.activityType == actGoalDeposit
	amount := l.credit
	if !deposit {
		amount = l.debit
	}
	name := cleanGoalName(l.name)
	narration := "Withdrawal from " + name
	pay := amount // withdrawal credits the pay account
	if deposit {
		narration = "Deposit to " + name
		pay = amount.Neg()
	}
	res.Add(beanport.Transaction{
		Date:      l.date,
		Flag:      beanport.Cleared,
		Payee:     "self",
		Narration: narration,
		Postings: []beanport.Posting{
			beanport.CashPosting(imp.cfg.Account, pay),
			beanport.CashPosting(imp.cfg.GoalsBaseAccount+":"+name, pay.Neg()),
		},
	})
}

var goalDecorations = strings.NewReplacer("Deposit to «", "", "Withdrawal from «", "", "«", "", "»", "")
var parenthesized = regexp.MustCompile(`\s*\([^)]*\)`)

func cleanGoalName(name string) string {
	return strings.TrimSpace(parenthesized.ReplaceAllString(goalDecorations.Replace(name), ""))
}

// convertPayment emits a payment or card transaction. A spend in a foreign
// currency is merged with the automatic exchange row whose credit leg covers
// it, so the ledger sees the home-currency movement with the original amount
// and the applied rate in metadata.
func (imp *Importer) convertPayment(l line, lines []line, used []bool, res *beanport.Result) {
	var amount beanport.Money
	switch {
	case l.hasDebit:
		amount = l.debit
	case l.hasCredit:
		amount = l.credit
	default:
		return // informational row without an amount
	}

	tx := beanport.Transaction{
		Date:     l.date,
		Flag:     beanport.Cleared,
		Payee:    l.name,
		Postings: []beanport.Posting{beanport.CashPosting(imp.cfg.Account, amount)},
	}
	switch l.activityType {
	case actPaymentIn, actPaymentOut:
		tx.Payee = cleanTransferPayee(tx.Payee)
	case actCardIn, actCardOut:
		tx.Payee = cleanTwintPayee(tx.Payee)
		tx.Narration = "Twint"
	}

	if l.hasDebit && amount.Currency() != imp.cfg.Currency {
		if j, ok := matchExchange(l, lines, used); ok {
			used[j] = true
			ex := lines[j]
			rate := ex.debit.Abs().DivPrice(ex.credit.Abs()).Round(6)
			tx.Postings = []beanport.Posting{beanport.CashPosting(imp.cfg.Account, ex.debit)}
			tx.Meta = tx.Meta.
				Add("original-amount", amount.ExactText()).
				Add("exchange-rate", rate.String())
		}
		// unmatched foreign spends stay standalone in their own currency
	}
	res.Add(tx)
}

var transferDecorations = strings.NewReplacer(
	"Transfer from ", "", "Transfer to ", "",
	"Überweisung von ", "", "Überweisung an ", "",
)

func cleanTransferPayee(payee string) string { return transferDecorations.Replace(payee) }

var twintDecorations = strings.NewReplacer("Twint an ", "", "Twint von ", "")

func cleanTwintPayee(payee string) string {
	return strings.Title(strings.ToLower(twintDecorations.Replace(payee)))
}

// matchExchange finds the first unconsumed exchange row whose foreign credit
// leg covers the spend's debit exactly.
func matchExchange(spend line, lines []line, used []bool) (int, bool) {
	want := spend.debit.Neg()
	for j, l := range lines {
		if used[j] || l.activityType != actExchange || !l.hasCredit || !l.hasDebit {
			continue
		}
		if l.credit.Currency() == want.Currency() && l.credit.Equal(want) {
			return j, true
		}
	}
	return 0, false
}

// exchangeOnly records an exchange whose foreign counterpart never showed
// up: both legs on the pay account, priced so the pair balances.
func (imp *Importer) exchangeOnly(l line) beanport.Transaction {
	foreign := beanport.CashPosting(imp.cfg.Account, l.credit)
	if !l.credit.IsZero() {
		rate := l.debit.Abs().DivPrice(l.credit.Abs()).Round(6).Amount(imp.cfg.Currency)
		foreign.Price = &rate
	}
	return beanport.Transaction{
		Date:      l.date,
		Flag:      beanport.Pending,
		Payee:     l.name,
		Narration: "Currency exchange",
		Postings: []beanport.Posting{
			beanport.CashPosting(imp.cfg.Account, l.debit),
			foreign,
		},
	}
}
