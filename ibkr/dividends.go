package ibkr

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/beanport/beanport"
	"github.com/beanport/beanport/date"
)

// perShareRate extracts the per-share rate from a dividend description like
// "VT(US92204A6094) CASH DIVIDEND USD 0.59 PER SHARE (Ordinary Dividend)".
var perShareRate = regexp.MustCompile(`([A-Z]{3}) ([\d.]+) PER SHARE`)

// isinParens extracts the ISIN from its parenthesized spot after the symbol.
var isinParens = regexp.MustCompile(`\((.*?)\)`)

// divGroup collects the dividend and withholding-tax legs believed to belong
// to one distribution event.
type divGroup struct {
	key        string
	symbol     string
	currency   string
	date       date.Date
	isin       string
	correction bool
	div        beanport.Money
	wht        beanport.Money
	hasDiv     bool
	hasWht     bool
	trail      []string // every contributing description, file order
}

// groupKey derives the matching key for one dividend or tax row: symbol,
// per-share rate from the description, and report date. Rows of one event
// share all three even when the report splits or corrects them.
func groupKey(row beanport.Row) string {
	rate := "?"
	if m := perShareRate.FindStringSubmatch(row.Description); m != nil {
		rate = m[2]
	}
	return fmt.Sprintf("%s_%s_%s", row.Symbol, rate, row.Date)
}

// pairDividends reconstructs distribution events from dividend and
// withholding-tax rows. Amounts of rows sharing a key are summed per leg, so
// split payments and correction rows collapse into one record. A key with a
// single leg emits a degraded record marked awaiting its counterpart; it is
// never dropped and never retried on a later file.
func pairDividends(rows []beanport.Row, acc accounts) beanport.Result {
	var res beanport.Result
	var order []string
	groups := make(map[string]*divGroup)

	for _, row := range rows {
		if row.Category != beanport.Dividend && row.Category != beanport.WithholdingTax {
			continue
		}
		key := groupKey(row)
		g, ok := groups[key]
		if !ok {
			g = &divGroup{key: key, symbol: row.Symbol, currency: row.Currency, date: row.Date}
			if m := isinParens.FindStringSubmatch(row.Description); m != nil {
				g.isin = m[1]
			}
			groups[key] = g
			order = append(order, key)
		}
		if strings.Contains(row.Description, "CORRECTION") {
			g.correction = true
		}
		g.trail = append(g.trail, row.Description)
		if row.Category == beanport.Dividend {
			g.div = g.div.Add(row.Amount)
			g.hasDiv = true
		} else {
			g.wht = g.wht.Add(row.Amount)
			g.hasWht = true
		}
	}

	for _, key := range order {
		res.Add(buildDividend(groups[key], acc, &res))
	}
	return res
}

func buildDividend(g *divGroup, acc accounts, res *beanport.Result) beanport.Transaction {
	tx := beanport.Transaction{
		Date:      g.date,
		Flag:      beanport.Cleared,
		Payee:     g.symbol,
		Narration: "Dividend " + g.symbol,
	}
	if g.isin != "" {
		tx.Meta = tx.Meta.Add("isin", g.isin)
	}
	for _, desc := range g.trail {
		tx.Meta = tx.Meta.Add("source", desc)
	}
	if g.correction {
		tx.Tags = append(tx.Tags, "correction")
	}

	switch {
	case g.hasDiv && g.hasWht:
		tx.Postings = []beanport.Posting{
			beanport.CashPosting(acc.dividend(g.symbol), g.div.Neg()),
			beanport.CashPosting(acc.withholding(g.symbol), g.wht.Neg()),
			beanport.CashPosting(acc.cash(g.currency), g.div.Add(g.wht)),
		}
	case g.hasDiv:
		res.Warnf("ibkr: dividend %s has no withholding tax leg", g.key)
		tx.Flag = beanport.Pending
		tx.Tags = append(tx.Tags, "awaiting-wht")
		tx.Meta = tx.Meta.Add("match-key", g.key)
		tx.Postings = []beanport.Posting{
			beanport.CashPosting(acc.dividend(g.symbol), g.div.Neg()),
			beanport.CashPosting(acc.cash(g.currency), g.div),
		}
	default:
		res.Warnf("ibkr: withholding tax %s has no dividend leg", g.key)
		tx.Flag = beanport.Pending
		tx.Tags = append(tx.Tags, "awaiting-dividend")
		tx.Meta = tx.Meta.Add("match-key", g.key)
		tx.Postings = []beanport.Posting{
			beanport.CashPosting(acc.withholding(g.symbol), g.wht.Neg()),
			beanport.CashPosting(acc.cash(g.currency), g.wht),
		}
	}
	return tx
}
