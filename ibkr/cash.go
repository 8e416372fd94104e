package ibkr

import (
	"regexp"

	"github.com/beanport/beanport"
)

// feeMonth and interestMonth extract the period a fee or interest line
// covers, e.g. "BALANCE OF MONTHLY MINIMUM FEE FOR JUN 2025" and
// "USD CREDIT INT FOR JUN-2025".
var (
	feeMonth      = regexp.MustCompile(`\w{3} \d{4}`)
	interestMonth = regexp.MustCompile(`\w{3}-\d{4}`)
)

// convertCashRows emits the single-leg cash movements: fees, interest and
// deposits. Deposits are skipped when no counter account is configured, the
// rest always lands somewhere. Rows nothing classified are warned about, not
// dropped silently.
func convertCashRows(rows []beanport.Row, acc accounts, depositAccount string) beanport.Result {
	var res beanport.Result
	for _, row := range rows {
		switch row.Category {
		case beanport.Fee:
			res.Add(buildCashPair(row, acc.cash(row.Currency), acc.fees, "Fee", periodMeta(row, feeMonth, &res)))
		case beanport.Interest:
			res.Add(buildCashPair(row, acc.cash(row.Currency), acc.interest(row.Currency), "Interest", periodMeta(row, interestMonth, &res)))
		case beanport.Deposit:
			if depositAccount == "" {
				continue
			}
			res.Add(buildCashPair(row, acc.cash(row.Currency), depositAccount, "Transfer", nil))
		case beanport.Unknown:
			res.Warnf("ibkr: unclassified row: %s", row.Description)
		}
	}
	return res
}

func periodMeta(row beanport.Row, pattern *regexp.Regexp, res *beanport.Result) beanport.Metadata {
	month := pattern.FindString(row.Description)
	if month == "" {
		res.Warnf("ibkr: no period in %q", row.Description)
		return nil
	}
	return beanport.Metadata{}.Add("period", month)
}

func buildCashPair(row beanport.Row, cashAccount, counterAccount, narration string, meta beanport.Metadata) beanport.Transaction {
	return beanport.Transaction{
		Date:      row.Date,
		Flag:      beanport.Cleared,
		Narration: narration,
		Meta:      meta.Add("source", row.Description),
		Postings: []beanport.Posting{
			beanport.CashPosting(cashAccount, row.Amount),
			beanport.CashPosting(counterAccount, row.Amount.Neg()),
		},
	}
}

// convertCashReport asserts each currency's ending cash on the day after the
// report period. The BASE_SUMMARY line aggregates the others in the base
// currency and is skipped.
func convertCashReport(report []CashReportCcy, acc accounts) beanport.Result {
	var res beanport.Result
	for _, line := range report {
		if line.Currency == "BASE_SUMMARY" {
			continue
		}
		day, err := parseFlexDate(line.ToDate)
		if err != nil {
			res.Warnf("ibkr: cash report %s: %v", line.Currency, err)
			continue
		}
		amount, err := beanport.ParseMoney(line.EndingCash, line.Currency)
		if err != nil {
			res.Warnf("ibkr: cash report %s: %v", line.Currency, err)
			continue
		}
		res.Add(beanport.Balance{
			Date:    day.Add(1),
			Account: acc.cash(line.Currency),
			Amount:  amount,
		})
	}
	return res
}
