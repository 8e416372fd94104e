package ibkr

import (
	"regexp"

	"github.com/beanport/beanport"
)

// forexSymbol matches currency-pair trade symbols like "EUR.USD", which the
// report lists in the same Trades section as security trades.
var forexSymbol = regexp.MustCompile(`^(\w{3})\.(\w{3})$`)

var cashCategories = map[string]beanport.Category{
	typeDividend:       beanport.Dividend,
	typePaymentInLieu:  beanport.Dividend,
	typeWithholdingTax: beanport.WithholdingTax,
	typeDeposits:       beanport.Deposit,
	typeInterestPaid:   beanport.Interest,
	typeInterestRecv:   beanport.Interest,
	typeOtherFees:      beanport.Fee,
}

// normalizeStatement turns the statement's cash and trade sections into
// normalized rows, in document order. Rows that fail to parse are skipped
// with a warning; unknown cash types keep the Unknown category and surface
// later instead of disappearing here.
func normalizeStatement(st FlexStatement, res *beanport.Result) []beanport.Row {
	var rows []beanport.Row
	index := 0
	add := func(o beanport.Outcome) {
		if reason, skipped := o.Skipped(); skipped {
			if reason != "" {
				res.Warnf("ibkr: %s", reason)
			}
			return
		}
		row, _ := o.Row()
		row.Index = index
		index++
		rows = append(rows, row)
	}
	for _, ct := range st.CashTxns {
		add(normalizeCash(ct))
	}
	for _, tr := range st.Trades.Items {
		add(normalizeTrade(tr))
	}
	return rows
}

func normalizeCash(ct CashTransaction) beanport.Outcome {
	category, known := cashCategories[ct.Type]
	if !known {
		category = beanport.Unknown
	}
	when := ct.ReportDate
	if when == "" {
		when = ct.DateTime
	}
	day, err := parseFlexDate(when)
	if err != nil {
		return beanport.Skipf("cash row %q: %v", ct.Description, err)
	}
	amount, err := beanport.ParseMoney(ct.Amount, ct.Currency)
	if err != nil {
		return beanport.Skipf("cash row %q: %v", ct.Description, err)
	}
	return beanport.Ok(beanport.Row{
		Category:    category,
		Date:        day,
		Symbol:      ct.Symbol,
		Currency:    ct.Currency,
		Amount:      amount,
		Description: ct.Description,
	})
}

func normalizeTrade(tr Trade) beanport.Outcome {
	day, err := parseFlexDate(tr.TradeDate)
	if err != nil {
		return beanport.Skipf("trade %s: %v", tr.Symbol, err)
	}
	qty, err := beanport.ParseQuantity(tr.Quantity)
	if err != nil {
		return beanport.Skipf("trade %s: %v", tr.Symbol, err)
	}
	price, err := beanport.ParseMoney(tr.TradePrice, tr.Currency)
	if err != nil {
		return beanport.Skipf("trade %s: %v", tr.Symbol, err)
	}
	row := beanport.Row{
		Date:        day,
		Symbol:      tr.Symbol,
		Currency:    tr.Currency,
		Quantity:    qty,
		HasQuantity: true,
		Price:       price,
		HasPrice:    true,
		Description: tr.Description,
	}
	if tr.IsClosedLot() {
		row.Category = beanport.ClosedLot
		return beanport.Ok(row)
	}
	row.Category = beanport.Trade
	// cancellations carry the opposite quantity but stay on their original
	// side, like the report's own buy/sell partition
	switch tr.BuySell {
	case "SELL", "CANCELSELL":
		row.Sale = true
	case "BUY", "CANCELBUY":
		row.Sale = false
	default:
		row.Sale = qty.IsNegative()
	}
	if tr.Proceeds != "" {
		amount, err := beanport.ParseMoney(tr.Proceeds, tr.Currency)
		if err != nil {
			return beanport.Skipf("trade %s: %v", tr.Symbol, err)
		}
		row.Amount = amount
	}
	if tr.IBCommission != "" {
		ccy := tr.CommissionCcy
		if ccy == "" {
			ccy = tr.Currency
		}
		fee, err := beanport.ParseMoney(tr.IBCommission, ccy)
		if err != nil {
			return beanport.Skipf("trade %s: %v", tr.Symbol, err)
		}
		row.Fee = fee
		row.HasFee = true
	}
	return beanport.Ok(row)
}
