package ibkr

import (
	"fmt"

	"github.com/beanport/beanport"
)

// convertTrades builds transactions from execution rows, pairing each sale
// with the closed-lot rows that follow it. Closed lots are consumed at most
// once; a lot left unconsumed at the end means the report order broke the
// sale-then-lots convention and is worth a warning.
func convertTrades(rows []beanport.Row, acc accounts, suppressLotPrice bool) beanport.Result {
	var res beanport.Result
	used := make([]bool, len(rows))

	for i, row := range rows {
		if row.Category != beanport.Trade {
			continue
		}
		if m := forexSymbol.FindStringSubmatch(row.Symbol); m != nil {
			res.Add(buildForex(row, m[1], m[2], acc, &res))
			continue
		}
		if row.Sale {
			res.Add(buildSale(rows, i, used, acc, suppressLotPrice, &res))
		} else {
			res.Add(buildBuy(row, acc))
		}
	}

	for i, row := range rows {
		if row.Category == beanport.ClosedLot && !used[i] {
			res.Warnf("ibkr: closed lot %s %s has no matching sale before it", row.Symbol, row.Quantity)
		}
	}
	return res
}

func buildBuy(row beanport.Row, acc accounts) beanport.Transaction {
	stock := beanport.UnitsPosting(acc.stock, row.Quantity, row.Symbol)
	stock.Cost = beanport.PerUnitCost(row.Price)
	tx := beanport.Transaction{
		Date:      row.Date,
		Flag:      beanport.Cleared,
		Payee:     row.Symbol,
		Narration: fmt.Sprintf("Buy %s %s", row.Quantity, row.Symbol),
		Postings:  []beanport.Posting{stock},
	}
	tx.Postings = append(tx.Postings, cashAndFee(row, acc)...)
	return tx
}

// buildSale pairs the sale at rows[sale] with following closed-lot rows of
// the same symbol, accumulating lot quantities until they equal the sale
// quantity. An overshooting lot is left alone and the record is emitted
// best-effort with a reconciliation warning, as is a shortfall.
func buildSale(rows []beanport.Row, sale int, used []bool, acc accounts, suppressLotPrice bool, res *beanport.Result) beanport.Transaction {
	row := rows[sale]
	target := row.Quantity.Abs()
	matched := beanport.Q(0)
	overshot := false
	var lots []beanport.Row

	for j := sale + 1; j < len(rows) && matched.LessThan(target); j++ {
		lot := rows[j]
		if lot.Category != beanport.ClosedLot || lot.Symbol != row.Symbol || used[j] {
			continue
		}
		if matched.Add(lot.Quantity.Abs()).GreaterThan(target) {
			res.Warnf("ibkr: sale of %s %s: lot %s overshoots, stopping before it with %s covered", target, row.Symbol, lot.Quantity, matched)
			overshot = true
			break
		}
		used[j] = true
		matched = matched.Add(lot.Quantity.Abs())
		lots = append(lots, lot)
	}
	if !overshot && !matched.Equal(target) {
		res.Warnf("ibkr: sale of %s %s: closed lots cover only %s", target, row.Symbol, matched)
	}

	tx := beanport.Transaction{
		Date:      row.Date,
		Flag:      beanport.Cleared,
		Payee:     row.Symbol,
		Narration: fmt.Sprintf("Sell %s %s", target, row.Symbol),
	}
	for _, lot := range lots {
		p := beanport.UnitsPosting(acc.stock, lot.Quantity.Abs().Neg(), lot.Symbol)
		if suppressLotPrice {
			p.Cost = &beanport.CostSpec{}
		} else {
			cost := lot.Price
			p.Cost = &beanport.CostSpec{PerUnit: &cost, Date: lot.Date}
		}
		price := row.Price
		p.Price = &price
		tx.Postings = append(tx.Postings, p)
	}
	tx.Postings = append(tx.Postings, cashAndFee(row, acc)...)
	tx.Postings = append(tx.Postings, beanport.Posting{Account: acc.pnl})
	return tx
}

// buildForex records a currency-pair trade as a move between the two
// per-currency liquidity accounts. The execution price annotates the base
// leg so the two currencies reconcile; without it the record cannot balance
// and is flagged for review.
func buildForex(row beanport.Row, base, quote string, acc accounts, res *beanport.Result) beanport.Transaction {
	baseLeg := beanport.CashPosting(acc.cash(base), row.Quantity.Amount(base))
	flag := beanport.Cleared
	if row.HasPrice {
		price := row.Price
		baseLeg.Price = &price
	} else {
		flag = beanport.Pending
		res.Warnf("ibkr: forex trade %s on %s has no price, needs manual review", row.Symbol, row.Date)
	}
	tx := beanport.Transaction{
		Date:      row.Date,
		Flag:      flag,
		Payee:     row.Symbol,
		Narration: fmt.Sprintf("Exchange %s", row.Symbol),
		Postings: []beanport.Posting{
			baseLeg,
			beanport.CashPosting(acc.cash(quote), row.Amount),
		},
	}
	if row.HasFee {
		tx.Postings = append(tx.Postings, feePostings(row, acc)...)
	}
	return tx
}

// cashAndFee is the proceeds leg plus the commission pair shared by buys and
// sales. The commission is folded into the cash movement and mirrored on the
// fees account so the group balances.
func cashAndFee(row beanport.Row, acc accounts) []beanport.Posting {
	cash := row.Amount
	if row.HasFee {
		cash = cash.Add(row.Fee)
	}
	postings := []beanport.Posting{beanport.CashPosting(acc.cash(row.Currency), cash)}
	if row.HasFee {
		postings = append(postings, beanport.CashPosting(acc.fees, row.Fee.Neg()))
	}
	return postings
}

func feePostings(row beanport.Row, acc accounts) []beanport.Posting {
	return []beanport.Posting{
		beanport.CashPosting(acc.cash(row.Fee.Currency()), row.Fee),
		beanport.CashPosting(acc.fees, row.Fee.Neg()),
	}
}
