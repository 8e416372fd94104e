package ibkr

import (
	"fmt"
	"regexp"

	"github.com/beanport/beanport"
)

// splitRatio matches the ratio spelled out in split descriptions, e.g.
// "VT(US92204A6094) SPLIT 7 FOR 1".
var splitRatio = regexp.MustCompile(`SPLIT (\d+) FOR (\d+)`)

// Corporate action type attribute values.
const (
	actionForwardSplit = "FS"
	actionReverseSplit = "RS"
)

// convertActions handles quantity-altering corporate actions. Forward splits
// are single rows issuing shares at zero cost. Reverse splits come as two
// rows sharing an action id, a removal and an addition; the addition's cost
// is recovered from the existing holdings when possible so the total basis
// survives the event.
func convertActions(actions []CorporateAction, acc accounts, existing *beanport.Holdings) beanport.Result {
	var res beanport.Result
	reverse := make(map[string][]CorporateAction)
	var order []string

	for _, a := range actions {
		switch {
		case a.Type == actionReverseSplit:
			if _, seen := reverse[a.ActionID]; !seen {
				order = append(order, a.ActionID)
			}
			reverse[a.ActionID] = append(reverse[a.ActionID], a)
		case a.Type == actionForwardSplit || splitRatio.MatchString(a.Description):
			if tx, ok := buildForwardSplit(a, acc, &res); ok {
				res.Add(tx)
			}
		default:
			res.Warnf("ibkr: unsupported corporate action %q: %s", a.Type, a.Description)
		}
	}

	for _, id := range order {
		if tx, ok := buildReverseSplit(id, reverse[id], acc, existing, &res); ok {
			res.Add(tx)
		}
	}
	return res
}

func buildForwardSplit(a CorporateAction, acc accounts, res *beanport.Result) (beanport.Transaction, bool) {
	day, err := parseFlexDate(a.ReportDate)
	if err != nil {
		res.Warnf("ibkr: corporate action %s: %v", a.Symbol, err)
		return beanport.Transaction{}, false
	}
	qty, err := beanport.ParseQuantity(a.Quantity)
	if err != nil {
		res.Warnf("ibkr: corporate action %s: %v", a.Symbol, err)
		return beanport.Transaction{}, false
	}

	ratio := "unknown"
	if m := splitRatio.FindStringSubmatch(a.Description); m != nil {
		ratio = fmt.Sprintf("%s:%s", m[1], m[2])
	} else {
		res.Warnf("ibkr: split %s: no ratio in %q", a.Symbol, a.Description)
	}

	// new shares arrive at zero cost, the existing lots keep the whole basis
	shares := beanport.UnitsPosting(acc.stock, qty, a.Symbol)
	shares.Cost = beanport.PerUnitCost(beanport.M(0, a.Currency))
	tx := beanport.Transaction{
		Date:      day,
		Flag:      beanport.Cleared,
		Payee:     a.Symbol,
		Narration: fmt.Sprintf("Stock split %s", a.Symbol),
		Meta:      beanport.Metadata{}.Add("ratio", ratio).Add("source", a.Description),
		Postings:  []beanport.Posting{shares},
	}
	return tx, true
}

// splitLeg is one side of a reverse split with its quantity already parsed.
// Quantities are kept per leg, not per symbol: the ticker often survives the
// split unchanged and both legs then share it.
type splitLeg struct {
	action CorporateAction
	qty    beanport.Quantity
}

func buildReverseSplit(id string, legs []CorporateAction, acc accounts, existing *beanport.Holdings, res *beanport.Result) (beanport.Transaction, bool) {
	var removal, addition *splitLeg
	for _, leg := range legs {
		qty, err := beanport.ParseQuantity(leg.Quantity)
		if err != nil {
			res.Warnf("ibkr: reverse split %s: %v", id, err)
			return beanport.Transaction{}, false
		}
		l := splitLeg{action: leg, qty: qty}
		if qty.IsNegative() {
			removal = &l
		} else {
			addition = &l
		}
	}
	if removal == nil || addition == nil {
		res.Warnf("ibkr: reverse split %s is missing one of its legs, skipped", id)
		return beanport.Transaction{}, false
	}

	day, err := parseFlexDate(addition.action.ReportDate)
	if err != nil {
		res.Warnf("ibkr: reverse split %s: %v", id, err)
		return beanport.Transaction{}, false
	}

	out := beanport.UnitsPosting(acc.stock, removal.qty, removal.action.Symbol)
	out.Cost = &beanport.CostSpec{} // match whatever lots are open
	in := beanport.UnitsPosting(acc.stock, addition.qty, addition.action.Symbol)

	tx := beanport.Transaction{
		Date:      day,
		Flag:      beanport.Cleared,
		Payee:     addition.action.Symbol,
		Narration: fmt.Sprintf("Reverse split %s -> %s", removal.action.Symbol, addition.action.Symbol),
		Meta:      beanport.Metadata{}.Add("action-id", id),
	}

	total, _, ok := existing.CostBasis(acc.stock, removal.action.Symbol)
	if ok {
		perUnit := total.Div(addition.qty).Round(6)
		in.Cost = beanport.PerUnitCost(perUnit)
	} else {
		in.Cost = beanport.PerUnitCost(beanport.M(0, addition.action.Currency))
		tx.Flag = beanport.Pending
		tx.Narration += " (needs manual cost review)"
	}
	tx.Postings = []beanport.Posting{out, in, {Account: acc.pnl}}
	return tx, true
}
