package beanport

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Holdings is a snapshot of currently-open security lots, used to recover a
// cost basis for corporate actions and lot closures. It is built either from
// records produced in-process or from a previously written ledger text file.
type Holdings struct {
	lots map[holdingKey][]lot
}

type holdingKey struct {
	account string
	symbol  string
}

// lot is an open acquisition: units held and the per-unit acquisition cost.
type lot struct {
	units Quantity
	cost  Money
}

// NewHoldings builds a snapshot from records, replaying security postings in
// order. Positive units with a cost open a lot, negative units consume lots
// first-in first-out.
func NewHoldings(records []Record) *Holdings {
	h := &Holdings{lots: make(map[holdingKey][]lot)}
	for _, r := range records {
		t, ok := r.(Transaction)
		if !ok {
			continue
		}
		for _, p := range t.Postings {
			if p.Symbol == "" {
				continue
			}
			var cost Money
			if p.Cost != nil && p.Cost.PerUnit != nil {
				cost = *p.Cost.PerUnit
			}
			h.apply(p.Account, p.Symbol, p.Units, cost)
		}
	}
	return h
}

func (h *Holdings) apply(account, symbol string, units Quantity, cost Money) {
	key := holdingKey{account, symbol}
	if units.IsPositive() {
		h.lots[key] = append(h.lots[key], lot{units: units, cost: cost})
		return
	}
	// consume open lots FIFO until the removal is absorbed
	remaining := units.Neg()
	lots := h.lots[key]
	for len(lots) > 0 && remaining.IsPositive() {
		if lots[0].units.GreaterThan(remaining) {
			lots[0].units = lots[0].units.Sub(remaining)
			remaining = Q(0)
			break
		}
		remaining = remaining.Sub(lots[0].units)
		lots = lots[1:]
	}
	h.lots[key] = lots
}

// CostBasis returns the total acquisition cost and unit count of the open
// lots for account/symbol. ok is false when nothing is held or no lot carries
// a cost; callers then fall back to a zero-cost placeholder.
func (h *Holdings) CostBasis(account, symbol string) (total Money, units Quantity, ok bool) {
	if h == nil {
		return Money{}, Quantity{}, false
	}
	lots := h.lots[holdingKey{account, symbol}]
	if len(lots) == 0 {
		return Money{}, Quantity{}, false
	}
	costed := false
	for _, l := range lots {
		units = units.Add(l.units)
		if !l.cost.IsZero() {
			costed = true
		}
		total = total.Add(l.cost.Mul(l.units))
	}
	if units.IsZero() || !costed {
		return Money{}, Quantity{}, false
	}
	return total, units, true
}

// security posting line: account, signed units, commodity, optional {cost}
var holdingPosting = regexp.MustCompile(`^\s+([A-Za-z][A-Za-z0-9:\-]*)\s+(-?[0-9][0-9'.,]*)\s+([A-Z][A-Z0-9.\-]*)(?:\s+\{+([^}]*)\}+)?`)

var costAmount = regexp.MustCompile(`(-?[\d.]+)\s+([A-Z]{3})`)

// ReadHoldings rebuilds a holdings snapshot from ledger text, replaying the
// cost-bearing security postings. Cash postings parse like unit postings but
// never carry a cost and never match an open lot, so they fall through.
func ReadHoldings(r io.Reader) (*Holdings, error) {
	h := &Holdings{lots: make(map[holdingKey][]lot)}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m := holdingPosting.FindStringSubmatch(StripBOM(scanner.Text()))
		if m == nil {
			continue
		}
		account, symbol := m[1], m[3]
		units, err := ParseQuantity(m[2])
		if err != nil {
			continue
		}
		if units.IsPositive() {
			if m[4] == "" {
				continue // unit posting without a cost opens nothing
			}
			cost, ok := parseCostAmount(m[4])
			if !ok {
				continue
			}
			h.apply(account, symbol, units, cost)
			continue
		}
		if _, held := h.lots[holdingKey{account, symbol}]; held {
			h.apply(account, symbol, units, Money{})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading holdings: %w", err)
	}
	return h, nil
}

// parseCostAmount extracts the per-unit amount from a cost spec body like
// "45.30 USD, 2024-03-01".
func parseCostAmount(spec string) (Money, bool) {
	first := strings.SplitN(spec, ",", 2)[0]
	m := costAmount.FindStringSubmatch(first)
	if m == nil {
		return Money{}, false
	}
	d, err := ParseDecimal(m[1])
	if err != nil {
		return Money{}, false
	}
	return M(d, m[2]), true
}
