package beanport

import (
	"fmt"
	"io"
	"strings"
)

// accountColumn is the column postings amounts are aligned to.
const accountColumn = 46

// EncodeRecords writes records in ledger text form, blank-line separated.
func EncodeRecords(w io.Writer, records []Record) error {
	for i, r := range records {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := EncodeRecord(w, r); err != nil {
			return err
		}
	}
	return nil
}

// EncodeRecord writes a single record in ledger text form.
func EncodeRecord(w io.Writer, r Record) error {
	switch v := r.(type) {
	case Transaction:
		return encodeTransaction(w, v)
	case Balance:
		_, err := fmt.Fprintf(w, "%s balance %s %s\n", v.Date, padAccount(v.Account), v.Amount.Text())
		return err
	default:
		return fmt.Errorf("unknown record type %T", r)
	}
}

func encodeTransaction(w io.Writer, t Transaction) error {
	flag := t.Flag
	if flag == "" {
		flag = Cleared
	}
	header := fmt.Sprintf("%s %s %s %s", t.Date, flag, quote(t.Payee), quote(t.Narration))
	for _, tag := range t.Tags {
		header += " #" + tag
	}
	for _, link := range t.Links {
		header += " ^" + link
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	for _, kv := range t.Meta {
		if _, err := fmt.Fprintf(w, "  %s: %s\n", kv.Key, quote(kv.Value)); err != nil {
			return err
		}
	}
	for _, p := range t.Postings {
		if _, err := fmt.Fprintln(w, formatPosting(p)); err != nil {
			return err
		}
	}
	return nil
}

func formatPosting(p Posting) string {
	amount := postingAmount(p)
	if amount == "" {
		return "  " + p.Account
	}
	return fmt.Sprintf("  %s %s", padAccount(p.Account), amount)
}

func postingAmount(p Posting) string {
	var sb strings.Builder
	switch {
	case p.Symbol != "":
		fmt.Fprintf(&sb, "%s %s", p.Units, p.Symbol)
	case p.Amount != nil:
		sb.WriteString(p.Amount.Text())
	default:
		return ""
	}
	if p.Cost != nil {
		sb.WriteString(" " + formatCost(*p.Cost))
	}
	if p.Price != nil {
		sb.WriteString(" @ " + p.Price.ExactText())
	}
	return sb.String()
}

func formatCost(c CostSpec) string {
	if c.IsEmpty() {
		return "{}"
	}
	var parts []string
	switch {
	case c.PerUnit != nil:
		parts = append(parts, c.PerUnit.ExactText())
	case c.Total != nil:
		// total-cost form uses doubled braces
		return "{{" + strings.Join(append([]string{c.Total.ExactText()}, costTail(c)...), ", ") + "}}"
	}
	parts = append(parts, costTail(c)...)
	return "{" + strings.Join(parts, ", ") + "}"
}

func costTail(c CostSpec) []string {
	var parts []string
	if !c.Date.IsZero() {
		parts = append(parts, c.Date.String())
	}
	if c.Label != "" {
		parts = append(parts, quote(c.Label))
	}
	return parts
}

func padAccount(account string) string {
	if len(account) >= accountColumn {
		return account
	}
	return account + strings.Repeat(" ", accountColumn-len(account))
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
