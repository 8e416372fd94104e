package beanport

import "testing"

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1234.56", "1234.56"},
		{"1'234.56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"1.234,56", "1234.56"},
		{"1 234,56", "1234.56"},
		{"-0.5", "-0.5"},
		{"12,5", "12.5"},
		{"1,234,567", "1234567"},
		{"\uFEFF42", "42"},
	}
	for _, c := range cases {
		got, err := ParseDecimal(c.in)
		if err != nil {
			t.Errorf("ParseDecimal(%q): %v", c.in, err)
			continue
		}
		if got.String() != c.want {
			t.Errorf("ParseDecimal(%q) = %s, want %s", c.in, got, c.want)
		}
	}
	if _, err := ParseDecimal("abc"); err == nil {
		t.Errorf("ParseDecimal(\"abc\") did not fail")
	}
}

func TestParseMoney(t *testing.T) {
	got, err := ParseMoney("1'250.00", "CHF")
	if err != nil {
		t.Fatalf("ParseMoney: %v", err)
	}
	if want := M(1250, "CHF"); !got.Equal(want) {
		t.Errorf("ParseMoney = %v, want %v", got, want)
	}
}

func TestOutcome(t *testing.T) {
	row := Row{Category: Dividend, Symbol: "VT"}
	if r, ok := Ok(row).Row(); !ok || r.Symbol != "VT" {
		t.Errorf("Ok() lost the row")
	}
	o := Skipf("no data in row %d", 3)
	if _, ok := o.Row(); ok {
		t.Errorf("Skipf() produced a usable row")
	}
	if reason, ok := o.Skipped(); !ok || reason != "no data in row 3" {
		t.Errorf("Skipped() = %q, %v", reason, ok)
	}
}
