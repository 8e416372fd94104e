package beanport

import "testing"

func TestMoneyText(t *testing.T) {
	if got := M(-100, "USD").Text(); got != "-100.00 USD" {
		t.Errorf("Text = %q", got)
	}
	if got := M(0.595, "USD").ExactText(); got != "0.595 USD" {
		t.Errorf("ExactText = %q", got)
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a, b := M(100, "USD"), M(15, "USD")
	if got := a.Add(b); !got.Equal(M(115, "USD")) {
		t.Errorf("Add = %v", got)
	}
	if got := a.Sub(b); !got.Equal(M(85, "USD")) {
		t.Errorf("Sub = %v", got)
	}
	// the empty currency is weak and adopts the other side
	if got := (Money{}).Add(a); got.Currency() != "USD" {
		t.Errorf("weak currency add = %v", got)
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("cross currency Add did not panic")
		}
	}()
	M(1, "USD").Add(M(1, "CHF"))
}

func TestMoneyMulDiv(t *testing.T) {
	price := M(45.3, "USD")
	if got := price.Mul(Q(4)); !got.Equal(M(181.2, "USD")) {
		t.Errorf("Mul = %v", got)
	}
	if got := M(650, "USD").Div(Q(15)).Round(6); !got.Equal(M(43.333333, "USD")) {
		t.Errorf("Div = %v", got)
	}
}
