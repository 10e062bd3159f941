package documents

import (
	"testing"
)

func TestPaymentFields_FullPaysEverything(t *testing.T) {
	for _, pt := range []string{"", "FULL", "full", "anything-else"} {
		input := &NewSaleOrder{PaymentType: pt}
		paymentType, deposit, paid, balance := paymentFields(input, d("500"))
		if paymentType != PaymentTypeFull {
			t.Fatalf("paymentType(%q) = %q", pt, paymentType)
		}
		if !deposit.IsZero() {
			t.Fatalf("deposit(%q) = %s", pt, deposit)
		}
		if paid.String() != "500" || !balance.IsZero() {
			t.Fatalf("paid=%s balance=%s for %q", paid, balance, pt)
		}
	}
}

func TestPaymentFields_DepositFromAmount(t *testing.T) {
	input := &NewSaleOrder{PaymentType: "deposit", DepositAmount: d("150")}
	paymentType, deposit, paid, balance := paymentFields(input, d("500"))
	if paymentType != PaymentTypeDeposit {
		t.Fatalf("paymentType = %q", paymentType)
	}
	if deposit.String() != "150" || paid.String() != "150" {
		t.Fatalf("deposit=%s paid=%s", deposit, paid)
	}
	if balance.String() != "350" {
		t.Fatalf("balance = %s", balance)
	}
}

func TestPaymentFields_DepositDerivedFromPercent(t *testing.T) {
	pct := d("30")
	input := &NewSaleOrder{PaymentType: "DEPOSIT", DepositPercent: &pct}
	_, deposit, paid, balance := paymentFields(input, d("999"))
	if deposit.String() != "299.7" {
		t.Fatalf("deposit = %s; expected 30%% of 999", deposit)
	}
	if paid.String() != "299.7" || balance.String() != "699.3" {
		t.Fatalf("paid=%s balance=%s", paid, balance)
	}
}

func TestPaymentFields_BalanceNeverNegative(t *testing.T) {
	input := &NewSaleOrder{PaymentType: "DEPOSIT", DepositAmount: d("600")}
	_, _, _, balance := paymentFields(input, d("500"))
	if !balance.IsZero() {
		t.Fatalf("balance = %s; overpayment must clamp to zero", balance)
	}
}

func TestTmpNumberPattern(t *testing.T) {
	for _, n := range []string{"SO20240305-TMP", "so-tmp", "X-tMp"} {
		if !tmpNumberPattern.MatchString(n) {
			t.Fatalf("%q should be treated as a placeholder", n)
		}
	}
	for _, n := range []string{"SO20240305-0001", "TMP-1", "SO-TMP-2"} {
		if tmpNumberPattern.MatchString(n) {
			t.Fatalf("%q should not match the placeholder pattern", n)
		}
	}
}

func TestDecodeNewSaleOrder_Lenient(t *testing.T) {
	input := DecodeNewSaleOrder([]byte("{broken"))
	if input == nil || input.SoNo != "" || len(input.Items) != 0 {
		t.Fatalf("broken body must decode to zero payload: %+v", input)
	}

	input = DecodeNewSaleOrder([]byte(`{"soNo":"SO20240305-0001","depositPercent":"25","installmentCount":3}`))
	if input.SoNo != "SO20240305-0001" {
		t.Fatalf("soNo = %q", input.SoNo)
	}
	if input.DepositPercent == nil || input.DepositPercent.String() != "25" {
		t.Fatalf("depositPercent = %v", input.DepositPercent)
	}
	if input.InstallmentCount == nil || *input.InstallmentCount != 3 {
		t.Fatalf("installmentCount = %v", input.InstallmentCount)
	}
}

func TestDecimalField_HandlesDriverTypes(t *testing.T) {
	row := map[string]any{
		"bytes":  []byte("12.34"),
		"str":    "5",
		"float":  1.5,
		"int":    int64(7),
		"absent": nil,
		"bad":    []byte("x"),
	}
	cases := []struct {
		key, expected string
	}{
		{"bytes", "12.34"},
		{"str", "5"},
		{"float", "1.5"},
		{"int", "7"},
		{"absent", "0"},
		{"bad", "0"},
		{"missing", "0"},
	}
	for _, tc := range cases {
		if got := decimalField(row, tc.key); got.String() != tc.expected {
			t.Fatalf("decimalField(%s) = %s; expected %s", tc.key, got, tc.expected)
		}
	}
}

func TestStringField(t *testing.T) {
	row := map[string]any{"a": "x", "b": []byte("y"), "c": nil, "d": 12}
	if stringField(row, "a") != "x" || stringField(row, "b") != "y" {
		t.Fatalf("string/bytes conversion failed")
	}
	if stringField(row, "c") != "" || stringField(row, "missing") != "" {
		t.Fatalf("nil/missing must be empty")
	}
	if stringField(row, "d") != "12" {
		t.Fatalf("numeric fallback failed")
	}
}

func TestOrderDate(t *testing.T) {
	if got := orderDate("2024-03-05"); got != "2024-03-05" {
		t.Fatalf("orderDate = %q", got)
	}
	if got := orderDate("  "); len(got) != 10 {
		t.Fatalf("blank date must default to today: %q", got)
	}
}
