package documents

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestComputeTotals(t *testing.T) {
	items := []ItemInput{
		{Qty: d("2"), UnitPrice: d("100"), Discount: d("10")},
		{Qty: d("1"), UnitPrice: d("50.555")},
	}
	before, discount, grand := computeTotals(items)
	if before.String() != "250.555" {
		t.Fatalf("before = %s", before)
	}
	if discount.String() != "10" {
		t.Fatalf("discount = %s", discount)
	}
	// Rounding is applied once, at the grand total.
	if grand.String() != "240.56" {
		t.Fatalf("grand = %s", grand)
	}
}

func TestComputeTotals_Empty(t *testing.T) {
	before, discount, grand := computeTotals(nil)
	if !before.IsZero() || !discount.IsZero() || !grand.IsZero() {
		t.Fatalf("empty items: %s %s %s", before, discount, grand)
	}
}

func TestLineTotal_ClampsAtZero(t *testing.T) {
	it := ItemInput{Qty: d("2"), UnitPrice: d("100"), Discount: d("10")}
	if got := lineTotal(it); got.String() != "190" {
		t.Fatalf("lineTotal = %s", got)
	}
	over := ItemInput{Qty: d("1"), UnitPrice: d("10"), Discount: d("25")}
	if got := lineTotal(over); !got.IsZero() {
		t.Fatalf("over-discounted lineTotal = %s; expected 0", got)
	}
}

func TestStatusFromConfirmed(t *testing.T) {
	if statusFromConfirmed(false) != StatusDraft {
		t.Fatalf("unconfirmed must be Draft")
	}
	if statusFromConfirmed(true) != StatusConfirmed {
		t.Fatalf("confirmed must be Confirmed")
	}
}

func TestDecodeNewQuotation_Lenient(t *testing.T) {
	input := DecodeNewQuotation([]byte("garbage"))
	if input == nil || input.QNo != "" || len(input.Items) != 0 {
		t.Fatalf("garbage body must decode to zero payload: %+v", input)
	}
}

func TestCustomerSnapshot_AcceptsStringEncodedObject(t *testing.T) {
	body := []byte(`{"customer":"{\"code\":\"C-1\",\"firstName\":\"Mya\",\"age\":30}"}`)
	input := DecodeNewQuotation(body)
	if input.Customer.Code != "C-1" || input.Customer.FirstName != "Mya" || input.Customer.Age != 30 {
		t.Fatalf("string-encoded customer: %+v", input.Customer)
	}

	plain := DecodeNewQuotation([]byte(`{"customer":{"code":"C-2"}}`))
	if plain.Customer.Code != "C-2" {
		t.Fatalf("object customer: %+v", plain.Customer)
	}
}

func TestItemList_AcceptsStringEncodedArray(t *testing.T) {
	body := []byte(`{"items":"[{\"itemCode\":\"X\",\"qty\":\"2\",\"unitPrice\":\"100\"}]"}`)
	input := DecodeNewQuotation(body)
	if len(input.Items) != 1 {
		t.Fatalf("string-encoded items: %+v", input.Items)
	}
	if input.Items[0].ItemCode != "X" || input.Items[0].Qty.String() != "2" {
		t.Fatalf("item fields: %+v", input.Items[0])
	}

	bad := DecodeNewQuotation([]byte(`{"items":"not an array"}`))
	if len(bad.Items) != 0 {
		t.Fatalf("unparseable items must decode empty: %+v", bad.Items)
	}
}
