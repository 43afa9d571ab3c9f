package model

import (
	"encoding/json"
	"testing"
)

func TestOrderEvent_Phone(t *testing.T) {
	t.Run("prefers the billing address", func(t *testing.T) {
		ev := &OrderEvent{
			BillingAddress:  &orderAddress{Phone: "+10000000000"},
			ShippingAddress: &orderAddress{Phone: "+19999999999"},
		}
		if got := ev.Phone(); got != "+10000000000" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("falls back to the shipping address", func(t *testing.T) {
		ev := &OrderEvent{ShippingAddress: &orderAddress{Phone: "+19999999999"}}
		if got := ev.Phone(); got != "+19999999999" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("empty when neither address has one", func(t *testing.T) {
		ev := &OrderEvent{BillingAddress: &orderAddress{}}
		if got := ev.Phone(); got != "" {
			t.Errorf("got %q", got)
		}
	})
}

func TestOrderEvent_Decode(t *testing.T) {
	raw := []byte(`{"id": 1001, "financial_status": "pending", "billing_address": {"phone": "+10000000000"}, "total_price": "25.00"}`)
	var ev OrderEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.OrderID() != "1001" {
		t.Errorf("order id: got %q", ev.OrderID())
	}
	if !ev.AwaitingPayment() {
		t.Error("expected order to be awaiting payment")
	}
}

func TestPaymentResult_Valid(t *testing.T) {
	cases := []struct {
		name string
		res  PaymentResult
		want bool
	}{
		{"complete success", PaymentResult{OrderRef: "LIK1-x", Status: "SUCCESS", Amount: "25.00", UTR: "X1"}, true},
		{"success without utr", PaymentResult{OrderRef: "LIK1-x", Status: "success", Amount: "25.00"}, true},
		{"success without amount", PaymentResult{OrderRef: "LIK1-x", Status: "SUCCESS"}, false},
		{"failure without amount", PaymentResult{OrderRef: "LIK1-x", Status: "FAILED"}, true},
		{"missing ref", PaymentResult{Status: "SUCCESS", Amount: "25.00"}, false},
		{"missing status", PaymentResult{OrderRef: "LIK1-x", Amount: "25.00"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.res.Valid(); got != tc.want {
				t.Errorf("Valid() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPaymentResult_Succeeded(t *testing.T) {
	for _, status := range []string{"SUCCESS", "success", "Success"} {
		if !(&PaymentResult{Status: status}).Succeeded() {
			t.Errorf("status %q should count as success", status)
		}
	}
	if (&PaymentResult{Status: "FAILED"}).Succeeded() {
		t.Error("FAILED should not count as success")
	}
}
