package enums

import "testing"

func TestParseUnit(t *testing.T) {
	for _, raw := range []string{"kg", "g"} {
		unit, err := ParseUnit(raw)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
		if unit.String() != raw {
			t.Fatalf("expected %q, got %q", raw, unit)
		}
	}
	if _, err := ParseUnit("lb"); err == nil {
		t.Fatal("expected error for unknown unit")
	}
}

func TestDeliveryMethodValidity(t *testing.T) {
	if !DeliveryMethodHome.IsValid() || !DeliveryMethodPickup.IsValid() {
		t.Fatal("expected home and pickup to be valid")
	}
	if DeliveryMethod("drone").IsValid() {
		t.Fatal("expected drone to be invalid")
	}
}

func TestBuildingTypeIsCaseSensitive(t *testing.T) {
	if _, err := ParseBuildingType("Apartment"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseBuildingType("apartment"); err == nil {
		t.Fatal("expected lowercase building type to be rejected")
	}
}

func TestOTPStateTerminal(t *testing.T) {
	terminal := map[OTPState]bool{
		OTPStateIdle:      false,
		OTPStateSent:      false,
		OTPStateVerifying: false,
		OTPStateVerified:  true,
		OTPStateCancelled: true,
	}
	for state, want := range terminal {
		if got := state.IsTerminal(); got != want {
			t.Fatalf("state %s: expected terminal=%v got %v", state, want, got)
		}
	}
}

func TestParsePaymentMethod(t *testing.T) {
	if _, err := ParsePaymentMethod("cash_on_delivery"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParsePaymentMethod("bitcoin"); err == nil {
		t.Fatal("expected unknown payment method to fail")
	}
}

func TestParseResetMethod(t *testing.T) {
	for _, raw := range []string{"email", "sms"} {
		if _, err := ParseResetMethod(raw); err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
	}
	if ResetMethod("carrier-pigeon").IsValid() {
		t.Fatal("expected unknown reset method to be invalid")
	}
}
