package models

import (
	"context"
	"testing"
)

func TestNewPartyValidate_Phone(t *testing.T) {
	ctx := context.Background()

	ok := NewParty{Name: "Gulf Freight", Type: PartyTypeLogistic, Phone: "+96599123456"}
	if err := ok.validate(ctx, 0); err != nil {
		t.Errorf("valid phone rejected: %v", err)
	}

	national := NewParty{Name: "Gulf Freight", Type: PartyTypeLogistic, Phone: "99123456"}
	if err := national.validate(ctx, 0); err != nil {
		t.Errorf("national-format phone rejected: %v", err)
	}

	bad := NewParty{Name: "Gulf Freight", Type: PartyTypeLogistic, Phone: "12345"}
	if err := bad.validate(ctx, 0); err == nil {
		t.Error("malformed phone accepted")
	}

	none := NewParty{Name: "Gulf Freight", Type: PartyTypeLogistic}
	if err := none.validate(ctx, 0); err != nil {
		t.Errorf("empty phone should stay optional: %v", err)
	}
}

func TestNewPartyValidate_Type(t *testing.T) {
	bad := NewParty{Name: "X", Type: PartyType("courier")}
	if err := bad.validate(context.Background(), 0); err == nil {
		t.Error("unknown party type accepted")
	}
}
