package utils

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestIsValidImei(t *testing.T) {
	valid := []string{"356938035643809", "000000000000000", "490154203237518"}
	for _, s := range valid {
		if !IsValidImei(s) {
			t.Errorf("%q should be valid", s)
		}
	}

	invalid := []string{
		"",
		"35693803564380",    // 14 digits
		"3569380356438091",  // 16 digits
		"35693803564380a",   // letter
		"35693 8035643809",  // space
		"-56938035643809",   // sign
		"356938035643809\n", // trailing newline
	}
	for _, s := range invalid {
		if IsValidImei(s) {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	valid := []string{"+96599123456", "99123456", "+971501234567"}
	for _, s := range valid {
		if err := ValidatePhoneNumber(s, "KW"); err != nil {
			t.Errorf("%q should be valid: %v", s, err)
		}
	}

	invalid := []string{"", "12345", "not-a-phone", "+96512"}
	for _, s := range invalid {
		if err := ValidatePhoneNumber(s, "KW"); err == nil {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestProcessValidationErrors(t *testing.T) {
	type form struct {
		Name string `validate:"required"`
		Qty  int    `validate:"min=1"`
	}
	err := validator.New().Struct(form{})
	if err == nil {
		t.Fatal("expected validation errors")
	}

	got := ProcessValidationErrors(err)
	if got["Name"] != "required" {
		t.Errorf("Name tag = %q, want required", got["Name"])
	}
	if got["Qty"] != "min" {
		t.Errorf("Qty tag = %q, want min", got["Qty"])
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]int{3, 1, 3, 2, 1})
	if len(got) != 3 || got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Errorf("order-preserving dedupe failed: %v", got)
	}
	if got := UniqueSlice([]string(nil)); len(got) != 0 {
		t.Errorf("nil slice should dedupe to empty, got %v", got)
	}
}

func TestDereferencePtr(t *testing.T) {
	v := 42
	if DereferencePtr(&v) != 42 {
		t.Error("pointer value lost")
	}
	if DereferencePtr[int](nil) != 0 {
		t.Error("nil pointer should yield zero value")
	}
	if DereferencePtr(nil, "fallback") != "fallback" {
		t.Error("nil pointer should yield the default")
	}
}

func TestExecTemplate(t *testing.T) {
	out, err := ExecTemplate("SELECT * FROM t {{if .Filter}}WHERE x = 1{{end}}", map[string]interface{}{"Filter": true})
	if err != nil {
		t.Fatalf("ExecTemplate: %v", err)
	}
	if out != "SELECT * FROM t WHERE x = 1" {
		t.Errorf("unexpected output %q", out)
	}

	if _, err := ExecTemplate("{{.Broken", nil); err == nil {
		t.Error("malformed template should error")
	}
}
