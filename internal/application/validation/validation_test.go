package validation

import (
	"errors"
	"testing"

	"testinsure/internal/domain/account"
	"testinsure/internal/domain/labtest"
	"testinsure/internal/domain/policy"
	"testinsure/internal/domain/slot"
)

// TestStruct_Valid tests that a complete form passes.
func TestStruct_Valid(t *testing.T) {
	d := labtest.Draft{Name: "CBC", Cost: 10}
	if err := Struct(d); err != nil {
		t.Errorf("expected valid, got %v", err)
	}
}

// TestStruct_Messages tests the readable messages.
func TestStruct_Messages(t *testing.T) {
	err := Struct(policy.Draft{CoverageAmount: 0, ExpiryDate: "31/12/2030"})
	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *Error, got %v", err)
	}
	want := []string{
		"provider name is required",
		"policy number is required",
		"coverage amount must be greater than 0",
		"expiry date must be a valid date",
	}
	if len(ve.Messages) != len(want) {
		t.Fatalf("messages = %v, want %v", ve.Messages, want)
	}
	for i := range want {
		if ve.Messages[i] != want[i] {
			t.Errorf("message[%d] = %q, want %q", i, ve.Messages[i], want[i])
		}
	}
}

// TestStruct_Registration tests email and password rules.
func TestStruct_Registration(t *testing.T) {
	err := Struct(account.Registration{Name: "A", Email: "not-an-email", Password: "123"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if got := err.Error(); got != "email must be a valid email; password must be at least 6 characters" {
		t.Errorf("unexpected error %q", got)
	}
}

// TestStruct_SlotCapacity tests the slot capacity range.
func TestStruct_SlotCapacity(t *testing.T) {
	err := Struct(slot.Draft{Date: "2030-01-01", StartTime: "09:00", EndTime: "10:00", Capacity: 0})
	if err == nil || err.Error() != "capacity must be at least 1" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestLabel(t *testing.T) {
	if got := label("prepInstructions"); got != "prep instructions" {
		t.Errorf("label = %q", got)
	}
}
