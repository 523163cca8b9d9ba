package validation

import (
	"errors"
	"fmt"
	"testing"
)

type form struct {
	Name     string `json:"name" validate:"required,notblank,min=3,max=10"`
	Email    string `json:"email" validate:"required,email"`
	Internal string `json:"-"`
}

func TestStructValid(t *testing.T) {
	errs := Struct(form{Name: "Velebit", Email: "a@b.hr"})
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if errs.Err() != nil {
		t.Fatalf("expected nil error")
	}
}

func TestStructMessages(t *testing.T) {
	errs := Struct(form{Name: "ab", Email: "nope"})
	if got := errs["name"]; len(got) != 1 || got[0] != "This value is too short. It should have 3 characters or more." {
		t.Fatalf("unexpected name errors: %v", got)
	}
	if got := errs["email"]; len(got) != 1 || got[0] != "This value is not a valid email address." {
		t.Fatalf("unexpected email errors: %v", got)
	}

	errs = Struct(form{Name: "    ", Email: "a@b.hr"})
	if got := errs["name"]; len(got) != 1 || got[0] != "This value should not be blank." {
		t.Fatalf("blank name should fail: %v", got)
	}

	errs = Struct(form{Name: "far too long name", Email: "a@b.hr"})
	if got := errs["name"]; len(got) != 1 || got[0] != "This value is too long. It should have 10 characters or less." {
		t.Fatalf("long name should fail: %v", got)
	}
}

func TestErrorsAsError(t *testing.T) {
	errs := Errors{}
	errs.Add("name", "taken")
	errs.Add("name", "short")
	errs.Add("email", "bad")

	err := fmt.Errorf("import: %w", errs.Err())
	got, ok := AsErrors(err)
	if !ok {
		t.Fatalf("expected validation errors")
	}
	if len(got["name"]) != 2 {
		t.Fatalf("expected two name messages")
	}
	if errs.Error() != "validation failed: email: bad, name: taken; short" {
		t.Fatalf("unexpected message: %s", errs.Error())
	}

	if _, ok := AsErrors(errors.New("plain")); ok {
		t.Fatalf("plain error is not a validation error")
	}
}
