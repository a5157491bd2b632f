package dossier

import (
	"strings"
	"testing"
)

func validForm() Form {
	return Form{
		ChildFirstName:   "Léa",
		ChildLastName:    "Martin",
		ChildBirthDate:   "2019-06-02",
		Parent1FirstName: "Claire",
		Parent1LastName:  "Martin",
		Parent1Email:     "claire@example.test",
		Parent1Phone:     "06 12 34 56 78",
	}
}

func TestValidateForm_NormalisesPhone(t *testing.T) {
	f := validForm()
	f.Parent1Email = "  Claire@Example.test "
	got, errs := ValidateForm(f)
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if got.Parent1Phone != "+33612345678" {
		t.Errorf("expected E.164 phone, got %q", got.Parent1Phone)
	}
	if got.Parent1Email != "claire@example.test" {
		t.Errorf("expected trimmed lower-case email, got %q", got.Parent1Email)
	}
}

func TestValidateForm_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *Form)
		field  string
	}{
		{"child first name", func(f *Form) { f.ChildFirstName = "  " }, "child_first_name"},
		{"child last name", func(f *Form) { f.ChildLastName = "" }, "child_last_name"},
		{"birth date missing", func(f *Form) { f.ChildBirthDate = "" }, "child_birth_date"},
		{"birth date format", func(f *Form) { f.ChildBirthDate = "02/06/2019" }, "child_birth_date"},
		{"parent1 name", func(f *Form) { f.Parent1LastName = "" }, "parent1_last_name"},
		{"parent1 email", func(f *Form) { f.Parent1Email = "claire@" }, "parent1_email"},
		{"parent1 email display name", func(f *Form) { f.Parent1Email = "Claire <claire@example.test>" }, "parent1_email"},
		{"parent1 email no tld", func(f *Form) { f.Parent1Email = "claire@localhost" }, "parent1_email"},
		{"parent1 phone", func(f *Form) { f.Parent1Phone = "12345" }, "parent1_phone"},
		{"parent2 name", func(f *Form) { f.HasParent2 = true; f.Parent2LastName = "Martin" }, "parent2_first_name"},
		{"parent2 phone", func(f *Form) {
			f.HasParent2 = true
			f.Parent2FirstName, f.Parent2LastName, f.Parent2Phone = "Marc", "Martin", "abc"
		}, "parent2_phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)
			_, errs := ValidateForm(f)
			if _, ok := errs[tt.field]; !ok {
				t.Errorf("expected error on %s, got %v", tt.field, errs)
			}
		})
	}
}

func TestValidateForm_ContactIsOptional(t *testing.T) {
	f := validForm()
	f.Parent1Email, f.Parent1Phone = "", ""
	if _, errs := ValidateForm(f); errs != nil {
		t.Errorf("contact details are not required to save, got %v", errs)
	}
}

func TestValidateForm_Parent2IgnoredWhenDisabled(t *testing.T) {
	f := validForm()
	f.Parent2Phone = "garbage"
	if _, errs := ValidateForm(f); errs != nil {
		t.Errorf("disabled parent2 must not be validated, got %v", errs)
	}
}

func TestFieldErrors_Error(t *testing.T) {
	err := FieldErrors{"b": "x", "a": "y"}
	if got := err.Error(); !strings.HasPrefix(got, "invalid dossier: a: y; b: x") {
		t.Errorf("unexpected message %q", got)
	}
}
