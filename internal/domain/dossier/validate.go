package dossier

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/pediconsent/portal/internal/platform/phone"
)

// FieldErrors maps form fields to the message shown next to them.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fe[k]))
	}
	return "invalid dossier: " + strings.Join(parts, "; ")
}

const (
	msgRequired  = "Ce champ est obligatoire."
	msgEmail     = "Adresse e-mail invalide."
	msgPhone     = "Numéro de téléphone invalide."
	msgBirthDate = "Date de naissance invalide (AAAA-MM-JJ)."
)

// ValidateForm trims every field, checks names, dates and contact syntax, and
// normalises phone numbers to E.164. The returned form is what should be sent.
func ValidateForm(f Form) (Form, FieldErrors) {
	errs := FieldErrors{}
	trim := func(s *string) { *s = strings.TrimSpace(*s) }
	for _, s := range []*string{
		&f.ChildFirstName, &f.ChildLastName, &f.ChildBirthDate, &f.ChildSex, &f.ChildNotes,
		&f.Parent1FirstName, &f.Parent1LastName, &f.Parent1Email, &f.Parent1Phone, &f.Parent1Relationship,
		&f.Parent2FirstName, &f.Parent2LastName, &f.Parent2Email, &f.Parent2Phone, &f.Parent2Relationship,
	} {
		trim(s)
	}

	required(errs, "child_first_name", f.ChildFirstName)
	required(errs, "child_last_name", f.ChildLastName)
	if required(errs, "child_birth_date", f.ChildBirthDate) {
		if _, err := time.Parse("2006-01-02", f.ChildBirthDate); err != nil {
			errs["child_birth_date"] = msgBirthDate
		}
	}

	required(errs, "parent1_first_name", f.Parent1FirstName)
	required(errs, "parent1_last_name", f.Parent1LastName)
	f.Parent1Email = checkEmail(errs, "parent1_email", f.Parent1Email)
	f.Parent1Phone = checkPhone(errs, "parent1_phone", f.Parent1Phone)

	if f.HasParent2 {
		required(errs, "parent2_first_name", f.Parent2FirstName)
		required(errs, "parent2_last_name", f.Parent2LastName)
		f.Parent2Email = checkEmail(errs, "parent2_email", f.Parent2Email)
		f.Parent2Phone = checkPhone(errs, "parent2_phone", f.Parent2Phone)
	}

	if len(errs) == 0 {
		return f, nil
	}
	return f, errs
}

func required(errs FieldErrors, field, v string) bool {
	if v == "" {
		errs[field] = msgRequired
		return false
	}
	return true
}

func checkEmail(errs FieldErrors, field, v string) string {
	if v == "" {
		return v
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v || !strings.Contains(v[strings.LastIndex(v, "@")+1:], ".") {
		errs[field] = msgEmail
		return v
	}
	return strings.ToLower(v)
}

func checkPhone(errs FieldErrors, field, v string) string {
	if v == "" {
		return v
	}
	n, err := phone.ParseNumber(v)
	if err != nil {
		errs[field] = msgPhone
		return v
	}
	return n.String()
}
