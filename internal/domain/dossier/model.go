package dossier

import (
	"strings"
	"time"

	"github.com/pediconsent/portal/internal/domain/legal"
)

// Payload is the dossier as the backend stores it.
type Payload struct {
	Child     ChildPayload      `json:"child"`
	Guardians []GuardianPayload `json:"guardians"`
}

type ChildPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date"`
	Sex       string `json:"sex,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type GuardianPayload struct {
	Role         legal.Role `json:"role"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Relationship string     `json:"relationship,omitempty"`
}

// Verification is the backend's OTP verification state of a guardian phone.
type Verification struct {
	Role          legal.Role `json:"role"`
	PhoneVerified bool       `json:"phone_verified"`
	VerifiedAt    *time.Time `json:"verified_at"`
}

type Child struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date"`
	Sex       string `json:"sex"`
	Notes     string `json:"notes"`
}

type Guardian struct {
	Role         legal.Role `json:"role"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Relationship string     `json:"relationship"`
}

func (g Guardian) FullName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}

// ContactComplete reports that both an email and a phone are recorded.
func (g Guardian) ContactComplete() bool {
	return strings.TrimSpace(g.Email) != "" && strings.TrimSpace(g.Phone) != ""
}

// VM is the dossier view model. A guardian slot is nil until filled.
type VM struct {
	Child   Child     `json:"child"`
	Parent1 *Guardian `json:"parent1"`
	Parent2 *Guardian `json:"parent2"`
}

func (vm VM) Guardian(role legal.Role) (Guardian, bool) {
	var g *Guardian
	switch role {
	case legal.Parent1:
		g = vm.Parent1
	case legal.Parent2:
		g = vm.Parent2
	}
	if g == nil {
		return Guardian{Role: role}, false
	}
	return *g, true
}

// Names returns the guardians' display names by role.
func (vm VM) Names() map[legal.Role]string {
	out := make(map[legal.Role]string, len(legal.Roles))
	for _, r := range legal.Roles {
		if g, ok := vm.Guardian(r); ok {
			out[r] = g.FullName()
		}
	}
	return out
}

// Contacts joins recorded contact details with phone verification state.
func (vm VM) Contacts(verifications []Verification) map[legal.Role]legal.Contact {
	verified := make(map[legal.Role]bool, len(verifications))
	for _, v := range verifications {
		verified[v.Role] = v.PhoneVerified
	}
	out := make(map[legal.Role]legal.Contact, len(legal.Roles))
	for _, r := range legal.Roles {
		g, _ := vm.Guardian(r)
		out[r] = legal.Contact{Email: g.Email, Phone: g.Phone, Verified: verified[r]}
	}
	return out
}

// Form is the flat shape edited in the dossier tab.
type Form struct {
	ChildFirstName      string `json:"child_first_name"`
	ChildLastName       string `json:"child_last_name"`
	ChildBirthDate      string `json:"child_birth_date"`
	ChildSex            string `json:"child_sex"`
	ChildNotes          string `json:"child_notes"`
	Parent1FirstName    string `json:"parent1_first_name"`
	Parent1LastName     string `json:"parent1_last_name"`
	Parent1Email        string `json:"parent1_email"`
	Parent1Phone        string `json:"parent1_phone"`
	Parent1Relationship string `json:"parent1_relationship"`
	HasParent2          bool   `json:"has_parent2"`
	Parent2FirstName    string `json:"parent2_first_name"`
	Parent2LastName     string `json:"parent2_last_name"`
	Parent2Email        string `json:"parent2_email"`
	Parent2Phone        string `json:"parent2_phone"`
	Parent2Relationship string `json:"parent2_relationship"`
}

// View is what the dossier endpoints return.
type View struct {
	Dossier      VM             `json:"dossier"`
	Form         Form           `json:"form"`
	Verification []Verification `json:"verification"`
}
