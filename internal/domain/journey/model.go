package journey

import (
	"time"

	"github.com/pediconsent/portal/internal/domain/legal"
)

// Appointment is a booked slot as returned by the backend.
type Appointment struct {
	ID   int64     `json:"id"`
	Date time.Time `json:"date"`
}

// Snapshot is the backend's journey record of one appointment.
type Snapshot struct {
	AppointmentID   int64                         `json:"appointment_id"`
	ProcedureCaseID *int64                        `json:"procedure_case_id"`
	Dossier         DossierStage                  `json:"dossier"`
	PreConsultation *Appointment                  `json:"pre_consultation"`
	ActAppointment  *Appointment                  `json:"act_appointment"`
	LegacyConsent   *legal.LegacyConsentSignature `json:"legacy_consent"`
}

type DossierStage struct {
	Created       bool     `json:"created"`
	Complete      bool     `json:"complete"`
	MissingFields []string `json:"missing_fields"`
}

type AppointmentStage struct {
	Booked bool       `json:"booked"`
	Date   *time.Time `json:"date"`
}

type ActStage struct {
	Booked    bool       `json:"booked"`
	Date      *time.Time `json:"date"`
	SpacingOK bool       `json:"spacing_ok"`
}

type ReflectionDelay struct {
	CanSign       bool   `json:"can_sign"`
	DaysLeft      int    `json:"days_left"`
	AvailableDate string `json:"available_date,omitempty"`
}

type SignatureStage struct {
	Complete        bool            `json:"complete"`
	Parent1Signed   bool            `json:"parent1_signed"`
	Parent2Signed   bool            `json:"parent2_signed"`
	Parent1Required bool            `json:"parent1_required"`
	Parent2Required bool            `json:"parent2_required"`
	ReflectionDelay ReflectionDelay `json:"reflection_delay"`
}

// Signed reports whether role has signed everything it has to sign.
func (s SignatureStage) Signed(role legal.Role) bool {
	switch role {
	case legal.Parent1:
		return s.Parent1Signed
	case legal.Parent2:
		return s.Parent2Signed
	}
	return false
}

// Required reports whether at least one document needs role's signature.
func (s SignatureStage) Required(role legal.Role) bool {
	switch role {
	case legal.Parent1:
		return s.Parent1Required
	case legal.Parent2:
		return s.Parent2Required
	}
	return false
}

type JourneyStatus struct {
	Dossier         DossierStage     `json:"dossier"`
	PreConsultation AppointmentStage `json:"pre_consultation"`
	RdvActe         ActStage         `json:"rdv_acte"`
	Signatures      SignatureStage   `json:"signatures"`
}

// Rules are the calendar constraints of the journey. With Enforced false
// signatures open regardless of the reflection delay.
type Rules struct {
	ReflectionDays int
	ActSpacingDays int
	Enforced       bool
	Location       *time.Location
}

func DefaultRules() Rules {
	return Rules{ReflectionDays: 15, ActSpacingDays: 14, Enforced: true, Location: time.UTC}
}

func (r Rules) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}
