package dashboard

import (
	"github.com/pediconsent/portal/internal/domain/journey"
	"github.com/pediconsent/portal/internal/domain/legal"
)

// DocumentCard is one legal document as the dashboard renders it: merged
// progress, checklist lines and signing eligibility per parent.
type DocumentCard struct {
	legal.DocumentVM
	Cases       map[legal.Role][]legal.CaseState `json:"cases_by_parent"`
	Eligibility map[legal.Role]legal.Eligibility `json:"eligibility"`
}

// ParentSummary is the header line of a guardian.
type ParentSummary struct {
	Role            legal.Role `json:"role"`
	Label           string     `json:"label"`
	Name            string     `json:"name"`
	ContactComplete bool       `json:"contact_complete"`
	PhoneVerified   bool       `json:"phone_verified"`
	Required        bool       `json:"required"`
	Signed          bool       `json:"signed"`
}

type DashboardVM struct {
	AppointmentID   int64                 `json:"appointment_id"`
	ProcedureCaseID *int64                `json:"procedure_case_id"`
	Documents       []DocumentCard        `json:"documents"`
	LegalComplete   bool                  `json:"legal_complete"`
	Journey         journey.JourneyStatus `json:"journey"`
	Message         *journey.Message      `json:"message"`
	Steps           []journey.Step        `json:"steps"`
	Parents         []ParentSummary       `json:"parents"`
}

// Card returns the card of document type dt.
func (vm *DashboardVM) Card(dt legal.DocumentType) (DocumentCard, bool) {
	if vm == nil {
		return DocumentCard{}, false
	}
	for _, c := range vm.Documents {
		if c.DocumentType == dt {
			return c, true
		}
	}
	return DocumentCard{}, false
}
