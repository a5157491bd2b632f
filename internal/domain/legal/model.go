package legal

import (
	"net/url"
	"strconv"
	"time"
)

type DocumentType string

const (
	SurgicalAuthorizationMinor DocumentType = "surgical_authorization_minor"
	InformedConsent            DocumentType = "informed_consent"
	FeesConsentQuote           DocumentType = "fees_consent_quote"
)

func (d DocumentType) Valid() bool {
	switch d {
	case SurgicalAuthorizationMinor, InformedConsent, FeesConsentQuote:
		return true
	}
	return false
}

// Role is one of the two legal signer slots of a minor's procedure.
type Role string

const (
	Parent1 Role = "parent1"
	Parent2 Role = "parent2"
)

// Roles lists the signer slots in display order.
var Roles = []Role{Parent1, Parent2}

func (r Role) Valid() bool {
	return r == Parent1 || r == Parent2
}

// Label is the fallback display name used when no guardian name is known.
func (r Role) Label() string {
	switch r {
	case Parent1:
		return "Parent 1"
	case Parent2:
		return "Parent 2"
	}
	return string(r)
}

// CaseItem is one checklist line of a legal document.
type CaseItem struct {
	Key           string `json:"key"`
	Label         string `json:"label"`
	Required      bool   `json:"required"`
	RequiredRoles []Role `json:"required_roles"`
}

// RequiredFor reports whether the item counts toward role's total.
func (c CaseItem) RequiredFor(role Role) bool {
	if !c.Required {
		return false
	}
	for _, r := range c.RequiredRoles {
		if r == role {
			return true
		}
	}
	return false
}

type DocumentCatalogEntry struct {
	DocumentType DocumentType `json:"document_type"`
	Title        string       `json:"title"`
	Version      string       `json:"version"`
	Cases        []CaseItem   `json:"cases"`
}

// Case returns the catalog item with the given key.
func (e DocumentCatalogEntry) Case(key string) (CaseItem, bool) {
	for _, c := range e.Cases {
		if c.Key == key {
			return c, true
		}
	}
	return CaseItem{}, false
}

type Catalog struct {
	Documents []DocumentCatalogEntry `json:"documents"`
}

func (c *Catalog) Entry(dt DocumentType) (DocumentCatalogEntry, bool) {
	if c == nil {
		return DocumentCatalogEntry{}, false
	}
	for _, d := range c.Documents {
		if d.DocumentType == dt {
			return d, true
		}
	}
	return DocumentCatalogEntry{}, false
}

// DocumentSignatureStatus is the backend's checklist state for one document.
type DocumentSignatureStatus struct {
	DocumentType DocumentType      `json:"document_type"`
	Acknowledged map[Role][]string `json:"acknowledged"`
	Missing      map[Role][]string `json:"missing"`
	Complete     bool              `json:"complete"`
}

type LegalStatus struct {
	Documents []DocumentSignatureStatus `json:"documents"`
	Complete  bool                      `json:"complete"`
}

// Document returns the status of dt, or an empty status when the backend has
// none yet.
func (s *LegalStatus) Document(dt DocumentType) DocumentSignatureStatus {
	if s != nil {
		for _, d := range s.Documents {
			if d.DocumentType == dt {
				return d
			}
		}
	}
	return DocumentSignatureStatus{DocumentType: dt}
}

// SignatureStatus is the per-parent signature state. The zero value means no
// signature has been requested and is encoded as JSON null.
type SignatureStatus string

const (
	SignatureNone    SignatureStatus = ""
	SignaturePending SignatureStatus = "pending"
	SignatureSent    SignatureStatus = "sent"
	SignatureSigned  SignatureStatus = "signed"
)

// Committed reports whether a signature has been sent or completed. Checked
// checklist items are frozen from then on.
func (s SignatureStatus) Committed() bool {
	return s == SignatureSent || s == SignatureSigned
}

func (s SignatureStatus) MarshalJSON() ([]byte, error) {
	if s == SignatureNone {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(string(s))), nil
}

func (s *SignatureStatus) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = SignatureNone
		return nil
	}
	v, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	*s = SignatureStatus(v)
	return nil
}

// ParentSignature is one parent's side of a signature record.
type ParentSignature struct {
	Status        SignatureStatus
	SignatureLink string
	SentAt        *time.Time
	SignedAt      *time.Time
}

// DocumentSignatureRecord is the backend's signature entity for one document
// type within one procedure case.
type DocumentSignatureRecord struct {
	ID                    int64           `json:"id"`
	ProcedureCaseID       int64           `json:"procedure_case_id"`
	DocumentType          DocumentType    `json:"document_type"`
	Parent1Status         SignatureStatus `json:"parent1_status"`
	Parent1SignatureLink  string          `json:"parent1_signature_link,omitempty"`
	Parent1SentAt         *time.Time      `json:"parent1_sent_at"`
	Parent1SignedAt       *time.Time      `json:"parent1_signed_at"`
	Parent2Status         SignatureStatus `json:"parent2_status"`
	Parent2SignatureLink  string          `json:"parent2_signature_link,omitempty"`
	Parent2SentAt         *time.Time      `json:"parent2_sent_at"`
	Parent2SignedAt       *time.Time      `json:"parent2_signed_at"`
	FinalPDFIdentifier    string          `json:"final_pdf_identifier,omitempty"`
	SignedPDFIdentifier   string          `json:"signed_pdf_identifier,omitempty"`
	EvidencePDFIdentifier string          `json:"evidence_pdf_identifier,omitempty"`
}

func (r DocumentSignatureRecord) Parent(role Role) ParentSignature {
	switch role {
	case Parent1:
		return ParentSignature{Status: r.Parent1Status, SignatureLink: r.Parent1SignatureLink, SentAt: r.Parent1SentAt, SignedAt: r.Parent1SignedAt}
	case Parent2:
		return ParentSignature{Status: r.Parent2Status, SignatureLink: r.Parent2SignatureLink, SentAt: r.Parent2SentAt, SignedAt: r.Parent2SignedAt}
	}
	return ParentSignature{}
}

// LegacyConsentSignature is the single consent record procedure cases carried
// before signatures were tracked per document. It only ever describes the
// informed consent.
type LegacyConsentSignature struct {
	Parent1Status         SignatureStatus `json:"parent1_consent_status"`
	Parent1SignatureLink  string          `json:"parent1_signature_link,omitempty"`
	Parent1SentAt         *time.Time      `json:"parent1_sent_at"`
	Parent1SignedAt       *time.Time      `json:"parent1_signed_at"`
	Parent2Status         SignatureStatus `json:"parent2_consent_status"`
	Parent2SignatureLink  string          `json:"parent2_signature_link,omitempty"`
	Parent2SentAt         *time.Time      `json:"parent2_sent_at"`
	Parent2SignedAt       *time.Time      `json:"parent2_signed_at"`
	SignedPDFIdentifier   string          `json:"consent_signed_pdf_identifier,omitempty"`
	EvidencePDFIdentifier string          `json:"consent_evidence_pdf_identifier,omitempty"`
}

func (l LegacyConsentSignature) Parent(role Role) ParentSignature {
	switch role {
	case Parent1:
		return ParentSignature{Status: l.Parent1Status, SignatureLink: l.Parent1SignatureLink, SentAt: l.Parent1SentAt, SignedAt: l.Parent1SignedAt}
	case Parent2:
		return ParentSignature{Status: l.Parent2Status, SignatureLink: l.Parent2SignatureLink, SentAt: l.Parent2SentAt, SignedAt: l.Parent2SignedAt}
	}
	return ParentSignature{}
}

// Completion of a parent's checklist for one document.
type Completion string

// NotApplicable means the document requires nothing from this parent.
const (
	NotApplicable Completion = "not_applicable"
	Incomplete    Completion = "incomplete"
	Complete      Completion = "complete"
)

// ParentProgress is the merged state of one parent for one document.
type ParentProgress struct {
	CheckedKeys     []string        `json:"checked_keys"`
	MissingKeys     []string        `json:"missing_keys"`
	CompletedCount  int             `json:"completed_count"`
	Total           int             `json:"total"`
	Completion      Completion      `json:"completion"`
	SignatureStatus SignatureStatus `json:"signature_status"`
	SignatureLink   string          `json:"signature_link,omitempty"`
	SentAt          *time.Time      `json:"sent_at"`
	SignedAt        *time.Time      `json:"signed_at"`
}

func emptyProgress() ParentProgress {
	return ParentProgress{
		CheckedKeys: []string{},
		MissingKeys: []string{},
		Completion:  NotApplicable,
	}
}

// Signed reports a completed signature, by status or by timestamp.
func (p ParentProgress) Signed() bool {
	return p.SignatureStatus == SignatureSigned || p.SignedAt != nil
}

// DocumentVM is the per-document view model rebuilt on every request.
type DocumentVM struct {
	DocumentType         DocumentType            `json:"document_type"`
	Title                string                  `json:"title"`
	Version              string                  `json:"version"`
	Cases                []CaseItem              `json:"cases"`
	ByParent             map[Role]ParentProgress `json:"by_parent"`
	SignatureID          *int64                  `json:"signature_id"`
	SignatureSupported   bool                    `json:"signature_supported"`
	FinalPDFAvailable    bool                    `json:"final_pdf_available"`
	SignedPDFAvailable   bool                    `json:"signed_pdf_available"`
	EvidencePDFAvailable bool                    `json:"evidence_pdf_available"`
}

// Parent returns the progress of role, fully defaulted when absent.
func (vm DocumentVM) Parent(role Role) ParentProgress {
	if p, ok := vm.ByParent[role]; ok {
		return p
	}
	return emptyProgress()
}

// Scope selects whose legal documents to read: an authenticated appointment
// or a cabinet tablet session.
type Scope struct {
	AppointmentID int64
	SessionCode   string
}

func (s Scope) Valid() bool {
	return s.AppointmentID > 0 || s.SessionCode != ""
}

func (s Scope) Query() url.Values {
	q := url.Values{}
	if s.AppointmentID > 0 {
		q.Set("appointment_id", strconv.FormatInt(s.AppointmentID, 10))
	}
	if s.SessionCode != "" {
		q.Set("session_code", s.SessionCode)
	}
	return q
}

// SignatureContext is what the merge needs besides catalog and status.
type SignatureContext struct {
	ProcedureCaseID *int64
	Records         []DocumentSignatureRecord
	Legacy          *LegacyConsentSignature
}

// AcknowledgeRequest checks one checklist item. It unchecks the item only
// when Acknowledged is explicitly false.
type AcknowledgeRequest struct {
	AppointmentID int64        `json:"appointment_id"`
	SignerRole    Role         `json:"signer_role"`
	DocumentType  DocumentType `json:"document_type"`
	CaseKey       string       `json:"case_key"`
	Acknowledged  *bool        `json:"acknowledged,omitempty"`
}

// Checks reports whether the request checks the item.
func (r AcknowledgeRequest) Checks() bool {
	return r.Acknowledged == nil || *r.Acknowledged
}

type Acknowledgement struct {
	DocumentType DocumentType `json:"document_type"`
	CaseKey      string       `json:"case_key"`
}

type BulkAcknowledgeRequest struct {
	AppointmentID    int64             `json:"appointment_id"`
	SignerRole       Role              `json:"signer_role"`
	Acknowledgements []Acknowledgement `json:"acknowledgements"`
}
