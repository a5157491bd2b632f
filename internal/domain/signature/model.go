package signature

import (
	"io"
	"time"

	"github.com/pediconsent/portal/internal/domain/dashboard"
	"github.com/pediconsent/portal/internal/domain/journey"
	"github.com/pediconsent/portal/internal/domain/legal"
)

// Mode is the channel a signature is collected through.
type Mode string

const (
	ModeRemote  Mode = "remote"
	ModeCabinet Mode = "cabinet"
)

func (m Mode) Valid() bool {
	return m == ModeRemote || m == ModeCabinet
}

// StartRequest asks the backend for a signature link. The tablet sends its
// SessionCode instead of a portal session.
type StartRequest struct {
	AppointmentID   int64              `json:"appointment_id,omitempty"`
	ProcedureCaseID *int64             `json:"procedure_case_id,omitempty"`
	DocumentType    legal.DocumentType `json:"document_type"`
	SignerRole      legal.Role         `json:"signer_role"`
	Mode            Mode               `json:"mode"`
	SessionCode     string             `json:"session_code,omitempty"`
}

type StartResponse struct {
	SignatureLink string `json:"signature_link"`
}

// StartResult is the link plus the dashboard re-read after the request.
// Dashboard is nil when that re-read failed.
type StartResult struct {
	SignatureLink string                 `json:"signature_link"`
	Dashboard     *dashboard.DashboardVM `json:"dashboard"`
}

type CabinetSessionRequest struct {
	AppointmentID int64      `json:"appointment_id"`
	SignerRole    legal.Role `json:"signer_role"`
}

type CabinetSession struct {
	SessionCode string    `json:"session_code"`
	TabletURL   string    `json:"tablet_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TabletSession is the backend's record behind a cabinet session code.
type TabletSession struct {
	SessionCode         string                          `json:"session_code"`
	AppointmentID       int64                           `json:"appointment_id"`
	ProcedureCaseID     *int64                          `json:"procedure_case_id"`
	SignerRole          legal.Role                      `json:"signer_role"`
	PreConsultationDate *time.Time                      `json:"pre_consultation_date"`
	Records             []legal.DocumentSignatureRecord `json:"records"`
	LegacyConsent       *legal.LegacyConsentSignature   `json:"legacy_consent"`
	ExpiresAt           time.Time                       `json:"expires_at"`
}

type TabletDocument struct {
	legal.DocumentVM
	Checklist   []legal.CaseState `json:"checklist"`
	Eligibility legal.Eligibility `json:"eligibility"`
}

// TabletView is what the practice tablet renders for one signer.
type TabletView struct {
	SessionCode     string                  `json:"session_code"`
	SignerRole      legal.Role              `json:"signer_role"`
	SignerLabel     string                  `json:"signer_label"`
	ProcedureCaseID *int64                  `json:"procedure_case_id"`
	ExpiresAt       time.Time               `json:"expires_at"`
	ReflectionDelay journey.ReflectionDelay `json:"reflection_delay"`
	Documents       []TabletDocument        `json:"documents"`

	session *TabletSession
}

// Document returns the tablet document of type dt.
func (v *TabletView) Document(dt legal.DocumentType) (TabletDocument, bool) {
	for _, d := range v.Documents {
		if d.DocumentType == dt {
			return d, true
		}
	}
	return TabletDocument{}, false
}

// TokenInfo describes a remote signing link. Expiry is judged by the backend.
type TokenInfo struct {
	Valid        bool               `json:"valid"`
	CompletedAt  *time.Time         `json:"completed_at"`
	DocumentType legal.DocumentType `json:"document_type"`
	ParentRole   legal.Role         `json:"parent_role"`
	ExpiresAt    *time.Time         `json:"expires_at"`
}

// Upload is the drawn signature sent from the signing page.
type Upload struct {
	SignatureBase64  string `json:"signatureBase64"`
	ConsentConfirmed bool   `json:"consentConfirmed"`
	DeviceID         string `json:"deviceId"`
}

type OTPRequest struct {
	AppointmentID int64      `json:"appointment_id"`
	ParentRole    legal.Role `json:"parent_role"`
	Phone         string     `json:"phone"`
}

type OTPVerifyRequest struct {
	AppointmentID int64      `json:"appointment_id"`
	ParentRole    legal.Role `json:"parent_role"`
	Code          string     `json:"code"`
}

// OTPState is echoed from the backend. The countdowns are informative only.
type OTPState struct {
	Verified     bool `json:"verified"`
	ExpiresInSec int  `json:"expires_in_sec"`
	CooldownSec  int  `json:"cooldown_sec"`
}

// FileKind selects one of the PDFs attached to a signature record.
type FileKind string

const (
	FileFinal    FileKind = "final"
	FileSigned   FileKind = "signed"
	FileEvidence FileKind = "evidence"
)

func (k FileKind) Valid() bool {
	switch k {
	case FileFinal, FileSigned, FileEvidence:
		return true
	}
	return false
}

// File is a PDF streamed from the backend. The caller closes Body.
type File struct {
	ContentType   string
	ContentLength int64
	Filename      string
	Body          io.ReadCloser
}
