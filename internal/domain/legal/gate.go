package legal

import "strings"

// Reason explains why a signature is not available. The empty reason means
// eligible.
type Reason string

const (
	ReasonFeatureUnavailable  Reason = "feature_unavailable"
	ReasonMissingAppointment  Reason = "missing_appointment"
	ReasonNotApplicable       Reason = "not_applicable"
	ReasonChecklistIncomplete Reason = "checklist_incomplete"
	ReasonAlreadySigned       Reason = "already_signed"
	ReasonReflectionDelay     Reason = "reflection_delay"
	ReasonInvalidSession      Reason = "invalid_session"
	ReasonContactIncomplete   Reason = "contact_incomplete"
	ReasonContactUnverified   Reason = "contact_unverified"
)

var reasonMessages = map[Reason]string{
	ReasonFeatureUnavailable:  "La signature électronique n'est pas disponible pour ce document.",
	ReasonMissingAppointment:  "Aucun rendez-vous n'est associé à ce dossier.",
	ReasonNotApplicable:       "Ce document ne requiert pas la signature de ce parent.",
	ReasonChecklistIncomplete: "Cochez toutes les mentions obligatoires avant de signer.",
	ReasonAlreadySigned:       "Ce document est déjà signé.",
	ReasonReflectionDelay:     "Le délai de réflexion n'est pas encore écoulé.",
	ReasonInvalidSession:      "Votre session a expiré, veuillez vous reconnecter.",
	ReasonContactIncomplete:   "Renseignez l'e-mail et le téléphone du parent dans le dossier.",
	ReasonContactUnverified:   "Vérifiez le numéro de téléphone du parent pour signer à distance.",
}

func (r Reason) Message() string {
	return reasonMessages[r]
}

// Contact is what the backend knows of a guardian's contact details.
type Contact struct {
	Email    string
	Phone    string
	Verified bool
}

// Complete reports that both an email and a phone number are recorded.
func (c Contact) Complete() bool {
	return strings.TrimSpace(c.Email) != "" && strings.TrimSpace(c.Phone) != ""
}

// GateInput gathers what the gate looks at for one (document, parent) pair.
// Token is the caller's credential: a backend token, or a cabinet session code
// on the tablet.
type GateInput struct {
	Progress           ParentProgress
	SignatureSupported bool
	AppointmentID      int64
	Token              string
	Contact            Contact
	ReflectionPending  bool
}

type Eligibility struct {
	CanSignRemote  bool   `json:"can_sign_remote"`
	CanSignCabinet bool   `json:"can_sign_cabinet"`
	DisabledReason Reason `json:"disabled_reason,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Evaluate decides whether a parent may sign a document now. The first
// blocking reason in priority order is reported. The cabinet channel replaces
// contact verification with physical presence and ignores the two contact
// reasons.
func Evaluate(in GateInput) Eligibility {
	reason := firstReason(in)
	if reason == "" {
		return Eligibility{CanSignRemote: true, CanSignCabinet: true}
	}
	return Eligibility{
		CanSignCabinet: reason == ReasonContactIncomplete || reason == ReasonContactUnverified,
		DisabledReason: reason,
		Message:        reason.Message(),
	}
}

// Cabinet is the eligibility shown on the practice tablet. Remote signing
// is not offered there and the contact reasons do not apply.
func (e Eligibility) Cabinet() Eligibility {
	if e.CanSignCabinet {
		return Eligibility{CanSignCabinet: true}
	}
	return e
}

func firstReason(in GateInput) Reason {
	p := in.Progress
	switch {
	case !in.SignatureSupported:
		return ReasonFeatureUnavailable
	case in.AppointmentID <= 0:
		return ReasonMissingAppointment
	case p.Total == 0:
		return ReasonNotApplicable
	case p.CompletedCount < p.Total:
		return ReasonChecklistIncomplete
	case p.Signed():
		return ReasonAlreadySigned
	case in.ReflectionPending:
		return ReasonReflectionDelay
	case strings.TrimSpace(in.Token) == "":
		return ReasonInvalidSession
	case !in.Contact.Complete():
		return ReasonContactIncomplete
	case !in.Contact.Verified:
		return ReasonContactUnverified
	}
	return ""
}
