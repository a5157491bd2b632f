package journey

import (
	"fmt"
	"strings"
	"time"

	"github.com/pediconsent/portal/internal/domain/legal"
)

// Build derives the journey status from the backend snapshot and the merged
// legal documents.
func Build(snap Snapshot, docs []legal.DocumentVM, now time.Time, r Rules) JourneyStatus {
	js := JourneyStatus{Dossier: snap.Dossier}
	if js.Dossier.MissingFields == nil {
		js.Dossier.MissingFields = []string{}
	}

	var pre, act *time.Time
	if snap.PreConsultation != nil {
		d := snap.PreConsultation.Date
		pre = &d
		js.PreConsultation = AppointmentStage{Booked: true, Date: pre}
	}
	if snap.ActAppointment != nil {
		d := snap.ActAppointment.Date
		act = &d
		js.RdvActe = ActStage{Booked: true, Date: act}
	}
	js.RdvActe.SpacingOK = CheckActSpacing(pre, act, r)

	js.Signatures = signatureStage(docs)
	js.Signatures.ReflectionDelay = ComputeReflectionDelay(pre, now, r)
	return js
}

// signatureStage: a parent has signed when every signable document requiring
// something from them is signed. A parent required by no document is not
// waited for.
func signatureStage(docs []legal.DocumentVM) SignatureStage {
	var st SignatureStage
	signed := map[legal.Role]bool{legal.Parent1: true, legal.Parent2: true}
	required := map[legal.Role]bool{}

	for _, vm := range docs {
		if !vm.SignatureSupported {
			continue
		}
		for _, role := range legal.Roles {
			p := vm.Parent(role)
			if p.Completion == legal.NotApplicable {
				continue
			}
			required[role] = true
			if !p.Signed() {
				signed[role] = false
			}
		}
	}

	st.Parent1Required = required[legal.Parent1]
	st.Parent2Required = required[legal.Parent2]
	st.Parent1Signed = st.Parent1Required && signed[legal.Parent1]
	st.Parent2Signed = st.Parent2Required && signed[legal.Parent2]
	st.Complete = (st.Parent1Required || st.Parent2Required) &&
		(!st.Parent1Required || st.Parent1Signed) &&
		(!st.Parent2Required || st.Parent2Signed)
	return st
}

type MessageKind string

const (
	MessageWaiting MessageKind = "waiting"
	MessageDossier MessageKind = "dossier"
	MessageReady   MessageKind = "ready"
)

// Message is the single contextual prompt shown above the journey.
type Message struct {
	Kind   MessageKind `json:"kind"`
	Text   string      `json:"text"`
	Action string      `json:"action,omitempty"`
}

// ParentNames are the guardians' display names; empty names fall back to the
// role label.
type ParentNames map[legal.Role]string

func (n ParentNames) name(role legal.Role) string {
	if s := strings.TrimSpace(n[role]); s != "" {
		return s
	}
	return role.Label()
}

// SelectMessage picks the one message to show. Nothing is shown once every
// signature is collected.
func SelectMessage(js JourneyStatus, names ParentNames) *Message {
	sig := js.Signatures
	if sig.Complete {
		return nil
	}
	if !sig.ReflectionDelay.CanSign {
		return &Message{Kind: MessageWaiting, Text: waitingText(sig.ReflectionDelay)}
	}
	if !js.Dossier.Complete {
		return &Message{Kind: MessageDossier, Text: "Complétez le dossier pour signer à distance", Action: "dossier"}
	}

	var pending []string
	for _, role := range legal.Roles {
		if sig.Required(role) && !sig.Signed(role) {
			pending = append(pending, names.name(role))
		}
	}
	if len(pending) == 0 {
		return nil
	}
	return &Message{Kind: MessageReady, Text: strings.Join(pending, " et ") + " peut signer"}
}

func waitingText(rd ReflectionDelay) string {
	if rd.DaysLeft == 0 {
		return "Signature possible après la pré-consultation"
	}
	return fmt.Sprintf("Signature possible dans %d jour(s)", rd.DaysLeft)
}

type StepState string

const (
	StepPending  StepState = "pending"
	StepCurrent  StepState = "current"
	StepComplete StepState = "complete"
	StepWaiting  StepState = "waiting"
)

type Step struct {
	Key   string    `json:"key"`
	Label string    `json:"label"`
	State StepState `json:"state"`
}

// Steps renders the stepper: completed stages, then the first unfinished one
// as current (waiting for the signatures stage while the reflection delay
// runs), then pending.
func Steps(js JourneyStatus) []Step {
	stages := []struct {
		key, label string
		done       bool
	}{
		{"dossier", "Dossier", js.Dossier.Complete},
		{"pre_consultation", "Pré-consultation", js.PreConsultation.Booked},
		{"rdv_acte", "Rendez-vous de l'acte", js.RdvActe.Booked},
		{"signatures", "Signatures", js.Signatures.Complete},
	}

	steps := make([]Step, 0, len(stages))
	currentSet := false
	for _, s := range stages {
		st := StepPending
		switch {
		case s.done:
			st = StepComplete
		case !currentSet:
			currentSet = true
			st = StepCurrent
			if s.key == "signatures" && !js.Signatures.ReflectionDelay.CanSign {
				st = StepWaiting
			}
		}
		steps = append(steps, Step{Key: s.key, Label: s.label, State: st})
	}
	return steps
}
