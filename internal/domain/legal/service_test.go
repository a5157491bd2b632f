package legal

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pediconsent/portal/internal/platform/apierror"
	"github.com/pediconsent/portal/internal/platform/auth"
)

// ── Mock Backend ──

type mockBackend struct {
	catalog *Catalog
	status  *LegalStatus
	sigs    *SignatureContext

	catalogErr error
	ackErr     error

	acks  []AcknowledgeRequest
	bulks []BulkAcknowledgeRequest
}

func (m *mockBackend) Catalog(_ context.Context, _ auth.Credentials, _ Scope) (*Catalog, error) {
	if m.catalogErr != nil {
		return nil, m.catalogErr
	}
	return m.catalog, nil
}
func (m *mockBackend) Status(_ context.Context, _ auth.Credentials, _ Scope) (*LegalStatus, error) {
	return m.status, nil
}
func (m *mockBackend) SignatureContext(_ context.Context, _ auth.Credentials, _ int64) (*SignatureContext, error) {
	if m.sigs == nil {
		return &SignatureContext{}, nil
	}
	return m.sigs, nil
}
func (m *mockBackend) Acknowledge(_ context.Context, _ auth.Credentials, req AcknowledgeRequest) (*LegalStatus, error) {
	if m.ackErr != nil {
		return nil, m.ackErr
	}
	m.acks = append(m.acks, req)
	return &LegalStatus{Complete: true}, nil
}
func (m *mockBackend) AcknowledgeBulk(_ context.Context, _ auth.Credentials, req BulkAcknowledgeRequest) (*LegalStatus, error) {
	if m.ackErr != nil {
		return nil, m.ackErr
	}
	m.bulks = append(m.bulks, req)
	return &LegalStatus{Complete: true}, nil
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		catalog: &Catalog{Documents: []DocumentCatalogEntry{consentEntry(), feesEntry()}},
		status: &LegalStatus{Documents: []DocumentSignatureStatus{
			{DocumentType: InformedConsent, Acknowledged: map[Role][]string{Parent1: {"risks"}}},
		}},
		sigs: &SignatureContext{Records: []DocumentSignatureRecord{
			{ID: 5, DocumentType: InformedConsent, Parent1Status: SignatureSent},
		}},
	}
}

func newTestService(b Backend) *Service {
	return NewService(b, true, nil, zerolog.Nop())
}

var testCreds = auth.Credentials{SessionID: "s1", Subject: "guardian-1", Role: auth.RolePatient, Token: "tok"}

func TestService_Load(t *testing.T) {
	svc := newTestService(newMockBackend())
	snap, err := svc.Load(context.Background(), testCreds, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(snap.Documents))
	}
	if snap.Documents[0].Parent(Parent1).SignatureStatus != SignatureSent {
		t.Errorf("expected merged signature status, got %q", snap.Documents[0].Parent(Parent1).SignatureStatus)
	}
}

func TestService_Load_BackendFailure(t *testing.T) {
	b := newMockBackend()
	b.catalogErr = &apierror.Error{Op: "legal_catalog", Status: 404, Detail: "Rendez-vous introuvable"}
	_, err := newTestService(b).Load(context.Background(), testCreds, 42)
	if !apierror.IsNotFound(err) {
		t.Errorf("expected backend 404 to propagate, got %v", err)
	}
}

func TestService_Acknowledge(t *testing.T) {
	b := newMockBackend()
	svc := newTestService(b)
	req := AcknowledgeRequest{AppointmentID: 42, SignerRole: Parent1, DocumentType: InformedConsent, CaseKey: "anesthesia"}

	status, err := svc.Acknowledge(context.Background(), testCreds, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Complete {
		t.Error("expected refreshed status from backend")
	}
	if len(b.acks) != 1 || b.acks[0].CaseKey != "anesthesia" {
		t.Errorf("expected one mutation, got %+v", b.acks)
	}
}

func ptr(b bool) *bool { return &b }

func TestService_Acknowledge_CheckIsDefault(t *testing.T) {
	b := newMockBackend()
	req := AcknowledgeRequest{AppointmentID: 42, SignerRole: Parent1, DocumentType: InformedConsent, CaseKey: "risks"}

	// risks is checked and its signature was sent: checking it again is not an uncheck.
	if _, err := newTestService(b).Acknowledge(context.Background(), testCreds, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.acks) != 1 || b.acks[0].Acknowledged == nil || !*b.acks[0].Acknowledged {
		t.Errorf("expected an explicit check sent to the backend, got %+v", b.acks)
	}
}

func TestService_Acknowledge_UncheckLockedRejected(t *testing.T) {
	b := newMockBackend()
	svc := newTestService(b)
	req := AcknowledgeRequest{AppointmentID: 42, SignerRole: Parent1, DocumentType: InformedConsent, CaseKey: "risks", Acknowledged: ptr(false)}

	_, err := svc.Acknowledge(context.Background(), testCreds, req)
	if !errors.Is(err, ErrChecklistLocked) {
		t.Fatalf("expected ErrChecklistLocked, got %v", err)
	}
	if len(b.acks) != 0 {
		t.Error("a locked item must not reach the backend")
	}
}

func TestService_Acknowledge_UncheckAllowedBeforeSending(t *testing.T) {
	b := newMockBackend()
	b.sigs = &SignatureContext{}
	req := AcknowledgeRequest{AppointmentID: 42, SignerRole: Parent1, DocumentType: InformedConsent, CaseKey: "risks", Acknowledged: ptr(false)}
	if _, err := newTestService(b).Acknowledge(context.Background(), testCreds, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.acks) != 1 || b.acks[0].Checks() {
		t.Errorf("expected one uncheck mutation, got %+v", b.acks)
	}
}

func TestService_Acknowledge_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  AcknowledgeRequest
		want error
	}{
		{"no appointment", AcknowledgeRequest{SignerRole: Parent1, DocumentType: InformedConsent, CaseKey: "risks"}, ErrInvalidRequest},
		{"bad role", AcknowledgeRequest{AppointmentID: 1, SignerRole: "parent3", DocumentType: InformedConsent, CaseKey: "risks"}, ErrInvalidRequest},
		{"bad document", AcknowledgeRequest{AppointmentID: 1, SignerRole: Parent1, DocumentType: "quote", CaseKey: "risks"}, ErrInvalidRequest},
		{"no key", AcknowledgeRequest{AppointmentID: 1, SignerRole: Parent1, DocumentType: InformedConsent}, ErrInvalidRequest},
		{"unknown key", AcknowledgeRequest{AppointmentID: 1, SignerRole: Parent1, DocumentType: InformedConsent, CaseKey: "nope"}, ErrUnknownCase},
		{"document not in catalog", AcknowledgeRequest{AppointmentID: 1, SignerRole: Parent1, DocumentType: SurgicalAuthorizationMinor, CaseKey: "x"}, ErrUnknownDocument},
		{"item of other parent", AcknowledgeRequest{AppointmentID: 1, SignerRole: Parent1, DocumentType: InformedConsent, CaseKey: "photos"}, ErrCaseNotApplicable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newMockBackend()
			_, err := newTestService(b).Acknowledge(context.Background(), testCreds, tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if len(b.acks) != 0 {
				t.Error("invalid request must not reach the backend")
			}
		})
	}
}

func TestService_AcknowledgeBulk(t *testing.T) {
	b := newMockBackend()
	status, err := newTestService(b).AcknowledgeBulk(context.Background(), testCreds, 42, InformedConsent, Parent2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Complete {
		t.Error("expected refreshed status")
	}
	if len(b.bulks) != 1 {
		t.Fatalf("expected one bulk mutation, got %d", len(b.bulks))
	}
	got := b.bulks[0]
	if got.SignerRole != Parent2 || len(got.Acknowledgements) != 3 {
		t.Errorf("unexpected bulk request %+v", got)
	}
	for _, a := range got.Acknowledgements {
		if a.DocumentType != InformedConsent {
			t.Errorf("unexpected document type %s", a.DocumentType)
		}
	}
}

func TestService_AcknowledgeBulk_NothingPending(t *testing.T) {
	b := newMockBackend()
	status, err := newTestService(b).AcknowledgeBulk(context.Background(), testCreds, 42, FeesConsentQuote, Parent2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != b.status {
		t.Error("expected the current status to be returned unchanged")
	}
	if len(b.bulks) != 0 {
		t.Error("expected no mutation")
	}
}

func TestService_AcknowledgeBulk_BackendRejection(t *testing.T) {
	b := newMockBackend()
	b.ackErr = &apierror.Error{Op: "acknowledge_bulk", Status: 409, Detail: "Signature en cours"}
	_, err := newTestService(b).AcknowledgeBulk(context.Background(), testCreds, 42, InformedConsent, Parent1)
	if got := apierror.UserMessage(err, "fallback"); got != "Signature en cours" {
		t.Errorf("expected backend detail, got %q", got)
	}
}

func TestService_LoadScope_RequiresScope(t *testing.T) {
	_, err := newTestService(newMockBackend()).LoadScope(context.Background(), auth.Credentials{}, Scope{}, nil)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}
