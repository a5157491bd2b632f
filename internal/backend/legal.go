package backend

import (
	"context"
	"net/http"

	"github.com/pediconsent/portal/internal/domain/legal"
	"github.com/pediconsent/portal/internal/platform/auth"
)

func (c *Client) Catalog(ctx context.Context, creds auth.Credentials, scope legal.Scope) (*legal.Catalog, error) {
	var out legal.Catalog
	err := c.do(ctx, call{op: "legal_catalog", method: http.MethodGet, path: "/legal/catalog", query: scope.Query(), token: creds.Token, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Status(ctx context.Context, creds auth.Credentials, scope legal.Scope) (*legal.LegalStatus, error) {
	var out legal.LegalStatus
	err := c.do(ctx, call{op: "legal_status", method: http.MethodGet, path: "/legal/status", query: scope.Query(), token: creds.Token, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Acknowledge(ctx context.Context, creds auth.Credentials, req legal.AcknowledgeRequest) (*legal.LegalStatus, error) {
	var out legal.LegalStatus
	err := c.do(ctx, call{op: "legal_acknowledge", method: http.MethodPost, path: "/legal/acknowledge", token: creds.Token, body: req, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AcknowledgeBulk(ctx context.Context, creds auth.Credentials, req legal.BulkAcknowledgeRequest) (*legal.LegalStatus, error) {
	var out legal.LegalStatus
	err := c.do(ctx, call{op: "legal_acknowledge_bulk", method: http.MethodPost, path: "/legal/acknowledge/bulk", token: creds.Token, body: req, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SignatureContext reads the procedure case of an appointment and, when
// there is one, its per-document signature records.
func (c *Client) SignatureContext(ctx context.Context, creds auth.Credentials, appointmentID int64) (*legal.SignatureContext, error) {
	js, err := c.JourneySnapshot(ctx, creds, appointmentID)
	if err != nil {
		return nil, err
	}
	sc := &legal.SignatureContext{ProcedureCaseID: js.ProcedureCaseID, Legacy: js.LegacyConsent}
	if js.ProcedureCaseID == nil {
		return sc, nil
	}
	sc.Records, err = c.DocumentSignatures(ctx, creds, *js.ProcedureCaseID)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func (c *Client) DocumentSignatures(ctx context.Context, creds auth.Credentials, procedureCaseID int64) ([]legal.DocumentSignatureRecord, error) {
	var out []legal.DocumentSignatureRecord
	err := c.do(ctx, call{op: "document_signatures", method: http.MethodGet, path: "/procedure-cases/" + itoa(procedureCaseID) + "/document-signatures", token: creds.Token, out: &out})
	if err != nil {
		return nil, err
	}
	return out, nil
}
