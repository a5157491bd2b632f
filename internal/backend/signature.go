package backend

import (
	"context"
	"mime"
	"net/http"
	"net/url"

	"github.com/pediconsent/portal/internal/domain/signature"
	"github.com/pediconsent/portal/internal/platform/auth"
)

func (c *Client) StartSignature(ctx context.Context, creds auth.Credentials, req signature.StartRequest) (*signature.StartResponse, error) {
	var out signature.StartResponse
	err := c.do(ctx, call{op: "signature_start", method: http.MethodPost, path: "/document-signatures/start", token: creds.Token, body: req, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCabinetSession(ctx context.Context, creds auth.Credentials, req signature.CabinetSessionRequest) (*signature.CabinetSession, error) {
	var out signature.CabinetSession
	err := c.do(ctx, call{op: "cabinet_session_create", method: http.MethodPost, path: "/cabinet-sessions", token: creds.Token, body: req, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TabletSession(ctx context.Context, sessionCode string) (*signature.TabletSession, error) {
	var out signature.TabletSession
	err := c.do(ctx, call{op: "cabinet_session", method: http.MethodGet, path: "/cabinet-sessions/" + url.PathEscape(sessionCode), out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TokenInfo(ctx context.Context, token string) (*signature.TokenInfo, error) {
	var out signature.TokenInfo
	err := c.do(ctx, call{op: "signature_token", method: http.MethodGet, path: "/signature-tokens/" + url.PathEscape(token), out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitSignature(ctx context.Context, token string, up signature.Upload) (*signature.TokenInfo, error) {
	var out signature.TokenInfo
	err := c.do(ctx, call{op: "signature_submit", method: http.MethodPost, path: "/signature-tokens/" + url.PathEscape(token), body: up, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RequestOTP(ctx context.Context, creds auth.Credentials, req signature.OTPRequest) (*signature.OTPState, error) {
	var out signature.OTPState
	err := c.do(ctx, call{op: "otp_request", method: http.MethodPost, path: "/otp/request", token: creds.Token, body: req, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyOTP(ctx context.Context, creds auth.Credentials, req signature.OTPVerifyRequest) (*signature.OTPState, error) {
	var out signature.OTPState
	err := c.do(ctx, call{op: "otp_verify", method: http.MethodPost, path: "/otp/verify", token: creds.Token, body: req, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SignatureFile opens a PDF stream. The response is not size-limited and is
// bounded by ctx only.
func (c *Client) SignatureFile(ctx context.Context, creds auth.Credentials, signatureID int64, kind signature.FileKind) (*signature.File, error) {
	resp, err := c.send(ctx, c.stream, call{
		op:     "signature_file",
		method: http.MethodGet,
		path:   "/document-signatures/" + itoa(signatureID) + "/files/" + url.PathEscape(string(kind)),
		token:  creds.Token,
	})
	if err != nil {
		return nil, err
	}
	f := &signature.File{
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		Body:          resp.Body,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		f.Filename = params["filename"]
	}
	return f, nil
}
