package backend

import (
	"context"
	"net/http"
	"strconv"

	"github.com/pediconsent/portal/internal/domain/dossier"
	"github.com/pediconsent/portal/internal/domain/journey"
	"github.com/pediconsent/portal/internal/platform/auth"
)

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (c *Client) JourneySnapshot(ctx context.Context, creds auth.Credentials, appointmentID int64) (*journey.Snapshot, error) {
	var out journey.Snapshot
	err := c.do(ctx, call{op: "journey", method: http.MethodGet, path: "/appointments/" + itoa(appointmentID) + "/journey", token: creds.Token, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Dossier(ctx context.Context, creds auth.Credentials, appointmentID int64) (*dossier.Payload, error) {
	var out dossier.Payload
	err := c.do(ctx, call{op: "dossier", method: http.MethodGet, path: "/appointments/" + itoa(appointmentID) + "/dossier", token: creds.Token, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SaveDossier(ctx context.Context, creds auth.Credentials, appointmentID int64, p dossier.Payload) (*dossier.Payload, error) {
	var out dossier.Payload
	err := c.do(ctx, call{op: "dossier_save", method: http.MethodPut, path: "/appointments/" + itoa(appointmentID) + "/dossier", token: creds.Token, body: p, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GuardianVerification(ctx context.Context, creds auth.Credentials, appointmentID int64) ([]dossier.Verification, error) {
	var out []dossier.Verification
	err := c.do(ctx, call{op: "guardian_verification", method: http.MethodGet, path: "/appointments/" + itoa(appointmentID) + "/guardians/verification", token: creds.Token, out: &out})
	if err != nil {
		return nil, err
	}
	return out, nil
}
