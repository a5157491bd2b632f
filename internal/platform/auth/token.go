package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RolePatient      = "patient"
	RolePractitioner = "practitioner"
)

var ErrInvalidToken = errors.New("auth: invalid backend token")

// Claims are the fields the portal reads from a token issued by the surgical
// backend at login.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
}

type TokenConfig struct {
	Issuer   string
	Audience string
	// SigningKey is the HMAC key shared with the backend.
	SigningKey []byte
	// SkipVerify parses tokens without checking the signature. Development only.
	SkipVerify bool
}

type Verifier struct {
	cfg    TokenConfig
	parser *jwt.Parser
}

func NewVerifier(cfg TokenConfig) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &Verifier{cfg: cfg, parser: jwt.NewParser(opts...)}
}

// Verify checks a backend token and returns its claims. The role claim must
// name a portal role.
func (v *Verifier) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	claims := &Claims{}
	if v.cfg.SkipVerify {
		if _, _, err := v.parser.ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	} else {
		if len(v.cfg.SigningKey) == 0 {
			return nil, fmt.Errorf("%w: no signing key configured", ErrInvalidToken)
		}
		parsed, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			return v.cfg.SigningKey, nil
		})
		if err != nil || !parsed.Valid {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	switch claims.Role {
	case RolePatient, RolePractitioner:
	default:
		return nil, fmt.Errorf("%w: unsupported role %q", ErrInvalidToken, claims.Role)
	}
	return claims, nil
}
