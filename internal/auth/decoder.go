package auth

import (
	"errors"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/academia-portal/internal/domain"
	apperrors "github.com/spec-kit/academia-portal/pkg/util"
)

// Decode failure reasons reported in DomainError details.
const (
	ReasonMalformed    = "malformed"
	ReasonPayload      = "payload"
	ReasonMissingClaim = "missing_claim"
)

// TokenClaims is the JWT payload shape issued by the backend.
type TokenClaims struct {
	UserID        *int64   `json:"userId,omitempty"`
	PersonID      *int64   `json:"personId,omitempty"`
	FullName      string   `json:"fullName,omitempty"`
	InstitutionID *int64   `json:"institutionId,omitempty"`
	Roles         []string `json:"roles"`
	jwt.RegisteredClaims
}

// Decoder extracts claims from session tokens without verifying signatures;
// the backend verifies on every request.
type Decoder struct {
	parser *jwt.Parser
}

func NewDecoder() *Decoder {
	return &Decoder{parser: jwt.NewParser()}
}

// Decode is pure and deterministic. Every failure is a DECODE_FAILED DomainError.
func (d *Decoder) Decode(token string) (domain.Claims, error) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return domain.Claims{}, apperrors.NewDecodeError(ReasonMalformed, errors.New("token is not a three-part JWT"))
	}

	var raw TokenClaims
	if _, _, err := d.parser.ParseUnverified(token, &raw); err != nil {
		reason := ReasonMalformed
		if errors.Is(err, jwt.ErrTokenMalformed) && strings.Contains(err.Error(), "claim") {
			reason = ReasonPayload
		}
		return domain.Claims{}, apperrors.NewDecodeError(reason, err)
	}

	if missing := raw.missing(); len(missing) > 0 {
		return domain.Claims{}, apperrors.NewDecodeError(ReasonMissingClaim,
			errors.New("missing required claims: "+strings.Join(missing, ", ")))
	}

	claims := domain.Claims{
		Subject:       raw.Subject,
		UserID:        *raw.UserID,
		PersonID:      *raw.PersonID,
		FullName:      raw.FullName,
		InstitutionID: *raw.InstitutionID,
		Roles:         domain.ParseRoleSet(raw.Roles),
		RawRoles:      append([]string(nil), raw.Roles...),
	}
	if claims.FullName == "" {
		claims.FullName = raw.Subject
	}
	if raw.ExpiresAt != nil {
		exp := raw.ExpiresAt.Time
		claims.ExpiresAt = &exp
	}
	return claims, nil
}

func (c TokenClaims) missing() []string {
	var missing []string
	if c.Subject == "" {
		missing = append(missing, "sub")
	}
	if c.UserID == nil {
		missing = append(missing, "userId")
	}
	if c.PersonID == nil {
		missing = append(missing, "personId")
	}
	if c.InstitutionID == nil {
		missing = append(missing, "institutionId")
	}
	if c.Roles == nil {
		missing = append(missing, "roles")
	}
	return missing
}
