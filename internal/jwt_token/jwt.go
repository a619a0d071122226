package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"credentia/internal/platform/middleware"
	dErrors "credentia/pkg/domain-errors"
)

// Claims represents the JWT claims carried by access tokens the upstream
// identity service issues. The screening core never mints end-user tokens;
// GenerateAccessToken exists for tests and local tooling.
type Claims struct {
	OrgID string   `json:"org_id"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTService handles JWT validation (and creation for tests/tooling).
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

func (s *JWTService) GenerateAccessToken(
	actorID uuid.UUID,
	orgID uuid.UUID,
	roles []string,
	expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		OrgID: orgID.String(),
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidateToken verifies the signature and expiry and returns the tenant
// claims in the shape the auth middleware consumes.
func (s *JWTService) ValidateToken(tokenString string) (*middleware.TenantClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return &middleware.TenantClaims{
		OrgID:   claims.OrgID,
		ActorID: claims.Subject,
		Roles:   claims.Roles,
	}, nil
}
