package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/carelane/authcore/application/port/outbound"
)

// Decode failure kinds. The codec reports the precise reason; the lifecycle
// manager decides how each maps onto the outward error taxonomy.
var (
	ErrSignatureInvalid         = errors.New("token signature is invalid")
	ErrExpired                  = errors.New("token is expired")
	ErrClaimsMalformed          = errors.New("token claims are malformed")
	ErrAudienceOrIssuerMismatch = errors.New("token audience or issuer mismatch")
)

// wireClaims is the on-the-wire claim set: RFC 7519 registered claims plus the
// token type discriminator and an optional role for relying services.
type wireClaims struct {
	TokenType string `json:"type"`
	Role      string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Payload is the input to Encode. The codec stamps a fresh jti on every call,
// so two encodings of the same payload never produce the same token.
type Payload struct {
	Subject   string
	TokenType outbound.TokenType
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec signs and verifies tokens. It is pure and stateless: revocation and
// token-type enforcement are layered on top by the Manager.
type Codec struct {
	secret   []byte
	method   jwt.SigningMethod
	issuer   string
	audience []string
	leeway   time.Duration
}

func NewCodec(secret, algorithm, issuer string, audience []string, leeway time.Duration) (*Codec, error) {
	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm: %s", algorithm)
	}
	return &Codec{
		secret:   []byte(secret),
		method:   method,
		issuer:   issuer,
		audience: audience,
		leeway:   leeway,
	}, nil
}

func (c *Codec) Encode(p Payload) (string, error) {
	claims := &wireClaims{
		TokenType: string(p.TokenType),
		Role:      p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings(c.audience),
			IssuedAt:  jwt.NewNumericDate(p.IssuedAt),
			NotBefore: jwt.NewNumericDate(p.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature, expiry (with leeway), not-before, issuer and
// audience, and returns the claims. Failures collapse onto the four exported
// error kinds; anything unexpected counts as malformed.
func (c *Codec) Decode(tokenString string) (*outbound.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &wireClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithLeeway(c.leeway), jwt.WithIssuer(c.issuer))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureInvalid
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, ErrAudienceOrIssuerMismatch
		default:
			return nil, ErrClaimsMalformed
		}
	}

	claims, ok := parsed.Claims.(*wireClaims)
	if !ok || !parsed.Valid {
		return nil, ErrClaimsMalformed
	}
	if claims.Subject == "" || claims.TokenType == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrClaimsMalformed
	}
	if !c.audienceMatches(claims.Audience) {
		return nil, ErrAudienceOrIssuerMismatch
	}

	return toClaims(claims), nil
}

// DecodeUnverified reads claims without checking the signature or expiry.
// Used only by revocation, which needs jti and exp from tokens that may
// already be expired or re-signed.
func (c *Codec) DecodeUnverified(tokenString string) (*outbound.Claims, error) {
	claims := &wireClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrClaimsMalformed
	}
	return toClaims(claims), nil
}

// audienceMatches accepts a token whose audience set intersects the
// configured one.
func (c *Codec) audienceMatches(aud jwt.ClaimStrings) bool {
	if len(c.audience) == 0 {
		return true
	}
	for _, expected := range c.audience {
		for _, got := range aud {
			if got == expected {
				return true
			}
		}
	}
	return false
}

func toClaims(w *wireClaims) *outbound.Claims {
	out := &outbound.Claims{
		Subject:   w.Subject,
		Role:      w.Role,
		TokenID:   w.ID,
		TokenType: outbound.TokenType(w.TokenType),
	}
	if w.IssuedAt != nil {
		out.IssuedAt = w.IssuedAt.Time
	}
	if w.ExpiresAt != nil {
		out.ExpiresAt = w.ExpiresAt.Time
	}
	return out
}
