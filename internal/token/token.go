// Package token signs and verifies the bearer tokens exchanged between the
// edge and the business services. Tokens are RS256 JWTs whose header carries
// the issuing system's scope tag, so a token minted for one logical system is
// rejected by every other.
package token

import (
	"crypto/rsa"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// scopeHeader is the JWT header field carrying the service-scope tag.
const scopeHeader = "sys"

// Verification failures are typed so callers can log the cause without
// leaking cryptographic detail to clients.
var (
	ErrMalformed     = errors.New("token: malformed")
	ErrExpired       = errors.New("token: expired")
	ErrBadSignature  = errors.New("token: bad signature")
	ErrScopeMismatch = errors.New("token: scope mismatch")
)

// Claims are the verified contents of a token. Subject carries the stable
// identity id as a decimal string.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID parses the subject as an identity id.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// Remaining returns the token's remaining lifetime at now, which may be
// negative for an expired token.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(now)
}

// Codec issues and verifies tokens against a single process-wide key pair
// loaded at startup. Key rotation is not modeled: a token signed under any
// other key fails verification.
type Codec struct {
	priv *rsa.PrivateKey
	pub  *rsa.PublicKey
	now  func() time.Time
}

// New returns a codec that can both issue and verify.
func New(priv *rsa.PrivateKey, pub *rsa.PublicKey) *Codec {
	return &Codec{priv: priv, pub: pub, now: time.Now}
}

// NewVerifier returns a verify-only codec, for services that hold no private
// key (the gateway).
func NewVerifier(pub *rsa.PublicKey) *Codec {
	return &Codec{pub: pub, now: time.Now}
}

// SetClock replaces the time source. Tests use it to cross expiry boundaries.
func (c *Codec) SetClock(now func() time.Time) {
	c.now = now
}

// Issue produces a signed token for the identity with issuance time now and
// expiry now+ttl, tagged with the given scope.
func (c *Codec) Issue(userID int64, username, scope string, ttl time.Duration) (string, error) {
	if c.priv == nil {
		return "", errors.New("token: codec has no signing key")
	}

	now := c.now()
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	t.Header[scopeHeader] = scope

	return t.SignedString(c.priv)
}

// Verify checks the token's signature, expiry, and scope tag, returning the
// claims on success. It never panics on malformed input; every failure maps
// to one of the typed errors above.
func (c *Codec) Verify(tokenString, expectedScope string) (*Claims, error) {
	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.pub, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		default:
			return nil, ErrMalformed
		}
	}

	scope, _ := parsed.Header[scopeHeader].(string)
	if scope == "" || scope != expectedScope {
		return nil, ErrScopeMismatch
	}

	return claims, nil
}
