package jwt

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSkew is the margin before nominal expiry at which a token is
// already reported as expired.
const DefaultSkew = 60 * time.Second

// Claims is the decoded payload of a bearer token. Nothing in it has been
// signature-checked; use it for display and expiry hints only.
type Claims struct {
	Subject   string
	Email     string
	ExpiresAt *time.Time
	IssuedAt  *time.Time
	Raw       jwt.MapClaims
}

// Codec inspects bearer tokens without verifying them.
//
// The zero value is ready to use and reads the wall clock.
type Codec struct {
	Now func() time.Time
}

var defaultCodec = Codec{}

var parser = jwt.NewParser()

func (c Codec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Decode returns the claims segment of token, or nil when token does not
// have exactly three dot-separated segments or its middle segment is not a
// base64url-encoded JSON object.
func (c Codec) Decode(token string) *Claims {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 || parts[1] == "" {
		return nil
	}

	payload, err := parser.DecodeSegment(parts[1])
	if err != nil || !strings.HasPrefix(strings.TrimSpace(string(payload)), "{") {
		return nil
	}

	raw := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil
	}

	claims := &Claims{Raw: raw}
	claims.Subject = subjectOf(raw)
	if email, ok := raw["email"].(string); ok {
		claims.Email = email
	}
	if exp, err := raw.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		claims.ExpiresAt = &t
	}
	if iat, err := raw.GetIssuedAt(); err == nil && iat != nil {
		t := iat.Time
		claims.IssuedAt = &t
	}
	return claims
}

// ExpiresAt returns the expiry claim of token, if it has one.
func (c Codec) ExpiresAt(token string) (time.Time, bool) {
	claims := c.Decode(token)
	if claims == nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return *claims.ExpiresAt, true
}

// IsExpired reports true when token is undecodable, carries no expiry, or
// expires within skew of now (inclusive). A negative skew is treated as zero.
func (c Codec) IsExpired(token string, skew time.Duration) bool {
	exp, ok := c.ExpiresAt(token)
	if !ok {
		return true
	}
	if skew < 0 {
		skew = 0
	}
	return !exp.After(c.now().Add(skew))
}

// TimeUntilExpiry returns how long token remains nominally valid. The
// duration is negative for tokens already past expiry.
func (c Codec) TimeUntilExpiry(token string) (time.Duration, bool) {
	exp, ok := c.ExpiresAt(token)
	if !ok {
		return 0, false
	}
	return exp.Sub(c.now()), true
}

// Subject returns the sub claim, accepting the numeric ids some backends
// emit as well as strings.
func (c Codec) Subject(token string) (string, bool) {
	claims := c.Decode(token)
	if claims == nil || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

func subjectOf(raw jwt.MapClaims) string {
	if sub, err := raw.GetSubject(); err == nil && sub != "" {
		return sub
	}
	switch v := raw["sub"].(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

// Decode calls Codec.Decode on the wall clock codec.
func Decode(token string) *Claims { return defaultCodec.Decode(token) }

// IsExpired calls Codec.IsExpired on the wall clock codec.
func IsExpired(token string, skew time.Duration) bool { return defaultCodec.IsExpired(token, skew) }

// ExpiresAt calls Codec.ExpiresAt on the wall clock codec.
func ExpiresAt(token string) (time.Time, bool) { return defaultCodec.ExpiresAt(token) }
