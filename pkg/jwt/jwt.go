package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrNoSigningKey = errors.New("no signing key configured")
)

// Config selects how identity-provider tokens are verified. Exactly one of
// HMACSecret or PublicKeyFile is expected; the RSA key wins when both are set.
type Config struct {
	Issuer        string        `mapstructure:"issuer"`
	Audience      string        `mapstructure:"audience"`
	HMACSecret    string        `mapstructure:"hmac_secret"`
	PublicKeyFile string        `mapstructure:"public_key_file"`
	Leeway        time.Duration `mapstructure:"leeway"`
}

// Claims are the identity-provider claims the platform reads.
type Claims struct {
	jwt.RegisteredClaims
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// TokenIdentifier is the stable external identity key: issuer and subject joined by "|".
func (c *Claims) TokenIdentifier() string {
	return c.Issuer + "|" + c.Subject
}

// Verifier validates bearer tokens issued by the external identity provider.
type Verifier struct {
	hmacKey   []byte
	publicKey *rsa.PublicKey
	parser    *jwt.Parser
	issuer    string
}

// NewVerifier builds a Verifier from config, loading the RSA public key from disk if configured.
func NewVerifier(cfg Config) (*Verifier, error) {
	v := &Verifier{issuer: cfg.Issuer}

	switch {
	case cfg.PublicKeyFile != "":
		pem, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read public key: %w", err)
		}
		key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
		v.publicKey = key
	case cfg.HMACSecret != "":
		v.hmacKey = []byte(cfg.HMACSecret)
	default:
		return nil, ErrNoSigningKey
	}

	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	v.parser = jwt.NewParser(opts...)

	return v, nil
}

// Verify parses and validates a token, returning its claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := v.parser.ParseWithClaims(tokenString, &Claims{}, v.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (v *Verifier) keyFunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodRSA:
		if v.publicKey == nil {
			return nil, ErrInvalidToken
		}
		return v.publicKey, nil
	case *jwt.SigningMethodHMAC:
		if v.hmacKey == nil {
			return nil, ErrInvalidToken
		}
		return v.hmacKey, nil
	default:
		return nil, ErrInvalidToken
	}
}

// Issue signs an HS256 token for subject. Only available with an HMAC secret;
// used for local development and tests where no identity provider is running.
func (v *Verifier) Issue(subject, name, picture string, ttl time.Duration) (string, error) {
	if v.hmacKey == nil {
		return "", ErrNoSigningKey
	}

	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:    name,
		Picture: picture,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.hmacKey)
}
