package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType identifies which of the three token kinds a signed token
// represents. Validation is strict: a token of one type never passes
// validation for another.
type TokenType string

const (
	// TypeAccess is a short-lived bearer token for API calls.
	TypeAccess TokenType = "access"
	// TypeRefresh is a long-lived token exchanged for new access tokens.
	TypeRefresh TokenType = "refresh"
	// TypeKiosk is a reduced-trust session token for shared devices.
	// Kiosk sessions carry no refresh token.
	TypeKiosk TokenType = "kiosk"
)

// MinSecretBytes is the minimum accepted signing secret length.
const MinSecretBytes = 32

var (
	// ErrTypeMismatch is returned by Validate when the token is otherwise
	// valid but carries a different type claim than expected.
	ErrTypeMismatch = errors.New("token type mismatch")
	// ErrUnknownType is returned when issuing a token of an unrecognized type.
	ErrUnknownType = errors.New("unknown token type")
)

// Config holds signing parameters. The secret is shared HS256 key
// material and must be at least MinSecretBytes long; NewManager rejects
// anything shorter so a weak secret is a startup failure, never a
// runtime surprise.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	KioskTTL   time.Duration
	Issuer     string
	Leeway     time.Duration
}

// Manager issues and validates signed tokens. Instances are configured
// once and treated as immutable.
type Manager struct {
	config Config
}

// Claims is the claim set carried by every token this package issues.
// TokenType travels in the "typ" claim and is checked on validation.
type Claims struct {
	TokenType string `json:"typ"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TenantID  string `json:"tid,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates the configuration and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < MinSecretBytes {
		return nil, errors.New("signing secret must be at least 32 bytes")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.KioskTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// TTL returns the configured lifetime for the given token type.
func (m *Manager) TTL(typ TokenType) time.Duration {
	switch typ {
	case TypeAccess:
		return m.config.AccessTTL
	case TypeRefresh:
		return m.config.RefreshTTL
	case TypeKiosk:
		return m.config.KioskTTL
	}
	return 0
}

// Issue signs a token of the given type for the subject and returns the
// compact token together with its expiry time.
func (m *Manager) Issue(subject string, typ TokenType, email, role, tenantID string) (string, time.Time, error) {
	ttl := m.TTL(typ)
	if ttl <= 0 {
		return "", time.Time{}, ErrUnknownType
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		TokenType: string(typ),
		Email:     email,
		Role:      role,
		TenantID:  tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if m.config.Issuer != "" {
		claims.Issuer = m.config.Issuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.config.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate checks signature, expiry and the type claim. All three must
// pass: a refresh token never validates as an access token and vice
// versa.
func (m *Manager) Validate(tokenStr string, expected TokenType) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.TokenType != string(expected) {
		return nil, ErrTypeMismatch
	}
	return claims, nil
}

// Decode parses the claim set WITHOUT verifying the signature or expiry.
// It is unsafe on untrusted input and exists only for inspecting tokens
// that have already passed Validate.
func (m *Manager) Decode(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
