package jwt

import (
	"fmt"
	"strconv"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"github.com/Teamie71/folioo-server/internal/config"
	"github.com/Teamie71/folioo-server/internal/domain/authn"
)

// Token kinds carried in the "typ" claim. An access credential can never be
// presented as a refresh credential and vice versa.
const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

// Issuer signs and validates access/refresh token pairs. The two kinds are
// signed with independent secrets so compromising one cannot forge the other.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// Pair bundles a freshly issued access/refresh credential pair.
type Pair struct {
	AccessToken  string
	RefreshToken string
	RefreshID    string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

type kindClaims struct {
	Kind string `json:"typ"`
}

// NewIssuer constructs an Issuer. Missing or shared secrets are a
// configuration error and fail construction.
func NewIssuer(cfg config.Config) (*Issuer, error) {
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		return nil, fmt.Errorf("jwt secrets are not set")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, fmt.Errorf("jwt access and refresh secrets must differ")
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = 900 * time.Second
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = 1209600 * time.Second
	}
	return &Issuer{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

// AccessTTL returns the configured access credential lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL returns the configured refresh credential lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssuePair mints a new access/refresh pair for the user. Every refresh
// credential embeds a fresh jti so rotations are individually identifiable.
func (i *Issuer) IssuePair(userID int64) (*Pair, error) {
	now := i.now().UTC()

	access, err := i.sign(i.accessSecret, gojwt.Claims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
		Expiry:    gojwt.NewNumericDate(now.Add(i.accessTTL)),
	}, kindClaims{Kind: kindAccess})
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshID := uuid.NewString()
	refresh, err := i.sign(i.refreshSecret, gojwt.Claims{
		ID:        refreshID,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
		Expiry:    gojwt.NewNumericDate(now.Add(i.refreshTTL)),
	}, kindClaims{Kind: kindRefresh})
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		RefreshID:    refreshID,
		AccessTTL:    i.accessTTL,
		RefreshTTL:   i.refreshTTL,
	}, nil
}

// VerifyAccess validates an access credential and returns its subject.
func (i *Issuer) VerifyAccess(token string) (int64, error) {
	std, _, err := i.verify(token, i.accessSecret, kindAccess)
	if err != nil {
		return 0, err
	}
	return parseSubject(std.Subject)
}

// VerifyRefresh validates a refresh credential and returns its subject and jti.
func (i *Issuer) VerifyRefresh(token string) (int64, string, error) {
	std, _, err := i.verify(token, i.refreshSecret, kindRefresh)
	if err != nil {
		return 0, "", err
	}
	userID, err := parseSubject(std.Subject)
	if err != nil {
		return 0, "", err
	}
	return userID, std.ID, nil
}

func (i *Issuer) sign(secret []byte, std gojwt.Claims, custom kindClaims) (string, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: secret},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("new signer: %w", err)
	}
	return gojwt.Signed(signer).Claims(std).Claims(custom).Serialize()
}

func (i *Issuer) verify(token string, secret []byte, kind string) (*gojwt.Claims, *kindClaims, error) {
	parsed, err := gojwt.ParseSigned(token, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return nil, nil, fmt.Errorf("parse token: %w", authn.ErrInvalidCredential)
	}

	var std gojwt.Claims
	var custom kindClaims
	if err := parsed.Claims(secret, &std, &custom); err != nil {
		return nil, nil, fmt.Errorf("verify signature: %w", authn.ErrInvalidCredential)
	}
	if custom.Kind != kind {
		return nil, nil, fmt.Errorf("wrong token kind %q: %w", custom.Kind, authn.ErrInvalidCredential)
	}
	if err := std.Validate(gojwt.Expected{Time: i.now().UTC()}); err != nil {
		return nil, nil, fmt.Errorf("validate claims: %w", authn.ErrInvalidCredential)
	}

	return &std, &custom, nil
}

func parseSubject(sub string) (int64, error) {
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject claim: %w", authn.ErrInvalidCredential)
	}
	return userID, nil
}
