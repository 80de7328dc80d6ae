package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Claims struct {
	UserID uuid.UUID
	Role   string
	Exp    time.Time
}

// HSProvider verifies HS256 access tokens issued by the external auth service.
// Sign exists for tooling and tests; this service never issues tokens to clients.
type HSProvider struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewHSProvider(secret, issuer string) *HSProvider {
	return &HSProvider{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

type customClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (p *HSProvider) Sign(sub uuid.UUID, role string, ttl time.Duration) (string, error) {
	now := p.now()
	claims := customClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Subject:   sub.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func (p *HSProvider) ParseAndValidate(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &customClaims{}, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	cc, ok := parsed.Claims.(*customClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	uid, err := uuid.Parse(cc.Subject)
	if err != nil {
		return nil, err
	}
	return &Claims{UserID: uid, Role: cc.Role, Exp: cc.ExpiresAt.Time}, nil
}
