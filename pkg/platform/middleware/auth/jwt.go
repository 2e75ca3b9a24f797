package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "bciers/pkg/domain"
)

// HMACValidator validates HS256 tokens issued by the identity gateway in front
// of the service.
type HMACValidator struct {
	key       []byte
	issuer    string
	audience  string
	guidClaim string
	leeway    time.Duration
}

func NewHMACValidator(key, issuer, audience, guidClaim string) *HMACValidator {
	if guidClaim == "" {
		guidClaim = "user_guid"
	}
	return &HMACValidator{
		key:       []byte(key),
		issuer:    issuer,
		audience:  audience,
		guidClaim: guidClaim,
		leeway:    30 * time.Second,
	}
}

func (v *HMACValidator) ValidateToken(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, opts...); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	rawGUID, _ := claims[v.guidClaim].(string)
	if rawGUID == "" {
		return nil, errors.New("token has no user guid")
	}
	guid, err := id.ParseUserGUID(rawGUID)
	if err != nil {
		return nil, fmt.Errorf("token user guid: %w", err)
	}
	sub, _ := claims.GetSubject()
	return &Claims{UserGUID: guid, Subject: sub}, nil
}

// SignHS256 issues a token for the given GUID. Used by local tooling and tests.
func SignHS256(key, issuer, audience, guidClaim string, guid id.UserGUID, ttl time.Duration) (string, error) {
	if guidClaim == "" {
		guidClaim = "user_guid"
	}
	now := time.Now()
	claims := jwt.MapClaims{
		guidClaim: guid.String(),
		"sub":     guid.String(),
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	if issuer != "" {
		claims["iss"] = issuer
	}
	if audience != "" {
		claims["aud"] = audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}
