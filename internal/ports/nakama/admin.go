package nakama

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/form3tech-oss/jwt-go"
)

var (
	errAdminDisabled  = errors.New("admin commands are disabled")
	errAdminForbidden = errors.New("admin token rejected")
)

// adminClaims are carried by tokens accepted by arena_admin.
type adminClaims struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

// verifyAdminToken checks an HS256 token signed with secret and carrying role.
// It returns the token subject.
func verifyAdminToken(raw, secret, role string) (string, error) {
	if secret == "" {
		return "", errAdminDisabled
	}
	claims := &adminClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errAdminForbidden, err)
	}
	if !token.Valid || claims.Role != role {
		return "", errAdminForbidden
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", errAdminForbidden)
	}
	return claims.Subject, nil
}

// SignAdminToken issues a token verifyAdminToken accepts until now+ttl.
func SignAdminToken(secret, subject, role string, now time.Time, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errAdminDisabled
	}
	claims := adminClaims{
		Role: role,
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
