package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignTestToken creates a signed token for tests. It lives in the package
// proper (not a _test.go file) so that the gateway and middleware test
// suites can mint credentials without duplicating signing logic.
func SignTestToken(secret, userID, role, name string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := jwtCustomClaims{
		UserID:      userID,
		Role:        role,
		DisplayName: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
