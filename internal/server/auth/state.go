package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/logingate/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// StateTTL bounds how long a user may take at the provider's consent screen.
const StateTTL = 10 * time.Minute

// StateClaims is carried through the provider as the OAuth state parameter.
// Subject holds the strategy name the flow was started for.
type StateClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
}

// GenerateState signs a fresh state token bound to strategy.
func GenerateState(strategy string, secretKey []byte, validityDuration time.Duration) (string, error) {
	nonce, err := common.MakeRandHexString(16)
	if err != nil {
		return "", err
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, StateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strategy,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Nonce: nonce,
	})

	return token.SignedString(secretKey)
}

// VerifyState checks signature, expiry and that the token was minted for
// strategy.
func VerifyState(tokenString, strategy string, secretKey []byte) error {
	claims := &StateClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return common.ErrTokenExpired
		}
		return common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject != strategy {
		return common.ErrInvalidToken
	}

	return nil
}
