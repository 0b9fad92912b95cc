// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shardgate Contributors

package account

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// TokenLifetime is the fixed absolute lifetime of issued session tokens.
const TokenLifetime = time.Hour

// tokenIssuer is the iss claim on issued tokens.
const tokenIssuer = "shardgate"

// Claims is the payload of a session token: a stateless, signed
// assertion of account identity and privilege level.
type Claims struct {
	jwt.RegisteredClaims
	AccountID      int64  `json:"account_id"`
	LoginName      string `json:"login_name"`
	PrivilegeLevel int16  `json:"privilege_level"`
}

// TokenService signs and validates session tokens with a server-held
// symmetric secret. No asymmetric keys, no rotation.
type TokenService struct {
	signingKey []byte
}

// NewTokenService creates a new TokenService.
func NewTokenService(signingKey []byte) (*TokenService, error) {
	if len(signingKey) == 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("signing key is required")
	}
	return &TokenService{signingKey: signingKey}, nil
}

// Issue produces a signed session token for the given identity,
// expiring TokenLifetime from now.
func (ts *TokenService) Issue(accountID int64, loginName string, privilegeLevel int16) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   loginName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
		},
		AccountID:      accountID,
		LoginName:      loginName,
		PrivilegeLevel: privilegeLevel,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Parse validates a session token and returns its claims. Expired
// tokens and tokens with invalid signatures are distinguished by error
// code (TOKEN_EXPIRED vs TOKEN_INVALID) for observability; callers
// render both as the same invalid-or-expired category.
func (ts *TokenService) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, jwt.WithIssuer(tokenIssuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code("TOKEN_EXPIRED").Wrap(err)
		}
		return nil, oops.Code("TOKEN_INVALID").Wrap(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, oops.Code("TOKEN_INVALID").Errorf("could not decode token claims")
	}
	return claims, nil
}
