// Package auth issues and verifies the access tokens handed out at login.
package auth // import "github.com/Xunop/bookshelf/internal/api/auth"

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/Xunop/bookshelf/internal/model"
	"github.com/Xunop/bookshelf/internal/util"
)

const (
	Issuer = "bookshelf"
	// KeyID is the version of the signing key. Tokens with another kid are
	// rejected, so bumping it logs everybody out.
	KeyID                   = "v1"
	AccessTokenAudienceName = "user.access-token"
)

type ClaimsMessage struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a token for user valid until expirationTime.
func GenerateAccessToken(user *model.User, expirationTime time.Time, secret []byte) (string, error) {
	now := time.Now()
	claims := &ClaimsMessage{
		Admin: user.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{AccessTokenAudienceName},
			Issuer:    Issuer,
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = KeyID

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}
	return signed, nil
}

// ParseAccessToken verifies accessToken and returns the identity it carries.
func ParseAccessToken(accessToken string, secret []byte) (*model.Identity, error) {
	if accessToken == "" {
		return nil, errors.New("no access token provided")
	}
	claims := &ClaimsMessage{}
	_, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Name {
			return nil, errors.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		if kid, ok := t.Header["kid"].(string); !ok || kid != KeyID {
			return nil, errors.New("unexpected key id")
		}
		return secret, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(AccessTokenAudienceName),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "invalid or expired access token")
	}

	userID, err := util.ConvertStringToInt32(claims.Subject)
	if err != nil {
		return nil, errors.Wrap(err, "malformed ID in the token")
	}
	return &model.Identity{UserID: userID, Admin: claims.Admin}, nil
}
