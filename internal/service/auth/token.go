package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/zucropay/zucropay/internal/models"
	"github.com/zucropay/zucropay/internal/repository"
)

const signingMethod = "HS256"

var ErrInvalidToken = errors.New("invalid bearer token")

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"uid"`
}

// TokenVerifier validates merchant bearer tokens. Tokens are issued by
// the platform's account system, not by this service; only the shared
// HS256 secret is needed here.
type TokenVerifier struct {
	key   string
	alg   jwt.SigningMethod
	users repository.UserRepo
}

func NewTokenVerifier(secretKey string, users repository.UserRepo) (*TokenVerifier, error) {
	if secretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	return &TokenVerifier{
		key:   secretKey,
		alg:   jwt.GetSigningMethod(signingMethod),
		users: users,
	}, nil
}

// IssueToken mints an HS256 access token for a user. The service only
// verifies tokens in production; this exists for tooling and tests.
func IssueToken(secretKey string, userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now().Truncate(time.Second)

	token := jwt.NewWithClaims(
		jwt.GetSigningMethod(signingMethod),
		AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			},
			UserID: userID,
		},
	)

	signed, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("error while signing access token: %w", err)
	}
	return signed, nil
}

// UserFromRequest resolves the Authorization bearer token to a user.
// Returns ErrInvalidToken for missing, malformed, expired or foreign
// tokens alike: callers answer 401 without detail.
func (v *TokenVerifier) UserFromRequest(ctx context.Context, r *http.Request) (models.User, error) {
	var user models.User

	header := r.Header.Get("Authorization")
	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found || tokenString == "" {
		return user, ErrInvalidToken
	}

	claims := &AccessTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return []byte(v.key), nil },
		jwt.WithValidMethods([]string{v.alg.Alg()}),
	)
	if err != nil || !token.Valid {
		return user, ErrInvalidToken
	}
	if claims.UserID == uuid.Nil {
		return user, ErrInvalidToken
	}

	user, err = v.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return user, fmt.Errorf("token user lookup failed: %w", ErrInvalidToken)
	}

	return user, nil
}
