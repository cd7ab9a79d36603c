package apikey

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zucropay/zucropay/internal/apperrors"
	"github.com/zucropay/zucropay/internal/logger"
	"github.com/zucropay/zucropay/internal/models"
	"github.com/zucropay/zucropay/internal/repository"
)

const (
	keyScheme      = "zp"
	prefixBytesLen = 8
	secretBytesLen = 24
)

type Service struct {
	keys   repository.APIKeyRepo
	logger logger.Logger
}

func NewService(keys repository.APIKeyRepo, l logger.Logger) *Service {
	return &Service{
		keys:   keys,
		logger: l,
	}
}

// Issue mints an integrator key of the form zp_<prefix>_<secret> and
// stores only the bcrypt hash of the secret part. The plain key is
// returned once and cannot be recovered later.
func (s *Service) Issue(ctx context.Context, userID uuid.UUID) (string, models.APIKey, error) {
	prefix, err := randomHex(prefixBytesLen)
	if err != nil {
		return "", models.APIKey{}, fmt.Errorf("failed to generate key prefix: %w", err)
	}
	secret, err := randomHex(secretBytesLen)
	if err != nil {
		return "", models.APIKey{}, fmt.Errorf("failed to generate key secret: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", models.APIKey{}, fmt.Errorf("failed to hash key secret: %w", err)
	}

	key, err := s.keys.CreateAPIKey(ctx, models.APIKey{
		UserID:     userID,
		Prefix:     prefix,
		SecretHash: string(hash),
		Status:     models.APIKeyStatusActive,
	})
	if err != nil {
		return "", key, fmt.Errorf("failed to store api key: %w", err)
	}

	plain := strings.Join([]string{keyScheme, prefix, secret}, "_")
	return plain, key, nil
}

// Authenticate resolves a raw key to its owning key row. The prefix
// drives the lookup; the secret is checked against the stored hash.
// Inactive keys fail with apperrors.ErrAPIKeyRevoked. A successful
// authentication stamps last_used_at.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (models.APIKey, error) {
	var key models.APIKey

	parts := strings.Split(rawKey, "_")
	if len(parts) != 3 || parts[0] != keyScheme {
		return key, apperrors.ErrAPIKeyInvalid
	}
	prefix, secret := parts[1], parts[2]

	key, err := s.keys.GetByPrefix(ctx, prefix)
	if err != nil {
		if errors.Is(err, apperrors.ErrAPIKeyNotFound) {
			return key, apperrors.ErrAPIKeyNotFound
		}
		return key, fmt.Errorf("failed to load api key: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(key.SecretHash), []byte(secret)) != nil {
		return key, apperrors.ErrAPIKeyInvalid
	}

	if key.Status != models.APIKeyStatusActive {
		return key, apperrors.ErrAPIKeyRevoked
	}

	if err := s.keys.TouchLastUsed(ctx, key.ID, time.Now()); err != nil {
		// Not worth failing the request over
		s.logger.Warn("Failed to stamp api key last_used_at", "error", err, "key_id", key.ID)
	}

	return key, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
