package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	APIKeyStatusActive  = "active"
	APIKeyStatusRevoked = "revoked"
)

// APIKey is a static integrator credential. Only the bcrypt hash of the
// secret part is stored; the prefix is used for the lookup.
type APIKey struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Prefix     string
	SecretHash string
	Status     string
	CreatedAt  time.Time
	LastUsedAt *time.Time
}
