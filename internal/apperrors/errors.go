package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentAlreadyExists = errors.New("payment already exists")

	// Covers inactive links too: the public intake treats a deactivated
	// link as missing
	ErrPaymentLinkNotFound = errors.New("payment link not found")

	// Returned when a conflict-guarded ledger insert hits an existing row
	// for the same gateway payment id and type
	ErrTransactionAlreadyExists = errors.New("transaction already exists")
	ErrTransactionNotFound      = errors.New("transaction not found")

	ErrAPIKeyNotFound = errors.New("api key not found")
	ErrAPIKeyRevoked  = errors.New("api key revoked")
	ErrAPIKeyInvalid  = errors.New("api key invalid")

	ErrBalanceInsufficient = errors.New("insufficient balance")

	ErrWebhookEventNotFound = errors.New("webhook event not found")
	ErrNotificationNotFound = errors.New("notification not found")
)
