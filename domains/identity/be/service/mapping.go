package service

import (
	"errors"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-identity/platform/go/persistence"
)

// persistenceNotFound aliases the store sentinel so the flow code reads as
// domain logic.
var persistenceNotFound = persistence.ErrUserNotFound

func createUserParams(tenantID, email, credentialHash string) persistence.CreateUserParams {
	return persistence.CreateUserParams{
		UserID:         uuid.New(),
		TenantID:       tenantID,
		Email:          email,
		CredentialHash: credentialHash,
	}
}

func mapUser(record persistence.User) User {
	return User{
		ID:            record.UserID,
		TenantID:      record.TenantID,
		Email:         record.Email,
		FailedLogins:  record.FailedLogins,
		AccountLocked: record.AccountLocked,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

// mapPersistenceError translates store sentinels into domain errors.
// *persistence.ValidationError passes through verbatim so the transport layer
// can surface field-scoped messages.
func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, persistence.ErrUserConflict):
		return ErrDuplicateUser
	default:
		return err
	}
}
