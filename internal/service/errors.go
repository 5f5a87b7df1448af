package service

import (
	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jengzang/railsim-backend-go/internal/repository"
)

// writeError classifies a failed write. Constraint violations become
// validation errors; anything else is a storage failure.
func writeError(op string, err error) error {
	switch {
	case repository.IsUniqueViolation(err):
		return models.NewValidationError("name", "already exists")
	case repository.IsConstraintViolation(err):
		return models.NewValidationError("", "constraint violated: %v", err)
	default:
		return &models.StorageFailure{Op: op, Err: err}
	}
}

// readError wraps a failed read as a storage failure
func readError(op string, err error) error {
	return &models.StorageFailure{Op: op, Err: err}
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
