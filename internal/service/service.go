// Package service implements the business rules on top of the DAO layer.
// Compound mutations run inside a database transaction while holding the
// affected patient's exclusive section, so concurrent callers observe either
// none or all of an operation's effects.
package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/cyphermed/record-access-api/internal/database"
	"github.com/cyphermed/record-access-api/internal/serviceerror"
)

// TxRunner runs a function inside a database transaction. Satisfied by
// *database.DB; tests substitute a pass-through runner.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(*database.Transaction) error) error
}

const (
	defaultPageSize = 25
	maxReasonLength = 200
)

func databaseError(logger *logrus.Logger, op string, err error) *serviceerror.ServiceError {
	logger.WithError(err).Error("Database operation failed: " + op)
	return serviceerror.Customf(serviceerror.DatabaseError, "failed to %s", op)
}

func validationError(err error) *serviceerror.ServiceError {
	return serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
}

func strPtr(s string) *string {
	return &s
}
