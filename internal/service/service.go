package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/roster-api/pkg/errors"
)

// transactor runs a unit of work atomically. A nil exec opens a fresh
// transaction; a transaction passed as exec is joined.
type transactor interface {
	WithinTransaction(ctx context.Context, exec sqlx.ExtContext, fn func(tx sqlx.ExtContext) error) error
}

// logUnexpected records failures that are not part of the domain taxonomy.
// Domain errors are returned to the caller without logging.
func logUnexpected(logger *zap.Logger, msg string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	if appErr := appErrors.FromError(err); appErr.Expected() {
		return
	}
	logger.Error(msg, append(fields, zap.Error(err))...)
}
