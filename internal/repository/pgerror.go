package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	appErrors "github.com/noah-isme/roster-api/pkg/errors"
)

const (
	pqUniqueViolation     = pq.ErrorCode("23505")
	pqForeignKeyViolation = pq.ErrorCode("23503")
)

// Matches the "Key (email)=(a@b.com) ..." detail postgres attaches to
// constraint violations.
var pqKeyDetail = regexp.MustCompile(`Key \((.+?)\)=\((.*?)\)`)

var pqDetailTable = regexp.MustCompile(`table "([^"]+)"`)

// translate converts a raw store error into the domain error taxonomy.
// Errors that already carry a kind pass through untouched.
func translate(err error, entity, action string) error {
	if err == nil {
		return nil
	}

	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		field, value := keyDetail(pqErr.Detail)
		switch pqErr.Code {
		case pqUniqueViolation:
			if field == "" {
				field = pqErr.Constraint
			}
			return appErrors.UniqueConstraint(entity, field, value)
		case pqForeignKeyViolation:
			referent := entity
			if m := pqDetailTable.FindStringSubmatch(pqErr.Detail); m != nil {
				referent = singular(m[1])
			}
			if field == "" {
				field = "id"
			}
			return appErrors.NotFound(referent, field, value)
		}
	}

	return appErrors.Unknown(err, action)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return appErrors.IsKind(err, appErrors.KindUniqueConstraint)
}

func keyDetail(detail string) (string, string) {
	m := pqKeyDetail.FindStringSubmatch(detail)
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}

func singular(table string) string {
	switch {
	case strings.HasSuffix(table, "sses"):
		return strings.TrimSuffix(table, "es")
	case strings.HasSuffix(table, "s"):
		return strings.TrimSuffix(table, "s")
	}
	return table
}

// findOne runs a single-row query and returns nil when no row matched.
func findOne[T any](ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) (*T, error) {
	var dest T
	if err := sqlx.GetContext(ctx, q, &dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &dest, nil
}

func rowExists(ctx context.Context, q sqlx.QueryerContext, table string, id int64) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", table)
	if err := sqlx.GetContext(ctx, q, &exists, query, id); err != nil {
		return false, err
	}
	return exists, nil
}

// localPart derives a display name from an email address.
func localPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

func pageBounds(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return size, (page - 1) * size
}

func nullableString(value *string) interface{} {
	if value == nil {
		return nil
	}
	return *value
}
