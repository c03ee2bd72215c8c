package repository

import (
	"database/sql"
	"errors"
)

// HandleNotFound converts sql.ErrNoRows into a nil result without error.
// Every Find* here filters on deleted_at IS NULL, so a soft-deleted row and
// a row that never existed both surface as nil; the services decide whether
// that means NOT_FOUND or fall-through-to-default.
//
// Usage:
//
//	var binding model.Binding
//	err := r.db.GetContext(ctx, &binding, query, args...)
//	return HandleNotFound(&binding, err)
func HandleNotFound[T any](result *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
