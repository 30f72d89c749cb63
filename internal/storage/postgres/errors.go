package postgres

import (
	stderrors "errors"

	"github.com/lib/pq"

	"github.com/eel-studio/storefront/internal/errors"
)

// dbErr maps driver errors onto the service taxonomy.
func dbErr(op string, err error) error {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "23":
			if pqErr.Code == "23505" {
				return errors.Conflict(op + ": " + pqErr.Message)
			}
			return errors.InvalidInput(op + ": " + pqErr.Message)
		case "08", "53", "57":
			return errors.Unavailable(op, err)
		}
	}
	return errors.Internal(op, err)
}
