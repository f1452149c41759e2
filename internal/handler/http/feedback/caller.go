package feedback

import (
	"errors"
	"net/http"

	"newsbot/internal/handler/http/auth"
	"newsbot/internal/repository"
)

var errUnauthenticated = errors.New("no authenticated caller in request context")

// resolveCallerID resolves the JWT-authenticated caller's email to their
// pipeline User id.
func resolveCallerID(r *http.Request, users repository.UserRepository) (int64, error) {
	email, ok := auth.UserFromContext(r.Context())
	if !ok {
		return 0, errUnauthenticated
	}
	user, err := users.GetByEmail(r.Context(), email)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}
