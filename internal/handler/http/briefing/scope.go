package briefing

import (
	"errors"
	"net/http"

	"newsbot/internal/domain/entity"
	"newsbot/internal/handler/http/auth"
	"newsbot/internal/repository"
)

var errUnauthenticated = errors.New("no authenticated caller in request context")

// resolveScope returns entity.GlobalScope when the request explicitly asks
// for it via ?scope=global; otherwise it resolves the JWT-authenticated
// caller's email to their personal entity.UserScope.
func resolveScope(r *http.Request, users repository.UserRepository) (string, error) {
	if r.URL.Query().Get("scope") == entity.GlobalScope {
		return entity.GlobalScope, nil
	}

	email, ok := auth.UserFromContext(r.Context())
	if !ok {
		return "", errUnauthenticated
	}
	user, err := users.GetByEmail(r.Context(), email)
	if err != nil {
		return "", err
	}
	return entity.UserScope(user.ID), nil
}

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
