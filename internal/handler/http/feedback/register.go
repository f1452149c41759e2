package feedback

import (
	"net/http"

	"newsbot/internal/repository"
	feedbackUC "newsbot/internal/usecase/feedback"
)

// Register registers all feedback-related HTTP handlers with the given
// mux. Every route acts only on the JWT-authenticated caller's own
// feedback.
func Register(mux *http.ServeMux, svc feedbackUC.Service, users repository.UserRepository) {
	mux.Handle("GET    /feedback", ListHandler{Svc: svc, Users: users})
	mux.Handle("POST   /feedback", CreateHandler{Svc: svc, Users: users})
	mux.Handle("GET    /feedback/saved", SavedHandler{Svc: svc, Users: users})
	mux.Handle("DELETE /feedback/", DeleteHandler{Svc: svc, Users: users})
}
