package briefing

import (
	"net/http"

	"newsbot/internal/repository"
	briefingUC "newsbot/internal/usecase/briefing"
)

// Register registers all briefing-related HTTP handlers with the given
// mux. Reads are available to any authenticated caller; generate acts
// only on the caller's own scope.
func Register(mux *http.ServeMux, svc *briefingUC.Service, users repository.UserRepository) {
	mux.Handle("GET  /briefings", ListHandler{Svc: svc, Users: users})
	mux.Handle("GET  /briefings/latest", LatestHandler{Svc: svc, Users: users})
	mux.Handle("POST /briefings/generate", GenerateHandler{Svc: svc, Users: users})
	mux.Handle("GET  /briefings/", DetailHandler{Svc: svc})
}
