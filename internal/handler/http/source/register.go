package source

import (
	"net/http"

	"newsbot/internal/handler/http/auth"
	srcUC "newsbot/internal/usecase/source"
)

// Register registers all source-related HTTP handlers with the given mux.
// Create, update, and delete require admin authentication; list is public
// to any authenticated caller.
func Register(mux *http.ServeMux, svc srcUC.Service) {
	mux.Handle("GET    /sources", ListHandler{svc})
	mux.Handle("POST   /sources", auth.Authz(CreateHandler{svc}))
	mux.Handle("PUT    /sources/", auth.Authz(UpdateHandler{svc}))
	mux.Handle("DELETE /sources/", auth.Authz(DeleteHandler{svc}))
}
