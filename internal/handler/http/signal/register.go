package signal

import (
	"net/http"

	"newsbot/internal/common/pagination"
	sigUC "newsbot/internal/usecase/signal"
)

// Register registers all signal-related HTTP handlers with the given mux.
// Every route is a read; access control is limited to "must be
// authenticated", handled by the auth.Authz wrapper around the whole
// protected mux.
func Register(mux *http.ServeMux, svc sigUC.Service, paginationCfg pagination.Config) {
	mux.Handle("GET /signals", ListHandler{Svc: svc, Pagination: paginationCfg})
	mux.Handle("GET /signals/top", TopHandler{Svc: svc})
	mux.Handle("GET /signals/categories/stats", StatsHandler{Svc: svc})
	mux.Handle("GET /signals/", DetailHandler{Svc: svc})
}
