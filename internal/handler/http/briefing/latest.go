package briefing

import (
	"errors"
	"net/http"

	"newsbot/internal/domain/entity"
	"newsbot/internal/handler/http/respond"
	"newsbot/internal/repository"
	briefingUC "newsbot/internal/usecase/briefing"
)

type LatestHandler struct {
	Svc   *briefingUC.Service
	Users repository.UserRepository
}

// ServeHTTP returns the most recently generated briefing for a scope.
// @Summary      Latest briefing
// @Description  Returns the caller's most recent briefing, or the shared digest with ?scope=global
// @Tags         briefings
// @Security     BearerAuth
// @Produce      json
// @Param        scope query string false "\"global\" for the shared digest; defaults to the caller's own"
// @Success      200 {object} DTO
// @Failure      401 {string} string "authentication required"
// @Failure      404 {string} string "no briefing generated yet"
// @Router       /briefings/latest [get]
func (h LatestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	scope, err := resolveScope(r, h.Users)
	if err != nil {
		respond.SafeError(w, http.StatusUnauthorized, err)
		return
	}

	b, items, err := h.Svc.LatestForScope(r.Context(), scope)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, entity.ErrNotFound) {
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(b, items))
}
