package briefing

import (
	"net/http"
	"strconv"

	"newsbot/internal/handler/http/respond"
	"newsbot/internal/repository"
	briefingUC "newsbot/internal/usecase/briefing"
)

type ListHandler struct {
	Svc   *briefingUC.Service
	Users repository.UserRepository
}

// ServeHTTP lists a scope's briefings, newest first.
// @Summary      List briefings
// @Description  Returns the caller's briefings, or the shared digest with ?scope=global
// @Tags         briefings
// @Security     BearerAuth
// @Produce      json
// @Param        scope query string false "\"global\" for the shared digest; defaults to the caller's own"
// @Param        limit query int    false "max briefings to return"
// @Success      200 {array} DTO
// @Failure      401 {string} string "authentication required"
// @Router       /briefings [get]
func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	scope, err := resolveScope(r, h.Users)
	if err != nil {
		respond.SafeError(w, http.StatusUnauthorized, err)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 {
			respond.SafeError(w, http.StatusBadRequest, errInvalidLimit)
			return
		}
		limit = n
	}

	briefings, err := h.Svc.ListForScope(r.Context(), scope, limit)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]DTO, 0, len(briefings))
	for _, b := range briefings {
		out = append(out, toDTO(b, nil))
	}
	respond.JSON(w, http.StatusOK, out)
}
