package briefing

import (
	"errors"
	"net/http"

	"newsbot/internal/domain/entity"
	"newsbot/internal/handler/http/pathutil"
	"newsbot/internal/handler/http/respond"
	briefingUC "newsbot/internal/usecase/briefing"
)

type DetailHandler struct{ Svc *briefingUC.Service }

// ServeHTTP returns a single briefing with its ranked items.
// @Summary      Get briefing
// @Description  Returns one briefing by id, with its ranked items
// @Tags         briefings
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "briefing id"
// @Success      200 {object} DTO
// @Failure      400 {string} string "invalid id"
// @Failure      404 {string} string "briefing not found"
// @Router       /briefings/{id} [get]
func (h DetailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/briefings/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	b, items, err := h.Svc.Get(r.Context(), id)
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
