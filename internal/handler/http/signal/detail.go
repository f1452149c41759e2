package signal

import (
	"errors"
	"net/http"

	"newsbot/internal/domain/entity"
	"newsbot/internal/handler/http/pathutil"
	"newsbot/internal/handler/http/respond"
	sigUC "newsbot/internal/usecase/signal"
)

type DetailHandler struct{ Svc sigUC.Service }

// ServeHTTP returns a single scored item with its full score breakdown.
// @Summary      Get signal
// @Description  Returns one scored item by its raw item id
// @Tags         signals
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "raw item id"
// @Success      200 {object} DTO
// @Failure      400 {string} string "invalid id"
// @Failure      404 {string} string "signal not found"
// @Router       /signals/{id} [get]
func (h DetailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/signals/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, entity.ErrNotFound) {
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(view))
}
