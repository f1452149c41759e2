package source

import (
	"net/http"

	hhttp "newsbot/internal/handler/http"
	"newsbot/internal/handler/http/respond"
	srcUC "newsbot/internal/usecase/source"
)

type ListHandler struct{ Svc srcUC.Service }

// ServeHTTP lists every registered source.
// @Summary      List sources
// @Description  Returns every registered ingestion source
// @Tags         sources
// @Security     BearerAuth
// @Produce      json
// @Success      200 {array} DTO
// @Failure      401 {string} string "authentication required"
// @Router       /sources [get]
func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.List(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]DTO, 0, len(list))
	for _, e := range list {
		out = append(out, toDTO(e))
	}
	hhttp.UpdateSourcesTotal(len(list))
	respond.JSON(w, http.StatusOK, out)
}
