package feedback

import (
	"net/http"

	"newsbot/internal/handler/http/respond"
	"newsbot/internal/repository"
	feedbackUC "newsbot/internal/usecase/feedback"
)

type ListHandler struct {
	Svc   feedbackUC.Service
	Users repository.UserRepository
}

// ServeHTTP lists every reaction the caller has recorded, newest first.
// @Summary      List feedback
// @Description  Returns every reaction the caller has recorded
// @Tags         feedback
// @Security     BearerAuth
// @Produce      json
// @Success      200 {array} DTO
// @Failure      401 {string} string "authentication required"
// @Router       /feedback [get]
func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := resolveCallerID(r, h.Users)
	if err != nil {
		respond.SafeError(w, http.StatusUnauthorized, err)
		return
	}

	list, err := h.Svc.List(r.Context(), userID)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]DTO, 0, len(list))
	for _, f := range list {
		out = append(out, toDTO(f))
	}
	respond.JSON(w, http.StatusOK, out)
}
