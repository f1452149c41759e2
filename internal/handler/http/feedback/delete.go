package feedback

import (
	"net/http"

	"newsbot/internal/handler/http/pathutil"
	"newsbot/internal/handler/http/respond"
	"newsbot/internal/repository"
	feedbackUC "newsbot/internal/usecase/feedback"
)

type DeleteHandler struct {
	Svc   feedbackUC.Service
	Users repository.UserRepository
}

// ServeHTTP removes every reaction the caller recorded against an item.
// @Summary      Delete feedback
// @Description  Removes every reaction the caller recorded against an item
// @Tags         feedback
// @Security     BearerAuth
// @Param        item_id path int true "raw item id"
// @Success      204 "No Content"
// @Failure      400 {string} string "invalid id"
// @Failure      401 {string} string "authentication required"
// @Router       /feedback/{item_id} [delete]
func (h DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathutil.ExtractID(r.URL.Path, "/feedback/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	userID, err := resolveCallerID(r, h.Users)
	if err != nil {
		respond.SafeError(w, http.StatusUnauthorized, err)
		return
	}

	if err := h.Svc.Delete(r.Context(), userID, itemID); err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
