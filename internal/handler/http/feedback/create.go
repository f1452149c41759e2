package feedback

import (
	"encoding/json"
	"net/http"

	"newsbot/internal/domain/entity"
	"newsbot/internal/handler/http/respond"
	"newsbot/internal/repository"
	feedbackUC "newsbot/internal/usecase/feedback"
)

type CreateHandler struct {
	Svc   feedbackUC.Service
	Users repository.UserRepository
}

// ServeHTTP records the caller's reaction to an item.
// @Summary      Record feedback
// @Description  Records the caller's reaction (save, hide, thumbs_up, thumbs_down) to an item
// @Tags         feedback
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body object true "{\"raw_item_id\": int, \"kind\": string}"
// @Success      201 {object} DTO
// @Failure      400 {string} string "invalid input"
// @Failure      401 {string} string "authentication required"
// @Router       /feedback [post]
func (h CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := resolveCallerID(r, h.Users)
	if err != nil {
		respond.SafeError(w, http.StatusUnauthorized, err)
		return
	}

	var req struct {
		RawItemID int64  `json:"raw_item_id"`
		Kind      string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	fb, err := h.Svc.Create(r.Context(), userID, req.RawItemID, entity.FeedbackKind(req.Kind))
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	respond.JSON(w, http.StatusCreated, toDTO(fb))
}
