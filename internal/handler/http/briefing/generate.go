package briefing

import (
	"encoding/json"
	"errors"
	"net/http"

	"newsbot/internal/domain/entity"
	"newsbot/internal/handler/http/respond"
	"newsbot/internal/repository"
	briefingUC "newsbot/internal/usecase/briefing"
)

type GenerateHandler struct {
	Svc   *briefingUC.Service
	Users repository.UserRepository
}

// ServeHTTP generates an on-demand briefing for the authenticated caller.
// Generation is scoped to the caller's own digest; the shared global
// digest is only produced by the scheduler.
// @Summary      Generate briefing
// @Description  Generates (or regenerates with force) the caller's briefing for today
// @Tags         briefings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body object false "{\"force\": bool}"
// @Success      201 {object} DTO
// @Failure      401 {string} string "authentication required"
// @Failure      409 {string} string "briefing already generated for today"
// @Router       /briefings/generate [post]
func (h GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := resolveCallerID(r, h.Users)
	if err != nil {
		respond.SafeError(w, http.StatusUnauthorized, err)
		return
	}

	var req struct {
		Force bool `json:"force"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.SafeError(w, http.StatusBadRequest, err)
			return
		}
	}

	b, err := h.Svc.GenerateForUser(r.Context(), userID, req.Force)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, entity.ErrAlreadyBriefed) {
			code = http.StatusConflict
		}
		respond.SafeError(w, code, err)
		return
	}

	_, items, err := h.Svc.Get(r.Context(), b.ID)
	if err != nil {
		respond.JSON(w, http.StatusCreated, toDTO(b, nil))
		return
	}
	respond.JSON(w, http.StatusCreated, toDTO(b, items))
}
