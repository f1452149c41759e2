package source

import (
	"encoding/json"
	"errors"
	"net/http"

	"newsbot/internal/domain/entity"
	"newsbot/internal/handler/http/pathutil"
	"newsbot/internal/handler/http/respond"
	srcUC "newsbot/internal/usecase/source"
)

type UpdateHandler struct{ Svc srcUC.Service }

// ServeHTTP updates an existing source.
// @Summary      Update source
// @Description  Updates an existing source's mutable fields
// @Tags         sources
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path int true "source id"
// @Param        source body object true "fields to update"
// @Success      204 "No Content"
// @Failure      400 {string} string "invalid input"
// @Failure      401 {string} string "authentication required"
// @Failure      403 {string} string "admin role required"
// @Failure      404 {string} string "source not found"
// @Router       /sources/{id} [put]
func (h UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/sources/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Name            string            `json:"name"`
		Category        string            `json:"category"`
		CredibilityTier int               `json:"credibility_tier"`
		Enabled         *bool             `json:"enabled"`
		Config          map[string]string `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	err = h.Svc.Update(r.Context(), srcUC.UpdateInput{
		ID:              id,
		Name:            req.Name,
		Category:        req.Category,
		CredibilityTier: req.CredibilityTier,
		Enabled:         req.Enabled,
		Config:          req.Config,
	})
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, entity.ErrNotFound) {
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
