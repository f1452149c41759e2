package source

import (
	"encoding/json"
	"net/http"

	"newsbot/internal/domain/entity"
	"newsbot/internal/handler/http/respond"
	srcUC "newsbot/internal/usecase/source"
)

type CreateHandler struct{ Svc srcUC.Service }

// ServeHTTP registers a new source.
// @Summary      Create source
// @Description  Registers a new ingestion source (feed, hn, or reddit)
// @Tags         sources
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        source body object true "source fields"
// @Success      201 {object} DTO
// @Failure      400 {string} string "invalid input"
// @Failure      401 {string} string "authentication required"
// @Failure      403 {string} string "admin role required"
// @Router       /sources [post]
func (h CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string            `json:"name"`
		Type            string            `json:"type"`
		URL             string            `json:"url"`
		Category        string            `json:"category"`
		CredibilityTier int               `json:"credibility_tier"`
		Config          map[string]string `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	src, err := h.Svc.Create(r.Context(), srcUC.CreateInput{
		Name:            req.Name,
		Type:            entity.SourceType(req.Type),
		URL:             req.URL,
		Category:        req.Category,
		CredibilityTier: req.CredibilityTier,
		Config:          req.Config,
	})
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	respond.JSON(w, http.StatusCreated, toDTO(src))
}
