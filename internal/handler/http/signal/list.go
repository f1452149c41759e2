package signal

import (
	"net/http"
	"strconv"
	"time"

	"newsbot/internal/common/pagination"
	"newsbot/internal/domain/entity"
	"newsbot/internal/handler/http/respond"
	sigUC "newsbot/internal/usecase/signal"
)

type ListHandler struct {
	Svc          sigUC.Service
	Pagination   pagination.Config
	DefaultSince time.Duration
}

// ServeHTTP lists scored items, newest-scored first.
// @Summary      List signals
// @Description  Returns a paginated, filterable page of scored items
// @Tags         signals
// @Security     BearerAuth
// @Produce      json
// @Param        min_score   query number false "minimum signal score"
// @Param        category    query string false "category filter"
// @Param        source_type query string false "source type filter (feed, hn, reddit)"
// @Param        hours       query int    false "lookback window in hours"
// @Param        page        query int    false "page number"
// @Param        limit       query int    false "items per page"
// @Success      200 {object} pagination.Response[DTO]
// @Failure      400 {string} string "invalid query parameters"
// @Router       /signals [get]
func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cfg := h.Pagination
	if cfg.MaxLimit == 0 {
		cfg = pagination.DefaultConfig()
	}
	params, err := pagination.ParseQueryParams(r, cfg)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	since := h.DefaultSince
	if since == 0 {
		since = 7 * 24 * time.Hour
	}
	q := r.URL.Query()
	if hoursStr := q.Get("hours"); hoursStr != "" {
		hours, err := strconv.Atoi(hoursStr)
		if err != nil || hours <= 0 {
			respond.SafeError(w, http.StatusBadRequest, errInvalidHours)
			return
		}
		since = time.Duration(hours) * time.Hour
	}

	var minScore float64
	if minScoreStr := q.Get("min_score"); minScoreStr != "" {
		minScore, err = strconv.ParseFloat(minScoreStr, 64)
		if err != nil {
			respond.SafeError(w, http.StatusBadRequest, errInvalidMinScore)
			return
		}
	}

	filter := repositorySignalFilter(minScore, q.Get("category"), entity.SourceType(q.Get("source_type")),
		time.Now().Add(-since), params)

	views, total, err := h.Svc.List(r.Context(), filter)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]DTO, 0, len(views))
	for _, v := range views {
		out = append(out, toDTO(v))
	}

	meta := pagination.Metadata{
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: pagination.CalculateTotalPages(total, params.Limit),
	}
	respond.JSON(w, http.StatusOK, pagination.NewResponse(out, meta))
}
