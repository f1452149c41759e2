package signal

import (
	"net/http"
	"strconv"
	"time"

	hhttp "newsbot/internal/handler/http"
	"newsbot/internal/handler/http/respond"
	sigUC "newsbot/internal/usecase/signal"
)

type StatsHandler struct {
	Svc          sigUC.Service
	DefaultSince time.Duration
}

// ServeHTTP returns per-category item counts and average signal score.
// @Summary      Category stats
// @Description  Returns per-category item count and average signal score
// @Tags         signals
// @Security     BearerAuth
// @Produce      json
// @Param        hours query int false "lookback window in hours"
// @Success      200 {array} CategoryStatDTO
// @Failure      400 {string} string "invalid query parameters"
// @Router       /signals/categories/stats [get]
func (h StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	since := h.DefaultSince
	if since == 0 {
		since = 7 * 24 * time.Hour
	}
	if hoursStr := r.URL.Query().Get("hours"); hoursStr != "" {
		hours, err := strconv.Atoi(hoursStr)
		if err != nil || hours <= 0 {
			respond.SafeError(w, http.StatusBadRequest, errInvalidHours)
			return
		}
		since = time.Duration(hours) * time.Hour
	}

	stats, err := h.Svc.CategoryStats(r.Context(), since)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]CategoryStatDTO, 0, len(stats))
	total := 0
	for _, s := range stats {
		out = append(out, toStatDTO(s))
		total += s.Count
	}
	hhttp.UpdateRawItemsTotal(total)
	respond.JSON(w, http.StatusOK, out)
}
