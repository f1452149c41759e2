package signal

import (
	"net/http"
	"strconv"
	"time"

	"newsbot/internal/handler/http/respond"
	sigUC "newsbot/internal/usecase/signal"
)

type TopHandler struct {
	Svc          sigUC.Service
	DefaultSince time.Duration
	DefaultLimit int
}

// ServeHTTP returns the highest-signal items within a lookback window.
// @Summary      Top signals
// @Description  Returns the highest-signal items fetched within a window
// @Tags         signals
// @Security     BearerAuth
// @Produce      json
// @Param        hours query int false "lookback window in hours"
// @Param        limit query int false "max items to return"
// @Success      200 {array} DTO
// @Failure      400 {string} string "invalid query parameters"
// @Router       /signals/top [get]
func (h TopHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	since := h.DefaultSince
	if since == 0 {
		since = 24 * time.Hour
	}
	limit := h.DefaultLimit
	if limit == 0 {
		limit = 20
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
	if limitStr := q.Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 {
			respond.SafeError(w, http.StatusBadRequest, errInvalidLimit)
			return
		}
		limit = n
	}

	views, err := h.Svc.Top(r.Context(), since, limit)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]DTO, 0, len(views))
	for _, v := range views {
		out = append(out, toDTO(v))
	}
	respond.JSON(w, http.StatusOK, out)
}
