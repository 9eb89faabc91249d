package controller

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HandleStatsOverview compares the last intervalDays with the window before it.
// intervalDays=0 or absent uses all indexed history, capped at a year.
func (c *Controller) HandleStatsOverview(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "intervalDays")
	if err != nil {
		c.writeQueryError(w, r, err)
		return
	}
	ctx, cancel := c.requestContext(r)
	defer cancel()

	overview, err := c.App.Service.Overview(ctx, days)
	if err != nil {
		c.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (c *Controller) HandleStatsDaily(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "intervalDays")
	if err != nil {
		c.writeQueryError(w, r, err)
		return
	}
	ctx, cancel := c.requestContext(r)
	defer cancel()

	series, err := c.App.Service.Daily(ctx, mux.Vars(r)["metric"], days)
	if err != nil {
		c.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}
