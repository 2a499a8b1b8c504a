package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ahmethakanbesel/exchange-rate-api/internal/job"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/rate"
)

type handler struct {
	rateSvc *rate.Service
	jobSvc  *job.Service
	sched   refresher
	mux     *http.ServeMux
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// notFound answers requests no route claims. A path that is routed under
// another method gets 405 with an Allow header instead.
func (h *handler) notFound(w http.ResponseWriter, r *http.Request) {
	if allow := h.allowedMethods(r); len(allow) > 0 {
		w.Header().Set("Allow", strings.Join(allow, ", "))
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeError(w, http.StatusNotFound, "not found")
}

func (h *handler) allowedMethods(r *http.Request) []string {
	var allow []string
	for _, m := range []string{http.MethodGet, http.MethodPost} {
		if m == r.Method {
			continue
		}
		alt := r.Clone(r.Context())
		alt.Method = m
		if _, pattern := h.mux.Handler(alt); pattern != "" && pattern != "/" {
			allow = append(allow, m)
		}
	}
	return allow
}

func (h *handler) listCurrencies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.rateSvc.ListCurrencies())
}

func seriesRequest(r *http.Request) rate.SeriesRequest {
	q := r.URL.Query()
	return rate.SeriesRequest{
		Currency:  r.PathValue("code"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}
}

func (h *handler) getRates(w http.ResponseWriter, r *http.Request) {
	resp, err := h.rateSvc.GetHistorical(r.Context(), seriesRequest(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getMonthly(w http.ResponseWriter, r *http.Request) {
	resp, err := h.rateSvc.GetMonthly(r.Context(), seriesRequest(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getYearly(w http.ResponseWriter, r *http.Request) {
	resp, err := h.rateSvc.GetYearly(r.Context(), seriesRequest(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// triggerRefresh queues a run on the scheduler and returns immediately.
func (h *handler) triggerRefresh(w http.ResponseWriter, _ *http.Request) {
	h.sched.Trigger()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *handler) refreshStatus(w http.ResponseWriter, r *http.Request) {
	last, err := h.jobSvc.Latest(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job.StatusResponse{
		State:   h.sched.State(),
		LastRun: last,
	})
}

func (h *handler) listRuns(w http.ResponseWriter, r *http.Request) {
	req := job.ListRunsRequest{}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		req.Limit = n
	}

	runs, err := h.jobSvc.List(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *handler) getRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := h.jobSvc.Get(r.Context(), job.GetRunRequest{ID: id})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
