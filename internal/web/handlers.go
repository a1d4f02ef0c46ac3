package web

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"lifesim/internal/dashboard"
	"lifesim/internal/logger"
	"lifesim/internal/session"
	"lifesim/internal/simulation"
)

// formData holds the raw field values so a rejected submit is echoed as typed.
type formData struct {
	Decision      string
	CurrentAge    string
	CurrentStatus string
	RiskTolerance simulation.RiskTolerance
	Goals         string
}

type pageData struct {
	Status         session.Status
	Loading        bool
	Error          string
	Form           formData
	RiskTolerances []simulation.RiskTolerance
	MinAge         int
	MaxAge         int
	Dashboard      *dashboard.View
	Disclaimer     string
}

func defaultForm() formData {
	return formData{CurrentAge: strconv.Itoa(simulation.DefaultAge), RiskTolerance: simulation.DefaultRiskTolerance}
}

func formFromInput(in simulation.UserInput) formData {
	return formData{
		Decision:      in.Decision,
		CurrentAge:    strconv.Itoa(in.CurrentAge),
		CurrentStatus: in.CurrentStatus,
		RiskTolerance: in.RiskTolerance,
		Goals:         in.Goals,
	}
}

func newPage(st session.State) pageData {
	p := pageData{
		Status:         st.Status,
		Loading:        st.Status == session.StatusLoading,
		Error:          st.Error,
		Form:           defaultForm(),
		RiskTolerances: simulation.RiskTolerances,
		MinAge:         simulation.MinAge,
		MaxAge:         simulation.MaxAge,
		Disclaimer:     dashboard.Disclaimer,
	}
	if st.Input != nil {
		p.Form = formFromInput(*st.Input)
	}
	if st.Status == session.StatusComplete && st.Result != nil {
		v := dashboard.Build(*st.Result)
		p.Dashboard = &v
	}
	return p
}

func (ws *WebServer) render(w http.ResponseWriter, status int, p pageData) {
	var buf bytes.Buffer
	if err := ws.page.Execute(&buf, p); err != nil {
		logger.Get().Error("❌ failed to render page", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (ws *WebServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st := session.State{Status: session.StatusIdle}
	if ctrl, ok := ws.lookup(r); ok {
		st = ctrl.Snapshot()
	}
	ws.render(w, http.StatusOK, newPage(st))
}

func (ws *WebServer) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	if ctrl, ok := ws.lookup(r); ok && ctrl.Snapshot().Status != session.StatusIdle {
		// resubmission is ignored; the page shows the current state
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	in, err := simulation.ParseForm(r.PostForm)
	if err != nil {
		if !errors.Is(err, simulation.ErrInvalidInput) {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		p := newPage(session.State{Status: session.StatusIdle})
		p.Form = formData{
			Decision:      r.PostForm.Get("decision"),
			CurrentAge:    r.PostForm.Get("currentAge"),
			CurrentStatus: r.PostForm.Get("currentStatus"),
			RiskTolerance: simulation.RiskTolerance(r.PostForm.Get("riskTolerance")),
			Goals:         r.PostForm.Get("goals"),
		}
		p.Error = err.Error()
		ws.render(w, http.StatusBadRequest, p)
		return
	}

	switch err := ws.controller(w, r).Start(in); {
	case err == nil:
		logger.Get().Info("🚀 simulation started", zap.String("risk", string(in.RiskTolerance)), zap.Int("age", in.CurrentAge))
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrNotIdle):
		// lost a race with another submit from the same browser
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (ws *WebServer) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if key, ok := requestKey(r); ok {
		if err := ws.sessions.Reset(key); err != nil && !errors.Is(err, session.ErrBusy) {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (ws *WebServer) handleChart(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := ws.lookup(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	st := ctrl.Snapshot()
	if st.Status != session.StatusComplete || st.Result == nil {
		http.NotFound(w, r)
		return
	}
	var buf bytes.Buffer
	if err := dashboard.RenderChartPNG(&buf, dashboard.Build(*st.Result).Chart, dashboard.ChartWidth, dashboard.ChartHeight); err != nil {
		logger.Get().Error("❌ failed to render chart", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

type stateResponse struct {
	Status session.Status        `json:"status"`
	Error  string                `json:"error,omitempty"`
	Input  *simulation.UserInput `json:"input,omitempty"`
	Result *simulation.Result    `json:"result,omitempty"`
}

func (ws *WebServer) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st := session.State{Status: session.StatusIdle}
	if ctrl, ok := ws.lookup(r); ok {
		st = ctrl.Snapshot()
	}
	writeJSON(w, http.StatusOK, stateResponse{Status: st.Status, Error: st.Error, Input: st.Input, Result: st.Result})
}

func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"uptime":    time.Since(ws.startTime).Round(time.Second).String(),
		"sessions":  ws.sessions.Len(),
		"scheduler": ws.jobs != nil && ws.jobs.IsRunning(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Get().Error("❌ failed to encode response", zap.Error(err))
	}
}
