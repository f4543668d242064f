package web

import (
	"encoding/json"
	"net/http"

	"github.com/sweeney/pulse-monitor/internal/logic"
	"github.com/sweeney/pulse-monitor/internal/status"
)

// CommandResponse is the body returned by the control endpoints.
type CommandResponse struct {
	Command  string `json:"command"`
	Accepted bool   `json:"accepted"`
	Mode     string `json:"mode,omitempty"`
	Error    string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, logic.CommandStartContinuous, status.ModeContinuous)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, logic.CommandStop, status.ModeOff)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, CommandResponse{Command: logic.CommandChangeMode.String(), Error: "POST required"})
		return
	}
	mode, err := status.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, CommandResponse{Command: logic.CommandChangeMode.String(), Error: err.Error()})
		return
	}
	s.control(w, r, logic.CommandChangeMode, mode)
}

// control submits cmd and records mode. A full command queue answers 503
// and leaves the mode unchanged.
func (s *Server) control(w http.ResponseWriter, r *http.Request, cmd logic.Command, mode status.RunMode) {
	resp := CommandResponse{Command: cmd.String()}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		resp.Error = "POST required"
		writeJSON(w, http.StatusMethodNotAllowed, resp)
		return
	}
	if s.commands == nil {
		resp.Error = "control disabled"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	if !s.commands.Submit(cmd) {
		s.log.Warn().Str("cmd", cmd.String()).Msg("control request dropped")
		resp.Error = "command queue full"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	s.tracker.SetMode(mode)
	s.log.Info().Str("cmd", cmd.String()).Str("mode", string(mode)).Str("remote", r.RemoteAddr).Msg("control request")
	resp.Accepted = true
	resp.Mode = string(mode)
	writeJSON(w, http.StatusAccepted, resp)
}
