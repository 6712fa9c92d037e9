// Package httpapi exposes the board over HTTP. Handlers do no work
// themselves: they decode the request, call the board (which serialises
// execution on its loop), and encode the result.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"irbridge-go/board"
	"irbridge-go/errcode"
	"irbridge-go/types"
)

type Server struct {
	b *board.Board
}

// NewRouter builds the route table for one board.
func NewRouter(b *board.Board) *mux.Router {
	s := &Server{b: b}
	r := mux.NewRouter()
	r.HandleFunc("/info", s.info).Methods(http.MethodGet)
	r.HandleFunc("/status", s.status).Methods(http.MethodGet)
	r.HandleFunc("/adopt", s.adopt).Methods(http.MethodPost)

	r.HandleFunc("/ports", s.listPorts).Methods(http.MethodGet)
	r.HandleFunc("/ports/configure", s.configurePort).Methods(http.MethodPost)

	r.HandleFunc("/send_ir", s.sendIR).Methods(http.MethodPost)
	r.HandleFunc("/test_output", s.testOutput).Methods(http.MethodPost)

	r.HandleFunc("/learning/start", s.learningStart).Methods(http.MethodPost)
	r.HandleFunc("/learning/stop", s.learningStop).Methods(http.MethodPost)
	r.HandleFunc("/learning/status", s.learningStatus).Methods(http.MethodGet)

	r.HandleFunc("/serial/config", s.serialConfig).Methods(http.MethodPost)
	r.HandleFunc("/serial/send", s.serialSend).Methods(http.MethodPost)
	r.HandleFunc("/serial/read", s.serialRead).Methods(http.MethodGet)
	r.HandleFunc("/serial/drain", s.serialDrain).Methods(http.MethodPost)
	r.HandleFunc("/serial/status", s.serialStatus).Methods(http.MethodGet)
	return r
}

// ---- encoding helpers ----

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	code := errcode.Of(err)
	status := http.StatusBadRequest
	switch code {
	case errcode.UnknownPort:
		status = http.StatusNotFound
	case errcode.Error:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": string(code), "message": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, &errcode.E{C: errcode.MalformedRequest, Op: "httpapi", Msg: "invalid json body"})
		return false
	}
	return true
}

// parseCode accepts "0x20DF10EF" or bare hex digits.
func parseCode(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, &errcode.E{C: errcode.MalformedRequest, Op: "httpapi", Msg: "bad code " + strconv.Quote(s)}
	}
	return v, nil
}

// ---- identity ----

func (s *Server) info(w http.ResponseWriter, _ *http.Request) {
	info, err := s.b.Info()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	st, err := s.b.Status()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) adopt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID   string `json:"board_id"`
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	id, err := s.b.Adopt(req.ID, req.Name)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

// ---- ports ----

func (s *Server) listPorts(w http.ResponseWriter, _ *http.Request) {
	list, err := s.b.ListPorts()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ports": list, "total": len(list)})
}

func (s *Server) configurePort(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GPIO int    `json:"gpio"`
		Mode string `json:"mode"`
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	role, ok := types.ParseRole(req.Mode)
	if !ok {
		writeErr(w, &errcode.E{C: errcode.MalformedRequest, Op: "httpapi", Msg: "unknown mode " + strconv.Quote(req.Mode)})
		return
	}
	snap, err := s.b.ConfigurePort(req.GPIO, role, req.Name)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ---- IR ----

func (s *Server) sendIR(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GPIO     int    `json:"gpio"`
		Protocol string `json:"protocol"`
		Code     string `json:"code"`
		Bits     int    `json:"bits"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	value, err := parseCode(req.Code)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := s.b.SendIR(req.GPIO, req.Protocol, value, req.Bits); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (s *Server) testOutput(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GPIO       int `json:"gpio"`
		DurationMS int `json:"duration_ms"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.b.TestOutput(req.GPIO, req.DurationMS); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pulsed"})
}

// ---- learning ----

func (s *Server) learningStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GPIO int `json:"port"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.b.StartLearning(req.GPIO); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "learning"})
}

func (s *Server) learningStop(w http.ResponseWriter, _ *http.Request) {
	if err := s.b.StopLearning(); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) learningStatus(w http.ResponseWriter, _ *http.Request) {
	st, err := s.b.LearningStatus()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ---- serial bridge ----

func (s *Server) serialConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RxPin int `json:"rx_pin"`
		TxPin int `json:"tx_pin"`
		Baud  int `json:"baud_rate"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.b.ConfigureSerial(req.RxPin, req.TxPin, req.Baud); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "configured"})
}

func (s *Server) serialSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Data       string `json:"data"`
		Format     string `json:"format"`
		LineEnding string `json:"line_ending"`
		WaitMS     int    `json:"wait_ms"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	reply, err := s.b.SerialSend(
		req.Data,
		types.ParsePayloadFormat(req.Format),
		types.ParseLineEnding(req.LineEnding),
		time.Duration(req.WaitMS)*time.Millisecond,
	)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func (s *Server) serialRead(w http.ResponseWriter, _ *http.Request) {
	data, err := s.b.SerialRead()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"data": data})
}

func (s *Server) serialDrain(w http.ResponseWriter, _ *http.Request) {
	n, err := s.b.SerialDrain()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"drained": n})
}

func (s *Server) serialStatus(w http.ResponseWriter, _ *http.Request) {
	st, err := s.b.SerialStatus()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
