package server

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"codeberg.org/mutker/acclogger/internal/errors"
	"codeberg.org/mutker/acclogger/internal/history"
	"codeberg.org/mutker/acclogger/internal/recorder"
	"codeberg.org/mutker/acclogger/internal/storage"
)

const historyLimit = 50

type statusResponse struct {
	Recording  bool   `json:"recording"`
	File       string `json:"file"`
	Samples    uint64 `json:"samples"`
	Skipped    uint64 `json:"skipped"`
	IntervalMs uint32 `json:"interval_ms"`
	UptimeMs   uint64 `json:"uptime_ms"`
	IP         string `json:"ip"`
	Mode       string `json:"mode"`
}

type startResponse struct {
	OK         bool   `json:"ok"`
	File       string `json:"file"`
	IntervalMs uint32 `json:"interval_ms"`
}

type okResponse struct {
	OK   bool   `json:"ok"`
	File string `json:"file,omitempty"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{OK: false, Error: err.Error()})
}

// statusFor maps domain error codes to HTTP status codes.
func statusFor(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrMissingParameter, errors.ErrInvalidName:
		return http.StatusBadRequest
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrAlreadyRecording, errors.ErrRecordingInProgress:
		return http.StatusConflict
	case errors.ErrStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	info := s.deps.Recorder.Status()
	resp := statusResponse{
		Recording:  info.Active,
		File:       info.File,
		Samples:    info.Samples,
		Skipped:    info.Skipped,
		IntervalMs: info.IntervalMs,
		UptimeMs:   info.UptimeMs,
	}
	if s.deps.Net != nil {
		n := s.deps.Net.Detect()
		resp.IP, resp.Mode = n.IP, n.Mode
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	name := q.Get("file")
	if name == "" {
		name = recorder.DefaultName
	}

	interval := s.deps.Recorder.Policy().DefaultIntervalMs
	if q.Has("interval_ms") {
		interval = parseInterval(q.Get("interval_ms"))
	}

	info, err := s.deps.Recorder.Start(name, interval)
	if err != nil {
		s.log.Warn().Err(err).Str("file", name).Msg("Start rejected")
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, startResponse{OK: true, File: info.File, IntervalMs: info.IntervalMs})
}

// parseInterval reads a millisecond count. Garbage reads as 0 and values past
// uint32 saturate; the recorder clamps either way.
func parseInterval(v string) uint32 {
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return math.MaxUint32
		}
		return 0
	}

	return uint32(n)
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	if err := s.deps.Recorder.Stop(); err != nil {
		s.log.Warn().Err(err).Msg("Recording stopped with errors")
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	entries, err := s.deps.Files.List()
	if err != nil {
		s.log.Debug().Err(err).Msg("List failed")
		entries = []storage.Entry{}
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	if name == "" {
		writeError(w, http.StatusBadRequest, errors.New().WithData(errors.ErrMissingParameter, "file"))
		return
	}

	f, err := s.deps.Files.Open(name)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, errors.New().Wrap(errors.ErrFileOpen, err))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name()))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	if name == "" {
		writeError(w, http.StatusBadRequest, errors.New().WithData(errors.ErrMissingParameter, "file"))
		return
	}

	if err := s.deps.Recorder.Remove(name); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true, File: name})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := []history.Entry{}
	if s.deps.History != nil {
		list, err := s.deps.History.List(r.Context(), historyLimit)
		if err != nil {
			s.log.ErrorWithCode(errors.New().Wrap(errors.ErrOperationFailed, err)).Msg("History query failed")
		} else if list != nil {
			entries = list
		}
	}

	writeJSON(w, http.StatusOK, entries)
}
