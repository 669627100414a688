package web

import (
	"net/http"
	"strconv"

	"plancal/internal/store"
)

// withState answers 503 when the server runs without a state store.
func (s *Server) withState(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.state == nil {
			writeError(w, http.StatusServiceUnavailable, "state store disabled")
			return
		}
		h(w, r)
	}
}

type keysResponse struct {
	Keys []string `json:"keys"`
}

// handleStateExport returns the whole state document, or only its keys
// with ?view=keys.
func (s *Server) handleStateExport(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("view") == "keys" {
		keys, err := s.state.Keys(r.Context())
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, keysResponse{Keys: keys})
		return
	}

	doc, err := s.state.Export(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleStateImport loads a document. ?replace=true clears existing keys
// first.
func (s *Server) handleStateImport(w http.ResponseWriter, r *http.Request) {
	replace := false
	if v := r.URL.Query().Get("replace"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeErr(w, r, badRequest("replace: %q is not a boolean", v))
			return
		}
		replace = b
	}

	var doc store.Document
	if err := decodeJSON(r, &doc); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := s.state.Import(r.Context(), doc, replace); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStateClear(w http.ResponseWriter, r *http.Request) {
	if err := s.state.Clear(r.Context()); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStateGet(w http.ResponseWriter, r *http.Request) {
	v, err := s.state.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(v)
}

func (s *Server) handleStatePut(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := s.state.Put(r.Context(), r.PathValue("key"), body); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStateDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.state.Delete(r.Context(), r.PathValue("key")); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
