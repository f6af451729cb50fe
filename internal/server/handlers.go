package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/roach88/aiir/internal/dispatch"
	"github.com/roach88/aiir/internal/ir"
	"github.com/roach88/aiir/internal/runtime"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rt.Health())
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rt.Meta())
}

type renderBody struct {
	OK     int            `json:"ok"`
	Render runtime.Render `json:"render"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, ReasonID)
		return
	}
	if id > math.MaxUint32 {
		writeError(w, http.StatusNotFound, ReasonFileID)
		return
	}

	out, err := s.rt.Render(uint32(id))
	switch {
	case errors.Is(err, runtime.ErrUnknownFile):
		writeError(w, http.StatusNotFound, ReasonFileID)
	case errors.Is(err, runtime.ErrBadPacket):
		writeError(w, http.StatusBadRequest, ReasonPacket)
	case errors.Is(err, runtime.ErrBadAdapt):
		writeError(w, http.StatusBadRequest, ReasonAdapt)
	case err != nil:
		writeError(w, http.StatusInternalServerError, ReasonPacket)
	default:
		writeJSON(w, http.StatusOK, renderBody{OK: 1, Render: out})
	}
}

type execBody struct {
	OK     int             `json:"ok"`
	Result dispatch.Result `json:"result"`
}

// handleExec checks, in order: exec policy, body size, opId, op policy,
// op lookup, args syntax, then the dispatcher's arity and type gates.
func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	cfg := s.rt.Config()
	if !cfg.Policy.AllowDBExec() {
		writeError(w, http.StatusBadRequest, dispatch.CodeExecDisabled.Reason())
		return
	}
	if r.ContentLength > int64(cfg.MaxBodyBytes) {
		writeError(w, http.StatusBadRequest, ReasonContentLength)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(cfg.MaxBodyBytes)))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusBadRequest, ReasonContentLength)
			return
		}
		markFailed(r)
		writeError(w, http.StatusBadRequest, ReasonBodyShort)
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		writeError(w, http.StatusBadRequest, ReasonOpID)
		return
	}
	opID, ok := parseOpID(fields["opId"])
	if !ok {
		writeError(w, http.StatusBadRequest, ReasonOpID)
		return
	}

	// Op policy and lookup come before argument parsing.
	if !cfg.Policy.AllowOp(opID) {
		writeError(w, http.StatusBadRequest, dispatch.CodeOpNotAllowed.Reason())
		return
	}
	if _, ok := s.rt.Snapshot().Op(opID); !ok {
		writeError(w, http.StatusBadRequest, dispatch.CodeOpNotFound.Reason())
		return
	}
	args, err := ir.DecodeArgs(fields["args"])
	if err != nil {
		writeError(w, http.StatusBadRequest, ReasonArgs)
		return
	}

	res, err := s.rt.Dispatcher().Dispatch(r.Context(), dispatch.Request{OpID: opID, Args: args})
	if err != nil {
		writeError(w, http.StatusBadRequest, dispatch.ReasonOf(err))
		return
	}
	writeJSON(w, http.StatusOK, execBody{OK: 1, Result: res})
}

// parseOpID accepts a JSON integer in [0, 2^32-1].
func parseOpID(raw json.RawMessage) (uint32, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil || id < 0 || id > math.MaxUint32 {
		return 0, false
	}
	return uint32(id), true
}
