package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"camtrap/internal/sqlgen"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	return dec.Decode(v)
}

// ExecSQL handles POST /exec-sql with a body of {"data": {...}}
func (h *Handlers) ExecSQL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Data sqlgen.Record `json:"data"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.Data == nil {
		writeError(w, http.StatusBadRequest, "request body is missing 'data'")
		return
	}

	stmt, err := sqlgen.InsertStatement(body.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.store.InsertDetection(r.Context(), body.Data)
	if err != nil {
		h.log.Error("insert failed",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status":  statusError,
			"message": err.Error(),
			"sql":     stmt,
		})
		return
	}

	h.metrics.detectionsStored.Inc()
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.log.Warn("failed to invalidate response cache", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  statusSuccess,
		"message": "record stored",
		"sql":     stmt,
		"id":      id,
	})
}

// QuerySQL handles POST /query-sql with a body of {"query": "SELECT ..."}
func (h *Handlers) QuerySQL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query *string `json:"query"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.Query == nil {
		writeError(w, http.StatusBadRequest, "request body is missing 'query'")
		return
	}
	if strings.TrimSpace(*body.Query) == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	rows, err := h.store.QueryReadOnly(r.Context(), *body.Query)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, rows)
}
