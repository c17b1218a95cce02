package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/askdata/askdata/internal/pipeline"
)

const maxAskBodyBytes = 1 << 20

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Asker == nil {
		writeJSON(w, http.StatusNotImplemented, pipeline.ErrorBody{Error: "Internal server error", Details: "ask pipeline is not configured"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAskBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, pipeline.ErrorBody{Error: "Request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, pipeline.ErrorBody{Error: "Invalid JSON in request body"})
		return
	}

	// The pipeline runs to completion even if the caller disconnects.
	resp := deps.Asker.Handle(context.WithoutCancel(r.Context()), body)
	if resp.Succeeded() {
		setCORSHeaders(w.Header())
	}
	writeJSON(w, statusCode(resp.Status), resp.Body)
}

func handleAskPreflight(w http.ResponseWriter, _ *http.Request) {
	setCORSHeaders(w.Header())
	w.WriteHeader(http.StatusNoContent)
}

func setCORSHeaders(header http.Header) {
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Access-Control-Allow-Headers", "*")
	header.Set("Access-Control-Allow-Methods", "*")
}

func statusCode(status pipeline.Status) int {
	switch status {
	case pipeline.StatusOK:
		return http.StatusOK
	case pipeline.StatusClientError:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
