// Copyright (c) 2025 BVK Chaitanya

package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
)

// maxRequestSize bounds the json request bodies.
const maxRequestSize = 1 << 20

// StatusCode maps an error to the http status code for the api response.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, os.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, os.ErrExist):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// JSONHandler returns a http handler for POST requests that decodes the
// request body into REQ and encodes the response from f as json.
func JSONHandler[REQ, RESP any](f func(context.Context, *REQ) (*RESP, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "only POST method is supported", http.StatusMethodNotAllowed)
			return
		}

		req := new(REQ)
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestSize))
		if err := dec.Decode(req); err != nil {
			http.Error(w, fmt.Sprintf("could not decode request: %v", err), http.StatusBadRequest)
			return
		}

		resp, err := f(r.Context(), req)
		if err != nil {
			slog.Warn("api request failed", "path", r.URL.Path, "err", err)
			http.Error(w, err.Error(), StatusCode(err))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Warn("could not encode api response", "path", r.URL.Path, "err", err)
		}
	})
}
