package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/protocol"
)

// NewHTTPHandler serves MCP JSON-RPC via POST on the root path. One JSON-RPC
// request per call; /health answers liveness probes.
func NewHTTPHandler(server *Server) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req protocol.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			// The id is unknowable when the body does not parse; it stays null.
			writeJSON(w, protocol.Response{
				JSONRPC: "2.0",
				Error:   &protocol.ResponseError{Code: protocol.CodeParseError, Message: "invalid JSON: " + err.Error()},
			}, http.StatusBadRequest)
			return
		}

		writeJSON(w, server.Handle(r.Context(), req), http.StatusOK)
	})

	return mux
}

// RunHTTP serves until the context is canceled, then shuts down gracefully.
func RunHTTP(ctx context.Context, server *Server, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHTTPHandler(server),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe() }()

	if server.log != nil {
		server.log.WithField("addr", addr).Info("mcp http server listening")
	}

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, resp protocol.Response, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resp)
}
