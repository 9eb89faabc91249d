package controller

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/canopy-network/explorerx/pkg/query"
	"github.com/canopy-network/explorerx/pkg/utils"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// maxLoggedParams caps the query string copied into log entries.
const maxLoggedParams = 512

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// notFoundResponse keeps the detail envelope shape so clients can read item unconditionally.
type notFoundResponse struct {
	Item  any       `json:"item"`
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// writeQueryError maps err onto a status and error body. Store and unexpected
// failures are logged with the request parameters and answered generically.
func (c *Controller) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	var qe *query.Error
	if !errors.As(err, &qe) {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			c.App.Logger.Warn("Request timed out", requestFields(r, zap.Error(err))...)
			writeError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
		case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
			c.App.Logger.Debug("Request cancelled by client", requestFields(r)...)
		case errors.Is(err, context.Canceled):
			c.App.Logger.Warn("Query cancelled while the request was live", requestFields(r, zap.Error(err))...)
			writeError(w, http.StatusServiceUnavailable, query.KindUpstream.String(), "query interrupted, retry")
		default:
			c.App.Logger.Error("Unexpected query failure", requestFields(r, zap.Error(err))...)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		}
		return
	}

	switch qe.Kind {
	case query.KindValidation, query.KindInvalidCursor:
		writeError(w, http.StatusBadRequest, qe.Kind.String(), qe.Msg)
	case query.KindNotFound:
		writeJSON(w, http.StatusNotFound, notFoundResponse{Error: errorBody{Code: qe.Kind.String(), Message: qe.Msg}})
	case query.KindUpstream:
		c.App.Logger.Warn("Upstream unavailable", requestFields(r, zap.Error(err))...)
		writeError(w, http.StatusServiceUnavailable, qe.Kind.String(), qe.Msg)
	default:
		c.App.Logger.Error("Store query failed", requestFields(r, zap.String("op", qe.Op), zap.Error(err))...)
		writeError(w, http.StatusInternalServerError, query.KindStore.String(), "query failed")
	}
}

func requestFields(r *http.Request, extra ...zap.Field) []zap.Field {
	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.String("params", utils.Truncate(r.URL.RawQuery, maxLoggedParams)),
	}
	if vars := mux.Vars(r); len(vars) > 0 {
		fields = append(fields, zap.Any("vars", vars))
	}
	return append(fields, extra...)
}

// requestContext bounds a handler's store and RPC work.
func (c *Controller) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	timeout := c.App.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return context.WithTimeout(r.Context(), timeout)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (c *Controller) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		c.App.Logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)),
			zap.String("client", utils.ClientIP(r)),
		)
	})
}
