// Package httpx provides HTTP request/response helpers for the fine fixture server: JSON
// responses, error responses and flushed event streams.
package httpx

import (
	"errors"
	"io"
	"net/http"

	jsonitor "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/fine-dev/fine-go/internal/common/apperrors"
)

var json = jsonitor.ConfigCompatibleWithStandardLibrary

// GetRequestData parses a JSON request body into data. Only methods that carry a body are
// accepted.
func GetRequestData(r *http.Request, data any) error {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return ErrReqMethodNotSupported()
	}
	if r.Body == nil {
		log.Ctx(r.Context()).Error().Msg("empty request body")
		return ErrUnableToParseReqData()
	}
	if err := json.NewDecoder(r.Body).Decode(data); err != nil {
		return ErrUnableToParseReqData()
	}
	return nil
}

// Response is a buffered reply.
type Response struct {
	StatusCode  int
	Response    any
	ContentType string
}

// RequestHandler defines a function type for handling HTTP requests.
type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp adapts a RequestHandler, turning returned errors into error responses.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			sendAnyError(w, err)
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		if rsp.StatusCode == http.StatusNoContent {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		switch rsp.ContentType {
		case "", "application/json":
			SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response)
		case "text/plain":
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(rsp.StatusCode)
			s, _ := rsp.Response.(string)
			_, _ = io.WriteString(w, s)
		default:
			ErrApplicationError("unsupported response type").Send(w)
		}
	})
}

// StreamResponse describes a streamed reply. WriteChunk is called until it returns an error;
// io.EOF ends the stream cleanly. The writer is flushed after every chunk.
type StreamResponse struct {
	StatusCode  int
	ContentType string
	WriteChunk  func(w io.Writer) error
}

// StreamHandler defines a function type for handling streaming HTTP responses.
type StreamHandler func(r *http.Request) (*StreamResponse, error)

// WrapStreamHandler adapts a StreamHandler.
func WrapStreamHandler(handler StreamHandler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			sendAnyError(w, err)
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			ErrApplicationError("streaming not supported").Send(w)
			return
		}

		w.Header().Set("Content-Type", rsp.ContentType)
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(rsp.StatusCode)
		flusher.Flush()

		for {
			if err := rsp.WriteChunk(w); err != nil {
				if !errors.Is(err, io.EOF) {
					log.Ctx(r.Context()).Error().Err(err).Msg("error writing chunk")
				}
				return
			}
			flusher.Flush()
		}
	})
}

func sendAnyError(w http.ResponseWriter, err error) {
	var httperror *Error
	if errors.As(err, &httperror) {
		httperror.Send(w)
		return
	}
	if appErr, ok := err.(apperrors.Error); ok {
		SendError(w, appErr)
		return
	}
	ErrApplicationError(err.Error()).Send(w)
}
