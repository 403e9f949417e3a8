package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/fine-dev/fine-go/internal/common/apperrors"
)

var (
	ErrNoRequestFunc  = apperrors.New("transport: request function is required")
	ErrInvalidBaseURL = apperrors.New("transport: base URL is required")
	ErrTransport      = apperrors.New("request failed")
	ErrResponse       = apperrors.New("unsuccessful response")
	ErrDecode         = apperrors.New("unable to decode response")
)

// HTTPError is returned for responses outside the 2xx range. Its message is the response body
// verbatim.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return e.Body
}

// Is makes every HTTPError match ErrResponse.
func (e *HTTPError) Is(target error) bool {
	return target == ErrResponse
}

// Status returns the HTTP status code.
func (e *HTTPError) Status() int {
	return e.StatusCode
}

// emptyList is the resolved value of a 204 response.
var emptyList = json.RawMessage("[]")

// Success reports whether the status code is in the 2xx range.
func Success(code int) bool {
	return code >= 200 && code <= 299
}

// CheckStatus returns an *HTTPError carrying the body text when the response is not 2xx, and
// closes the body in that case. Successful responses are left untouched.
func CheckStatus(resp *http.Response) error {
	if Success(resp.StatusCode) {
		return nil
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ErrTransport.MsgErr("failed to read response body: "+err.Error(), err)
	}
	return &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
}

// Resolve classifies a buffered response: non-2xx fails with an *HTTPError, 204 resolves to an
// empty list whatever the body holds, anything else must be a JSON document.
func Resolve(resp *http.Response) (json.RawMessage, error) {
	if err := CheckStatus(resp); err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return emptyList, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrTransport.MsgErr("failed to read response body: "+err.Error(), err)
	}
	if !json.Valid(body) {
		return nil, ErrDecode.Msg("response is not valid JSON").SetStatusCode(resp.StatusCode)
	}
	return json.RawMessage(body), nil
}

// ResolveInto resolves the response and decodes it into out.
func ResolveInto(resp *http.Response, out any) error {
	raw, err := Resolve(resp)
	if err != nil {
		return err
	}
	return Decode(raw, out)
}

// Decode unmarshals raw JSON into out, wrapping failures in ErrDecode.
func Decode(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return ErrDecode.MsgErr("unable to decode response: "+err.Error(), err)
	}
	return nil
}
