package surveyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/survey.report/internal/config"
	"github.com/banshee-data/survey.report/internal/httputil"
	"github.com/banshee-data/survey.report/internal/monitoring"
	"github.com/banshee-data/survey.report/internal/surveyapi/contract"
	"github.com/banshee-data/survey.report/internal/version"
)

// UploadFormField is the multipart field the backend reads the image from.
const UploadFormField = "file"

// ResponseValidator checks a decoded response body against a named schema.
type ResponseValidator interface {
	ValidateResponse(schema string, body []byte) error
}

// Client talks to one backend base URL.
type Client struct {
	baseURL   string
	http      httputil.HTTPClient
	validator ResponseValidator
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport, typically with a MockHTTPClient in tests.
func WithHTTPClient(c httputil.HTTPClient) Option {
	return func(cl *Client) { cl.http = c }
}

// WithValidator turns on contract validation of every successful response.
func WithValidator(v ResponseValidator) Option {
	return func(cl *Client) { cl.validator = v }
}

// NewClient builds a client for baseURL, e.g. "http://localhost:8000/api".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httputil.NewStandardClient(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig builds a client from the client configuration. When
// validate_responses is set the embedded API contract is loaded.
func NewClientFromConfig(cfg *config.ClientConfig, opts ...Option) (*Client, error) {
	base := []Option{WithHTTPClient(httputil.NewTimeoutClient(cfg.GetRequestTimeout()))}
	if cfg.GetValidateResponses() {
		v, err := contract.Default()
		if err != nil {
			return nil, err
		}
		base = append(base, WithValidator(v))
	}
	return NewClient(cfg.GetAPIURL(), append(base, opts...)...), nil
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Upload sends one image as multipart form field "file" and returns the
// identifier the backend assigned to it.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (SurveyID, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", &APIError{Kind: ErrUploadFailure, Err: fmt.Errorf("failed to read %s: %w", filename, err)}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		UploadFormField, quoteEscaper.Replace(filepath.Base(filename))))
	h.Set("Content-Type", http.DetectContentType(data))
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", &APIError{Kind: ErrUploadFailure, Err: err}
	}
	if _, err := part.Write(data); err != nil {
		return "", &APIError{Kind: ErrUploadFailure, Err: err}
	}
	if err := mw.Close(); err != nil {
		return "", &APIError{Kind: ErrUploadFailure, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("upload"), &body)
	if err != nil {
		return "", &APIError{Kind: ErrUploadFailure, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	monitoring.Debugf("uploading %s (%s, %s) to %s", filepath.Base(filename),
		humanize.Bytes(uint64(len(data))), h.Get("Content-Type"), req.URL)

	var out uploadResponse
	if err := c.do(req, ErrUploadFailure, contract.UploadResponse, &out); err != nil {
		return "", err
	}
	if out.ID.IsZero() {
		return "", &APIError{Kind: ErrUploadFailure, Err: fmt.Errorf("backend returned an empty survey id")}
	}
	return out.ID, nil
}

// UploadFile opens path and uploads it.
func (c *Client) UploadFile(ctx context.Context, path string) (SurveyID, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &APIError{Kind: ErrUploadFailure, Err: err}
	}
	defer f.Close()
	return c.Upload(ctx, path, f)
}

// Status issues one status query for id.
func (c *Client) Status(ctx context.Context, id SurveyID) (StatusReport, error) {
	req, err := c.newGet(ctx, "status", id)
	if err != nil {
		return StatusReport{}, &APIError{Kind: ErrStatusQueryFailure, Err: err}
	}
	var out statusResponse
	if err := c.do(req, ErrStatusQueryFailure, contract.StatusResponse, &out); err != nil {
		return StatusReport{}, err
	}
	return out.report(), nil
}

// Results fetches the result payload of a completed survey. Callers must only
// ask once Status has reported PhaseCompleted; the backend answers 400 before.
func (c *Client) Results(ctx context.Context, id SurveyID) (*Results, error) {
	req, err := c.newGet(ctx, "results", id)
	if err != nil {
		return nil, &APIError{Kind: ErrResultsFetchFailure, Err: err}
	}
	var out Results
	if err := c.do(req, ErrResultsFetchFailure, contract.ResultsResponse, &out); err != nil {
		return nil, err
	}
	if out.SurveyID.IsZero() {
		out.SurveyID = id
	}
	return &out, nil
}

// Health queries the backend health endpoint.
func (c *Client) Health(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("health"), nil)
	if err != nil {
		return Health{}, &APIError{Kind: ErrHealthCheckFailure, Err: err}
	}
	var out Health
	if err := c.do(req, ErrHealthCheckFailure, contract.HealthResponse, &out); err != nil {
		return Health{}, err
	}
	return out, nil
}

func (c *Client) newGet(ctx context.Context, resource string, id SurveyID) (*http.Request, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("survey id is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(resource, id.String()), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do performs req and decodes a 2xx JSON body into out. Any other outcome is
// returned as an *APIError of the given kind.
func (c *Client) do(req *http.Request, kind error, schema string, out interface{}) error {
	req.Header.Set("User-Agent", version.UserAgent())
	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Kind: kind, Err: err}
	}

	if !httputil.IsSuccess(resp) {
		apiErr := &APIError{Kind: kind, StatusCode: resp.StatusCode, StatusText: httputil.StatusText(resp)}
		if data, err := httputil.ReadBody(resp); err == nil {
			apiErr.Detail = errorDetail(data)
		}
		monitoring.Debugf("%s %s -> %s", req.Method, req.URL, resp.Status)
		return apiErr
	}

	data, err := httputil.ReadBody(resp)
	if err != nil {
		return &APIError{Kind: kind, StatusCode: resp.StatusCode, Err: err}
	}
	if c.validator != nil {
		if err := c.validator.ValidateResponse(schema, data); err != nil {
			return &APIError{Kind: kind, StatusCode: resp.StatusCode, Err: err}
		}
	}
	if err := httputil.DecodeJSON(data, out); err != nil {
		return &APIError{Kind: kind, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// errorDetail extracts the "detail" (FastAPI) or "error" message of a JSON error body.
func errorDetail(data []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	var detail string
	if len(body.Detail) > 0 && json.Unmarshal(body.Detail, &detail) == nil && detail != "" {
		return detail
	}
	return body.Error
}
