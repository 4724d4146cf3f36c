package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// MaxResponseBytes caps how much of a response body the client will read.
const MaxResponseBytes = 8 * 1024 * 1024

// IsSuccess reports whether the response carries a 2xx status code.
func IsSuccess(resp *http.Response) bool {
	return resp != nil && resp.StatusCode >= 200 && resp.StatusCode < 300
}

// StatusText returns the reason phrase of a response, e.g. "Internal Server
// Error" for "500 Internal Server Error". When the server sent a bare code the
// canonical text for that code is used.
func StatusText(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	status := strings.TrimSpace(resp.Status)
	if code, rest, ok := strings.Cut(status, " "); ok {
		if _, err := strconv.Atoi(code); err == nil {
			status = strings.TrimSpace(rest)
		}
	} else if _, err := strconv.Atoi(status); err == nil {
		status = ""
	}
	if status == "" {
		status = http.StatusText(resp.StatusCode)
	}
	return status
}

// ReadBody reads at most MaxResponseBytes from the response body and closes it.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(data) > MaxResponseBytes {
		return nil, fmt.Errorf("response body exceeds %d bytes", MaxResponseBytes)
	}
	return data, nil
}

// DecodeJSON unmarshals data into v, reporting the offending payload size on failure.
func DecodeJSON(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode json response (%d bytes): %w", len(data), err)
	}
	return nil
}

// DrainAndClose discards the rest of a body so the connection can be reused.
func DrainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseBytes))
	_ = resp.Body.Close()
}
