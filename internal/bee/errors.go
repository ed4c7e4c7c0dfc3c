package bee

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type (
	// An UploadFailedError is returned when the backend rejects an upload.
	UploadFailedError struct {
		Status  int
		Message string
	}

	// A DownloadFailedError is returned when the backend rejects a
	// download.
	DownloadFailedError struct {
		Status  int
		Message string
	}
)

// Error implements error.
func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("upload failed: %d %s", e.Status, e.Message)
}

// Error implements error.
func (e *DownloadFailedError) Error() string {
	return fmt.Sprintf("download failed: %d %s", e.Status, e.Message)
}

// NotFound reports whether nothing is stored under the requested key.
func (e *DownloadFailedError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// responseMessage extracts the error message of a failed response. The
// backend answers with {"code": ..., "message": ...}; anything else falls
// back to the status text.
func responseMessage(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return http.StatusText(resp.StatusCode)
}
