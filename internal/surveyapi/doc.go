// Package surveyapi is the HTTP client for the survey OCR backend.
//
// The backend exposes three calls used by a processing run:
//
//	POST {base}/upload        multipart field "file" -> {"id": ...}
//	GET  {base}/status/{id}   -> {"status": "pending"|"completed"|"failed", "progress": 0-100, "error": "..."}
//	GET  {base}/results/{id}  -> {"data": ...}
//
// plus GET {base}/health. Every non-2xx response is returned as an *APIError
// whose kind (ErrUploadFailure, ErrStatusQueryFailure, ErrResultsFetchFailure,
// ErrHealthCheckFailure) can be matched with errors.Is. Nothing is retried.
package surveyapi
