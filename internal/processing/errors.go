package processing

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/survey.report/internal/surveyapi"
)

// Fallback messages shown when the backend or the error supply none.
const (
	MsgProcessingFailed = "Processing failed"
	MsgGenericFailure   = "An error occurred during processing"
	MsgResultsFailure   = "Failed to fetch survey data"
)

var (
	// ErrPollTimeout is returned when a bounded PollPolicy runs out of time.
	ErrPollTimeout = errors.New("timed out waiting for survey processing")
	// ErrBusy is returned when Process is called while a run is in flight.
	ErrBusy = errors.New("a processing run is already in progress")
)

// ProcessingError reports a backend-side failed phase. It is treated as a
// status query failure: errors.Is(err, surveyapi.ErrStatusQueryFailure) holds.
type ProcessingError struct {
	SurveyID surveyapi.SurveyID
	Message  string
}

func (e *ProcessingError) Error() string {
	return e.Message
}

// Is matches surveyapi.ErrStatusQueryFailure.
func (e *ProcessingError) Is(target error) bool {
	return target == surveyapi.ErrStatusQueryFailure
}

// PollTimeoutError carries the budget that was exhausted.
type PollTimeoutError struct {
	SurveyID surveyapi.SurveyID
	Waited   time.Duration
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("Timed out waiting for survey %s after %s", e.SurveyID, e.Waited)
}

// Unwrap returns ErrPollTimeout.
func (e *PollTimeoutError) Unwrap() error { return ErrPollTimeout }

func errorMessage(err error) string {
	if err == nil {
		return MsgGenericFailure
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgGenericFailure
}
