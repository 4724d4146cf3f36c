package processing

import (
	"github.com/banshee-data/survey.report/internal/surveyapi"
)

// State is the client-side phase of one processing run.
type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateError      State = "error"
)

// Terminal reports whether the run has finished, successfully or not.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// Progress milestones. Polling never reports more than PollingProgressCap so
// the final step to 100 is reserved for the completed transition.
const (
	UploadStartProgress = 10
	PollingProgressCap  = 95
	CompletedProgress   = 100
)

var transitions = map[State][]State{
	StateIdle:       {StateUploading},
	StateUploading:  {StateProcessing, StateError},
	StateProcessing: {StateProcessing, StateCompleted, StateError},
	StateCompleted:  {StateUploading},
	StateError:      {StateUploading},
}

// ValidTransition reports whether the state machine has an edge from -> to.
// Leaving a terminal state is only possible by starting a new run.
func ValidTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Snapshot is the observable state of an Orchestrator at one instant.
type Snapshot struct {
	RunID    string
	SurveyID surveyapi.SurveyID
	State    State
	Progress int
	Err      string // human readable; set only in StateError
}
