package processing

import (
	"context"
	"sync"

	"github.com/banshee-data/survey.report/internal/monitoring"
	"github.com/banshee-data/survey.report/internal/surveyapi"
)

// ResultsSource fetches the result payload of a completed survey.
type ResultsSource interface {
	Results(ctx context.Context, id surveyapi.SurveyID) (*surveyapi.Results, error)
}

// ResultsState is the observable state of a ResultsLoader.
type ResultsState struct {
	SurveyID surveyapi.SurveyID
	Loading  bool
	Data     *surveyapi.Results
	Err      string
}

// ResultsLoader fetches results independently of any Orchestrator: a failed
// fetch is reported here and never changes a processing run's state.
type ResultsLoader struct {
	source ResultsSource

	mu    sync.Mutex
	state ResultsState
}

// NewResultsLoader returns a loader backed by source.
func NewResultsLoader(source ResultsSource) *ResultsLoader {
	return &ResultsLoader{source: source}
}

// State returns the current loader state.
func (l *ResultsLoader) State() ResultsState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Load fetches results for id. An empty id is a no-op that leaves the
// current state untouched.
func (l *ResultsLoader) Load(ctx context.Context, id surveyapi.SurveyID) (*surveyapi.Results, error) {
	if id.IsZero() {
		return nil, nil
	}

	l.mu.Lock()
	l.state.SurveyID = id
	l.state.Loading = true
	l.mu.Unlock()

	res, err := l.source.Results(ctx, id)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Loading = false
	if err != nil {
		l.state.Data = nil
		l.state.Err = errorMessageOr(err, MsgResultsFailure)
		monitoring.Logf("survey=%s results: %s", id, l.state.Err)
		return nil, err
	}
	l.state.Data = res
	l.state.Err = ""
	return res, nil
}

func errorMessageOr(err error, fallback string) string {
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}
