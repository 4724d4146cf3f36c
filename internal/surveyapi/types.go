package surveyapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// SurveyID identifies one uploaded survey. The backend issues integers today
// but the value is kept opaque so a switch to string keys needs no change here.
type SurveyID string

// String returns the identifier as it appears in request paths.
func (id SurveyID) String() string { return string(id) }

// IsZero reports whether the identifier is empty.
func (id SurveyID) IsZero() bool { return id == "" }

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (id *SurveyID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return errors.New("survey id is null")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid survey id: %w", err)
		}
		*id = SurveyID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid survey id %s: %w", data, err)
	}
	*id = SurveyID(n.String())
	return nil
}

// MarshalJSON writes ids in canonical integer form as numbers and everything else as strings.
func (id SurveyID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Phase is the backend-reported processing status of a survey.
type Phase string

const (
	PhasePending   Phase = "pending"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// ParsePhase maps a backend status string onto a Phase. Anything that is
// neither completed nor failed (the backend also reports "uploaded" and
// "processing") is still in flight and maps to PhasePending.
func ParsePhase(s string) Phase {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(PhaseCompleted):
		return PhaseCompleted
	case string(PhaseFailed):
		return PhaseFailed
	default:
		return PhasePending
	}
}

// Terminal reports whether no further polling is needed.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// StatusReport is one answer from the status endpoint.
type StatusReport struct {
	Phase    Phase
	Progress int    // 0-100
	Error    string // backend message, usually only set when Phase is failed
	RawPhase string // status string exactly as the backend sent it
}

type statusResponse struct {
	ID       *SurveyID `json:"id,omitempty"`
	Status   string    `json:"status"`
	Progress *float64  `json:"progress"`
	Error    *string   `json:"error"`
}

func (r statusResponse) report() StatusReport {
	rep := StatusReport{Phase: ParsePhase(r.Status), RawPhase: r.Status}
	if r.Progress != nil {
		rep.Progress = ClampProgress(*r.Progress)
	}
	if r.Error != nil {
		rep.Error = *r.Error
	}
	return rep
}

// ClampProgress floors a backend progress value into the 0-100 range.
func ClampProgress(p float64) int {
	if math.IsNaN(p) || p <= 0 {
		return 0
	}
	if p >= 100 {
		return 100
	}
	return int(math.Floor(p))
}

type uploadResponse struct {
	ID      SurveyID `json:"id"`
	Status  string   `json:"status,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Results is the payload of the results endpoint. Data is passed through
// untouched; DecodeSurvey and DataPoints offer typed views of it.
type Results struct {
	SurveyID  SurveyID        `json:"survey_id,omitempty"`
	Data      json.RawMessage `json:"data"`
	CreatedAt string          `json:"created_at,omitempty"`
}

// SurveyData is the structured result the backend produces after bubble
// detection and analysis.
type SurveyData struct {
	Questions  []Question         `json:"questions"`
	Statistics *OverallStatistics `json:"statistics,omitempty"`
}

// Question is one detected question and its answer bubbles, ordered left to right.
type Question struct {
	Text       string              `json:"text"`
	Options    []Bubble            `json:"options"`
	Responses  []bool              `json:"responses"`
	Statistics *QuestionStatistics `json:"statistics,omitempty"`
}

// Bubble is the position of one answer bubble on the page.
type Bubble struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// QuestionStatistics summarises the filled bubbles of one question.
type QuestionStatistics struct {
	TotalOptions  int     `json:"total_options"`
	SelectedCount int     `json:"selected_count"`
	Percentage    float64 `json:"percentage"`
}

// OverallStatistics summarises the whole survey.
type OverallStatistics struct {
	TotalQuestions int     `json:"total_questions"`
	TotalOptions   int     `json:"total_options"`
	TotalSelected  int     `json:"total_selected"`
	SelectionRate  float64 `json:"selection_rate"`
}

// DataPoint is one named value for charting.
type DataPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ErrNoSurveyData is returned when the payload holds no structured survey.
var ErrNoSurveyData = errors.New("results payload has no survey data")

// DecodeSurvey decodes Data as the backend's structured survey schema.
func (r Results) DecodeSurvey() (*SurveyData, error) {
	trimmed := bytes.TrimSpace(r.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || trimmed[0] != '{' {
		return nil, ErrNoSurveyData
	}
	var sd SurveyData
	if err := json.Unmarshal(trimmed, &sd); err != nil {
		return nil, fmt.Errorf("failed to decode survey data: %w", err)
	}
	return &sd, nil
}

// DataPoints converts the payload into chartable name/value pairs. A payload
// that already is a [{name, value}] array is used as is; a structured survey
// yields one point per question whose value is the selected percentage.
func (r Results) DataPoints() ([]DataPoint, error) {
	trimmed := bytes.TrimSpace(r.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var pts []DataPoint
		if err := json.Unmarshal(trimmed, &pts); err != nil {
			return nil, fmt.Errorf("failed to decode data points: %w", err)
		}
		return pts, nil
	}

	sd, err := r.DecodeSurvey()
	if err != nil {
		return nil, err
	}
	return sd.DataPoints(), nil
}

// DataPoints returns one point per question. Questions without text are
// labelled by position; repeated labels are disambiguated with a suffix.
func (sd *SurveyData) DataPoints() []DataPoint {
	pts := make([]DataPoint, 0, len(sd.Questions))
	seen := make(map[string]int, len(sd.Questions))
	for i, q := range sd.Questions {
		name := strings.TrimSpace(q.Text)
		if name == "" {
			name = fmt.Sprintf("Q%d", i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s (%d)", name, n)
		}
		pts = append(pts, DataPoint{Name: name, Value: q.SelectedPercentage()})
	}
	return pts
}

// SelectedPercentage returns the share of filled bubbles, preferring the
// backend's own statistics when present.
func (q Question) SelectedPercentage() float64 {
	if q.Statistics != nil {
		return q.Statistics.Percentage
	}
	if len(q.Responses) == 0 {
		return 0
	}
	return float64(q.SelectedCount()) / float64(len(q.Responses)) * 100
}

// SelectedCount returns the number of filled bubbles.
func (q Question) SelectedCount() int {
	if q.Statistics != nil {
		return q.Statistics.SelectedCount
	}
	n := 0
	for _, r := range q.Responses {
		if r {
			n++
		}
	}
	return n
}

// SortedByValue returns a copy of pts ordered by descending value, then name.
func SortedByValue(pts []DataPoint) []DataPoint {
	out := make([]DataPoint, len(pts))
	copy(out, pts)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Health is the answer of the health endpoint.
type Health struct {
	Status string `json:"status"`
}

// OK reports whether the backend declared itself healthy.
func (h Health) OK() bool { return strings.EqualFold(h.Status, "ok") }
