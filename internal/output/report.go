package output

import (
	"errors"
	"time"

	"github.com/jmylchreest/pagewatch/pkg/fetcher"
	"github.com/jmylchreest/pagewatch/pkg/watch"
)

// Record status values.
const (
	StatusChanged = string(watch.StatusChanged)
	StatusFailed  = string(watch.StatusFailed)
)

// Report is the serializable form of a run result.
type Report struct {
	RunAt    time.Time `json:"run_at" yaml:"run_at"`
	Summary  Summary   `json:"summary" yaml:"summary"`
	Changes  []Record  `json:"changes" yaml:"changes"`
	Failures []Record  `json:"failures" yaml:"failures"`
}

// Summary counts outcomes by status.
type Summary struct {
	Targets   int `json:"targets" yaml:"targets"`
	Changed   int `json:"changed" yaml:"changed"`
	Unchanged int `json:"unchanged" yaml:"unchanged"`
	Failed    int `json:"failed" yaml:"failed"`
}

// Record is one changed or failed target.
type Record struct {
	URL         string    `json:"url" yaml:"url"`
	Status      string    `json:"status" yaml:"status"`
	LastChanged time.Time `json:"last_changed,omitzero" yaml:"last_changed,omitempty"`
	Title       string    `json:"title,omitempty" yaml:"title,omitempty"`
	First       bool      `json:"first,omitempty" yaml:"first,omitempty"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewReport converts a run result. Changes and failures keep watch-list order.
func NewReport(res *watch.Result) *Report {
	r := &Report{
		RunAt:    res.RunAt,
		Changes:  make([]Record, 0, len(res.Changes)),
		Failures: make([]Record, 0, len(res.Failures)),
	}

	for _, c := range res.Changes {
		r.Changes = append(r.Changes, Record{
			URL:         c.URL,
			Status:      StatusChanged,
			LastChanged: c.LastChanged,
			Title:       c.Title,
			First:       c.First,
		})
	}
	for _, f := range res.Failures {
		r.Failures = append(r.Failures, Record{
			URL:    f.URL,
			Status: StatusFailed,
			Error:  Cause(f.Err),
		})
	}

	r.Summary.Targets = len(res.Outcomes)
	for _, o := range res.Outcomes {
		switch o.Status {
		case watch.StatusChanged:
			r.Summary.Changed++
		case watch.StatusUnchanged:
			r.Summary.Unchanged++
		case watch.StatusFailed:
			r.Summary.Failed++
		}
	}
	return r
}

// Cause renders a failure without repeating the URL a FetchError carries.
func Cause(err error) string {
	if err == nil {
		return ""
	}
	var fe *fetcher.FetchError
	if errors.As(err, &fe) && fe.Err != nil {
		return fe.Err.Error()
	}
	return err.Error()
}
