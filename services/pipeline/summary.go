package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

type Status int

const (
	Success Status = iota
	Partial
	Fatal
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Partial:
		return "partial"
	case Fatal:
		return "fatal"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Item is the outcome of one unit of work inside a stage, a dataset,
// collection or table.
type Item struct {
	Name  string
	Count int64
	Err   error
}

type StageResult struct {
	Stage    string
	Status   Status
	Items    []Item
	Duration time.Duration
	// set when the stage could not start at all
	Err error
}

// settle derives the stage status from its items: no failures is success,
// every item failing is fatal, anything in between is partial.
func (r *StageResult) settle() {
	if r.Err != nil {
		r.Status = Fatal
		return
	}
	failed := 0
	for _, item := range r.Items {
		if item.Err != nil {
			failed++
		}
	}
	switch {
	case failed == 0:
		r.Status = Success
	case failed == len(r.Items):
		r.Status = Fatal
	default:
		r.Status = Partial
	}
}

type Summary struct {
	RunID   string
	Started time.Time
	Stages  []StageResult
}

// Status is the worst status of any stage.
func (s Summary) Status() Status {
	worst := Success
	for _, stage := range s.Stages {
		worst = max(worst, stage.Status)
	}
	return worst
}

func (s Summary) ExitCode() int {
	switch s.Status() {
	case Success:
		return 0
	case Partial:
		return 2
	default:
		return 1
	}
}

func (s Summary) Subject() string {
	return fmt.Sprintf("govdata run %s: %s", s.RunID, s.Status())
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Render writes the summary as a table.
func (s Summary) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(s.Subject())
	t.AppendHeader(table.Row{"Stage", "Status", "Item", "Count", "Duration", "Error"})
	for _, stage := range s.Stages {
		duration := stage.Duration.Round(time.Millisecond).String()
		if len(stage.Items) == 0 {
			t.AppendRow(table.Row{stage.Stage, stage.Status, "", "", duration, errText(stage.Err)})
			continue
		}
		for i, item := range stage.Items {
			if i > 0 {
				duration = ""
			}
			t.AppendRow(table.Row{stage.Stage, stage.Status, item.Name, item.Count, duration, errText(item.Err)})
		}
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func (s Summary) String() string {
	var sb strings.Builder
	s.Render(&sb)
	return sb.String()
}
