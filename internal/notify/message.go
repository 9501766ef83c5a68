package notify

import (
	"fmt"

	"energy-tracker/internal/series/application"
	series "energy-tracker/internal/series/domain"
)

// MessageFromRun builds the notification for a finished run.
func MessageFromRun(result application.RunResult, reports []string) RunMessage {
	msg := RunMessage{
		RunID:      result.RunID,
		Status:     result.Status(),
		StartedAt:  result.StartedAt,
		Duration:   result.Duration(),
		Loaded:     make(map[string]int),
		Fillers:    make(map[string]int),
		ReportURLs: reports,
	}
	for _, kind := range series.LoadOrder {
		if rows := result.Load.Loaded(kind); rows > 0 {
			msg.Loaded[kind.Relation()] = rows
		}
		if fillers := result.Reconcile.Fillers(kind); fillers > 0 {
			msg.Fillers[kind.String()] = fillers
		}
	}
	for _, kind := range series.AllKinds {
		if err, ok := result.NormalizeErrors[kind]; ok && err != nil {
			msg.Errors = append(msg.Errors, fmt.Sprintf("normalize %s: %v", kind, err))
		}
	}
	for _, rel := range result.Load.Failed() {
		msg.Errors = append(msg.Errors, rel.Err.Error())
	}
	return msg
}
