package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnknownFlow = errors.New("unknown flow")

var flows = []Flow{
	{
		Name:           Recruiter,
		Watchdog:       60 * time.Second,
		DepartureGrace: 3 * time.Second,
		TeardownDelay:  2 * time.Second,
		ResultsFile:    "call_results.csv",
		Header:         []string{"timestamp", "candidate_name", "interest_status", "summary"},
	},
	{
		Name:           Shop,
		Watchdog:       10 * time.Minute,
		DepartureGrace: 3 * time.Second,
		TeardownDelay:  2 * time.Second,
		ResultsFile:    "order_results.csv",
		Header:         []string{"timestamp", "customer_name", "product", "email", "order_id", "tracking_id", "summary"},
	},
}

func GetFlow(name string) (Flow, error) {
	flow, exists := flowExists(flows, strings.ToLower(strings.TrimSpace(name)))
	if !exists {
		return Flow{}, fmt.Errorf("flow[%s]: %w, want one of %s", name, ErrUnknownFlow, strings.Join(GetFlowNames(), ", "))
	}

	return flow, nil
}

func GetFlowNames() []string {
	names := make([]string, 0, len(flows))
	for _, f := range flows {
		names = append(names, f.Name)
	}
	return names
}

// WithWatchdog returns a copy of f with the watchdog replaced when d is set.
func (f Flow) WithWatchdog(d time.Duration) Flow {
	if d > 0 {
		f.Watchdog = d
	}
	return f
}

func flowExists(fs []Flow, name string) (Flow, bool) {
	for _, f := range fs {
		if f.Name == name {
			f.Header = append([]string(nil), f.Header...)
			return f, true
		}
	}
	return Flow{}, false
}
