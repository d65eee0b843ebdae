package config

import "time"

// Flow names.
const (
	Recruiter = "recruiter"
	Shop      = "shop"
)

type Flow struct {
	Name string

	// Watchdog is the absolute duration after which the call is forced to end.
	Watchdog time.Duration

	// DepartureGrace is how long a peer departure is allowed to settle before
	// the participant census is taken.
	DepartureGrace time.Duration

	// TeardownDelay lets the last spoken reply play before the room is deleted.
	TeardownDelay time.Duration

	ResultsFile string
	Header      []string
}
