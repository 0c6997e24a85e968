package notifier

import (
	"time"

	"tgnotifier/internal/telegram"
)

// Config controls delivery pacing and history.
type Config struct {
	// Pacing is the wait after each evaluated result. Negative disables it;
	// zero means the default.
	Pacing      time.Duration
	HistorySize int
}

const DefaultPacing = time.Second

// Report summarizes one Deliver call.
type Report struct {
	OK       bool
	Attempts int
	Pairs    int
	// Failures holds the failed results of the last attempt.
	Failures []telegram.Result
	Took     time.Duration
}

// Hooks observe deliveries (metrics). Nil funcs are skipped.
type Hooks struct {
	OnAttempt func(attempt int)
	OnResult  func(r telegram.Result)
}

type HistoryItem struct {
	At       time.Time `json:"at"`
	Label    string    `json:"label"`
	OK       bool      `json:"ok"`
	Attempts int       `json:"attempts"`
	Pairs    int       `json:"pairs"`
	Failed   int       `json:"failed"`
	Error    string    `json:"error,omitempty"`
}
