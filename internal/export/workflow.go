package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zombor/ai-accountant/internal/api"
	"github.com/zombor/ai-accountant/internal/clock"
	"github.com/zombor/ai-accountant/internal/ledger"
	"github.com/zombor/ai-accountant/internal/notify"
)

var (
	// ErrLoginRequired is returned when exporting without a session
	ErrLoginRequired = &api.ValidationError{Reason: "Please login to export data"}

	// ErrNothingToExport is returned when the local transaction list is empty
	ErrNothingToExport = &api.ValidationError{Reason: "No transactions to export. Upload some documents first!"}
)

// Exporter fetches the CSV export from the backend
type Exporter interface {
	Export(ctx context.Context) (api.Payload, error)
}

// SessionChecker reports whether a session is held
type SessionChecker interface {
	IsAuthenticated() bool
}

// TransactionLister exposes the local transaction list
type TransactionLister interface {
	Transactions() []ledger.Transaction
}

// Workflow runs one export: local preconditions, the binary request and the save
type Workflow struct {
	exporter     Exporter
	sessions     SessionChecker
	transactions TransactionLister
	saver        Saver
	notices      *notify.Channel
	clock        clock.TimeSource
}

// NewWorkflow creates a Workflow
func NewWorkflow(exporter Exporter, sessions SessionChecker, transactions TransactionLister, saver Saver, notices *notify.Channel, timeSource clock.TimeSource) *Workflow {
	if timeSource == nil {
		timeSource = clock.System{}
	}
	return &Workflow{
		exporter:     exporter,
		sessions:     sessions,
		transactions: transactions,
		saver:        saver,
		notices:      notices,
		clock:        timeSource,
	}
}

// Filename names the export after the UTC day it was taken
func Filename(at time.Time) string {
	return fmt.Sprintf("transactions_%s.csv", at.UTC().Format(time.DateOnly))
}

// Run exports the transactions and returns the saved path. Both preconditions are
// checked before any request goes out. A failed or disguised-error response is
// never saved.
func (w *Workflow) Run(ctx context.Context) (string, error) {
	if !w.sessions.IsAuthenticated() {
		w.notices.Error(ErrLoginRequired.Reason)
		return "", ErrLoginRequired
	}
	if len(w.transactions.Transactions()) == 0 {
		w.notices.Error(ErrNothingToExport.Reason)
		return "", ErrNothingToExport
	}

	payload, err := w.exporter.Export(ctx)
	if err != nil {
		slog.Error("Error exporting data", "error", err)
		w.notices.Error(api.Reason(err, "Error exporting data"))
		return "", err
	}
	if payload.Kind != api.PayloadBinary {
		err := fmt.Errorf("unexpected export payload kind %d", payload.Kind)
		w.notices.Error("Error exporting data")
		return "", err
	}

	path, err := w.saver.Save(Filename(w.clock.Now()), payload.Data)
	if err != nil {
		slog.Error("Error saving export", "error", err)
		w.notices.Error("Error exporting data")
		return "", fmt.Errorf("saving export: %w", err)
	}

	slog.Info("Export saved", "path", path, "bytes", len(payload.Data))
	w.notices.Success("Data exported successfully!")
	return path, nil
}
