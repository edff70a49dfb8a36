package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/zombor/ai-accountant/internal/api"
	"github.com/zombor/ai-accountant/internal/notify"
)

// State of the ingestion workflow
type State int

const (
	StateIdle State = iota
	StateFileSelected
	StateUploading
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFileSelected:
		return "file selected"
	case StateUploading:
		return "uploading"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	// ErrNoFile is returned by Submit when nothing is selected
	ErrNoFile = &api.ValidationError{Reason: "Please select a file first"}

	// ErrUploadInProgress is returned by Submit while an upload is in flight
	ErrUploadInProgress = &api.ValidationError{Reason: "An upload is already in progress"}
)

// Uploader sends a document to the extraction backend
type Uploader interface {
	Upload(ctx context.Context, filename string, data io.Reader) (*api.UploadAck, error)
}

// Refresher reloads transactions and both aggregates
type Refresher interface {
	RefreshAll(ctx context.Context) error
}

// Workflow drives selection and upload of one document at a time
type Workflow struct {
	uploader  Uploader
	refresher Refresher
	notices   *notify.Channel

	mu        sync.Mutex
	pending   *Document
	uploading bool
}

// NewWorkflow creates an idle Workflow
func NewWorkflow(uploader Uploader, refresher Refresher, notices *notify.Channel) *Workflow {
	return &Workflow{
		uploader:  uploader,
		refresher: refresher,
		notices:   notices,
	}
}

// State reports where the workflow is
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *Workflow) stateLocked() State {
	switch {
	case w.uploading:
		return StateUploading
	case w.pending != nil:
		return StateFileSelected
	}
	return StateIdle
}

// Pending returns the selected document, if any
func (w *Workflow) Pending() (Document, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return Document{}, false
	}
	return *w.pending, true
}

// SelectFile reads a file from disk and selects it
func (w *Workflow) SelectFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("Error reading document", "path", path, "error", err)
		w.notices.Error(fmt.Sprintf("Could not open %s", filepath.Base(path)))
		return fmt.Errorf("reading document: %w", err)
	}
	return w.Select(filepath.Base(path), data)
}

// Select replaces the current selection. Dropping a file and browsing for one
// both land here. Selecting during an upload only replaces what the next Submit
// sends; the request already in flight is not affected.
func (w *Workflow) Select(name string, data []byte) error {
	doc, err := Prepare(name, data)
	if err != nil {
		w.notices.Error(api.Reason(err, "Invalid file"))
		return err
	}

	w.mu.Lock()
	w.pending = &doc
	w.mu.Unlock()

	slog.Debug("Document selected", "name", doc.Name, "size", doc.Size, "converted", doc.Converted)
	return nil
}

// Clear drops the selection without touching an in-flight upload
func (w *Workflow) Clear() {
	w.mu.Lock()
	w.pending = nil
	w.mu.Unlock()
}

// Submit uploads the selected document. Only one upload runs at a time; a Submit
// issued while uploading is refused without a request. On success the selection
// is cleared and all collections are reloaded; on failure the file stays selected
// for a retry.
func (w *Workflow) Submit(ctx context.Context) (*api.UploadAck, error) {
	w.mu.Lock()
	if w.uploading {
		w.mu.Unlock()
		return nil, ErrUploadInProgress
	}
	if w.pending == nil {
		w.mu.Unlock()
		w.notices.Error(ErrNoFile.Reason)
		return nil, ErrNoFile
	}
	doc := w.pending
	w.uploading = true
	w.mu.Unlock()

	slog.Info("Uploading document", "name", doc.Name, "size", doc.Size)
	ack, err := w.uploader.Upload(ctx, doc.Name, bytes.NewReader(doc.Data))

	w.mu.Lock()
	w.uploading = false
	if err == nil && w.pending == doc {
		w.pending = nil
	}
	w.mu.Unlock()

	if err != nil {
		slog.Error("Error uploading document", "name", doc.Name, "error", err)
		w.notices.Error(api.Reason(err, "Error processing document"))
		return nil, err
	}

	w.notices.Success("Document processed successfully!")

	if err := w.refresher.RefreshAll(ctx); err != nil {
		return ack, fmt.Errorf("refreshing after upload: %w", err)
	}
	return ack, nil
}
