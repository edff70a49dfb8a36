package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/zombor/ai-accountant/internal/ledger"
)

// UploadAck is the backend's acknowledgment of a processed document
type UploadAck struct {
	Success       bool               `json:"success"`
	Message       string             `json:"message"`
	Transaction   ledger.Transaction `json:"transaction"`
	ExtractedText string             `json:"extracted_text"`
}

// ListTransactions returns the transactions in server order
func (g *Gateway) ListTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	transactions := make([]ledger.Transaction, 0)
	if err := g.getJSON(ctx, "/transactions", &transactions); err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return transactions, nil
}

// DeleteTransaction removes a transaction
func (g *Gateway) DeleteTransaction(ctx context.Context, id int64) error {
	if err := g.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/transactions/%d", id), nil, nil); err != nil {
		return fmt.Errorf("deleting transaction %d: %w", id, err)
	}
	return nil
}

// Summary returns the aggregate totals
func (g *Gateway) Summary(ctx context.Context) (ledger.Summary, error) {
	var resp struct {
		Summary ledger.Summary `json:"summary"`
	}
	if err := g.getJSON(ctx, "/reports/summary", &resp); err != nil {
		return ledger.Summary{}, fmt.Errorf("getting summary: %w", err)
	}
	return resp.Summary, nil
}

// CategoryBreakdown returns the per-category rollup in server order
func (g *Gateway) CategoryBreakdown(ctx context.Context) ([]ledger.CategoryTotal, error) {
	var resp struct {
		Categories []ledger.CategoryTotal `json:"categories"`
	}
	if err := g.getJSON(ctx, "/reports/category", &resp); err != nil {
		return nil, fmt.Errorf("getting category breakdown: %w", err)
	}
	if resp.Categories == nil {
		resp.Categories = []ledger.CategoryTotal{}
	}
	return resp.Categories, nil
}

// Export requests the CSV export. The returned payload is always genuine binary
// content; error bodies surface as *TransportError or *DisguisedBinaryError.
func (g *Gateway) Export(ctx context.Context) (Payload, error) {
	req, err := g.newRequest(ctx, http.MethodGet, "/reports/export", nil, "")
	if err != nil {
		return Payload{}, err
	}
	req.Header.Set("Accept", "text/csv, application/json")
	return g.send(req, true)
}

// Upload sends a document as multipart form data under the "file" field
func (g *Gateway) Upload(ctx context.Context, filename string, data io.Reader) (*UploadAck, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, fmt.Errorf("writing form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := g.newRequest(ctx, http.MethodPost, "/upload", body, writer.FormDataContentType())
	if err != nil {
		return nil, err
	}

	var ack UploadAck
	if err := g.decode(req, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}
