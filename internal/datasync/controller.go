package datasync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/zombor/ai-accountant/internal/clock"
	"github.com/zombor/ai-accountant/internal/ledger"
	"github.com/zombor/ai-accountant/internal/notify"
)

// Source is the backend surface the controller reads and mutates
type Source interface {
	ListTransactions(ctx context.Context) ([]ledger.Transaction, error)
	Summary(ctx context.Context) (ledger.Summary, error)
	CategoryBreakdown(ctx context.Context) ([]ledger.CategoryTotal, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

// Snapshot is a copy of the controller's collections
type Snapshot struct {
	Transactions []ledger.Transaction
	Summary      *ledger.Summary
	Categories   []ledger.CategoryTotal
}

// Controller holds the canonical local copies of transactions and aggregates.
// Each refresh replaces one collection wholesale; aggregates are never derived locally.
type Controller struct {
	source  Source
	notices *notify.Channel
	clock   clock.TimeSource

	mu           sync.RWMutex
	transactions []ledger.Transaction
	summary      *ledger.Summary
	categories   []ledger.CategoryTotal
}

// NewController creates an empty Controller
func NewController(source Source, notices *notify.Channel, timeSource clock.TimeSource) *Controller {
	if timeSource == nil {
		timeSource = clock.System{}
	}
	return &Controller{
		source:       source,
		notices:      notices,
		clock:        timeSource,
		transactions: []ledger.Transaction{},
		categories:   []ledger.CategoryTotal{},
	}
}

// RefreshTransactions reloads the transaction list. On failure the local copy is kept.
func (c *Controller) RefreshTransactions(ctx context.Context) error {
	transactions, err := c.source.ListTransactions(ctx)
	if err != nil {
		slog.Error("Error fetching transactions", "error", err)
		return err
	}

	c.mu.Lock()
	c.transactions = transactions
	c.mu.Unlock()
	return nil
}

// RefreshSummary reloads the summary aggregate
func (c *Controller) RefreshSummary(ctx context.Context) error {
	summary, err := c.source.Summary(ctx)
	if err != nil {
		slog.Error("Error fetching summary", "error", err)
		return err
	}

	c.mu.Lock()
	c.summary = &summary
	c.mu.Unlock()
	return nil
}

// RefreshCategories reloads the category aggregate
func (c *Controller) RefreshCategories(ctx context.Context) error {
	categories, err := c.source.CategoryBreakdown(ctx)
	if err != nil {
		slog.Error("Error fetching categories", "error", err)
		return err
	}

	c.mu.Lock()
	c.categories = categories
	c.mu.Unlock()
	return nil
}

// RefreshAll issues the three refreshes concurrently and waits for all of them to
// settle. A failing refresh does not cancel the others.
func (c *Controller) RefreshAll(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.RefreshTransactions(ctx) })
	g.Go(func() error { return c.RefreshSummary(ctx) })
	g.Go(func() error { return c.RefreshCategories(ctx) })
	return g.Wait()
}

// RefreshAggregates reloads summary and categories only
func (c *Controller) RefreshAggregates(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.RefreshSummary(ctx) })
	g.Go(func() error { return c.RefreshCategories(ctx) })
	return g.Wait()
}

// Delete removes a transaction on the backend and reloads everything on success.
// There is no optimistic removal: on failure local state is untouched.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	if err := c.source.DeleteTransaction(ctx, id); err != nil {
		slog.Error("Error deleting transaction", "id", id, "error", err)
		c.notices.Error("Error deleting transaction")
		return err
	}

	c.notices.Success("Transaction deleted")
	if err := c.RefreshAll(ctx); err != nil {
		return fmt.Errorf("refreshing after delete: %w", err)
	}
	return nil
}

// AddSample is the one optimistic path: the sample is prepended locally without a
// backend round trip, then only the aggregates are reloaded. Until the next
// transaction refresh the list and the aggregates may disagree.
func (c *Controller) AddSample(ctx context.Context, sample ledger.Sample) (ledger.Transaction, error) {
	amount, err := ledger.ParseDisplayAmount(sample.Amount)
	if err != nil {
		c.notices.Error(fmt.Sprintf("Invalid sample amount %q", sample.Amount))
		return ledger.Transaction{}, err
	}

	now := c.clock.Now()
	tx := ledger.Transaction{
		ID:          now.UnixMilli(),
		OccurredAt:  ledger.Timestamp{Time: now},
		Amount:      amount,
		Vendor:      sample.Name,
		Category:    sample.Category,
		Description: sample.Description,
		CreatedAt:   ledger.Timestamp{Time: now},
	}

	c.mu.Lock()
	c.transactions = append([]ledger.Transaction{tx}, c.transactions...)
	c.mu.Unlock()

	c.notices.Success(fmt.Sprintf("Sample %q added!", sample.Name))

	if err := c.RefreshAggregates(ctx); err != nil {
		return tx, fmt.Errorf("refreshing aggregates after sample: %w", err)
	}
	return tx, nil
}

// Reset drops every local collection
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions = []ledger.Transaction{}
	c.summary = nil
	c.categories = []ledger.CategoryTotal{}
}

// Transactions returns a copy of the local transaction list in server order
func (c *Controller) Transactions() []ledger.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ledger.Transaction, len(c.transactions))
	copy(out, c.transactions)
	return out
}

// Snapshot copies all three collections
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		Transactions: make([]ledger.Transaction, len(c.transactions)),
		Categories:   make([]ledger.CategoryTotal, len(c.categories)),
	}
	copy(snap.Transactions, c.transactions)
	copy(snap.Categories, c.categories)
	if c.summary != nil {
		summary := *c.summary
		snap.Summary = &summary
	}
	return snap
}
