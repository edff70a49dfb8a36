package wizard

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/zombor/ai-accountant/internal/api"
	"github.com/zombor/ai-accountant/internal/store"
)

var individualSteps = []Step{
	{
		Title:       "Welcome to AI Accountant!",
		Icon:        "👋",
		Description: "Let's get you started with automated bookkeeping. This quick tutorial will show you how to manage your personal finances effortlessly.",
	},
	{
		Title:       "Upload Your Documents",
		Icon:        "📤",
		Description: "Simply drag and drop your receipts, invoices, or bank statements. Our AI will automatically extract all the important information like date, amount, and vendor.",
	},
	{
		Title:       "Review Your Transactions",
		Icon:        "📊",
		Description: "All your transactions are automatically categorized. Click on any transaction to view details, edit information, or delete entries.",
	},
	{
		Title:       "Export Your Data",
		Icon:        "💾",
		Description: "Download your financial data as CSV anytime for tax filing, expense reports, or personal records. Click the Export button in the header.",
	},
	{
		Title:       "You're All Set!",
		Icon:        "🎉",
		Description: "Start uploading your documents and let AI handle the rest. Your financial data is stored securely and ready whenever you need it.",
	},
}

var organizationSteps = []Step{
	{
		Title:       "Welcome to AI Accountant for Business!",
		Icon:        "🏢",
		Description: "Streamline your company's bookkeeping with AI-powered automation. Let's explore the features designed for businesses.",
	},
	{
		Title:       "Bulk Document Processing",
		Icon:        "📤",
		Description: "Upload multiple invoices, receipts, and expense reports at once. Our AI processes them in parallel for maximum efficiency.",
	},
	{
		Title:       "Category Management",
		Icon:        "📊",
		Description: "Track expenses across departments and projects. Categories include office supplies, travel, utilities, and more. All transactions are automatically categorized.",
	},
	{
		Title:       "Professional Financial Statements",
		Icon:        "📈",
		Description: "Automatically generate Income Statements, Balance Sheets, and Cash Flow Statements. View them on-screen or download as PDF/Excel for your accountant or investors.",
	},
	{
		Title:       "Ready for Business!",
		Icon:        "🚀",
		Description: "Your company's financial data is now automated. Upload documents regularly to maintain accurate records and generate reports anytime.",
	},
}

// TutorialSteps returns the onboarding sequence for an account mode
func TutorialSteps(mode api.AccountMode) []Step {
	if mode == api.AccountModeOrganization {
		return organizationSteps
	}
	return individualSteps
}

// Onboarding is the tutorial shown once per identity. Finishing or skipping it
// records a completion marker keyed by the identity id.
type Onboarding struct {
	prefs store.Preferences

	engine     *Engine
	identityID string
	visible    bool
}

// NewOnboarding creates a hidden Onboarding
func NewOnboarding(prefs store.Preferences) *Onboarding {
	return &Onboarding{prefs: prefs}
}

// ShouldShow reports whether identityID has not yet finished or skipped the tutorial
func (o *Onboarding) ShouldShow(identityID string) (bool, error) {
	_, err := o.prefs.Get(store.TutorialCompletedKey(identityID))
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading tutorial marker: %w", err)
	}
	return false, nil
}

// Begin shows the tutorial for mode at its first step
func (o *Onboarding) Begin(identityID string, mode api.AccountMode) {
	engine, _ := NewEngine(TutorialSteps(mode))
	o.engine = engine
	o.identityID = identityID
	o.visible = true
}

// Start shows the tutorial if the identity has not completed it and reports
// whether it is now visible
func (o *Onboarding) Start(identityID string, mode api.AccountMode) (bool, error) {
	show, err := o.ShouldShow(identityID)
	if err != nil {
		return false, err
	}
	if show {
		o.Begin(identityID, mode)
	}
	return show, nil
}

// Restart clears the completion marker and shows the tutorial from the start
func (o *Onboarding) Restart(identityID string, mode api.AccountMode) error {
	if err := o.prefs.Delete(store.TutorialCompletedKey(identityID)); err != nil {
		return fmt.Errorf("clearing tutorial marker: %w", err)
	}
	o.Begin(identityID, mode)
	return nil
}

// Close hides the tutorial and forgets the identity without recording completion
func (o *Onboarding) Close() {
	o.engine = nil
	o.identityID = ""
	o.visible = false
}

func (o *Onboarding) Visible() bool {
	return o.visible
}

// Engine returns the step engine, or nil before Begin
func (o *Onboarding) Engine() *Engine {
	return o.engine
}

func (o *Onboarding) Next() bool {
	if !o.visible {
		return false
	}
	return o.engine.Next()
}

func (o *Onboarding) Prev() bool {
	if !o.visible {
		return false
	}
	return o.engine.Prev()
}

// Skip leaves the tutorial early
func (o *Onboarding) Skip() error {
	return o.finish()
}

// Complete leaves the tutorial after the last step
func (o *Onboarding) Complete() error {
	return o.finish()
}

func (o *Onboarding) finish() error {
	if o.identityID == "" {
		o.visible = false
		return nil
	}
	if err := o.prefs.Set(store.TutorialCompletedKey(o.identityID), "true"); err != nil {
		return fmt.Errorf("recording tutorial completion: %w", err)
	}
	o.visible = false
	slog.Debug("Tutorial finished", "identity", o.identityID)
	return nil
}
