package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/zombor/ai-accountant/internal/api"
	"github.com/zombor/ai-accountant/internal/clock"
	"github.com/zombor/ai-accountant/internal/datasync"
	"github.com/zombor/ai-accountant/internal/export"
	"github.com/zombor/ai-accountant/internal/ingest"
	"github.com/zombor/ai-accountant/internal/ledger"
	"github.com/zombor/ai-accountant/internal/notify"
	"github.com/zombor/ai-accountant/internal/session"
	"github.com/zombor/ai-accountant/internal/store"
	"github.com/zombor/ai-accountant/internal/wizard"
)

// Config holds what the client needs to reach the backend
type Config struct {
	APIURL     string
	Timeout    time.Duration
	NoticeTTL  time.Duration
	ExportDir  string
	HTTPClient *http.Client              // optional, overrides Timeout
	Clock      clock.TimeSource          // optional
	OnNotice   func(notify.Notification) // optional
}

// App wires the session, data and workflow components around one gateway and
// one preferences store. Every component that issues requests shares the
// same gateway, so the session's credential reaches all of them.
type App struct {
	prefs   store.Preferences
	gateway *api.Gateway

	Sessions   *session.Store
	Notices    *notify.Channel
	Data       *datasync.Controller
	Ingest     *ingest.Workflow
	Export     *export.Workflow
	Onboarding *wizard.Onboarding
	Demo       *wizard.Demo
}

// New builds an App. The preferences store is owned by the caller.
func New(cfg Config, prefs store.Preferences) (*App, error) {
	if cfg.APIURL == "" {
		return nil, errors.New("api url is required")
	}
	timeSource := cfg.Clock
	if timeSource == nil {
		timeSource = clock.System{}
	}

	var gateway *api.Gateway
	if cfg.HTTPClient != nil {
		gateway = api.NewGatewayWithClient(cfg.APIURL, cfg.HTTPClient)
	} else {
		gateway = api.NewGateway(cfg.APIURL, cfg.Timeout)
	}

	exportDir := cfg.ExportDir
	if exportDir == "" {
		exportDir = "."
	}
	saver, err := export.NewLocalSaver(exportDir)
	if err != nil {
		return nil, err
	}

	notices := notify.NewChannel(cfg.NoticeTTL, timeSource, cfg.OnNotice)
	sessions := session.NewStore(prefs, gateway)
	data := datasync.NewController(gateway, notices, timeSource)

	return &App{
		prefs:      prefs,
		gateway:    gateway,
		Sessions:   sessions,
		Notices:    notices,
		Data:       data,
		Ingest:     ingest.NewWorkflow(gateway, data, notices),
		Export:     export.NewWorkflow(gateway, sessions, data, saver, notices, timeSource),
		Onboarding: wizard.NewOnboarding(prefs),
		Demo:       wizard.NewDemo(),
	}, nil
}

// Start restores the persisted session and, when there is one, decides whether
// to show onboarding and loads all collections.
func (a *App) Start(ctx context.Context) error {
	if err := a.Sessions.Restore(); err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}
	if !a.Sessions.IsAuthenticated() {
		return nil
	}
	return a.afterAuthentication(ctx, false)
}

// afterAuthentication runs once a session is held. A fresh login adopts the
// identity's account mode as the saved preference; a restored session keeps
// whatever preference was saved.
func (a *App) afterAuthentication(ctx context.Context, fresh bool) error {
	current := a.Sessions.Current()
	if current.Identity == nil {
		return nil
	}

	if fresh && current.Identity.AccountMode != "" {
		if err := a.prefs.Set(store.KeyUserMode, string(current.Identity.AccountMode)); err != nil {
			return fmt.Errorf("persisting mode: %w", err)
		}
	}
	if _, err := a.Onboarding.Start(current.Identity.ID.String(), a.Mode()); err != nil {
		return err
	}

	if err := a.Data.RefreshAll(ctx); err != nil {
		return fmt.Errorf("loading data: %w", err)
	}
	return nil
}

// Login establishes a session and then behaves like Start
func (a *App) Login(ctx context.Context, email, password string) error {
	if _, err := a.Sessions.Login(ctx, email, password); err != nil {
		slog.Error("Login failed", "error", err)
		a.Notices.Error(api.Reason(err, "Login failed"))
		return err
	}
	return a.afterAuthentication(ctx, true)
}

// Signup registers an account and then behaves like Start
func (a *App) Signup(ctx context.Context, params session.SignupParams) error {
	if _, err := a.Sessions.Signup(ctx, params); err != nil {
		slog.Error("Signup failed", "error", err)
		a.Notices.Error(api.Reason(err, "Signup failed"))
		return err
	}
	return a.afterAuthentication(ctx, true)
}

// Logout ends the session and drops the previous user's data, tutorial and
// notification
func (a *App) Logout() error {
	if err := a.Sessions.Logout(); err != nil {
		return err
	}
	a.Data.Reset()
	a.Onboarding.Close()
	a.Notices.Dismiss()
	return nil
}

// Mode is the account mode in effect: the saved preference, then the identity's
// mode, then individual.
func (a *App) Mode() api.AccountMode {
	if saved, err := a.prefs.Get(store.KeyUserMode); err == nil {
		if mode, err := api.ParseAccountMode(saved); err == nil {
			return mode
		}
		slog.Warn("Ignoring unreadable mode preference", "value", saved)
	}
	if current := a.Sessions.Current(); current.Identity != nil && current.Identity.AccountMode != "" {
		return current.Identity.AccountMode
	}
	return api.AccountModeIndividual
}

// SelectMode records the mode preference locally without contacting the backend
func (a *App) SelectMode(mode api.AccountMode) error {
	if err := a.prefs.Set(store.KeyUserMode, string(mode)); err != nil {
		return fmt.Errorf("persisting mode: %w", err)
	}
	return nil
}

// UpdateMode changes the account mode on the backend. The organization name is
// only kept for organization accounts; switching to individual clears it.
func (a *App) UpdateMode(ctx context.Context, mode api.AccountMode, organizationName string) error {
	patch := api.IdentityPatch{AccountMode: &mode}
	if mode == api.AccountModeOrganization {
		patch.OrganizationName = &organizationName
	} else {
		patch.ClearOrganization = true
	}

	if _, err := a.Sessions.UpdateIdentity(ctx, patch); err != nil {
		slog.Error("Error updating account", "error", err)
		a.Notices.Error("Failed to update account settings")
		return err
	}
	if err := a.SelectMode(mode); err != nil {
		return err
	}

	a.Notices.Success("Account settings updated successfully!")
	if err := a.Data.RefreshAll(ctx); err != nil {
		return fmt.Errorf("refreshing after mode change: %w", err)
	}
	return nil
}

// UpdateProfile changes the display name and email. Empty values are left alone.
func (a *App) UpdateProfile(ctx context.Context, displayName, email string) (*api.Identity, error) {
	var patch api.IdentityPatch
	if displayName != "" {
		patch.DisplayName = &displayName
	}
	if email != "" {
		patch.Email = &email
	}

	identity, err := a.Sessions.UpdateIdentity(ctx, patch)
	if err != nil {
		slog.Error("Error updating profile", "error", err)
		a.Notices.Error(api.Reason(err, "Update failed"))
		return nil, err
	}
	a.Notices.Success("Profile updated successfully!")
	return identity, nil
}

// RestartTutorial shows onboarding again for the current identity
func (a *App) RestartTutorial() error {
	current := a.Sessions.Current()
	if current.Identity == nil {
		return session.ErrNotAuthenticated
	}
	return a.Onboarding.Restart(current.Identity.ID.String(), a.Mode())
}

// AddSample adds a demo transaction to the local list
func (a *App) AddSample(ctx context.Context, sample ledger.Sample) (ledger.Transaction, error) {
	if !a.Sessions.IsAuthenticated() {
		a.Notices.Error(session.ErrNotAuthenticated.Reason)
		return ledger.Transaction{}, session.ErrNotAuthenticated
	}
	return a.Data.AddSample(ctx, sample)
}
