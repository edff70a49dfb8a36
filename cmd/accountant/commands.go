package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/peterbourgon/ff/v4"

	"github.com/zombor/ai-accountant/internal/api"
	"github.com/zombor/ai-accountant/internal/ledger"
	"github.com/zombor/ai-accountant/internal/session"
	"github.com/zombor/ai-accountant/internal/wizard"
)

// reportedError marks a failure the user already saw as a notification
type reportedError struct {
	error
}

func (e *reportedError) Unwrap() error {
	return e.error
}

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err}
}

// withApp opens the state file, restores the session and runs fn. When load is
// set the collections are fetched first; a failed fetch is only a warning so
// the command can still report what it has.
func withApp(cfg *rootConfig, load bool, fn func(ctx context.Context, rt *runtime) error) func(context.Context, []string) error {
	return func(ctx context.Context, args []string) error {
		rt, err := cfg.open()
		if err != nil {
			return err
		}
		defer rt.Close()

		if load {
			if err := rt.app.Start(ctx); err != nil {
				slog.Warn("Could not load all data", "error", err)
			}
		} else if err := rt.app.Sessions.Restore(); err != nil {
			return err
		}
		return fn(ctx, rt)
	}
}

func requireLogin(rt *runtime) error {
	if !rt.app.Sessions.IsAuthenticated() {
		return session.ErrNotAuthenticated
	}
	return nil
}

func commands(cfg *rootConfig, rootFlags *ff.FlagSet) []*ff.Command {
	return []*ff.Command{
		loginCommand(cfg, rootFlags),
		signupCommand(cfg, rootFlags),
		{
			Name:      "logout",
			Usage:     "accountant logout",
			ShortHelp: "Forget the stored session",
			Flags:     ff.NewFlagSet("logout").SetParent(rootFlags),
			Exec: withApp(cfg, false, func(ctx context.Context, rt *runtime) error {
				if err := rt.app.Logout(); err != nil {
					return err
				}
				fmt.Println("Logged out")
				return nil
			}),
		},
		{
			Name:      "whoami",
			Usage:     "accountant whoami",
			ShortHelp: "Show the logged in identity",
			Flags:     ff.NewFlagSet("whoami").SetParent(rootFlags),
			Exec: withApp(cfg, false, func(ctx context.Context, rt *runtime) error {
				if err := requireLogin(rt); err != nil {
					return err
				}
				printIdentity(rt.app.Sessions.Current().Identity, rt.app.Mode())
				return nil
			}),
		},
		profileCommand(cfg, rootFlags),
		modeCommand(cfg, rootFlags),
		{
			Name:      "list",
			Usage:     "accountant list",
			ShortHelp: "List transactions",
			Flags:     ff.NewFlagSet("list").SetParent(rootFlags),
			Exec: withApp(cfg, true, func(ctx context.Context, rt *runtime) error {
				if err := requireLogin(rt); err != nil {
					return err
				}
				printTransactions(rt.app.Data.Transactions())
				return nil
			}),
		},
		{
			Name:      "summary",
			Usage:     "accountant summary",
			ShortHelp: "Show income, expense and net totals",
			Flags:     ff.NewFlagSet("summary").SetParent(rootFlags),
			Exec: withApp(cfg, true, func(ctx context.Context, rt *runtime) error {
				if err := requireLogin(rt); err != nil {
					return err
				}
				summary := rt.app.Data.Snapshot().Summary
				if summary == nil {
					return errors.New("summary unavailable")
				}
				fmt.Printf("Total expenses: %s\n", summary.TotalExpenses)
				fmt.Printf("Total income:   %s\n", summary.TotalIncome)
				fmt.Printf("Net:            %s\n", summary.Net)
				fmt.Printf("Transactions:   %d\n", summary.TransactionCount)
				return nil
			}),
		},
		{
			Name:      "categories",
			Usage:     "accountant categories",
			ShortHelp: "Show totals per category",
			Flags:     ff.NewFlagSet("categories").SetParent(rootFlags),
			Exec: withApp(cfg, true, func(ctx context.Context, rt *runtime) error {
				if err := requireLogin(rt); err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "CATEGORY\tCOUNT\tTOTAL")
				for _, c := range rt.app.Data.Snapshot().Categories {
					info := c.Category.Display()
					fmt.Fprintf(w, "%s %s\t%d\t%s\n", info.Icon, info.Label, c.Count, c.Total)
				}
				return w.Flush()
			}),
		},
		{
			Name:      "upload",
			Usage:     "accountant upload FILE [FILE ...]",
			ShortHelp: "Upload documents for extraction",
			Flags:     ff.NewFlagSet("upload").SetParent(rootFlags),
			Exec: func(ctx context.Context, args []string) error {
				if len(args) == 0 {
					return errors.New("at least one file is required")
				}
				return withApp(cfg, false, func(ctx context.Context, rt *runtime) error {
					if err := requireLogin(rt); err != nil {
						return err
					}
					var failed int
					for _, path := range args {
						if err := rt.app.Ingest.SelectFile(path); err != nil {
							failed++
							continue
						}
						ack, err := rt.app.Ingest.Submit(ctx)
						if ack == nil {
							failed++
							continue
						}
						if err != nil {
							slog.Warn("Uploaded but could not refresh", "error", err)
						}
						fmt.Printf("%s: %s\n", path, describeTransaction(ack.Transaction))
					}
					if failed > 0 {
						return reported(fmt.Errorf("%d of %d uploads failed", failed, len(args)))
					}
					return nil
				})(ctx, args)
			},
		},
		{
			Name:      "delete",
			Usage:     "accountant delete ID",
			ShortHelp: "Delete a transaction",
			Flags:     ff.NewFlagSet("delete").SetParent(rootFlags),
			Exec: func(ctx context.Context, args []string) error {
				if len(args) != 1 {
					return errors.New("exactly one transaction id is required")
				}
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid transaction id %q", args[0])
				}
				return withApp(cfg, false, func(ctx context.Context, rt *runtime) error {
					if err := requireLogin(rt); err != nil {
						return err
					}
					return reported(rt.app.Data.Delete(ctx, id))
				})(ctx, args)
			},
		},
		{
			Name:      "export",
			Usage:     "accountant export",
			ShortHelp: "Download transactions as CSV",
			Flags:     ff.NewFlagSet("export").SetParent(rootFlags),
			Exec: withApp(cfg, true, func(ctx context.Context, rt *runtime) error {
				path, err := rt.app.Export.Run(ctx)
				if err != nil {
					return reported(err)
				}
				fmt.Println(path)
				return nil
			}),
		},
		sampleCommand(cfg, rootFlags),
		tutorialCommand(cfg, rootFlags),
		demoCommand(rootFlags),
	}
}

func loginCommand(cfg *rootConfig, rootFlags *ff.FlagSet) *ff.Command {
	flags := ff.NewFlagSet("login").SetParent(rootFlags)
	email := flags.StringLong("email", "", "Account email")
	password := flags.StringLong("password", "", "Account password")

	return &ff.Command{
		Name:      "login",
		Usage:     "accountant login --email EMAIL --password PASSWORD",
		ShortHelp: "Log in and store the session",
		Flags:     flags,
		Exec: withApp(cfg, false, func(ctx context.Context, rt *runtime) error {
			if *email == "" || *password == "" {
				return errors.New("--email and --password are required")
			}
			if err := rt.app.Login(ctx, *email, *password); err != nil && !rt.app.Sessions.IsAuthenticated() {
				return reported(err)
			} else if err != nil {
				slog.Warn("Logged in but could not load data", "error", err)
			}
			printIdentity(rt.app.Sessions.Current().Identity, rt.app.Mode())
			printOnboardingHint(rt)
			return nil
		}),
	}
}

func signupCommand(cfg *rootConfig, rootFlags *ff.FlagSet) *ff.Command {
	flags := ff.NewFlagSet("signup").SetParent(rootFlags)
	email := flags.StringLong("email", "", "Account email")
	password := flags.StringLong("password", "", "Account password")
	name := flags.StringLong("name", "", "Full name")
	mode := flags.StringLong("mode", "individual", "Account mode: individual or organization")
	organization := flags.StringLong("organization", "", "Organization name (organization accounts)")

	return &ff.Command{
		Name:      "signup",
		Usage:     "accountant signup --email EMAIL --password PASSWORD [--mode organization --organization NAME]",
		ShortHelp: "Create an account and store the session",
		Flags:     flags,
		Exec: withApp(cfg, false, func(ctx context.Context, rt *runtime) error {
			if *email == "" || *password == "" {
				return errors.New("--email and --password are required")
			}
			accountMode, err := api.ParseAccountMode(*mode)
			if err != nil {
				return err
			}
			err = rt.app.Signup(ctx, session.SignupParams{
				Email:            *email,
				Password:         *password,
				DisplayName:      *name,
				AccountMode:      accountMode,
				OrganizationName: *organization,
			})
			if err != nil && !rt.app.Sessions.IsAuthenticated() {
				return reported(err)
			} else if err != nil {
				slog.Warn("Signed up but could not load data", "error", err)
			}
			printIdentity(rt.app.Sessions.Current().Identity, rt.app.Mode())
			printOnboardingHint(rt)
			return nil
		}),
	}
}

func profileCommand(cfg *rootConfig, rootFlags *ff.FlagSet) *ff.Command {
	flags := ff.NewFlagSet("profile").SetParent(rootFlags)
	name := flags.StringLong("name", "", "New full name")
	email := flags.StringLong("email", "", "New email")

	return &ff.Command{
		Name:      "profile",
		Usage:     "accountant profile [--name NAME] [--email EMAIL]",
		ShortHelp: "Update the display name or email",
		Flags:     flags,
		Exec: withApp(cfg, false, func(ctx context.Context, rt *runtime) error {
			if *name == "" && *email == "" {
				return errors.New("nothing to update: pass --name or --email")
			}
			identity, err := rt.app.UpdateProfile(ctx, *name, *email)
			if err != nil {
				return reported(err)
			}
			printIdentity(identity, rt.app.Mode())
			return nil
		}),
	}
}

func modeCommand(cfg *rootConfig, rootFlags *ff.FlagSet) *ff.Command {
	flags := ff.NewFlagSet("mode").SetParent(rootFlags)
	organization := flags.StringLong("organization", "", "Organization name when switching to organization mode")

	return &ff.Command{
		Name:      "mode",
		Usage:     "accountant mode [individual|organization] [--organization NAME]",
		ShortHelp: "Show or change the account mode",
		Flags:     flags,
		Exec: func(ctx context.Context, args []string) error {
			return withApp(cfg, false, func(ctx context.Context, rt *runtime) error {
				if len(args) == 0 {
					fmt.Println(modeLabel(rt.app.Mode()))
					return nil
				}
				mode, err := api.ParseAccountMode(args[0])
				if err != nil {
					return err
				}
				if !rt.app.Sessions.IsAuthenticated() {
					return rt.app.SelectMode(mode)
				}
				if err := rt.app.UpdateMode(ctx, mode, *organization); err != nil {
					if rt.app.Mode() == mode {
						slog.Warn("Mode updated but could not refresh", "error", err)
						return nil
					}
					return reported(err)
				}
				return nil
			})(ctx, args)
		},
	}
}

func sampleCommand(cfg *rootConfig, rootFlags *ff.FlagSet) *ff.Command {
	flags := ff.NewFlagSet("sample").SetParent(rootFlags)
	name := flags.StringLong("name", "Restaurant Receipt", "Sample vendor name")
	category := flags.StringLong("category", string(ledger.CategoryMeals), "Sample category")
	amount := flags.StringLong("amount", "$45.67", "Sample amount, e.g. $1,245.00")
	description := flags.StringLong("description", "Sample document", "Sample description")

	return &ff.Command{
		Name:      "sample",
		Usage:     "accountant sample [--name NAME] [--category CATEGORY] [--amount AMOUNT]",
		ShortHelp: "Preview how a sample document shows up next to your transactions",
		LongHelp:  "The sample is added locally only; the backend never stores it.",
		Flags:     flags,
		Exec: withApp(cfg, true, func(ctx context.Context, rt *runtime) error {
			_, err := rt.app.AddSample(ctx, ledger.Sample{
				Name:        *name,
				Description: *description,
				Category:    ledger.Category(*category),
				Amount:      *amount,
			})
			if err != nil && len(rt.app.Data.Transactions()) == 0 {
				return reported(err)
			}
			printTransactions(rt.app.Data.Transactions())
			return nil
		}),
	}
}

func tutorialCommand(cfg *rootConfig, rootFlags *ff.FlagSet) *ff.Command {
	flags := ff.NewFlagSet("tutorial").SetParent(rootFlags)
	skip := flags.BoolLong("skip", "Skip the tutorial without reading it")
	restart := flags.BoolLong("restart", "Show the tutorial again even if it was completed")

	return &ff.Command{
		Name:      "tutorial",
		Usage:     "accountant tutorial [--skip] [--restart]",
		ShortHelp: "Walk through the getting started tutorial",
		Flags:     flags,
		Exec: withApp(cfg, false, func(ctx context.Context, rt *runtime) error {
			current := rt.app.Sessions.Current()
			if current.Identity == nil {
				return session.ErrNotAuthenticated
			}
			onboarding := rt.app.Onboarding
			id := current.Identity.ID.String()

			if *restart {
				if err := rt.app.RestartTutorial(); err != nil {
					return err
				}
			} else {
				onboarding.Begin(id, rt.app.Mode())
			}
			if *skip {
				return onboarding.Skip()
			}

			engine := onboarding.Engine()
			for {
				printStep(engine.Index(), engine.Len(), engine.Current())
				if !onboarding.Next() {
					break
				}
			}
			return onboarding.Complete()
		}),
	}
}

func demoCommand(rootFlags *ff.FlagSet) *ff.Command {
	flags := ff.NewFlagSet("demo").SetParent(rootFlags)
	step := flags.IntLong("step", -1, "Show a single step (1-based)")
	compare := flags.BoolLong("compare", "Show the before and after comparison")

	return &ff.Command{
		Name:      "demo",
		Usage:     "accountant demo [--step N] [--compare]",
		ShortHelp: "Show how photos are cleaned up before extraction",
		Flags:     flags,
		Exec: func(ctx context.Context, args []string) error {
			demo := wizard.NewDemo()
			if *compare {
				demo.ShowComparison()
				comparison := demo.Comparison()
				fmt.Println("Before & After Comparison")
				fmt.Println("Before:")
				for _, line := range comparison.Before {
					fmt.Printf("  • %s\n", line)
				}
				fmt.Println("After:")
				for _, line := range comparison.After {
					fmt.Printf("  • %s\n", line)
				}
				return nil
			}

			engine := demo.Engine()
			if *step > 0 {
				if err := demo.JumpTo(*step - 1); err != nil {
					return err
				}
				printStep(engine.Index(), engine.Len(), engine.Current())
				return nil
			}
			for {
				printStep(engine.Index(), engine.Len(), engine.Current())
				if !demo.Next() {
					return nil
				}
			}
		},
	}
}

func modeLabel(mode api.AccountMode) string {
	if mode == api.AccountModeOrganization {
		return "Business"
	}
	return "Personal"
}

func printIdentity(identity *api.Identity, mode api.AccountMode) {
	if identity == nil {
		return
	}
	name := identity.DisplayName
	if name == "" {
		name = identity.Email
	}
	fmt.Printf("%s • %s Mode\n", name, modeLabel(mode))
	if identity.OrganizationName != "" {
		fmt.Printf("Organization: %s\n", identity.OrganizationName)
	}
}

func printOnboardingHint(rt *runtime) {
	if rt.app.Onboarding.Visible() {
		fmt.Println("New here? Run `accountant tutorial` for a quick tour.")
	}
}

func printStep(index, total int, step wizard.Step) {
	fmt.Printf("[%d/%d] %s %s\n", index+1, total, step.Icon, step.Title)
	fmt.Printf("      %s\n", step.Description)
}

func describeTransaction(tx ledger.Transaction) string {
	parts := []string{tx.Amount.String()}
	if tx.Vendor != "" {
		parts = append(parts, tx.Vendor)
	}
	parts = append(parts, tx.Category.Display().Label)
	return strings.Join(parts, " • ")
}

func printTransactions(transactions []ledger.Transaction) {
	if len(transactions) == 0 {
		fmt.Println("No transactions yet. Upload a document to get started.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tVENDOR\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for _, tx := range transactions {
		date := "-"
		if tx.OccurredAt.Valid() {
			date = tx.OccurredAt.Format("2006-01-02")
		}
		info := tx.Category.Display()
		fmt.Fprintf(w, "%d\t%s\t%s\t%s %s\t%s\t%s\n", tx.ID, date, tx.Vendor, info.Icon, info.Label, tx.Amount, tx.Description)
	}
	if err := w.Flush(); err != nil {
		slog.Error("Failed to print transactions", "error", err)
	}
}
