package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/ai-accountant/internal/api"
	"github.com/zombor/ai-accountant/internal/clock"
	"github.com/zombor/ai-accountant/internal/ledger"
	"github.com/zombor/ai-accountant/internal/notify"
	"github.com/zombor/ai-accountant/internal/store"
)

func TestApp(t *testing.T) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	RegisterFailHandler(Fail)
	RunSpecs(t, "App Suite")
}

var _ = Describe("App", func() {
	var (
		server  *ghttp.Server
		prefs   *store.MemoryPreferences
		now     *clock.Fixed
		sunk    []notify.Notification
		newApp  func() *App
		ctx     context.Context
		counts  func() map[string]int
		persist func(identity string)
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		prefs = store.NewMemoryPreferences()
		now = &clock.Fixed{T: time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)}
		sunk = nil
		ctx = context.Background()

		server.RouteToHandler("GET", "/api/transactions",
			ghttp.RespondWith(http.StatusOK, `[{"id": 1, "amount": 12.5, "category": "meals"}]`))
		server.RouteToHandler("GET", "/api/reports/summary",
			ghttp.RespondWith(http.StatusOK, `{"summary": {"total_expenses": 12.5, "total_income": 0, "net": -12.5, "transaction_count": 1}}`))
		server.RouteToHandler("GET", "/api/reports/category",
			ghttp.RespondWith(http.StatusOK, `{"categories": [{"category": "meals", "total": 12.5, "count": 1}]}`))

		newApp = func() *App {
			a, err := New(Config{
				APIURL:    server.URL() + "/api",
				Timeout:   5 * time.Second,
				ExportDir: GinkgoT().TempDir(),
				Clock:     now,
				OnNotice:  func(n notify.Notification) { sunk = append(sunk, n) },
			}, prefs)
			Expect(err).NotTo(HaveOccurred())
			return a
		}

		counts = func() map[string]int {
			out := map[string]int{}
			for _, r := range server.ReceivedRequests() {
				out[r.Method+" "+r.URL.Path]++
			}
			return out
		}

		persist = func(identity string) {
			Expect(prefs.Set(store.KeyToken, "stored-token")).To(Succeed())
			Expect(prefs.Set(store.KeyUser, identity)).To(Succeed())
		}
	})

	AfterEach(func() {
		server.Close()
	})

	It("should require an api url", func() {
		_, err := New(Config{}, prefs)
		Expect(err).To(HaveOccurred())
	})

	Describe("Start", func() {
		When("nothing is persisted", func() {
			It("should stay logged out without contacting the backend", func() {
				a := newApp()
				Expect(a.Start(ctx)).To(Succeed())
				Expect(a.Sessions.Loading()).To(BeFalse())
				Expect(a.Sessions.IsAuthenticated()).To(BeFalse())
				Expect(a.Onboarding.Visible()).To(BeFalse())
				Expect(server.ReceivedRequests()).To(BeEmpty())
			})
		})

		When("a session is persisted", func() {
			BeforeEach(func() {
				persist(`{"id": "u1", "email": "a@b.c", "account_type": "individual"}`)
			})

			It("should load all collections with the stored credential", func() {
				a := newApp()
				Expect(a.Start(ctx)).To(Succeed())

				Expect(a.Data.Transactions()).To(HaveLen(1))
				Expect(a.Data.Snapshot().Summary.TransactionCount).To(Equal(1))
				for _, r := range server.ReceivedRequests() {
					Expect(r.Header.Get("Authorization")).To(Equal("Bearer stored-token"))
				}
			})

			It("should show onboarding once per identity across restarts", func() {
				a := newApp()
				Expect(a.Start(ctx)).To(Succeed())
				Expect(a.Onboarding.Visible()).To(BeTrue())
				Expect(a.Onboarding.Engine().Index()).To(Equal(0))

				Expect(a.Onboarding.Skip()).To(Succeed())
				Expect(a.Onboarding.Visible()).To(BeFalse())
				marker, err := prefs.Get("tutorialCompleted_u1")
				Expect(err).NotTo(HaveOccurred())
				Expect(marker).To(Equal("true"))

				restarted := newApp()
				Expect(restarted.Start(ctx)).To(Succeed())
				Expect(restarted.Onboarding.Visible()).To(BeFalse())
			})

			It("should bring onboarding back on request", func() {
				a := newApp()
				Expect(a.Start(ctx)).To(Succeed())
				Expect(a.Onboarding.Complete()).To(Succeed())

				Expect(a.RestartTutorial()).To(Succeed())
				Expect(a.Onboarding.Visible()).To(BeTrue())
				_, err := prefs.Get("tutorialCompleted_u1")
				Expect(err).To(MatchError(store.ErrNotFound))
			})
		})
	})

	Describe("Mode", func() {
		It("should default to individual", func() {
			Expect(newApp().Mode()).To(Equal(api.AccountModeIndividual))
		})

		It("should fall back to the identity's mode", func() {
			persist(`{"id": 2, "email": "a@b.c", "account_type": "company"}`)
			a := newApp()
			Expect(a.Sessions.Restore()).To(Succeed())
			Expect(a.Mode()).To(Equal(api.AccountModeOrganization))
		})

		It("should prefer the saved preference", func() {
			persist(`{"id": 2, "email": "a@b.c", "account_type": "company"}`)
			a := newApp()
			Expect(a.SelectMode(api.AccountModeIndividual)).To(Succeed())
			Expect(a.Sessions.Restore()).To(Succeed())
			Expect(a.Mode()).To(Equal(api.AccountModeIndividual))
		})
	})

	Describe("Login", func() {
		It("should adopt the identity's mode and pick the matching tutorial", func() {
			server.RouteToHandler("POST", "/api/auth/login", ghttp.RespondWith(http.StatusOK,
				`{"access_token": "tok-9", "token_type": "bearer", "user": {"id": 9, "email": "c@d.e", "account_type": "company", "company_name": "Acme"}}`))

			a := newApp()
			Expect(a.Start(ctx)).To(Succeed())
			Expect(a.Login(ctx, "c@d.e", "pw")).To(Succeed())

			Expect(a.Mode()).To(Equal(api.AccountModeOrganization))
			Expect(a.Onboarding.Visible()).To(BeTrue())
			Expect(a.Onboarding.Engine().Current().Title).To(Equal("Welcome to AI Accountant for Business!"))
			Expect(counts()["GET /api/transactions"]).To(Equal(1))
		})

		It("should notify the server's reason on failure", func() {
			server.RouteToHandler("POST", "/api/auth/login", ghttp.RespondWith(http.StatusUnauthorized,
				`{"detail": "Incorrect email or password"}`))

			a := newApp()
			Expect(a.Login(ctx, "c@d.e", "bad")).NotTo(Succeed())
			n, ok := a.Notices.Current()
			Expect(ok).To(BeTrue())
			Expect(n.Message).To(Equal("Incorrect email or password"))
			Expect(counts()["GET /api/transactions"]).To(Equal(0))
		})
	})

	Describe("UpdateMode", func() {
		var a *App

		BeforeEach(func() {
			persist(`{"id": "u1", "email": "a@b.c", "account_type": "individual"}`)
			a = newApp()
			Expect(a.Start(ctx)).To(Succeed())
		})

		When("the backend accepts the change", func() {
			var body map[string]any

			BeforeEach(func() {
				server.RouteToHandler("PUT", "/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
					body = map[string]any{}
					Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
					w.Header().Set("Content-Type", "application/json")
					_, _ = w.Write([]byte(`{"id": "u1", "email": "a@b.c", "account_type": "company", "company_name": "Acme"}`))
				})
			})

			It("should send the mode with the organization name", func() {
				Expect(a.UpdateMode(ctx, api.AccountModeOrganization, "Acme")).To(Succeed())
				Expect(body).To(HaveKeyWithValue("account_type", "company"))
				Expect(body).To(HaveKeyWithValue("company_name", "Acme"))
			})

			It("should persist the mode and refresh all three collections", func() {
				before := counts()
				Expect(a.UpdateMode(ctx, api.AccountModeOrganization, "Acme")).To(Succeed())
				after := counts()

				Expect(a.Mode()).To(Equal(api.AccountModeOrganization))
				saved, _ := prefs.Get(store.KeyUserMode)
				Expect(saved).To(Equal("company"))
				Expect(a.Sessions.Current().Identity.OrganizationName).To(Equal("Acme"))

				Expect(after["GET /api/transactions"] - before["GET /api/transactions"]).To(Equal(1))
				Expect(after["GET /api/reports/summary"] - before["GET /api/reports/summary"]).To(Equal(1))
				Expect(after["GET /api/reports/category"] - before["GET /api/reports/category"]).To(Equal(1))
			})

			It("should clear the organization name for individual accounts", func() {
				Expect(a.UpdateMode(ctx, api.AccountModeIndividual, "Ignored")).To(Succeed())
				Expect(body).To(HaveKeyWithValue("company_name", BeNil()))
			})

			It("should notify success", func() {
				Expect(a.UpdateMode(ctx, api.AccountModeOrganization, "Acme")).To(Succeed())
				n, _ := a.Notices.Current()
				Expect(n.Message).To(Equal("Account settings updated successfully!"))
			})
		})

		When("the backend refuses", func() {
			BeforeEach(func() {
				server.RouteToHandler("PUT", "/api/auth/me", ghttp.RespondWith(http.StatusUnauthorized,
					`{"detail": "Could not validate credentials"}`))
			})

			It("should keep the old mode and notify", func() {
				Expect(a.UpdateMode(ctx, api.AccountModeOrganization, "Acme")).NotTo(Succeed())
				Expect(a.Mode()).To(Equal(api.AccountModeIndividual))
				n, _ := a.Notices.Current()
				Expect(n.Message).To(Equal("Failed to update account settings"))
				Expect(n.Severity).To(Equal(notify.SeverityError))
			})
		})
	})

	Describe("AddSample", func() {
		It("should require a session", func() {
			a := newApp()
			Expect(a.Start(ctx)).To(Succeed())
			_, err := a.AddSample(ctx, ledger.Sample{Name: "Lunch", Amount: "$12.00", Category: ledger.CategoryMeals})
			Expect(err).To(HaveOccurred())
			Expect(a.Data.Transactions()).To(BeEmpty())
		})

		It("should prepend the sample for a logged in user", func() {
			persist(`{"id": "u1", "email": "a@b.c"}`)
			a := newApp()
			Expect(a.Start(ctx)).To(Succeed())

			tx, err := a.AddSample(ctx, ledger.Sample{Name: "Lunch", Amount: "$12.00", Category: ledger.CategoryMeals})
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Data.Transactions()[0]).To(Equal(tx))
			Expect(sunk[len(sunk)-1].Message).To(Equal(`Sample "Lunch" added!`))
		})
	})

	Describe("Logout", func() {
		It("should stop sending the credential", func() {
			persist(`{"id": "u1", "email": "a@b.c"}`)
			a := newApp()
			Expect(a.Start(ctx)).To(Succeed())
			Expect(a.Logout()).To(Succeed())
			Expect(a.Logout()).To(Succeed())

			_, err := a.Export.Run(ctx)
			Expect(api.Reason(err, "")).To(Equal("Please login to export data"))
		})

		It("should drop the previous user's data and tutorial", func() {
			persist(`{"id": "u1", "email": "a@b.c"}`)
			a := newApp()
			Expect(a.Start(ctx)).To(Succeed())
			Expect(a.Onboarding.Visible()).To(BeTrue())
			Expect(a.Data.Transactions()).To(HaveLen(1))

			Expect(a.Logout()).To(Succeed())

			Expect(a.Onboarding.Visible()).To(BeFalse())
			Expect(a.Onboarding.Engine()).To(BeNil())
			snap := a.Data.Snapshot()
			Expect(snap.Transactions).To(BeEmpty())
			Expect(snap.Summary).To(BeNil())
			Expect(snap.Categories).To(BeEmpty())

			_, err := prefs.Get("tutorialCompleted_u1")
			Expect(err).To(MatchError(store.ErrNotFound))
		})
	})
})
