package app

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/ai-accountant/internal/store"
)

// fakeBackend keeps a transaction list so uploads and deletes show up in
// later listings
type fakeBackend struct {
	mu           sync.Mutex
	transactions []string
	uploads      []string
}

func (f *fakeBackend) list(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	body := "["
	for i, tx := range f.transactions {
		if i > 0 {
			body += ","
		}
		body += tx
	}
	_, _ = w.Write([]byte(body + "]"))
}

func (f *fakeBackend) upload(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	Expect(err).NotTo(HaveOccurred())
	part, err := reader.NextPart()
	Expect(err).NotTo(HaveOccurred())
	Expect(part.FormName()).To(Equal("file"))
	_, _ = io.Copy(io.Discard, part)

	f.mu.Lock()
	f.uploads = append(f.uploads, part.FileName())
	tx := `{"id": 7, "date": "2024-03-20T00:00:00", "amount": 42.5, "vendor": "Corner Cafe", "category": "meals", "created_at": "2024-03-20T10:00:00"}`
	f.transactions = append([]string{tx}, f.transactions...)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"success": true, "message": "Document processed successfully", "transaction": ` + tx + `}`))
}

func (f *fakeBackend) remove(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.transactions = nil
	f.mu.Unlock()
	_, _ = w.Write([]byte(`{"message": "Transaction deleted successfully"}`))
}

var _ = Describe("Integration", func() {
	var (
		tempDir   string
		statePath string
		exportDir string
		server    *ghttp.Server
		backend   *fakeBackend
		ctx       context.Context
		open      func() (*App, *store.BoltPreferences)
	)

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
		statePath = filepath.Join(tempDir, "accountant.db")
		exportDir = filepath.Join(tempDir, "exports")
		backend = &fakeBackend{}
		ctx = context.Background()

		server = ghttp.NewServer()
		server.RouteToHandler("POST", "/api/auth/login", ghttp.CombineHandlers(
			ghttp.VerifyContentType("application/x-www-form-urlencoded"),
			ghttp.VerifyForm(map[string][]string{"username": {"a@b.c"}, "password": {"pw"}}),
			ghttp.RespondWith(http.StatusOK, `{"access_token": "tok-1", "token_type": "bearer", "user": {"id": 1, "email": "a@b.c", "full_name": "Ada", "account_type": "individual"}}`),
		))
		server.RouteToHandler("GET", "/api/transactions", backend.list)
		server.RouteToHandler("POST", "/api/upload", backend.upload)
		server.RouteToHandler("DELETE", "/api/transactions/7", backend.remove)
		server.RouteToHandler("GET", "/api/reports/summary",
			ghttp.RespondWith(http.StatusOK, `{"summary": {"total_expenses": 0, "total_income": 0, "net": 0, "transaction_count": 0}}`))
		server.RouteToHandler("GET", "/api/reports/category",
			ghttp.RespondWith(http.StatusOK, `{"categories": []}`))
		server.RouteToHandler("GET", "/api/reports/export",
			ghttp.RespondWith(http.StatusOK, "ID,Date,Vendor,Amount\n7,2024-03-20,Corner Cafe,42.50\n", http.Header{
				"Content-Type":        {"text/csv"},
				"Content-Disposition": {"attachment; filename=transactions.csv"},
			}))

		open = func() (*App, *store.BoltPreferences) {
			prefs, err := store.NewBoltPreferences(statePath)
			Expect(err).NotTo(HaveOccurred())
			a, err := New(Config{
				APIURL:    server.URL() + "/api",
				Timeout:   5 * time.Second,
				ExportDir: exportDir,
			}, prefs)
			Expect(err).NotTo(HaveOccurred())
			return a, prefs
		}
	})

	AfterEach(func() {
		server.Close()
	})

	It("should carry a session from login through upload, export and logout across restarts", func() {
		By("logging in")
		a, prefs := open()
		Expect(a.Start(ctx)).To(Succeed())
		Expect(a.Login(ctx, "a@b.c", "pw")).To(Succeed())
		Expect(a.Onboarding.Visible()).To(BeTrue())
		Expect(a.Onboarding.Skip()).To(Succeed())
		Expect(prefs.Close()).To(Succeed())

		By("uploading a receipt in a new process")
		a, prefs = open()
		Expect(a.Start(ctx)).To(Succeed())
		Expect(a.Sessions.IsAuthenticated()).To(BeTrue())
		Expect(a.Onboarding.Visible()).To(BeFalse())
		Expect(a.Data.Transactions()).To(BeEmpty())

		receiptPath := filepath.Join(tempDir, "lunch.jpg")
		Expect(os.WriteFile(receiptPath, []byte("fake jpeg"), 0644)).To(Succeed())
		Expect(a.Ingest.SelectFile(receiptPath)).To(Succeed())
		ack, err := a.Ingest.Submit(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ack.Transaction.Vendor).To(Equal("Corner Cafe"))
		Expect(backend.uploads).To(Equal([]string{"lunch.jpg"}))
		Expect(a.Data.Transactions()).To(HaveLen(1))

		By("exporting")
		path, err := a.Export.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(BeAnExistingFile())
		Expect(filepath.Base(path)).To(MatchRegexp(`^transactions_\d{4}-\d{2}-\d{2}\.csv$`))

		By("deleting")
		Expect(a.Data.Delete(ctx, 7)).To(Succeed())
		Expect(a.Data.Transactions()).To(BeEmpty())

		By("logging out")
		Expect(a.Logout()).To(Succeed())
		Expect(prefs.Close()).To(Succeed())

		a, prefs = open()
		defer prefs.Close()
		Expect(a.Start(ctx)).To(Succeed())
		Expect(a.Sessions.IsAuthenticated()).To(BeFalse())

		for _, r := range server.ReceivedRequests() {
			if r.URL.Path != "/api/auth/login" {
				Expect(r.Header.Get("Authorization")).To(Equal("Bearer tok-1"))
			}
		}
	})
})
