package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"gameroom-backend/internal/middleware"
	"gameroom-backend/internal/models"
	"gameroom-backend/internal/services"
	"gameroom-backend/internal/websocket"
)

// Deps is everything the HTTP surface is wired to
type Deps struct {
	Owners   OwnerStore
	Verifier middleware.TokenVerifier
	Issuer   TokenIssuer
	Hub      *websocket.Hub

	Visits   *services.VisitLedger
	Shifts   *services.ShiftService
	Ledger   *services.BankLedger
	Expenses *services.ExpenseService
	Reports  *services.ReportService
	SMS      *services.SMSRelay

	Log *logrus.Logger
}

// NewRouter builds the chi router for the API
func NewRouter(d Deps) http.Handler {
	log := d.Log
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.ReportingPasswordHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", Health())
	if d.Hub != nil {
		r.Get("/ws", websocket.HandleWebSocket(d.Hub, d.Verifier))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", Login(d.Owners, d.Issuer, log))
		r.Post("/logs/diagnostic", ReceiveDiagnosticLog(log))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(d.Verifier, log))

			r.Get("/auth/status", AuthStatus(d.Owners, log))
			r.Post("/auth/change-password", ChangePassword(d.Owners, log))
			r.Put("/owner/reporting-password", SetReportingPassword(d.Owners, log))

			// Customers and visits
			r.Get("/customers", ListCustomers(d.Visits, log))
			r.Get("/customers/{phone}", GetCustomer(d.Visits, log))
			r.Post("/visits", RecordVisit(d.Visits, log))
			r.Get("/visits", ListVisits(d.Visits, log))
			r.Get("/visits/{phone}/latest", LatestVisit(d.Visits, log))

			// Draft shift
			r.Get("/shift/current", GetCurrentShift(d.Shifts, log))
			r.Post("/shift/start", StartShift(d.Shifts, log))
			r.Put("/shift/machines/{label}", SetMachine(d.Shifts, log))
			r.Post("/shift/machines/{label}/snapshot", UploadSnapshot(d.Shifts, log))
			r.Put("/shift/notes", SetShiftNotes(d.Shifts, log))
			r.Post("/shift/finalize", FinalizeShift(d.Shifts, log))
			r.Post("/shift/close", CloseShift(d.Shifts, log))
			r.Delete("/shift", DiscardShift(d.Shifts, log))

			// Closed shifts
			r.Get("/shifts", ListShifts(d.Shifts, log))
			r.Get("/shifts/{id}", GetShift(d.Shifts, log))

			// Bank balance
			r.Get("/balance", GetBalance(d.Ledger, log))
			r.Post("/balance/adjust", AdjustBalance(d.Ledger, log))
			r.Post("/balance/set", SetBalance(d.Ledger, log))
			r.Get("/balance/history", BalanceHistory(d.Ledger, log))
			r.Get("/balance/reconcile", ReconcileBalance(d.Ledger, log))

			// Expenses
			r.Get("/expenses", ListExpenses(d.Expenses, log))
			r.Post("/expenses", CreateExpense(d.Expenses, log))
			r.Patch("/expenses/{id}", UpdateExpense(d.Expenses, log))
			r.Delete("/expenses/{id}", DeleteExpense(d.Expenses, log))

			r.Post("/sms/blast", SMSBlast(d.SMS, log))

			r.Group(func(r chi.Router) {
				r.Use(middleware.ReportingGate(d.Owners, log))
				r.Get("/reports/monthly", MonthlyReport(d.Reports, log))
				r.Get("/reports/monthly/export", ExportMonthlyReport(d.Reports, log))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Post("/owners", CreateOwner(d.Owners, log))
			})
		})
	})

	return r
}
