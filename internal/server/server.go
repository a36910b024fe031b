package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/admin"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/auth"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/clock"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/config"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/credit"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/expenses"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/handover"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/metrics"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/readings"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/reports"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/settlement"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/shift"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/tank"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/transactions"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/uploads"
)

// UserLoader resolves the authenticated user on every request.
type UserLoader interface {
	User(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Deps is everything the HTTP layer composes. All fields are required
// except Metrics, which may be nil when scraping is disabled.
type Deps struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	Tokens  *auth.TokenIssuer
	Users   UserLoader
	Clock   clock.Clock

	Admin        *admin.Engine
	Readings     *readings.Engine
	Tanks        *tank.Engine
	Shifts       *shift.Engine
	Handovers    *handover.Engine
	Settlements  *settlement.Engine
	Transactions *transactions.Engine
	Credit       *credit.Engine
	Expenses     *expenses.Engine
	Uploads      *uploads.Engine
	Reports      *reports.Engine
}

type Server struct {
	deps   Deps
	logger zerolog.Logger
	router *mux.Router
}

func New(deps Deps) *Server {
	s := &Server{deps: deps, logger: deps.Logger.With().Str("component", "http").Logger()}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.observe)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	p := api.NewRoute().Subrouter()
	p.Use(s.authenticate)

	// Readings.
	p.HandleFunc("/readings", s.handleCreateReading).Methods(http.MethodPost)
	p.HandleFunc("/readings", s.handleListReadings).Methods(http.MethodGet)
	p.HandleFunc("/readings/upload", s.handleUploadReading).Methods(http.MethodPost)
	p.HandleFunc("/readings/{id}/approve", s.handleApproveReading).Methods(http.MethodPost)
	p.HandleFunc("/readings/{id}/reject", s.handleRejectReading).Methods(http.MethodPost)
	p.HandleFunc("/nozzles/{id}/readings/last", s.handleLastReading).Methods(http.MethodGet)

	// Daily transactions.
	p.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	p.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	p.HandleFunc("/transactions/summary", s.handleTransactionSummary).Methods(http.MethodGet)
	p.HandleFunc("/transactions/{id}", s.handleGetTransaction).Methods(http.MethodGet)
	p.HandleFunc("/transactions/{id}", s.handleUpdateTransaction).Methods(http.MethodPatch)
	p.HandleFunc("/transactions/{id}", s.handleCancelTransaction).Methods(http.MethodDelete)

	// Settlements.
	p.HandleFunc("/stations/{stationId}/settlements", s.handleListSettlements).Methods(http.MethodGet)
	p.HandleFunc("/stations/{stationId}/settlements", s.handleCreateSettlement).Methods(http.MethodPost)
	p.HandleFunc("/settlements/{id}", s.handleGetSettlement).Methods(http.MethodGet)
	p.HandleFunc("/settlements/{id}", s.handleUpdateSettlement).Methods(http.MethodPatch)
	p.HandleFunc("/settlements/{id}/finalize", s.handleFinalizeSettlement).Methods(http.MethodPost)
	p.HandleFunc("/settlements/{id}/lock", s.handleLockSettlement).Methods(http.MethodPost)

	// Creditors and the credit ledger.
	p.HandleFunc("/creditors", s.handleListCreditors).Methods(http.MethodGet)
	p.HandleFunc("/creditors", s.handleCreateCreditor).Methods(http.MethodPost)
	p.HandleFunc("/creditors/aging", s.handleCreditorAging).Methods(http.MethodGet)
	p.HandleFunc("/creditors/{id}", s.handleUpdateCreditor).Methods(http.MethodPatch)
	p.HandleFunc("/creditors/{id}/ledger", s.handleCreditorLedger).Methods(http.MethodGet)
	p.HandleFunc("/credit-transactions", s.handleRecordCredit).Methods(http.MethodPost)
	p.HandleFunc("/credit-transactions/settlement", s.handleRecordCreditSettlement).Methods(http.MethodPost)
	p.HandleFunc("/credit-transactions/{id}", s.handleDeleteCreditTransaction).Methods(http.MethodDelete)

	// Cash handovers.
	p.HandleFunc("/cash-handovers", s.handleCreateHandover).Methods(http.MethodPost)
	p.HandleFunc("/cash-handovers/pending", s.handlePendingHandovers).Methods(http.MethodGet)
	p.HandleFunc("/cash-handovers/unconfirmed", s.handleUnconfirmedHandovers).Methods(http.MethodGet)
	p.HandleFunc("/cash-handovers/bank-deposits", s.handleBankDeposits).Methods(http.MethodGet)
	p.HandleFunc("/cash-handovers/summary", s.handleCashFlowSummary).Methods(http.MethodGet)
	p.HandleFunc("/cash-handovers/{id}", s.handleGetHandover).Methods(http.MethodGet)
	p.HandleFunc("/cash-handovers/{id}/confirm", s.handleConfirmHandover).Methods(http.MethodPost)
	p.HandleFunc("/cash-handovers/{id}/resolve", s.handleResolveHandover).Methods(http.MethodPost)

	// Tanks.
	p.HandleFunc("/tanks", s.handleListTanks).Methods(http.MethodGet)
	p.HandleFunc("/tanks", s.handleCreateTank).Methods(http.MethodPost)
	p.HandleFunc("/tanks/{id}/refills", s.handleListRefills).Methods(http.MethodGet)
	p.HandleFunc("/tanks/{id}/refills", s.handleRecordRefill).Methods(http.MethodPost)
	p.HandleFunc("/tanks/{id}/calibrate", s.handleCalibrateTank).Methods(http.MethodPost)
	p.HandleFunc("/tank-refills/{id}", s.handleDeleteRefill).Methods(http.MethodDelete)

	// Shifts.
	p.HandleFunc("/shifts", s.handleListShifts).Methods(http.MethodGet)
	p.HandleFunc("/shifts/start", s.handleStartShift).Methods(http.MethodPost)
	p.HandleFunc("/shifts/active", s.handleActiveShift).Methods(http.MethodGet)
	p.HandleFunc("/shifts/{id}/end", s.handleEndShift).Methods(http.MethodPost)
	p.HandleFunc("/shifts/{id}/cancel", s.handleCancelShift).Methods(http.MethodPost)

	// Dashboard and reports.
	p.HandleFunc("/stations/{stationId}/dashboard", s.handleDashboard).Methods(http.MethodGet)
	p.HandleFunc("/reports/sales", s.handleSalesReport).Methods(http.MethodGet)
	p.HandleFunc("/reports/pumps", s.handlePumpReport).Methods(http.MethodGet)
	p.HandleFunc("/reports/profit", s.handleProfitReport).Methods(http.MethodGet)
	p.HandleFunc("/reports/audit", s.handleAuditReport).Methods(http.MethodGet)

	// Expenses.
	p.HandleFunc("/expenses", s.handleListExpenses).Methods(http.MethodGet)
	p.HandleFunc("/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	p.HandleFunc("/expenses/summary", s.handleExpenseSummary).Methods(http.MethodGet)
	p.HandleFunc("/expenses/{id}", s.handleDeleteExpense).Methods(http.MethodDelete)

	// Receipt uploads.
	p.HandleFunc("/uploads", s.handleListUploads).Methods(http.MethodGet)
	p.HandleFunc("/uploads/{id}", s.handleGetUpload).Methods(http.MethodGet)

	// Administration: users, stations, hardware, prices, plans.
	p.HandleFunc("/users", s.handleCreateUser).Methods(http.MethodPost)
	p.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	p.HandleFunc("/users/{id}", s.handleUpdateUser).Methods(http.MethodPatch)
	p.HandleFunc("/users/{id}/plan", s.handleAssignPlan).Methods(http.MethodPost)
	p.HandleFunc("/stations", s.handleCreateStation).Methods(http.MethodPost)
	p.HandleFunc("/stations", s.handleListStations).Methods(http.MethodGet)
	p.HandleFunc("/stations/{stationId}", s.handleGetStation).Methods(http.MethodGet)
	p.HandleFunc("/pumps", s.handleCreatePump).Methods(http.MethodPost)
	p.HandleFunc("/pumps", s.handleListPumps).Methods(http.MethodGet)
	p.HandleFunc("/pumps/{id}", s.handleSetPumpStatus).Methods(http.MethodPatch)
	p.HandleFunc("/nozzles", s.handleCreateNozzle).Methods(http.MethodPost)
	p.HandleFunc("/nozzles", s.handleListNozzles).Methods(http.MethodGet)
	p.HandleFunc("/fuel-prices", s.handleSetPrice).Methods(http.MethodPost)
	p.HandleFunc("/fuel-prices", s.handleListPrices).Methods(http.MethodGet)
	p.HandleFunc("/plans", s.handleCreatePlan).Methods(http.MethodPost)
	p.HandleFunc("/plans", s.handleListPlans).Methods(http.MethodGet)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
