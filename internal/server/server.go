// Package server exposes the financing simulator over HTTP: the public
// simulation and acceptance API, the token-guarded admin API and the embedded
// web UI.
package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/iwvelando/mortgage-simulator/internal/auth"
	"github.com/iwvelando/mortgage-simulator/internal/proposal"
	"github.com/iwvelando/mortgage-simulator/pkg/constants"
	"github.com/iwvelando/mortgage-simulator/pkg/financing"
	"github.com/iwvelando/mortgage-simulator/pkg/format"
	"github.com/iwvelando/mortgage-simulator/pkg/mathutil"
	"github.com/iwvelando/mortgage-simulator/pkg/output"
	"github.com/iwvelando/mortgage-simulator/pkg/validation"
	"go.uber.org/zap"
)

//go:embed static/*
var staticFiles embed.FS

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type handler struct {
	logger    *zap.Logger
	proposals *proposal.Service
	health    HealthChecker
	auth      *auth.Service
	limiter   *clientLimiter
	opts      Options
}

// NewHandler constructs the HTTP handler that serves the web UI and the API.
// health and authService may be nil; without an auth service the admin API
// answers 503.
func NewHandler(logger *zap.Logger, proposals *proposal.Service, health HealthChecker, authService *auth.Service, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.normalize()

	h := &handler{
		logger:    logger,
		proposals: proposals,
		health:    health,
		auth:      authService,
		opts:      opts,
	}
	if opts.RateLimit.Enabled && opts.RateLimit.RequestsPerSecond > 0 && opts.RateLimit.Burst > 0 {
		h.limiter = newClientLimiter(opts.RateLimit)
	}

	mux := http.NewServeMux()

	// Public calculator API
	mux.HandleFunc("POST /api/simulations", h.handleSimulate)
	mux.HandleFunc("POST /api/simulations/schedule", h.handleSchedule)
	mux.HandleFunc("GET /api/financing/options", h.handleFinancingOptions)

	// Proposal acceptance returns the PDF
	mux.HandleFunc("POST /api/proposals", h.handleAcceptProposal)

	// Admin API
	mux.HandleFunc("GET /api/proposals", h.requireAdmin(h.handleListProposals))
	mux.HandleFunc("GET /api/proposals/{id}", h.requireAdmin(h.handleGetProposal))
	mux.HandleFunc("GET /api/proposals/{id}/document", h.requireAdmin(h.handleProposalDocument))
	mux.HandleFunc("GET /api/stats", h.requireAdmin(h.handleStats))

	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/version", h.handleVersion)

	// Static assets (web UI)
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to prepare embedded static files: %v", err))
	}
	mux.Handle("GET /", http.FileServer(http.FS(sub)))

	return h.logRequests(h.rateLimit(mux))
}

type simulationRequest struct {
	PropertyValue         float64  `json:"propertyValue"`
	DownPaymentPercentage *float64 `json:"downPaymentPercentage,omitempty"`
	LoanTermYears         *int     `json:"loanTermYears,omitempty"`
	AnnualInterestRate    *float64 `json:"annualInterestRate,omitempty"`
}

// parameters fills omitted fields with the configured defaults. An explicit
// zero interest rate is kept.
func (s simulationRequest) parameters(opts Options) financing.Parameters {
	params := financing.Parameters{
		PropertyValue:         s.PropertyValue,
		DownPaymentPercentage: opts.Financing.DownPaymentPercentage,
		LoanTermYears:         opts.Financing.LoanTermYears,
		AnnualInterestRate:    opts.Financing.AnnualInterestRate,
	}
	if s.DownPaymentPercentage != nil {
		params.DownPaymentPercentage = *s.DownPaymentPercentage
	}
	if s.LoanTermYears != nil {
		params.LoanTermYears = *s.LoanTermYears
	}
	if s.AnnualInterestRate != nil {
		params.AnnualInterestRate = *s.AnnualInterestRate
	}
	return params
}

type acceptRequest struct {
	simulationRequest
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	TaxID     string `json:"taxId"`
	Signature string `json:"signature"`
}

type formattedResult struct {
	PropertyValue  string `json:"propertyValue"`
	DownPayment    string `json:"downPayment"`
	LoanAmount     string `json:"loanAmount"`
	MonthlyPayment string `json:"monthlyPayment"`
	TotalAmount    string `json:"totalAmount"`
	TotalInterest  string `json:"totalInterest"`
	InterestRate   string `json:"interestRate"`
}

type simulationResponse struct {
	output.Report
	Formatted formattedResult `json:"formatted"`
}

type errorResponse struct {
	Error  string                  `json:"error"`
	Code   string                  `json:"code"`
	Field  string                  `json:"field,omitempty"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

type listResponse struct {
	Proposals []proposal.Record `json:"proposals"`
	Count     int               `json:"count"`
}

func (h *handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	h.simulate(w, r, false, "server.handleSimulate")
}

func (h *handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	h.simulate(w, r, true, "server.handleSchedule")
}

func (h *handler) simulate(w http.ResponseWriter, r *http.Request, withSchedule bool, op string) {
	var req simulationRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, err, op)
		return
	}

	params := req.parameters(h.opts)
	result, err := financing.Compute(params)
	if err != nil {
		h.respondError(w, err, op)
		return
	}

	report := output.Report{Parameters: params, Result: result}
	if withSchedule {
		report.Schedule = financing.Schedule(result)
	}
	h.writeJSON(w, http.StatusOK, simulationResponse{
		Report:    report,
		Formatted: h.formatResult(params, result),
	})
}

func (h *handler) formatResult(params financing.Parameters, result financing.Result) formattedResult {
	money := func(v float64) string { return format.Currency(v, h.opts.Locale) }
	return formattedResult{
		PropertyValue:  money(result.PropertyValue),
		DownPayment:    money(result.DownPayment),
		LoanAmount:     money(result.LoanAmount),
		MonthlyPayment: money(result.MonthlyPayment),
		TotalAmount:    money(result.TotalAmount),
		TotalInterest:  money(result.TotalInterest),
		InterestRate:   format.Percentage(mathutil.RateToPercent(params.AnnualInterestRate)),
	}
}

func (h *handler) handleFinancingOptions(w http.ResponseWriter, r *http.Request) {
	f := h.opts.Financing
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"annualInterestRate":           f.AnnualInterestRate,
		"downPaymentPercentage":        f.DownPaymentPercentage,
		"minimumDownPaymentPercentage": constants.MinimumDownPaymentPercentage,
		"loanTermYears":                f.LoanTermYears,
		"loanTermOptions":              f.LoanTermOptions,
		"locale":                       h.opts.Locale,
	})
}

func (h *handler) handleAcceptProposal(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAcceptProposal"
	if h.proposals == nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, "unavailable", "proposal service is not configured", op)
		return
	}

	var req acceptRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, err, op)
		return
	}

	outcome, err := h.proposals.Accept(r.Context(), proposal.AcceptRequest{
		Parameters: req.parameters(h.opts),
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		TaxID:      req.TaxID,
		Signature:  req.Signature,
	})
	if err != nil {
		h.respondError(w, err, op)
		return
	}

	if !outcome.Saved {
		h.logger.Warn("serving proposal document without a saved record",
			zap.String("op", op),
			zap.String("id", outcome.Record.ID),
			zap.Error(outcome.SaveErr),
		)
	}

	w.Header().Set("X-Proposal-ID", outcome.Record.ID)
	w.Header().Set("X-Proposal-Saved", strconv.FormatBool(outcome.Saved))
	status := http.StatusOK
	if outcome.Saved {
		status = http.StatusCreated
	}
	h.writeDocument(w, status, outcome.Document, outcome.Filename, op)
}

func (h *handler) handleListProposals(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleListProposals"
	if h.proposals == nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, "unavailable", "proposal service is not configured", op)
		return
	}

	opts := proposal.ListOptions{Query: r.URL.Query().Get("q")}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.respondErrorWithOp(w, http.StatusBadRequest, "invalid_limit", fmt.Sprintf("invalid limit %q", raw), op)
			return
		}
		opts.Limit = limit
	}

	records, err := h.proposals.List(r.Context(), opts)
	if err != nil {
		h.respondError(w, err, op)
		return
	}
	// Signatures are only returned by the detail endpoint.
	for i := range records {
		records[i].Signature = ""
	}
	h.writeJSON(w, http.StatusOK, listResponse{Proposals: records, Count: len(records)})
}

func (h *handler) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleGetProposal"
	if h.proposals == nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, "unavailable", "proposal service is not configured", op)
		return
	}

	record, err := h.proposals.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

func (h *handler) handleProposalDocument(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleProposalDocument"
	if h.proposals == nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, "unavailable", "proposal service is not configured", op)
		return
	}

	doc, filename, err := h.proposals.Render(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, err, op)
		return
	}
	h.writeDocument(w, http.StatusOK, doc, filename, op)
}

func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleStats"
	if h.proposals == nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, "unavailable", "proposal service is not configured", op)
		return
	}

	stats, err := h.proposals.Stats(r.Context())
	if err != nil {
		h.respondError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			h.logger.Error("health check failed",
				zap.String("op", "server.handleHealth"),
				zap.Error(err),
			)
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.opts.Version,
	})
}

func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxBodySize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return &decodeError{err: err}
	}
	return nil
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string {
	return "invalid JSON body: " + e.err.Error()
}

func (e *decodeError) Unwrap() error {
	return e.err
}

// respondError maps an error to its status code and JSON body.
func (h *handler) respondError(w http.ResponseWriter, err error, op string) {
	var (
		maxBytesErr *http.MaxBytesError
		decodeErr   *decodeError
		paramErr    *financing.ParameterError
		fieldErrs   validation.FieldErrors
	)

	resp := errorResponse{Error: err.Error()}
	status := http.StatusBadRequest
	switch {
	case errors.As(err, &maxBytesErr):
		status = http.StatusRequestEntityTooLarge
		resp.Code = "body_too_large"
		resp.Error = fmt.Sprintf("request body exceeds limit of %d bytes", h.opts.MaxBodySize)
	case errors.As(err, &decodeErr):
		resp.Code = "invalid_json"
	case errors.Is(err, financing.ErrInvalidDownPayment):
		resp.Code = "invalid_down_payment"
		resp.Field = "downPaymentPercentage"
	case errors.As(err, &paramErr):
		resp.Code = "invalid_parameter"
		resp.Field = paramErr.Field
	case errors.As(err, &fieldErrs):
		resp.Code = "invalid_input"
		resp.Fields = fieldErrs
	case errors.Is(err, proposal.ErrNotFound):
		status = http.StatusNotFound
		resp.Code = "not_found"
	default:
		status = http.StatusInternalServerError
		resp.Code = "internal_error"
		resp.Error = "internal server error"
	}

	h.logFailure(status, resp.Code, err, op)
	h.writeJSON(w, status, resp)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, code, msg string, op string) {
	h.logFailure(status, code, errors.New(msg), op)
	h.writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func (h *handler) logFailure(status int, code string, err error, op string) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("code", code),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
		return
	}
	h.logger.Warn("request rejected", fields...)
}

// writeJSON encodes the payload before committing the status, so an encoding
// failure becomes a 500 instead of a truncated success.
func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		h.logger.Error("failed to encode JSON response",
			zap.String("op", "server.writeJSON"),
			zap.Int("status", status),
			zap.Error(err),
		)
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(errorResponse{Error: "internal server error", Code: "internal_error"})
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *handler) writeDocument(w http.ResponseWriter, status int, doc []byte, filename string, op string) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(status)
	if _, err := w.Write(doc); err != nil {
		h.logger.Error("failed to write document",
			zap.String("op", op),
			zap.Error(err),
		)
	}
}
