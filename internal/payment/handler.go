package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/employease/employease-api/internal/httputil"
	"github.com/employease/employease-api/internal/logging"
)

// IdempotencyHeader is the request header that makes intent creation replay-safe
const IdempotencyHeader = "Idempotency-Key"

// Handler contains HTTP handlers for the payment flow
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Price accepts a JSON number or a numeric string
type Price float64

func (p *Price) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return fmt.Errorf("%w: price is null", ErrInvalidAmount)
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, raw)
	}
	*p = Price(v)
	return nil
}

type CreateIntentRequest struct {
	Price Price `json:"price" swaggertype:"number"`
}

type CreateIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// RecordRequest is a completed payment as reported by the web client
type RecordRequest struct {
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	EmployeeID    *uuid.UUID `json:"employeeId"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	Month         string     `json:"month"`
	Year          int        `json:"year"`
	TransactionID string     `json:"transactionId"`
	PaidAt        *time.Time `json:"paidAt"`
}

// CreateIntent handles payment intent creation
// @Summary      Create a payment intent
// @Description  Create a card-only intent for price (currency units) and return its client secret.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Replay-safe key"
// @Param        request body CreateIntentRequest true "Price"
// @Success      200 {object} CreateIntentResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse
// @Failure      502 {object} httputil.ErrorResponse
// @Router       /create-payment-intent [post]
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			logger.Warn("payment intent rejected: invalid amount", "error", err.Error())
			httputil.RespondErrorWithCode(w, ErrInvalidAmount.Error(), httputil.CodeInvalidAmount, http.StatusBadRequest)
			return
		}
		logger.Warn("invalid payment intent request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	secret, err := h.service.CreatePaymentIntent(r.Context(), float64(req.Price), key)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			logger.Warn("payment intent rejected: invalid amount", "price", float64(req.Price))
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidAmount, http.StatusBadRequest)
		case errors.Is(err, ErrIdempotencyConflict):
			logger.Warn("payment intent rejected: idempotency conflict")
			httputil.RespondErrorWithCode(w, ErrIdempotencyConflict.Error(), httputil.CodeIdempotencyConflict, http.StatusConflict)
		case errors.Is(err, ErrGateway):
			logger.Error("payment intent failed: gateway error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "payment gateway unavailable", httputil.CodeGatewayError, http.StatusBadGateway)
		default:
			logger.Error("payment intent failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to create payment intent", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	httputil.RespondJSON(w, CreateIntentResponse{ClientSecret: secret}, http.StatusOK)
}

// Record handles ledger writes
// @Summary      Record a payment
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body RecordRequest true "Payment"
// @Success      201 {object} Record
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      422 {object} httputil.ErrorResponse
// @Failure      502 {object} httputil.ErrorResponse
// @Router       /payments [post]
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid payment record body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	rec := &Record{
		Email:         req.Email,
		Name:          req.Name,
		EmployeeID:    req.EmployeeID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Month:         req.Month,
		Year:          req.Year,
		TransactionID: req.TransactionID,
	}
	if req.PaidAt != nil {
		rec.PaidAt = *req.PaidAt
	}

	stored, err := h.service.RecordPayment(r.Context(), rec)
	if err != nil {
		switch {
		case errors.Is(err, ErrTransactionRequired):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeTransactionRequired, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidAmount):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidAmount, http.StatusBadRequest)
		case errors.Is(err, ErrIntentNotSettled):
			logger.Warn("payment record rejected", "transaction_id", req.TransactionID, "error", err.Error())
			httputil.RespondErrorWithCode(w, ErrIntentNotSettled.Error(), httputil.CodeIntentNotSettled, http.StatusUnprocessableEntity)
		case errors.Is(err, ErrAlreadyRecorded):
			logger.Warn("duplicate payment record", "transaction_id", req.TransactionID)
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeAlreadyRecorded, http.StatusConflict)
		case errors.Is(err, ErrGateway):
			logger.Error("payment record failed: gateway error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "payment gateway unavailable", httputil.CodeGatewayError, http.StatusBadGateway)
		default:
			logger.Error("payment record failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to record payment", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	httputil.RespondJSON(w, stored, http.StatusCreated)
}

// History returns the caller's payments
// @Summary      Payment history
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        email path string true "Caller email"
// @Success      200 {array} Record
// @Failure      401 {object} httputil.ErrorResponse
// @Failure      403 {object} httputil.ErrorResponse
// @Router       /payments/{email} [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.History(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to load payment history", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to load payments", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}
	httputil.RespondJSON(w, records, http.StatusOK)
}
