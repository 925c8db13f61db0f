package savings

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sinoman/superapp/internal/platform/httpx"
	"github.com/sinoman/superapp/internal/rbac"
	"github.com/sinoman/superapp/internal/shared"
)

// Handler exposes the savings ledger over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

type postingRequest struct {
	MemberID       int64  `json:"member_id" validate:"required,gt=0"`
	Type           string `json:"type" validate:"required"`
	Category       string `json:"category" validate:"required"`
	Amount         string `json:"amount" validate:"required"`
	PaymentMethod  string `json:"payment_method" validate:"omitempty,oneof=cash transfer internal"`
	Description    string `json:"description" validate:"omitempty,max=255"`
	TargetMemberID *int64 `json:"target_member_id" validate:"omitempty,gt=0"`
}

type accountResponse struct {
	ID                int64   `json:"id"`
	MemberID          int64   `json:"member_id"`
	AccountNumber     string  `json:"account_number"`
	PokokBalance      string  `json:"pokok_balance"`
	WajibBalance      string  `json:"wajib_balance"`
	SukarelaBalance   string  `json:"sukarela_balance"`
	TotalBalance      string  `json:"total_balance"`
	TotalFormatted    string  `json:"total_formatted"`
	LastTransactionAt *string `json:"last_transaction_at,omitempty"`
}

type transactionResponse struct {
	ID            int64  `json:"id"`
	Code          string `json:"code"`
	MemberID      int64  `json:"member_id"`
	Type          string `json:"type"`
	Category      string `json:"category"`
	Amount        string `json:"amount"`
	BalanceBefore string `json:"balance_before"`
	BalanceAfter  string `json:"balance_after"`
	PaymentMethod string `json:"payment_method,omitempty"`
	Description   string `json:"description,omitempty"`
	Reference     string `json:"reference,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toAccountResponse(a Account) accountResponse {
	resp := accountResponse{
		ID:              a.ID,
		MemberID:        a.MemberID,
		AccountNumber:   a.AccountNumber,
		PokokBalance:    a.PokokBalance.String(),
		WajibBalance:    a.WajibBalance.String(),
		SukarelaBalance: a.SukarelaBalance.String(),
		TotalBalance:    a.TotalBalance.String(),
		TotalFormatted:  shared.FormatRupiah(a.TotalBalance),
	}
	if a.LastTransactionAt != nil {
		ts := a.LastTransactionAt.Format(time.RFC3339)
		resp.LastTransactionAt = &ts
	}
	return resp
}

func toTransactionResponse(t Transaction) transactionResponse {
	resp := transactionResponse{
		ID:            t.ID,
		Code:          t.Code,
		MemberID:      t.MemberID,
		Type:          string(t.Type),
		Category:      string(t.Category),
		Amount:        t.Amount.String(),
		BalanceBefore: t.BalanceBefore.String(),
		BalanceAfter:  t.BalanceAfter.String(),
		PaymentMethod: t.PaymentMethod,
		Description:   t.Description,
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
	}
	if t.Reference != uuid.Nil {
		resp.Reference = t.Reference.String()
	}
	return resp
}

// Post handles POST /postings for staff users.
func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	var req postingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Jumlah harus berupa angka")
		return
	}

	result, err := h.service.Post(r.Context(), PostingInput{
		MemberID:       req.MemberID,
		Type:           TransactionType(strings.ToUpper(req.Type)),
		Category:       Category(strings.ToUpper(req.Category)),
		Amount:         amount,
		PaymentMethod:  req.PaymentMethod,
		Description:    req.Description,
		TargetMemberID: req.TargetMemberID,
		CreatedBy:      actorID(r),
	})
	if err != nil {
		h.respondPostingError(w, err)
		return
	}

	body := map[string]any{
		"account":      toAccountResponse(result.Account),
		"transactions": toTransactionResponses(result.Transactions),
	}
	if result.TargetAccount != nil {
		body["target_account"] = toAccountResponse(*result.TargetAccount)
	}
	httpx.JSON(w, http.StatusCreated, body)
}

// ShowAccount handles GET /members/{memberID}/account.
func (h *Handler) ShowAccount(w http.ResponseWriter, r *http.Request) {
	memberID, ok := h.authorizeMemberAccess(w, r)
	if !ok {
		return
	}
	account, err := h.service.GetAccount(r.Context(), memberID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "Rekening simpanan tidak ditemukan")
			return
		}
		h.logger.Error("get account", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

// ListTransactions handles GET /members/{memberID}/transactions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	memberID, ok := h.authorizeMemberAccess(w, r)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	filters := ListFilters{Page: page, Limit: limit}
	if raw := r.URL.Query().Get("type"); raw != "" {
		trxType := TransactionType(strings.ToUpper(raw))
		if !trxType.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Jenis transaksi tidak dikenal")
			return
		}
		filters.Type = &trxType
	}
	if raw := r.URL.Query().Get("category"); raw != "" {
		category := Category(strings.ToUpper(raw))
		if !category.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Kategori simpanan tidak dikenal")
			return
		}
		filters.Category = &category
	}

	transactions, total, err := h.service.ListTransactions(r.Context(), memberID, filters)
	if err != nil {
		h.logger.Error("list transactions", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"transactions": toTransactionResponses(transactions),
		"pagination":   shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func toTransactionResponses(list []Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

// authorizeMemberAccess parses the member id from the URL and enforces that
// member-role users only read their own account. Staff may read any account.
func (h *Handler) authorizeMemberAccess(w http.ResponseWriter, r *http.Request) (int64, bool) {
	memberID, err := strconv.ParseInt(chi.URLParam(r, "memberID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid member id")
		return 0, false
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return 0, false
	}
	if strings.ToLower(sess.Role()) == rbac.RoleMember {
		own, err := strconv.ParseInt(sess.MemberID(), 10, 64)
		if err != nil || own != memberID {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "Akses hanya untuk rekening sendiri")
			return 0, false
		}
	}
	return memberID, true
}

func (h *Handler) respondPostingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Jumlah harus lebih dari nol")
	case errors.Is(err, ErrInvalidCategory):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Kategori simpanan tidak dikenal")
	case errors.Is(err, ErrInvalidType):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Jenis transaksi tidak dikenal")
	case errors.Is(err, ErrSelfTransfer):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Tidak dapat transfer ke anggota yang sama")
	case errors.Is(err, ErrForbiddenWithdrawal):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Posting Rejected", "Simpanan pokok tidak dapat ditarik")
	case errors.Is(err, ErrInsufficientFunds):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Posting Rejected", "Saldo tidak mencukupi")
	case errors.Is(err, ErrMemberInactive):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Posting Rejected", "Anggota tidak aktif")
	case errors.Is(err, ErrAccountNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Anggota tidak ditemukan")
	case errors.Is(err, ErrTargetNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Anggota tujuan transfer tidak ditemukan")
	default:
		h.logger.Error("post transaction", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// actorID resolves the acting user from the session for audit attribution.
func actorID(r *http.Request) int64 {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
