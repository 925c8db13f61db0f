package members

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sinoman/superapp/internal/platform/httpx"
	"github.com/sinoman/superapp/internal/shared"
)

// Handler exposes the member registry over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type memberResponse struct {
	ID           int64  `json:"id"`
	MemberNumber string `json:"member_number"`
	FullName     string `json:"full_name"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone"`
	Address      string `json:"address,omitempty"`
	Status       string `json:"status"`
	JoinedAt     string `json:"joined_at"`
}

func toResponse(m Member) memberResponse {
	return memberResponse{
		ID:           m.ID,
		MemberNumber: m.MemberNumber,
		FullName:     m.FullName,
		Email:        m.Email,
		Phone:        m.Phone,
		Address:      m.Address,
		Status:       string(m.Status),
		JoinedAt:     m.JoinedAt.Format(time.RFC3339),
	}
}

func toResponses(list []Member) []memberResponse {
	out := make([]memberResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toResponse(m))
	}
	return out
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	filters := ListFilters{
		Page:   page,
		Limit:  limit,
		Search: r.URL.Query().Get("search"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := MemberStatus(raw)
		if status != MemberStatusActive && status != MemberStatusInactive {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "status must be ACTIVE or INACTIVE")
			return
		}
		filters.Status = &status
	}

	result, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list members", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"members":    toResponses(result),
		"pagination": shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}
	member, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "get member", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(member))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "body must be valid JSON")
		return
	}
	member, err := h.service.Register(r.Context(), actorID(r), in)
	if err != nil {
		h.respondServiceError(w, "register member", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(member))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "body must be valid JSON")
		return
	}
	member, err := h.service.Update(r.Context(), actorID(r), id, in)
	if err != nil {
		h.respondServiceError(w, "update member", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(member))
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}
	if err := h.service.Deactivate(r.Context(), actorID(r), id); err != nil {
		h.respondServiceError(w, "deactivate member", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Reactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}
	if err := h.service.Reactivate(r.Context(), actorID(r), id); err != nil {
		h.respondServiceError(w, "reactivate member", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) memberID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid member id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", shared.UserSafeMessage(err))
	case errors.Is(err, httpx.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
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
