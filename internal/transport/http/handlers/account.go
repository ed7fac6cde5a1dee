package http_handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
)

// AccountHandler serves the SuperAdmin account administration routes.
type AccountHandler struct {
	svc *auth.Service
}

func NewAccountHandler(svc *auth.Service) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// Register handles POST /.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Check(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	u, err := h.svc.Register(r.Context(), auth.RegisterInput{
		Identifier:  req.Identifier,
		FullName:    req.FullName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
		Roles:       req.Roles,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Created(w, "account created", dto.NewRegisteredResponse(u, req.Roles))
}

// Update handles PUT /{id}.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	var req dto.UpdateAccountRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Check(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	view, err := h.svc.UpdateAccount(r.Context(), id, auth.UpdateAccountInput{
		Identifier:  req.Identifier,
		FullName:    req.FullName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Roles:       req.Roles,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, "account updated", dto.NewAccountResponse(view))
}

// UpdateRoles handles PUT /{id}/roles with the complete desired set.
func (h *AccountHandler) UpdateRoles(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	var req dto.UpdateRolesRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Check(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.SynchronizeRoles(r.Context(), id, req.Roles)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, "roles updated", dto.NewRoleSyncResponse(res))
}

// ToggleStatus handles PUT /{id}/status.
func (h *AccountHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	active, err := h.svc.ToggleActive(r.Context(), id)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, "status updated", dto.StatusResponse{IsActive: active})
}

// List handles GET /: back-office accounts, paged.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := parsePage(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.ListAccounts(r.Context(), page, pageSize)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, "", dto.NewAccountPageResponse(res))
}

// Search handles GET /search?name=&identifier=.
func (h *AccountHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := parsePage(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	q := r.URL.Query()
	res, err := h.svc.SearchAccounts(r.Context(), auth.AccountSearch{
		Name:       q.Get("name"),
		Identifier: q.Get("identifier"),
	}, page, pageSize)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, "", dto.NewAccountPageResponse(res))
}

// Get handles GET /{id}.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	view, err := h.svc.GetAccount(r.Context(), id)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, "", dto.NewAccountResponse(view))
}

func parseID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrValidation(map[string]string{"id": "must be a positive integer"})
	}
	return id, nil
}

// parsePage reads pageNumber and pageSize; absent values fall back to the
// service defaults.
func parsePage(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	bad := map[string]string{}

	read := func(key string) int {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			bad[key] = "must be a positive integer"
			return 0
		}
		return n
	}

	page, pageSize := read("pageNumber"), read("pageSize")
	if len(bad) > 0 {
		return 0, 0, domain.ErrValidation(bad)
	}
	return page, pageSize, nil
}
