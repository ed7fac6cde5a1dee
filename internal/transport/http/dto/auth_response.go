package dto

import (
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// AuthResponse is the login body; tokens only travel as cookies.
type AuthResponse struct {
	Email        string   `json:"email"`
	Roles        []string `json:"roles"`
	IsActive     bool     `json:"isActive"`
	IsFirstLogin bool     `json:"isFirstLogin"`
}

func NewAuthResponse(res auth.AuthResult) AuthResponse {
	return AuthResponse{
		Email:        res.Email,
		Roles:        nonNil(res.Roles),
		IsActive:     res.IsActive,
		IsFirstLogin: res.IsFirstLogin,
	}
}

type AccountResponse struct {
	ID                int64      `json:"id"`
	Identifier        string     `json:"identifier"`
	FullName          string     `json:"fullName"`
	Email             string     `json:"email"`
	PhoneNumber       string     `json:"phoneNumber"`
	IsActive          bool       `json:"isActive"`
	IsDefaultPassword bool       `json:"isDefaultPassword"`
	LastLogin         *time.Time `json:"lastLogin"`
	Roles             []string   `json:"roles"`
}

func NewAccountResponse(v auth.AccountView) AccountResponse {
	return AccountResponse{
		ID:                v.ID,
		Identifier:        v.Identifier,
		FullName:          v.FullName,
		Email:             v.Email,
		PhoneNumber:       v.PhoneNumber,
		IsActive:          v.IsActive,
		IsDefaultPassword: v.IsDefaultPassword,
		LastLogin:         v.LastLogin,
		Roles:             nonNil(v.Roles),
	}
}

// NewRegisteredResponse describes a freshly created account.
func NewRegisteredResponse(u domain.User, roles []string) AccountResponse {
	return AccountResponse{
		ID:                u.ID,
		Identifier:        u.Identifier,
		FullName:          u.FullName,
		Email:             u.Email,
		PhoneNumber:       u.PhoneNumber,
		IsActive:          u.IsActive,
		IsDefaultPassword: u.IsDefaultPassword,
		LastLogin:         u.LastLogin,
		Roles:             nonNil(roles),
	}
}

type RoleSyncResponse struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

func NewRoleSyncResponse(r auth.RoleSyncResult) RoleSyncResponse {
	return RoleSyncResponse{Added: nonNil(r.Added), Removed: nonNil(r.Removed)}
}

type StatusResponse struct {
	IsActive bool `json:"isActive"`
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

type PageResp[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"pageNumber"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

func NewAccountPageResponse(p auth.AccountPage) PageResp[AccountResponse] {
	items := make([]AccountResponse, 0, len(p.Items))
	for _, v := range p.Items {
		items = append(items, NewAccountResponse(v))
	}
	return PageResp[AccountResponse]{Items: items, Page: p.Page, PageSize: p.PageSize, Total: p.Total}
}
