// AngelaMos | 2026
// dto.go

package tenant

import (
	"time"
)

type ProvisionRequest struct {
	IdentityID string        `json:"identityId" validate:"required,max=255"`
	User       UserProfile   `json:"user"       validate:"required"`
	Tenant     TenantProfile `json:"tenant"     validate:"required"`
}

type UserProfile struct {
	Email     string `json:"email"     validate:"required,email,max=255"`
	Username  string `json:"username"  validate:"omitempty,max=100"`
	FirstName string `json:"firstName" validate:"omitempty,max=100"`
	LastName  string `json:"lastName"  validate:"omitempty,max=100"`
}

type TenantProfile struct {
	CompanyName string `json:"companyName" validate:"required,min=2,max=100"`
	Subdomain   string `json:"subdomain"   validate:"required,min=3,max=30,subdomain"`
	Phone       string `json:"phone"       validate:"required,min=7,max=20"`
	Address     string `json:"address"     validate:"required,min=10,max=200"`
	City        string `json:"city"        validate:"omitempty,max=100"`
	Department  string `json:"department"  validate:"omitempty,max=100"`
	NIT         string `json:"nit"         validate:"required,min=8,max=15"`
}

// ProvisionResult is returned by Provision. Existing is set when the
// identity already owned a tenant and nothing was written.
type ProvisionResult struct {
	TenantID string `json:"tenantId"`
	UserID   string `json:"userId"`
	Existing bool   `json:"existing,omitempty"`
}

// UpdateProfileRequest edits the tenant profile. The subdomain is immutable.
type UpdateProfileRequest struct {
	Name       *string `json:"name"       validate:"omitempty,min=2,max=100"`
	Email      *string `json:"email"      validate:"omitempty,email,max=255"`
	Phone      *string `json:"phone"      validate:"omitempty,min=7,max=20"`
	Address    *string `json:"address"    validate:"omitempty,min=10,max=200"`
	City       *string `json:"city"       validate:"omitempty,max=100"`
	Department *string `json:"department" validate:"omitempty,max=100"`
	NIT        *string `json:"nit"        validate:"omitempty,min=8,max=15"`
}

type TenantResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Subdomain  string            `json:"subdomain"`
	Email      string            `json:"email"`
	Phone      string            `json:"phone"`
	Address    string            `json:"address"`
	City       string            `json:"city"`
	Department string            `json:"department"`
	NIT        string            `json:"nit"`
	Config     map[string]string `json:"config"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

func ToTenantResponse(t *Tenant, configs []SystemConfig) TenantResponse {
	cfg := make(map[string]string, len(configs))
	for _, c := range configs {
		cfg[c.Key] = c.Value
	}

	return TenantResponse{
		ID:         t.ID,
		Name:       t.Name,
		Subdomain:  t.Subdomain,
		Email:      t.Email,
		Phone:      t.Phone,
		Address:    t.Address,
		City:       t.City,
		Department: t.Department,
		NIT:        t.NIT,
		Config:     cfg,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

// MembershipResponse answers GET /v1/me/tenant. TenantID is null while
// onboarding is incomplete.
type MembershipResponse struct {
	TenantID   *string `json:"tenantId"`
	Onboarding bool    `json:"onboarding"`
}
