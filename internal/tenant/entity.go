// AngelaMos | 2026
// entity.go

package tenant

import (
	"time"
)

type Tenant struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Subdomain  string    `db:"subdomain"`
	Email      string    `db:"email"`
	Phone      string    `db:"phone"`
	Address    string    `db:"address"`
	City       string    `db:"city"`
	Department string    `db:"department"`
	NIT        string    `db:"nit"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type User struct {
	ID         string    `db:"id"`
	TenantID   string    `db:"tenant_id"`
	IdentityID string    `db:"external_identity_id"`
	Email      string    `db:"email"`
	Username   string    `db:"username"`
	FirstName  string    `db:"first_name"`
	LastName   string    `db:"last_name"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type ConfigType string

const (
	ConfigString ConfigType = "STRING"
	ConfigNumber ConfigType = "NUMBER"
)

type SystemConfig struct {
	ID        string     `db:"id"`
	TenantID  string     `db:"tenant_id"`
	Key       string     `db:"config_key"`
	Value     string     `db:"value"`
	Type      ConfigType `db:"type"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

const (
	ConfigCompanyName       = "company_name"
	ConfigNextInvoiceNumber = "next_invoice_number"
	ConfigInvoicePrefix     = "invoice_prefix"
	ConfigCurrency          = "currency"
	ConfigOverdueDays       = "overdue_days"
)
