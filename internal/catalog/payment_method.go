// AngelaMos | 2026
// payment_method.go

package catalog

import (
	"github.com/carterperez-dev/templates/pos-backend/internal/scoped"
)

type PaymentType string

const (
	PaymentCash     PaymentType = "CASH"
	PaymentCard     PaymentType = "CARD"
	PaymentTransfer PaymentType = "TRANSFER"
)

type PaymentMethod struct {
	scoped.Base
	Name string      `db:"name" json:"name"`
	Type PaymentType `db:"type" json:"type"`
}

type PaymentMethodInput struct {
	Name string      `json:"name" validate:"required,min=1,max=100"`
	Type PaymentType `json:"type" validate:"required,oneof=CASH CARD TRANSFER"`
}

var PaymentMethodTable = scoped.Table[PaymentMethod, PaymentMethodInput]{
	Name:     "payment_methods",
	Resource: "payment method",
	Columns:  []string{"name", "type"},
	Values: func(in PaymentMethodInput) []any {
		return []any{in.Name, in.Type}
	},
	OrderBy:    "name",
	NaturalKey: "name",
	KeyOf:      func(in PaymentMethodInput) any { return in.Name },
}

var defaultPaymentMethods = []PaymentMethodInput{
	{Name: "Efectivo", Type: PaymentCash},
	{Name: "Tarjeta de Crédito", Type: PaymentCard},
	{Name: "Transferencia Bancaria", Type: PaymentTransfer},
}
