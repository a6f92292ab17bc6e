// AngelaMos | 2026
// category.go

package catalog

import (
	"github.com/carterperez-dev/templates/pos-backend/internal/scoped"
)

type Category struct {
	scoped.Base
	Name        string  `db:"name"        json:"name"`
	Description *string `db:"description" json:"description"`
}

type CategoryInput struct {
	Name        string  `json:"name"        validate:"required,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

var CategoryTable = scoped.Table[Category, CategoryInput]{
	Name:     "categories",
	Resource: "category",
	Columns:  []string{"name", "description"},
	Values: func(in CategoryInput) []any {
		return []any{in.Name, in.Description}
	},
	OrderBy:    "name",
	NaturalKey: "name",
	KeyOf:      func(in CategoryInput) any { return in.Name },
}

func describe(s string) *string { return &s }

var defaultCategories = []CategoryInput{
	{Name: "Whisky", Description: describe("Whisky nacional e importado")},
	{Name: "Ron", Description: describe("Ron nacional e importado")},
	{Name: "Vodka", Description: describe("Vodka nacional e importado")},
	{Name: "Cerveza", Description: describe("Cervezas nacionales e importadas")},
	{Name: "Vino", Description: describe("Vinos nacionales e importados")},
}
