// AngelaMos | 2026
// unit_measure.go

package catalog

import (
	"github.com/carterperez-dev/templates/pos-backend/internal/scoped"
)

type UnitMeasure struct {
	scoped.Base
	Name         string `db:"name"         json:"name"`
	Abbreviation string `db:"abbreviation" json:"abbreviation"`
}

type UnitMeasureInput struct {
	Name         string `json:"name"         validate:"required,min=1,max=100"`
	Abbreviation string `json:"abbreviation" validate:"required,min=1,max=10"`
}

var UnitMeasureTable = scoped.Table[UnitMeasure, UnitMeasureInput]{
	Name:     "unit_measures",
	Resource: "unit measure",
	Columns:  []string{"name", "abbreviation"},
	Values: func(in UnitMeasureInput) []any {
		return []any{in.Name, in.Abbreviation}
	},
	OrderBy:    "name",
	NaturalKey: "abbreviation",
	KeyOf:      func(in UnitMeasureInput) any { return in.Abbreviation },
}

var defaultUnitMeasures = []UnitMeasureInput{
	{Name: "Unidad", Abbreviation: "UN"},
	{Name: "Litro", Abbreviation: "L"},
	{Name: "Botella", Abbreviation: "BOT"},
	{Name: "Caja", Abbreviation: "CJ"},
}
