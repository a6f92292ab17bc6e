// AngelaMos | 2026
// catalog.go

// Package catalog binds the tenant reference entities (categories, payment
// methods and units of measure) to the scoped repository.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/pos-backend/internal/core"
	"github.com/carterperez-dev/templates/pos-backend/internal/scoped"
)

type Catalog struct {
	Categories     *scoped.Service[Category, CategoryInput]
	PaymentMethods *scoped.Service[PaymentMethod, PaymentMethodInput]
	UnitMeasures   *scoped.Service[UnitMeasure, UnitMeasureInput]

	categories     *scoped.Repository[Category, CategoryInput]
	paymentMethods *scoped.Repository[PaymentMethod, PaymentMethodInput]
	unitMeasures   *scoped.Repository[UnitMeasure, UnitMeasureInput]
}

func New(db *core.Database, cfg scoped.ServiceConfig) *Catalog {
	c := &Catalog{
		categories:     scoped.NewRepository(db, CategoryTable),
		paymentMethods: scoped.NewRepository(db, PaymentMethodTable),
		unitMeasures:   scoped.NewRepository(db, UnitMeasureTable),
	}

	c.Categories = scoped.NewService(c.categories, cfg)
	c.PaymentMethods = scoped.NewService(c.paymentMethods, cfg)
	c.UnitMeasures = scoped.NewService(c.unitMeasures, cfg)

	return c
}

func (c *Catalog) RegisterRoutes(r chi.Router, authenticator func(http.Handler) http.Handler) {
	scoped.NewHandler(c.Categories).RegisterRoutes(r, "/categories", authenticator)
	scoped.NewHandler(c.PaymentMethods).RegisterRoutes(r, "/payment-methods", authenticator)
	scoped.NewHandler(c.UnitMeasures).RegisterRoutes(r, "/unit-measures", authenticator)
}

// Seed inserts the default reference rows of a new tenant through db,
// normally the provisioning transaction.
func (c *Catalog) Seed(ctx context.Context, db core.DBTX, tenantID string, at time.Time) error {
	for _, in := range defaultPaymentMethods {
		if err := c.paymentMethods.Insert(ctx, db, uuid.NewString(), tenantID, in, at); err != nil {
			return fmt.Errorf("seed payment methods: %w", err)
		}
	}

	for _, in := range defaultUnitMeasures {
		if err := c.unitMeasures.Insert(ctx, db, uuid.NewString(), tenantID, in, at); err != nil {
			return fmt.Errorf("seed unit measures: %w", err)
		}
	}

	for _, in := range defaultCategories {
		if err := c.categories.Insert(ctx, db, uuid.NewString(), tenantID, in, at); err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
	}

	return nil
}
