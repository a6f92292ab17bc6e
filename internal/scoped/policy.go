// AngelaMos | 2026
// policy.go

package scoped

import (
	"fmt"

	"github.com/carterperez-dev/templates/pos-backend/internal/config"
)

// RecreatePolicy decides what Create does when a soft-deleted row carries
// the same natural key as the payload.
type RecreatePolicy string

const (
	RecreateDuplicate RecreatePolicy = "duplicate"
	RecreateReject    RecreatePolicy = "reject"
	RecreateRestore   RecreatePolicy = "restore"
)

// RedeletePolicy decides what SoftDelete does with an already deleted row.
type RedeletePolicy string

const (
	RedeleteRestamp RedeletePolicy = "restamp"
	RedeleteReject  RedeletePolicy = "reject"
)

type Policy struct {
	Recreate RecreatePolicy
	Redelete RedeletePolicy
}

func DefaultPolicy() Policy {
	return Policy{Recreate: RecreateDuplicate, Redelete: RedeleteRestamp}
}

func PolicyFromConfig(cfg config.ScopedConfig) (Policy, error) {
	p := DefaultPolicy()

	switch RecreatePolicy(cfg.Recreate) {
	case "":
	case RecreateDuplicate, RecreateReject, RecreateRestore:
		p.Recreate = RecreatePolicy(cfg.Recreate)
	default:
		return p, fmt.Errorf("unknown recreate policy %q", cfg.Recreate)
	}

	switch RedeletePolicy(cfg.Redelete) {
	case "":
	case RedeleteRestamp, RedeleteReject:
		p.Redelete = RedeletePolicy(cfg.Redelete)
	default:
		return p, fmt.Errorf("unknown redelete policy %q", cfg.Redelete)
	}

	return p, nil
}
