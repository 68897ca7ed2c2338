package usecase

import (
	"sort"

	"telegram-fleet/internal/domain/model"
)

// DrawRole samples an account role by cumulative probability: keys are
// ordered, weights accumulated, and the first key whose accumulated weight
// reaches u wins. Weights must sum to <= 1.0; an unmatched draw (or an empty
// distribution) defaults to observer.
func DrawRole(dist map[model.AccountRole]float64, u float64) model.AccountRole {
	if len(dist) == 0 {
		return model.RoleObserver
	}
	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	acc := 0.0
	for _, k := range keys {
		acc += dist[model.AccountRole(k)]
		if acc >= u {
			return model.AccountRole(k)
		}
	}
	return model.RoleObserver
}
