package engine

import (
	"strings"

	"go.uber.org/zap"

	"github.com/fintel-group/report-extract/internal/model"
)

// SelectEntityUnits assigns parsed units to entities by substring match of
// the entity name over unit text. An entity matching nothing falls back to
// the whole document, since reports often name the subject only on the cover
// page. Returned units carry their entity tag; units may be shared between
// entities.
func SelectEntityUnits(units []model.TextUnit, entities []string) map[string][]model.TextUnit {
	out := make(map[string][]model.TextUnit, len(entities))

	for _, entity := range entities {
		var selected []model.TextUnit
		for _, u := range units {
			if strings.Contains(u.Text, entity) {
				selected = append(selected, u)
			}
		}
		if len(selected) == 0 {
			zap.L().Warn("no units mention entity, scanning whole document",
				zap.String("entity", entity),
				zap.Int("units", len(units)))
			selected = append(selected, units...)
		}

		tagged := make([]model.TextUnit, len(selected))
		for i, u := range selected {
			u.EntityTag = entity
			tagged[i] = u
		}
		out[entity] = tagged
	}

	return out
}
