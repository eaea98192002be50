package enhancer

import (
	"strings"

	"github.com/rajasatyajit/ProtectLife/pkg/utils"
)

const (
	// MaxLength is the longest description Normalize returns, in characters
	MaxLength = 200
	// shortThreshold is the length under which a contextual sentence is added
	shortThreshold = 50
)

const (
	suffixAccident = ". Situation nécessitant l'intervention des services d'urgence."
	suffixFire     = ". Risque d'extension possible, éviter la zone."
	suffixDefault  = ". Signalement en cours de vérification."
)

var fireKeywords = []string{"feu", "incendie"}

// Normalize cleans up a report description without calling the remote model:
// whitespace is collapsed, the first letter capitalized, a contextual sentence
// appended to short descriptions and the result capped at MaxLength.
func Normalize(title, description string) string {
	enhanced := utils.CapitalizeFirst(utils.CollapseSpaces(description))

	if utils.RuneLen(enhanced) < shortThreshold {
		enhanced += suffixFor(title)
	}

	return utils.Truncate(enhanced, MaxLength)
}

func suffixFor(title string) string {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "accident"):
		return suffixAccident
	case utils.ContainsAny(lower, fireKeywords):
		return suffixFire
	default:
		return suffixDefault
	}
}
