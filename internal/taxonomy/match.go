package taxonomy

import (
	"strings"

	"github.com/anatomy-twin-server/internal/domain"
)

// ContainsAny reports whether text contains any keyword, ignoring case.
func ContainsAny(text string, keywords []string) bool {
	if text == "" || len(keywords) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// AnyContainsAny is ContainsAny over several candidate texts.
func AnyContainsAny(keywords []string, texts ...string) bool {
	for _, t := range texts {
		if ContainsAny(t, keywords) {
			return true
		}
	}
	return false
}

// Relevance grades a region from its total match count. A patient with
// conditions on record but none touching the region still rates low.
func Relevance(total, conditionsOnRecord int) domain.RelevanceLevel {
	switch {
	case total >= 3:
		return domain.RelevanceHigh
	case total >= 1:
		return domain.RelevanceMedium
	case conditionsOnRecord > 0:
		return domain.RelevanceLow
	default:
		return domain.RelevanceNone
	}
}
