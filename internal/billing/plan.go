package billing

import "strings"

// planSuffixes are stripped from the end of a billing plan name, most
// specific first.
var planSuffixes = []string{" - inbound", " - outbound", "inbound", "outbound"}

// NormalizePlan collapses a raw billing plan name into its canonical base
// form: direction suffixes removed, "&" spelled out as AND, spaces removed,
// uppercased. "Voice & Data - Inbound" becomes "VOICEANDDATA".
func NormalizePlan(plan string) string {
	s := strings.ToLower(plan)
	for _, suffix := range planSuffixes {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSuffix(s, suffix)
			break
		}
	}
	s = strings.TrimRight(s, " ")
	s = strings.ReplaceAll(s, "&", "and")
	s = strings.ReplaceAll(s, " ", "")
	return strings.ToUpper(s)
}

// PlanWithDirection returns the normalized plan name with a direction
// suffix re-attached from the call flow: "-IN" for inbound, "-OUT" for
// outbound, bare base name otherwise.
func PlanWithDirection(plan, direction string) string {
	base := NormalizePlan(plan)
	switch direction {
	case "out":
		return base + "-OUT"
	case "in":
		return base + "-IN"
	default:
		return base
	}
}
