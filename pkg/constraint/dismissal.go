package constraint

import "strings"

// AuthEvidenceDismissalThreshold is the fraction of a proposed
// constraint's evidence that must be auth-related before the engine
// dismisses it as untrustworthy (the crawl was unauthenticated, so
// 401/403 noise is expected rather than a real defect).
const AuthEvidenceDismissalThreshold = 0.5

var authRelatedTerms = []string{"401", "403", "unauthorized", "forbidden", "auth", "permission", "login", "session expired"}

// authRelatedRatio returns the fraction of evidence strings that look
// auth-related by substring match against authRelatedTerms.
func authRelatedRatio(evidence []string) float64 {
	if len(evidence) == 0 {
		return 0
	}
	matches := 0
	for _, e := range evidence {
		lower := strings.ToLower(e)
		for _, term := range authRelatedTerms {
			if strings.Contains(lower, term) {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(len(evidence))
}

// IsAuthRelated reports whether a proposed constraint itself names an
// auth-related category or description.
func IsAuthRelated(c *Constraint) bool {
	lower := strings.ToLower(c.Category + " " + c.Description)
	for _, term := range authRelatedTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// ShouldDismissForAuth reports whether a proposed constraint should be
// auto-dismissed because the crawl ran unauthenticated and either the
// constraint is itself auth-related, or its cited evidence is
// majority auth-related (>= AuthEvidenceDismissalThreshold).
func ShouldDismissForAuth(c *Constraint, crawlAuthenticated bool) bool {
	if crawlAuthenticated {
		return false
	}
	if IsAuthRelated(c) {
		return true
	}
	return authRelatedRatio(c.EvidenceFromCrawl) >= AuthEvidenceDismissalThreshold
}

// sensitiveCategoryKeywords gate auto-approval: a plan step whose
// description mentions one of these requires explicit operator unlock.
var sensitiveCategoryKeywords = []string{"auth", "security", "permissions", "database", "payments", "deletions", "credentials"}

// matchedSensitiveCategory returns the first sensitive-category keyword
// found in description, or "" if none match.
func matchedSensitiveCategory(description string) string {
	lower := strings.ToLower(description)
	for _, keyword := range sensitiveCategoryKeywords {
		if strings.Contains(lower, keyword) {
			return keyword
		}
	}
	return ""
}
