package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldDismissForAuth_DismissesAuthCategoryWhenUnauthenticated(t *testing.T) {
	c := &Constraint{Category: "auth", Description: "login redirects incorrectly"}
	assert.True(t, ShouldDismissForAuth(c, false))
}

func TestShouldDismissForAuth_NeverDismissesWhenAuthenticated(t *testing.T) {
	c := &Constraint{Category: "auth", Description: "login redirects incorrectly"}
	assert.False(t, ShouldDismissForAuth(c, true))
}

func TestShouldDismissForAuth_DismissesOnMajorityAuthEvidence(t *testing.T) {
	c := &Constraint{
		Category:          "other",
		Description:       "checkout is slow",
		EvidenceFromCrawl: []string{"401 on /cart", "403 on /checkout", "slow response on /cart"},
	}
	assert.True(t, ShouldDismissForAuth(c, false))
}

func TestShouldDismissForAuth_KeepsWhenMinorityAuthEvidence(t *testing.T) {
	c := &Constraint{
		Category:          "performance",
		Description:       "checkout is slow",
		EvidenceFromCrawl: []string{"slow response on /cart", "slow response on /checkout", "401 on /admin"},
	}
	assert.False(t, ShouldDismissForAuth(c, false))
}

func TestMatchedSensitiveCategory_DetectsKeyword(t *testing.T) {
	assert.Equal(t, "database", matchedSensitiveCategory("add a migration to the database schema"))
	assert.Equal(t, "", matchedSensitiveCategory("fix a typo in the README"))
}
