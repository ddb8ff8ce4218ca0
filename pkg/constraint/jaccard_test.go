package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaccardSimilarity_IdenticalStringsAreOne(t *testing.T) {
	assert.Equal(t, 1.0, jaccardSimilarity("the login page is broken", "the login page is broken"))
}

func TestJaccardSimilarity_DisjointStringsAreZero(t *testing.T) {
	assert.Equal(t, 0.0, jaccardSimilarity("alpha beta", "gamma delta"))
}

func TestIsNearDuplicate_DetectsAboveThreshold(t *testing.T) {
	isDup, match := IsNearDuplicate("the signup form rejects valid emails", []string{"the signup form rejects valid email addresses"})
	assert.True(t, isDup)
	assert.NotEmpty(t, match)
}

func TestIsNearDuplicate_FalseBelowThreshold(t *testing.T) {
	isDup, _ := IsNearDuplicate("the signup form rejects valid emails", []string{"the checkout page times out on mobile"})
	assert.False(t, isDup)
}
