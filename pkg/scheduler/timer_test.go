package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_AddRunLoop_RegistersCronEntry(t *testing.T) {
	sched, _ := newTestScheduler(t, &scriptedOracle{})
	timer := NewTimer(sched)

	id, err := timer.AddRunLoop("*/5 * * * *", 3, 5.0, 1.0)
	require.NoError(t, err)
	assert.NotZero(t, id)
}

func TestTimer_AddRunLoop_RejectsMalformedExpression(t *testing.T) {
	sched, _ := newTestScheduler(t, &scriptedOracle{})
	timer := NewTimer(sched)

	_, err := timer.AddRunLoop("not a cron expr", 3, 5.0, 1.0)
	assert.Error(t, err)
}
