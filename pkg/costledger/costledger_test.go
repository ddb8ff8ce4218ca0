package costledger

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharge_AccumulatesAndComputesCost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cost-ledger.json")
	l, err := Open(path, map[string]Rate{"default": {InputPerToken: 0.01, OutputPerToken: 0.02}}, nil)
	require.NoError(t, err)

	cost, err := l.Charge("default", 100, 50)
	require.NoError(t, err)
	assert.Equal(t, 2.0, cost) // 100*0.01 + 50*0.02
	assert.Equal(t, 2.0, l.Spent())
}

func TestRemaining_FloorsAtZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cost-ledger.json")
	l, err := Open(path, map[string]Rate{"default": {InputPerToken: 1, OutputPerToken: 1}}, nil)
	require.NoError(t, err)

	_, err = l.Charge("default", 100, 0)
	require.NoError(t, err)

	assert.Equal(t, 0.0, l.Remaining(50))
	assert.Equal(t, 50.0, l.Remaining(150))
}

func TestOpen_ReloadsPersistedSpend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cost-ledger.json")
	rates := map[string]Rate{"default": {InputPerToken: 0.01, OutputPerToken: 0.01}}

	l1, err := Open(path, rates, nil)
	require.NoError(t, err)
	_, err = l1.Charge("default", 10, 10)
	require.NoError(t, err)

	l2, err := Open(path, rates, nil)
	require.NoError(t, err)
	assert.Equal(t, l1.Spent(), l2.Spent())
}

func TestCharge_FallsBackToDefaultRateForUnknownModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cost-ledger.json")
	l, err := Open(path, map[string]Rate{"default": {InputPerToken: 1, OutputPerToken: 1}}, nil)
	require.NoError(t, err)

	cost, err := l.Charge("some-unlisted-model", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 5.0, cost)
}

func TestOpen_RegistersPrometheusGauge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cost-ledger.json")
	reg := prometheus.NewRegistry()
	_, err := Open(path, nil, reg)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "elon_cost_ledger_spent_usd" {
			found = true
		}
	}
	assert.True(t, found)
}
