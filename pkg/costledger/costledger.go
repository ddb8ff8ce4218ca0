// Package costledger tracks monetary spend against the oracle across a
// run. The interface is what the Scheduler and Spec Executor charge calls
// against; FileLedger is the reference implementation, persisting its running
// total to a JSON file under the data directory so spend survives a
// process restart.
package costledger

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jhmac/elon/internal/fsatomic"
	"github.com/prometheus/client_golang/prometheus"
)

// Rate is the USD cost per token for one model, split by input/output
// since most providers price them asymmetrically.
type Rate struct {
	InputPerToken  float64
	OutputPerToken float64
}

// DefaultRates is a conservative built-in rate table, used when Open is
// given a nil rates map.
var DefaultRates = map[string]Rate{
	"default": {InputPerToken: 0.000003, OutputPerToken: 0.000015},
}

// Ledger is the CostLedger interface the rest of the system charges calls
// against.
type Ledger interface {
	// Charge records one oracle call's token usage and returns its cost.
	Charge(model string, inputTokens, outputTokens int) (float64, error)
	// Spent returns total USD spent so far.
	Spent() float64
	// Remaining returns budgetMax minus Spent, floored at zero.
	Remaining(budgetMax float64) float64
}

// entry is one charged call, kept for the ledger's on-disk audit trail.
type entry struct {
	Model        string    `json:"model"`
	InputTokens  int       `json:"inputTokens"`
	OutputTokens int       `json:"outputTokens"`
	Cost         float64   `json:"cost"`
	At           time.Time `json:"at"`
}

type state struct {
	Entries []entry `json:"entries"`
	Total   float64 `json:"total"`
}

// FileLedger is a JSON-file-backed Ledger, safe for concurrent use.
type FileLedger struct {
	mu    sync.Mutex
	path  string
	rates map[string]Rate
	state state

	spendGauge prometheus.Gauge
}

// Open loads path if it exists, or starts a fresh ledger otherwise, and
// registers a `elon_cost_ledger_spent_usd` gauge on registerer (nil skips
// registration, e.g. in tests).
func Open(path string, rates map[string]Rate, registerer prometheus.Registerer) (*FileLedger, error) {
	if rates == nil {
		rates = DefaultRates
	}
	l := &FileLedger{
		path:  path,
		rates: rates,
		spendGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "elon_cost_ledger_spent_usd",
			Help: "Total USD spent against the oracle, including spend reloaded from the ledger file.",
		}),
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &l.state); err != nil {
			return nil, fmt.Errorf("costledger: decoding %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("costledger: reading %s: %w", path, err)
	}

	if registerer != nil {
		registerer.MustRegister(l.spendGauge)
	}
	l.spendGauge.Set(l.state.Total)

	return l, nil
}

// Charge records a call's usage, persists the updated ledger, and returns
// its cost in USD.
func (l *FileLedger) Charge(model string, inputTokens, outputTokens int) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rate, ok := l.rates[model]
	if !ok {
		rate = l.rates["default"]
	}
	cost := float64(inputTokens)*rate.InputPerToken + float64(outputTokens)*rate.OutputPerToken

	l.state.Entries = append(l.state.Entries, entry{
		Model: model, InputTokens: inputTokens, OutputTokens: outputTokens,
		Cost: cost, At: time.Now(),
	})
	l.state.Total += cost
	l.spendGauge.Set(l.state.Total)

	if err := l.persist(); err != nil {
		return cost, fmt.Errorf("costledger: persisting charge: %w", err)
	}
	return cost, nil
}

// Spent returns total USD spent so far.
func (l *FileLedger) Spent() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Total
}

// Remaining returns budgetMax minus Spent, floored at zero.
func (l *FileLedger) Remaining(budgetMax float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := budgetMax - l.state.Total
	if r < 0 {
		return 0
	}
	return r
}

func (l *FileLedger) persist() error {
	data, err := json.MarshalIndent(l.state, "", "  ")
	if err != nil {
		return err
	}
	return fsatomic.WriteFile(l.path, data, 0o644)
}
