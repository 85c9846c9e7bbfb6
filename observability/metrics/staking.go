package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type StakingMetrics struct {
	operations       *prometheus.CounterVec
	withdrawRejected *prometheus.CounterVec
	withdrawnTotal   prometheus.Counter
	depositedTotal   prometheus.Counter
	activePositions  *prometheus.GaugeVec
}

var (
	stakingOnce     sync.Once
	stakingRegistry *StakingMetrics
)

// Staking returns the lazily registered staking collectors.
func Staking() *StakingMetrics {
	stakingOnce.Do(func() {
		stakingRegistry = &StakingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stakeledger",
				Subsystem: "staking",
				Name:      "operations_total",
				Help:      "Count of staking operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			withdrawRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stakeledger",
				Subsystem: "staking",
				Name:      "withdraw_rejected_total",
				Help:      "Count of rejected withdrawals by reason.",
			}, []string{"reason"}),
			withdrawnTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "stakeledger",
				Subsystem: "staking",
				Name:      "withdrawn_tokens_total",
				Help:      "Tokens released from custody by successful withdrawals.",
			}),
			depositedTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "stakeledger",
				Subsystem: "staking",
				Name:      "deposited_tokens_total",
				Help:      "Tokens moved into custody by deposits.",
			}),
			activePositions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "stakeledger",
				Subsystem: "staking",
				Name:      "active_positions",
				Help:      "Active positions held by a stake account after its last mutation.",
			}, []string{"account"}),
		}
		prometheus.MustRegister(
			stakingRegistry.operations,
			stakingRegistry.withdrawRejected,
			stakingRegistry.withdrawnTotal,
			stakingRegistry.depositedTotal,
			stakingRegistry.activePositions,
		)
	})
	return stakingRegistry
}

// ObserveOperation records the outcome of a staking operation. Outcome is
// "ok" or a short error class.
func (m *StakingMetrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	if outcome == "" {
		outcome = "ok"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *StakingMetrics) ObserveWithdrawRejected(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.withdrawRejected.WithLabelValues(reason).Inc()
}

func (m *StakingMetrics) AddWithdrawn(amount uint64) {
	if m == nil {
		return
	}
	m.withdrawnTotal.Add(float64(amount))
}

func (m *StakingMetrics) AddDeposited(amount uint64) {
	if m == nil {
		return
	}
	m.depositedTotal.Add(float64(amount))
}

func (m *StakingMetrics) SetActivePositions(account string, count int) {
	if m == nil {
		return
	}
	m.activePositions.WithLabelValues(account).Set(float64(count))
}

// ForgetAccount drops the per-account series of a closed stake account.
func (m *StakingMetrics) ForgetAccount(account string) {
	if m == nil {
		return
	}
	m.activePositions.DeleteLabelValues(account)
}
