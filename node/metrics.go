// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package node

import (
	"time"

	"github.com/chain2/chain2/metrics"
)

var (
	metricBlockProcessedCount    = metrics.LazyLoadCounterVec("block_processed_count", []string{"status"})
	metricBlockProcessedDuration = metrics.LazyLoadHistogramVec(
		"block_processed_duration_ms", []string{"status"}, metrics.Bucket10s,
	)

	metricChainForkCount = metrics.LazyLoadCounter("chain_fork_count")
	metricChainForkSize  = metrics.LazyLoadGauge("chain_fork_size")
)

// evalBlockProcessMetrics captures block processing metrics.
func evalBlockProcessMetrics(f func() error) error {
	startTime := time.Now()

	if err := f(); err != nil {
		status := map[string]string{
			"status": "failed",
		}
		metricBlockProcessedCount().AddWithLabel(1, status)
		metricBlockProcessedDuration().ObserveWithLabels(time.Since(startTime).Milliseconds(), status)
		return err
	}

	status := map[string]string{
		"status": "processed",
	}
	metricBlockProcessedCount().AddWithLabel(1, status)
	metricBlockProcessedDuration().ObserveWithLabels(time.Since(startTime).Milliseconds(), status)
	return nil
}
