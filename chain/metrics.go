// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package chain

import "github.com/chain2/chain2/metrics"

var (
	metricCacheHitMiss  = metrics.LazyLoadGaugeVec("repo_cache_hit_miss_count", []string{"type", "event"})
	metricBestNumber    = metrics.LazyLoadGauge("repo_best_block_number_gauge")
	metricReorgedBlocks = metrics.LazyLoadCounter("repo_reorged_blocks_count")
)
