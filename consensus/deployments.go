// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package consensus

import (
	"sort"

	"github.com/chain2/chain2/cache"
	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/chain2"
)

// ThresholdState is the stage a tracked deployment has reached on a
// particular chain.
type ThresholdState uint8

const (
	Defined ThresholdState = iota
	Started
	LockedIn
	Active
	Failed
)

func (s ThresholdState) String() string {
	switch s {
	case Defined:
		return "defined"
	case Started:
		return "started"
	case LockedIn:
		return "locked_in"
	case Active:
		return "active"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// thresholdEntry is the computed state at one window boundary block.
type thresholdEntry struct {
	State ThresholdState
	// Since is the boundary height the state was entered at, SinceMTP the
	// median-time-past there. Together they time the locked-in grace.
	Since    uint32
	SinceMTP uint64
}

type stateKey struct {
	name     string
	boundary chain2.Bytes32
}

const stateCacheLimit = 8192

// DeploymentTracker evaluates the per-deployment signaling state machine.
//
// State is a pure function of (deployment, window boundary block), so a
// reorg needs no rollback: states on the new chain are simply computed
// from its own boundaries, and the cache keyed by boundary block id keeps
// entries of abandoned chains from ever being confused with them.
type DeploymentTracker struct {
	repo   *chain.Repository
	params *chain2.Params
	cache  *cache.LRU
}

// NewDeploymentTracker create a DeploymentTracker instance.
func NewDeploymentTracker(repo *chain.Repository, params *chain2.Params) *DeploymentTracker {
	c, _ := cache.NewLRU(stateCacheLimit)
	return &DeploymentTracker{
		repo:   repo,
		params: params,
		cache:  c,
	}
}

// StateOf returns the state of the named deployment for a block whose
// parent is parentID. Enforcement therefore lags signaling by one window:
// a window's tally only affects blocks built after its boundary.
func (t *DeploymentTracker) StateOf(name string, parentID chain2.Bytes32) (ThresholdState, error) {
	dep, ok := t.params.Deployments[name]
	if !ok {
		return Defined, errUnknownDeployment(name)
	}
	entry, err := t.stateAt(name, &dep, parentID)
	if err != nil {
		return Defined, err
	}
	return entry.State, nil
}

type errUnknownDeployment string

func (e errUnknownDeployment) Error() string {
	return "unknown deployment: " + string(e)
}

// stateAt computes the state entry at the last window boundary at or below
// the block parentID. Boundary blocks sit at heights k*window-1; blocks of
// the genesis window have no boundary below them and are Defined.
func (t *DeploymentTracker) stateAt(name string, dep *chain2.Deployment, parentID chain2.Bytes32) (thresholdEntry, error) {
	window := dep.WindowSize

	parent, err := t.repo.GetBlockSummary(parentID)
	if err != nil {
		return thresholdEntry{}, err
	}

	num := parent.Number()
	if (num+1)%window != 0 {
		back := (num + 1) % window
		if back > num {
			return thresholdEntry{State: Defined}, nil
		}
		if parent, err = t.ancestor(parent, num-back); err != nil {
			return thresholdEntry{}, err
		}
	}

	// walk boundaries back to a cached or terminal entry
	var toCompute []*chain.BlockSummary
	var entry thresholdEntry
	for {
		key := stateKey{name, parent.ID()}
		if v, ok := t.cache.Get(key); ok {
			entry = v.(thresholdEntry)
			break
		}

		mtp, err := t.repo.MedianTimePast(parent.ID())
		if err != nil {
			return thresholdEntry{}, err
		}
		if mtp < dep.StartTime {
			// everything below here is defined; anchor the unwind
			entry = thresholdEntry{State: Defined, Since: parent.Number()}
			break
		}

		toCompute = append(toCompute, parent)
		if parent.Number()+1 == window {
			entry = thresholdEntry{State: Defined}
			break
		}
		if parent, err = t.ancestor(parent, parent.Number()-window); err != nil {
			return thresholdEntry{}, err
		}
	}

	// unwind forward, applying one transition per boundary
	for i := len(toCompute) - 1; i >= 0; i-- {
		boundary := toCompute[i]
		next, err := t.advance(dep, entry, boundary)
		if err != nil {
			return thresholdEntry{}, err
		}
		entry = next
		t.cache.Add(stateKey{name, boundary.ID()}, entry)
	}
	return entry, nil
}

// advance applies the state transition evaluated at the given boundary.
func (t *DeploymentTracker) advance(dep *chain2.Deployment, prev thresholdEntry, boundary *chain.BlockSummary) (thresholdEntry, error) {
	mtp, err := t.repo.MedianTimePast(boundary.ID())
	if err != nil {
		return thresholdEntry{}, err
	}

	switch prev.State {
	case Defined:
		if mtp >= dep.Timeout {
			return thresholdEntry{State: Failed, Since: boundary.Number(), SinceMTP: mtp}, nil
		}
		if mtp >= dep.StartTime {
			return thresholdEntry{State: Started, Since: boundary.Number(), SinceMTP: mtp}, nil
		}
	case Started:
		if mtp >= dep.Timeout {
			return thresholdEntry{State: Failed, Since: boundary.Number(), SinceMTP: mtp}, nil
		}
		count, err := t.countSignals(dep, boundary)
		if err != nil {
			return thresholdEntry{}, err
		}
		if count >= dep.Threshold {
			return thresholdEntry{State: LockedIn, Since: boundary.Number(), SinceMTP: mtp}, nil
		}
	case LockedIn:
		// grace: both minimums must have passed since the lock-in boundary
		if boundary.Number()-prev.Since >= dep.MinLockedBlocks && mtp-prev.SinceMTP >= dep.MinLockedTime {
			return thresholdEntry{State: Active, Since: boundary.Number(), SinceMTP: mtp}, nil
		}
	case Active, Failed:
		// terminal
	}
	return prev, nil
}

// countSignals tallies blocks signaling the deployment bit in the window
// ending at (and including) the boundary block.
func (t *DeploymentTracker) countSignals(dep *chain2.Deployment, boundary *chain.BlockSummary) (uint32, error) {
	var count uint32
	walk := boundary
	for i := uint32(0); i < dep.WindowSize; i++ {
		if walk.Header.SignalsBit(dep.Bit) {
			count++
		}
		if i+1 < dep.WindowSize {
			var err error
			if walk, err = t.repo.GetBlockSummary(walk.Header.ParentID()); err != nil {
				return 0, err
			}
		}
	}
	return count, nil
}

func (t *DeploymentTracker) ancestor(from *chain.BlockSummary, num uint32) (*chain.BlockSummary, error) {
	walk := from
	for walk.Number() > num {
		var err error
		if walk, err = t.repo.GetBlockSummary(walk.Header.ParentID()); err != nil {
			return nil, err
		}
	}
	return walk, nil
}

// NextVersion returns the version word a miner building on parentID
// should use: the packed top bits plus the bit of every deployment still
// soliciting signals.
func (t *DeploymentTracker) NextVersion(parentID chain2.Bytes32) (uint32, error) {
	version := chain2.VersionTopBits
	for name := range t.params.Deployments {
		dep := t.params.Deployments[name]
		entry, err := t.stateAt(name, &dep, parentID)
		if err != nil {
			return 0, err
		}
		if entry.State == Started || entry.State == LockedIn {
			version |= 1 << dep.Bit
		}
	}
	return version, nil
}

// DeploymentStatus is the queryable status of one deployment on a chain.
type DeploymentStatus struct {
	Name      string         `json:"name"`
	Bit       uint8          `json:"bit"`
	StartTime uint64         `json:"startTime"`
	Timeout   uint64         `json:"timeout"`
	State     ThresholdState `json:"-"`
	Status    string         `json:"status"`
	Since     uint32         `json:"since"`
}

// Status reports every tracked deployment's state for a block whose
// parent is parentID, sorted by name.
func (t *DeploymentTracker) Status(parentID chain2.Bytes32) ([]DeploymentStatus, error) {
	statuses := make([]DeploymentStatus, 0, len(t.params.Deployments))
	for name := range t.params.Deployments {
		dep := t.params.Deployments[name]
		entry, err := t.stateAt(name, &dep, parentID)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, DeploymentStatus{
			Name:      name,
			Bit:       dep.Bit,
			StartTime: dep.StartTime,
			Timeout:   dep.Timeout,
			State:     entry.State,
			Status:    entry.State.String(),
			Since:     entry.Since,
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses, nil
}
