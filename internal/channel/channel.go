// Package channel implements the channel scheduler from spec.md §4.4:
// channel width derivation, task-range application, channel merging,
// and the cross-group dependency sets the submission controller turns
// into scheduler hold-dependencies.
//
// "Channel" is this package's name for spec.md's sub_order-derived
// execution lane, kept separate from the store's persisted
// CommandGroup.SubOrder attribute per DESIGN NOTES §9 ("historically
// conflated ... this spec fixes sub_order as the stored attribute and
// channel as the derived identity").
package channel

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrRangeCountMismatch is returned when the number of supplied
	// task ranges does not equal the workflow's channel width (and is
	// not the empty "all" sentinel).
	ErrRangeCountMismatch = errors.New("task range count must equal channel width or be empty")

	// ErrRangeOutOfBounds is returned when a supplied range exceeds a
	// channel's value-product length.
	ErrRangeOutOfBounds = errors.New("task range out of bounds")

	// ErrChannelSplit is returned when a declaration has a channel
	// absent at some exec_order and present again later (spec.md §9
	// Open Question: this spec forbids it).
	ErrChannelSplit = errors.New("channel split: a channel reappeared after being absent")

	// ErrEmptyChannelSet is returned when an exec_order level has no
	// channels at all, and when the sub_order values at the first
	// exec_order level are not contiguous from 0.
	ErrEmptyChannelSet = errors.New("exec_order level has no channels")
)

// Group is the subset of a CommandGroup's attributes the channel
// scheduler needs: its position in the exec/sub order grid and the
// length of its own variable-product (L_c in spec.md §4.4), which the
// resolver computes independently and the caller plugs in here.
type Group struct {
	ID        int
	ExecOrder int
	SubOrder  int
	// ProductLength is this group's own resolved variable-product
	// length, used when it overrides the row count a pure channel
	// merge would otherwise produce (spec.md §4.4 point 4).
	ProductLength int
	// DeclarationOrder breaks exec/sub-order ties (spec.md §4.4 "Tie-
	// breaking ... by sub_order ascending, then declaration order").
	DeclarationOrder int
}

// Range is one (start, end, step) task-range tuple, one per channel
// at exec_order=0 (spec.md §4.4 point 2). End == -1 means "to the end
// of the channel". Step == 0 means step 1.
type Range struct {
	Start, End, Step int
}

// indices normalizes End/Step and returns the list of selected
// indices within [0, length).
func (r Range) indices(length int) ([]int, error) {
	step := r.Step
	if step == 0 {
		step = 1
	}
	end := r.End
	if end < 0 {
		end = length
	}
	if r.Start < 0 || r.Start > length || end > length {
		return nil, fmt.Errorf("%w: start=%d end=%d length=%d", ErrRangeOutOfBounds, r.Start, r.End, length)
	}
	var out []int
	for i := r.Start; i < end; i += step {
		out = append(out, i)
	}
	return out, nil
}

// Scheduled is one command group's derived execution plan.
type Scheduled struct {
	Group       Group
	Channel     int
	TaskIndices []int
	DependsOn   []int // group IDs whose completion gates this group
}

// Width returns C0, the channel width: the count of distinct SubOrder
// values among groups at the minimum ExecOrder (spec.md §4.4 point 1).
func Width(groups []Group) (int, error) {
	if len(groups) == 0 {
		return 0, ErrEmptyChannelSet
	}
	minExec := groups[0].ExecOrder
	for _, g := range groups {
		if g.ExecOrder < minExec {
			minExec = g.ExecOrder
		}
	}
	seen := map[int]bool{}
	for _, g := range groups {
		if g.ExecOrder == minExec {
			seen[g.SubOrder] = true
		}
	}
	if len(seen) == 0 {
		return 0, ErrEmptyChannelSet
	}
	return len(seen), nil
}

// Schedule computes the ordered execution plan for an entire
// workflow's command groups, applying ranges (or "all" when ranges is
// empty), channel merging, and dependency derivation.
func Schedule(groups []Group, ranges []Range) ([]Scheduled, error) {
	if len(groups) == 0 {
		return nil, ErrEmptyChannelSet
	}
	c0, err := Width(groups)
	if err != nil {
		return nil, err
	}
	if len(ranges) != 0 && len(ranges) != c0 {
		return nil, fmt.Errorf("%w: got %d ranges, channel width is %d", ErrRangeCountMismatch, len(ranges), c0)
	}

	levels := groupByExecOrder(groups)

	// Per-channel state carried from one exec_order level to the next,
	// keyed by channel id after merge.
	channelTaskCounts := map[int]int{} // channel id -> current task count flowing along it
	channelLastGroup := map[int]int{}  // channel id -> group ID of the most recent group on that channel
	everPresent := map[int]bool{}
	retired := map[int]bool{}

	var scheduled []Scheduled

	for levelIdx, level := range levels {
		subOrders := distinctSortedSubOrders(level)
		if levelIdx == 0 {
			// exec_order 0: sub_order IS the channel id (1:1).
			for i, so := range subOrders {
				if i != so {
					return nil, fmt.Errorf("%w: sub_order values at exec_order 0 must be contiguous from 0", ErrEmptyChannelSet)
				}
			}
			for _, g := range level {
				var idx []int
				var rng Range
				if len(ranges) == c0 {
					rng = ranges[g.SubOrder]
				} else {
					rng = Range{Start: 0, End: -1, Step: 1}
				}
				length := g.ProductLength
				idx, err = rng.indices(length)
				if err != nil {
					return nil, err
				}
				channelTaskCounts[g.SubOrder] = len(idx)
				channelLastGroup[g.SubOrder] = g.ID
				everPresent[g.SubOrder] = true
				scheduled = append(scheduled, Scheduled{Group: g, Channel: g.SubOrder, TaskIndices: idx, DependsOn: nil})
			}
			continue
		}

		prevChannels := liveChannels(channelTaskCounts)
		if len(subOrders) > len(prevChannels) {
			return nil, fmt.Errorf("%w: exec_order level %d introduces more channels (%d) than the previous level had (%d)", ErrChannelSplit, levelIdx, len(subOrders), len(prevChannels))
		}

		// Partition the previous live channels (in ascending id order)
		// into len(subOrders) contiguous blocks, one per new channel,
		// covering the full previous set (spec.md §4.4 point 4: a
		// channel merge's id is the min of its parents').
		blocks := partition(prevChannels, len(subOrders))

		newChannelTaskCounts := map[int]int{}
		newChannelLastGroup := map[int]int{}
		newPresent := map[int]bool{}

		for i, so := range subOrders {
			groupsAtSO := groupsWithSubOrder(level, so)
			if len(groupsAtSO) != 1 {
				return nil, fmt.Errorf("exec_order level %d, sub_order %d: expected exactly one command group, got %d", levelIdx, so, len(groupsAtSO))
			}
			g := groupsAtSO[0]
			parents := blocks[i]
			channelID := min(parents)
			if retired[channelID] {
				return nil, fmt.Errorf("%w: channel %d", ErrChannelSplit, channelID)
			}

			var taskCount int
			var deps []int
			if len(parents) == 1 {
				taskCount = channelTaskCounts[parents[0]]
				deps = []int{channelLastGroup[parents[0]]}
			} else {
				for _, p := range parents {
					taskCount += channelTaskCounts[p]
					deps = append(deps, channelLastGroup[p])
				}
			}
			if g.ProductLength > 0 {
				taskCount = g.ProductLength
			}

			idx := make([]int, taskCount)
			for t := range idx {
				idx[t] = t
			}

			sort.Ints(deps)
			newChannelTaskCounts[channelID] = taskCount
			newChannelLastGroup[channelID] = g.ID
			newPresent[channelID] = true
			everPresent[channelID] = true

			scheduled = append(scheduled, Scheduled{Group: g, Channel: channelID, TaskIndices: idx, DependsOn: deps})
		}

		for id := range everPresent {
			if !newPresent[id] {
				retired[id] = true
			}
		}
		channelTaskCounts = newChannelTaskCounts
		channelLastGroup = newChannelLastGroup
	}

	sort.SliceStable(scheduled, func(i, j int) bool {
		a, b := scheduled[i].Group, scheduled[j].Group
		if a.ExecOrder != b.ExecOrder {
			return a.ExecOrder < b.ExecOrder
		}
		if a.SubOrder != b.SubOrder {
			return a.SubOrder < b.SubOrder
		}
		return a.DeclarationOrder < b.DeclarationOrder
	})

	return scheduled, nil
}

func groupByExecOrder(groups []Group) [][]Group {
	byExec := map[int][]Group{}
	for _, g := range groups {
		byExec[g.ExecOrder] = append(byExec[g.ExecOrder], g)
	}
	var orders []int
	for k := range byExec {
		orders = append(orders, k)
	}
	sort.Ints(orders)
	levels := make([][]Group, 0, len(orders))
	for _, o := range orders {
		level := byExec[o]
		sort.Slice(level, func(i, j int) bool {
			if level[i].SubOrder != level[j].SubOrder {
				return level[i].SubOrder < level[j].SubOrder
			}
			return level[i].DeclarationOrder < level[j].DeclarationOrder
		})
		levels = append(levels, level)
	}
	return levels
}

func distinctSortedSubOrders(level []Group) []int {
	seen := map[int]bool{}
	var out []int
	for _, g := range level {
		if !seen[g.SubOrder] {
			seen[g.SubOrder] = true
			out = append(out, g.SubOrder)
		}
	}
	sort.Ints(out)
	return out
}

func groupsWithSubOrder(level []Group, so int) []Group {
	var out []Group
	for _, g := range level {
		if g.SubOrder == so {
			out = append(out, g)
		}
	}
	return out
}

func liveChannels(counts map[int]int) []int {
	var ids []int
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// partition splits ids (already sorted ascending) into n contiguous
// blocks as evenly as possible, covering every id exactly once.
func partition(ids []int, n int) [][]int {
	if n <= 0 {
		return nil
	}
	blocks := make([][]int, n)
	base := len(ids) / n
	rem := len(ids) % n
	pos := 0
	for i := 0; i < n; i++ {
		size := base
		if i < rem {
			size++
		}
		blocks[i] = append([]int(nil), ids[pos:pos+size]...)
		pos += size
	}
	return blocks
}

func min(xs []int) int {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}
