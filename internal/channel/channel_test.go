package channel

import "testing"

func TestWidth_DistinctSubOrdersAtMinExecOrder(t *testing.T) {
	groups := []Group{
		{ID: 0, ExecOrder: 0, SubOrder: 0, ProductLength: 3},
		{ID: 1, ExecOrder: 0, SubOrder: 1, ProductLength: 5},
		{ID: 2, ExecOrder: 1, SubOrder: 0, ProductLength: 0},
	}
	w, err := Width(groups)
	if err != nil {
		t.Fatal(err)
	}
	if w != 2 {
		t.Fatalf("width = %d, want 2", w)
	}
}

// TestSchedule_S3_ChannelMerge mirrors spec scenario S3: two channels
// at exec_order 0 merge into one at exec_order 1. With ranges 0-2 and
// 0-4 the channels carry 3 and 5 tasks respectively; the merged
// channel's id is min(0,1)=0 and its dependency set is both upstream
// groups.
func TestSchedule_S3_ChannelMerge(t *testing.T) {
	groups := []Group{
		{ID: 0, ExecOrder: 0, SubOrder: 0, ProductLength: 3},
		{ID: 1, ExecOrder: 0, SubOrder: 1, ProductLength: 5},
		{ID: 2, ExecOrder: 1, SubOrder: 0, ProductLength: 0},
	}
	ranges := []Range{
		{Start: 0, End: 3, Step: 1},
		{Start: 0, End: 5, Step: 1},
	}
	sched, err := Schedule(groups, ranges)
	if err != nil {
		t.Fatal(err)
	}
	if len(sched) != 3 {
		t.Fatalf("len(sched) = %d, want 3", len(sched))
	}

	byID := map[int]Scheduled{}
	for _, s := range sched {
		byID[s.Group.ID] = s
	}

	if len(byID[0].TaskIndices) != 3 {
		t.Errorf("group 0 task count = %d, want 3", len(byID[0].TaskIndices))
	}
	if len(byID[1].TaskIndices) != 5 {
		t.Errorf("group 1 task count = %d, want 5", len(byID[1].TaskIndices))
	}

	merged := byID[2]
	if merged.Channel != 0 {
		t.Errorf("merged channel id = %d, want 0 (min of parents)", merged.Channel)
	}
	if len(merged.TaskIndices) != 8 {
		t.Errorf("merged task count = %d, want 8 (3+5)", len(merged.TaskIndices))
	}
	wantDeps := map[int]bool{0: true, 1: true}
	if len(merged.DependsOn) != 2 || !wantDeps[merged.DependsOn[0]] || !wantDeps[merged.DependsOn[1]] {
		t.Errorf("merged deps = %v, want [0 1]", merged.DependsOn)
	}
}

func TestSchedule_OwnProductOverridesMergedCount(t *testing.T) {
	groups := []Group{
		{ID: 0, ExecOrder: 0, SubOrder: 0, ProductLength: 2},
		{ID: 1, ExecOrder: 0, SubOrder: 1, ProductLength: 2},
		{ID: 2, ExecOrder: 1, SubOrder: 0, ProductLength: 10},
	}
	sched, err := Schedule(groups, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range sched {
		if s.Group.ID == 2 && len(s.TaskIndices) != 10 {
			t.Errorf("group 2 task count = %d, want 10 (own product overrides merge)", len(s.TaskIndices))
		}
	}
}

func TestSchedule_RangeCountMismatch(t *testing.T) {
	groups := []Group{
		{ID: 0, ExecOrder: 0, SubOrder: 0, ProductLength: 3},
		{ID: 1, ExecOrder: 0, SubOrder: 1, ProductLength: 5},
	}
	_, err := Schedule(groups, []Range{{Start: 0, End: 1, Step: 1}})
	if err == nil {
		t.Fatal("expected range count mismatch error")
	}
}

func TestSchedule_ChannelSplitRejected(t *testing.T) {
	// Channel 1 present at exec_order 0 and 2, but absent at exec_order
	// 1 (only channel 0 survives there): this must be rejected.
	groups := []Group{
		{ID: 0, ExecOrder: 0, SubOrder: 0, ProductLength: 2},
		{ID: 1, ExecOrder: 0, SubOrder: 1, ProductLength: 2},
		{ID: 2, ExecOrder: 1, SubOrder: 0, ProductLength: 0},
		{ID: 3, ExecOrder: 2, SubOrder: 0, ProductLength: 0},
		{ID: 4, ExecOrder: 2, SubOrder: 1, ProductLength: 0},
	}
	_, err := Schedule(groups, nil)
	if err == nil {
		t.Fatal("expected channel-split rejection")
	}
}

func TestWidth_EmptyGroups(t *testing.T) {
	if _, err := Width(nil); err == nil {
		t.Fatal("expected error for empty group list")
	}
}
