package store

import (
	"context"
	"errors"
	"testing"

	"github.com/rcliao/somi-flow/internal/model"
)

func TestCommitChain(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	b := seedBlock(t, s, "humming", 0, 2)

	ch, err := s.CommitChain(ctx, CommitChainParams{
		UserID:   "u1",
		FlowType: model.FlowDaily,
		CheckIns: []CheckInParams{
			{Kind: model.CheckInEntry, Embodiment: model.Embodiment{Energy: 30, Safety: 40}},
			{Kind: model.CheckInExit, Embodiment: model.Embodiment{Energy: 55, Safety: 70, Journal: "lighter", Tags: []string{"calm"}}},
		},
		Blocks: []BlockEntryParams{
			{BlockID: b.ID, ElapsedSeconds: 60, OrderIndex: 0, Section: model.SectionWarmUp},
			{BlockID: b.ID, ElapsedSeconds: 42, OrderIndex: 1, Section: model.SectionMain},
		},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(ch.CheckIns) != 2 || len(ch.Blocks) != 2 {
		t.Fatalf("expected 2 check-ins and 2 blocks, got %d/%d", len(ch.CheckIns), len(ch.Blocks))
	}

	got, err := s.GetChain(ctx, ch.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FlowType != model.FlowDaily || got.UserID != "u1" {
		t.Errorf("unexpected chain header: %+v", got)
	}
	if got.CheckIns[1].Journal != "lighter" || len(got.CheckIns[1].Tags) != 1 {
		t.Errorf("exit check-in not persisted: %+v", got.CheckIns[1])
	}
	if got.Blocks[1].ElapsedSeconds != 42 || got.Blocks[1].Section != model.SectionMain {
		t.Errorf("block entry not persisted: %+v", got.Blocks[1])
	}
}

func TestCommitChainIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CommitChain(ctx, CommitChainParams{
		UserID:   "u1",
		FlowType: model.FlowDaily,
		CheckIns: []CheckInParams{{Kind: model.CheckInEntry}},
		Blocks:   []BlockEntryParams{{BlockID: ""}}, // invalid
	})
	if err == nil {
		t.Fatal("expected error for missing block id")
	}

	chains, _ := s.ListChains(ctx, ListChainsParams{})
	if len(chains) != 0 {
		t.Errorf("expected no chains after failed commit, got %d", len(chains))
	}
}

func TestStreamingAppends(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ch, err := s.CreateChain(ctx, CreateChainParams{UserID: "u1", FlowType: model.FlowQuick})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.AppendCheckIn(ctx, ch.ID, CheckInParams{Kind: model.CheckInEntry, Embodiment: model.Embodiment{Energy: 20, Safety: 20}}); err != nil {
		t.Fatalf("append check-in: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.AppendBlock(ctx, ch.ID, BlockEntryParams{BlockID: "b", ElapsedSeconds: 60, OrderIndex: i, Section: model.SectionMain}); err != nil {
			t.Fatalf("append block: %v", err)
		}
	}

	got, _ := s.GetChain(ctx, ch.ID)
	if len(got.Blocks) != 3 || got.Blocks[2].OrderIndex != 2 {
		t.Errorf("expected 3 ordered blocks, got %+v", got.Blocks)
	}
}

func TestAppendToMissingChain(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AppendBlock(context.Background(), "missing", BlockEntryParams{BlockID: "b"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateChainInvalidFlowType(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateChain(context.Background(), CreateChainParams{UserID: "u", FlowType: "marathon"}); err == nil {
		t.Error("expected error for invalid flow type")
	}
}

func TestDeleteChainCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ch, _ := s.CommitChain(ctx, CommitChainParams{
		UserID: "u1", FlowType: model.FlowDaily,
		CheckIns: []CheckInParams{{Kind: model.CheckInEntry}},
		Blocks:   []BlockEntryParams{{BlockID: "b", OrderIndex: 0, Section: model.SectionMain}},
	})
	if err := s.DeleteChain(ctx, ch.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var n int
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM check_ins`).Scan(&n)
	if n != 0 {
		t.Errorf("expected check-ins cascaded, got %d", n)
	}
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM completed_blocks`).Scan(&n)
	if n != 0 {
		t.Errorf("expected completed blocks cascaded, got %d", n)
	}

	if err := s.DeleteChain(ctx, ch.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListChainsFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.CreateChain(ctx, CreateChainParams{UserID: "u1", FlowType: model.FlowQuick})
	s.CreateChain(ctx, CreateChainParams{UserID: "u1", FlowType: model.FlowDaily})
	s.CreateChain(ctx, CreateChainParams{UserID: "u2", FlowType: model.FlowDaily})

	u1, _ := s.ListChains(ctx, ListChainsParams{UserID: "u1"})
	if len(u1) != 2 {
		t.Errorf("expected 2 chains for u1, got %d", len(u1))
	}
	daily, _ := s.ListChains(ctx, ListChainsParams{FlowType: model.FlowDaily})
	if len(daily) != 2 {
		t.Errorf("expected 2 daily chains, got %d", len(daily))
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedBlock(t, s, "humming", 0, 2)
	s.CommitChain(ctx, CommitChainParams{
		UserID: "u1", FlowType: model.FlowDaily,
		Blocks: []BlockEntryParams{
			{BlockID: "b", ElapsedSeconds: 60, Section: model.SectionMain},
			{BlockID: "b", ElapsedSeconds: 30, OrderIndex: 1, Section: model.SectionMain},
		},
	})

	st, err := s.Stats(ctx, "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.ActiveBlocks != 1 || st.TotalChains != 1 || st.CompletedBlocks != 2 || st.PracticeSeconds != 90 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if len(st.FlowTypes) != 1 || st.FlowTypes[0].FlowType != "daily_flow" {
		t.Errorf("unexpected flow type stats: %+v", st.FlowTypes)
	}
}
