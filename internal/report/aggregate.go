package report

import (
	"oppreport/internal/integrations/devrev"
)

const StageClosedWon = "closed_won"
const StageClosedLost = "closed_lost"

// StageCounts is one owner's (or the global) win/loss tally.
type StageCounts struct {
	ClosedWon  int
	ClosedLost int
}

// WinCounts maps normalized owner names to closed-won counts, preserving
// first-seen order so chart output is deterministic.
type WinCounts struct {
	owners []string
	counts map[string]int
}

func (w *WinCounts) Owners() []string {
	return w.owners
}

func (w *WinCounts) Count(owner string) int {
	return w.counts[owner]
}

func (w *WinCounts) Len() int {
	return len(w.owners)
}

func (w *WinCounts) add(owner string) {
	if _, ok := w.counts[owner]; !ok {
		w.owners = append(w.owners, owner)
	}
	w.counts[owner]++
}

// OwnerStageCounts tallies wins and losses per owner plus mirrored global
// totals, in first-seen owner order.
type OwnerStageCounts struct {
	owners []string
	counts map[string]*StageCounts
	Global StageCounts
}

func (s *OwnerStageCounts) Owners() []string {
	return s.owners
}

func (s *OwnerStageCounts) Counts(owner string) StageCounts {
	if c, ok := s.counts[owner]; ok {
		return *c
	}
	return StageCounts{}
}

func (s *OwnerStageCounts) entry(owner string) *StageCounts {
	c, ok := s.counts[owner]
	if !ok {
		c = &StageCounts{}
		s.counts[owner] = c
		s.owners = append(s.owners, owner)
	}
	return c
}

// Aggregates bundles both breakdowns computed from one record set.
type Aggregates struct {
	Wins   *WinCounts
	Stages *OwnerStageCounts
}

// Aggregate computes both owner breakdowns in one pass. Pure; records
// without a primary owner are skipped silently.
func Aggregate(opps []devrev.Opportunity) Aggregates {
	wins := &WinCounts{counts: make(map[string]int)}
	stages := &OwnerStageCounts{counts: make(map[string]*StageCounts)}

	for _, opp := range opps {
		owner := opp.PrimaryOwner()
		if owner == "" {
			continue
		}
		entry := stages.entry(owner)
		switch opp.Stage.Name {
		case StageClosedWon:
			wins.add(owner)
			entry.ClosedWon++
			stages.Global.ClosedWon++
		case StageClosedLost:
			entry.ClosedLost++
			stages.Global.ClosedLost++
		}
	}
	return Aggregates{Wins: wins, Stages: stages}
}
