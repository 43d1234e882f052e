package models

import (
	"math"
	"time"
)

// VoteOption is the side a vote is cast for.
type VoteOption string

const (
	VotePump VoteOption = "pump"
	VoteDump VoteOption = "dump"
)

func (o VoteOption) Valid() bool {
	return o == VotePump || o == VoteDump
}

// Outcome of a resolved round.
type Outcome string

const (
	OutcomeNone Outcome = "none"
	OutcomePump Outcome = "pump"
	OutcomeDump Outcome = "dump"
)

// RoundState tracks the countdown. Active is false only while a round resolves.
type RoundState struct {
	Number           int       `json:"number"`
	ID               string    `json:"id"`
	RemainingSeconds int       `json:"remaining_seconds"`
	Active           bool      `json:"active"`
	StartedAt        time.Time `json:"started_at"`
}

// VoteTally counts votes of the current round.
type VoteTally struct {
	Pump  int
	Dump  int
	voted map[string]struct{}
}

func NewVoteTally() VoteTally {
	return VoteTally{voted: make(map[string]struct{})}
}

func (t VoteTally) Total() int { return t.Pump + t.Dump }

func (t VoteTally) HasVoted(identity string) bool {
	_, ok := t.voted[identity]
	return ok
}

func (t *VoteTally) Add(identity string, option VoteOption) {
	if t.voted == nil {
		t.voted = make(map[string]struct{})
	}
	switch option {
	case VotePump:
		t.Pump++
	case VoteDump:
		t.Dump++
	}
	t.voted[identity] = struct{}{}
}

// Reset clears counters and the identity set.
func (t *VoteTally) Reset() {
	t.Pump, t.Dump = 0, 0
	t.voted = make(map[string]struct{})
}

// Percentages returns round-half-up shares of pump and dump, both 0 when no votes.
func (t VoteTally) Percentages() (pump, dump int) {
	total := t.Total()
	if total == 0 {
		return 0, 0
	}
	pump = int(math.Floor(100*float64(t.Pump)/float64(total) + 0.5))
	dump = int(math.Floor(100*float64(t.Dump)/float64(total) + 0.5))
	return pump, dump
}

// Outcome decides the round result. Ties go to dump.
func (t VoteTally) Outcome() Outcome {
	switch {
	case t.Total() == 0:
		return OutcomeNone
	case t.Pump > t.Dump:
		return OutcomePump
	default:
		return OutcomeDump
	}
}

// PriceState holds the simulated price. Current never drops below Floor.
type PriceState struct {
	Current float64 `json:"current"`
	Floor   float64 `json:"floor"`
}

// Clamp raises Current to Floor if it fell below.
func (p *PriceState) Clamp() {
	if p.Current < p.Floor {
		p.Current = p.Floor
	}
}

// Growth is the percentage change from the floor.
func (p PriceState) Growth() float64 {
	if p.Floor == 0 {
		return 0
	}
	return (p.Current - p.Floor) / p.Floor * 100
}
