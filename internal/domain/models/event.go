package models

import "time"

type EventType string

const (
	EventPriceChanged    EventType = "price_changed"
	EventVoteCast        EventType = "vote_cast"
	EventRoundResolved   EventType = "round_resolved"
	EventWalletConnected EventType = "wallet_connected"
)

func (t EventType) Valid() bool {
	switch t {
	case EventPriceChanged, EventVoteCast, EventRoundResolved, EventWalletConnected:
		return true
	}
	return false
}

// PriceCause tells which path changed the price.
type PriceCause string

const (
	CauseDrift PriceCause = "drift"
	CausePump  PriceCause = "pump"
	CauseDump  PriceCause = "dump"
)

// Event is a simulation fact handed to the event backend.
type Event struct {
	ID       string     `json:"id"`
	Type     EventType  `json:"type"`
	Round    int        `json:"round"`
	RoundID  string     `json:"round_id"`
	Price    float64    `json:"price"`
	Growth   float64    `json:"growth"`
	Pump     int        `json:"pump"`
	Dump     int        `json:"dump"`
	Outcome  Outcome    `json:"outcome,omitempty"`
	Option   VoteOption `json:"option,omitempty"`
	Cause    PriceCause `json:"cause,omitempty"`
	Identity string     `json:"identity,omitempty"`
	At       time.Time  `json:"at"`
}

// EventFilter narrows history queries.
type EventFilter struct {
	Type  EventType
	Since time.Time
	Limit int
}
