package models

import "time"

// Display is the formatted state shown to a user.
type Display struct {
	Countdown       string    `json:"countdown"`
	Price           string    `json:"price"`
	PriceValue      float64   `json:"price_value"`
	Growth          string    `json:"growth"`
	PumpPct         string    `json:"pump_pct"`
	DumpPct         string    `json:"dump_pct"`
	PumpVotes       int       `json:"pump_votes"`
	DumpVotes       int       `json:"dump_votes"`
	ConnectLabel    string    `json:"connect_label"`
	ConnectDisabled bool      `json:"connect_disabled"`
	Identity        string    `json:"identity,omitempty"`
	Round           int       `json:"round"`
	RoundID         string    `json:"round_id"`
	Active          bool      `json:"active"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type NoticeKind string

const (
	NoticeNoVotes             NoticeKind = "no_votes"
	NoticePumpWins            NoticeKind = "pump_wins"
	NoticeDumpWins            NoticeKind = "dump_wins"
	NoticeNotConnected        NoticeKind = "not_connected"
	NoticeVotingClosed        NoticeKind = "voting_closed"
	NoticeAlreadyVoted        NoticeKind = "already_voted"
	NoticeProviderUnavailable NoticeKind = "provider_unavailable"
)

// Notice is a blocking user-facing message.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}

const (
	MsgNoVotes          = "No votes were cast. Price remains unchanged."
	MsgPumpWins         = "Pump wins! Price will continue to rise."
	MsgDumpWins         = "Dump wins! Early voters share profits."
	MsgNotConnected     = "Please connect your wallet to vote."
	MsgVotingClosed     = "Voting is currently closed. Wait for the next round."
	MsgAlreadyVoted     = "You have already voted this round."
	MsgProviderMissing  = "Phantom Wallet not detected. Please install it."
	MsgProviderNotKnown = "Please install Phantom Wallet."
	ConnectLabelIdle    = "Connect Wallet"
)
