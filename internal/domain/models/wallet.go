package models

import (
	"fmt"
	"time"
)

// WalletConnection is the identity established by a successful handshake.
type WalletConnection struct {
	PublicKey   string    `json:"public_key"`
	Provider    string    `json:"provider"`
	ConnectedAt time.Time `json:"connected_at"`
}

// ConnectLabel renders "Connected: " with the first and last four characters
// of the address.
func ConnectLabel(address string) string {
	head, tail := address, address
	if len(address) > 4 {
		head = address[:4]
		tail = address[len(address)-4:]
	}
	return fmt.Sprintf("Connected: %s...%s", head, tail)
}
