package models

// VoteRequest is the body of POST /api/votes.
type VoteRequest struct {
	Option string `json:"option" validate:"required,oneof=pump dump"`
}

// ConnectRequest is the signed wallet handshake posted by the browser.
type ConnectRequest struct {
	Provider  string `json:"provider"`
	PublicKey string `json:"public_key" validate:"omitempty,max=64"`
	Message   string `json:"message" validate:"max=512"`
	Signature string `json:"signature" validate:"max=128"`
	Rejected  bool   `json:"rejected"`
}

type EventsRequest struct {
	Type  string `query:"type" json:"type" validate:"omitempty,oneof=price_changed vote_cast round_resolved wallet_connected"`
	Since string `query:"since" json:"since"`
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}

// ConnectResponse is returned after a successful wallet connect.
type ConnectResponse struct {
	Connection WalletConnection `json:"connection"`
	Label      string           `json:"label"`
}

type HealthResponse struct {
	Status      string            `json:"status"`
	Round       int               `json:"round,omitempty"`
	Subscribers int               `json:"subscribers"`
	Checks      map[string]string `json:"checks,omitempty"`
}
