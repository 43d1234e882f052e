package wallet

import (
	"context"
	"fmt"
	"strings"

	"PumpDump/internal/domain/models"
	drepo "PumpDump/internal/domain/repository"

	"github.com/gagliardetto/solana-go"
)

const ProviderPhantom = "phantom"

// Handshake is what the browser sends after asking the wallet to sign Message.
type Handshake struct {
	Provider  string
	PublicKey string
	Message   string
	Signature string
	// Rejected is set when the user declined in the wallet popup.
	Rejected bool
}

// SignedProvider is a WalletProvider backed by a handshake the client already
// completed. Connect proves ownership of the public key by checking the ed25519
// signature over a message that must carry an unused challenge nonce.
type SignedProvider struct {
	hs     Handshake
	nonces *Challenges
}

// FromHandshake returns nil when the client reported no wallet at all.
func FromHandshake(hs Handshake, nonces *Challenges) drepo.WalletProvider {
	if strings.TrimSpace(hs.Provider) == "" {
		return nil
	}
	return &SignedProvider{hs: hs, nonces: nonces}
}

func (p *SignedProvider) IsPhantom() bool {
	return strings.EqualFold(strings.TrimSpace(p.hs.Provider), ProviderPhantom)
}

func (p *SignedProvider) Connect(_ context.Context) (string, error) {
	if p.hs.Rejected {
		return "", models.ErrUserRejected
	}
	if p.hs.Message == "" || p.hs.Signature == "" {
		return "", fmt.Errorf("%w: handshake is not signed", models.ErrUserRejected)
	}

	pk, err := solana.PublicKeyFromBase58(p.hs.PublicKey)
	if err != nil {
		return "", fmt.Errorf("%w: public key: %v", models.ErrUserRejected, err)
	}
	sig, err := solana.SignatureFromBase58(p.hs.Signature)
	if err != nil {
		return "", fmt.Errorf("%w: signature: %v", models.ErrUserRejected, err)
	}
	if !sig.Verify(pk, []byte(p.hs.Message)) {
		return "", fmt.Errorf("%w: signature does not match public key", models.ErrUserRejected)
	}
	if p.nonces == nil {
		return "", fmt.Errorf("%w: no challenge issuer", models.ErrUserRejected)
	}
	if err := p.nonces.Redeem(p.hs.Message); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrUserRejected, err)
	}
	return pk.String(), nil
}
