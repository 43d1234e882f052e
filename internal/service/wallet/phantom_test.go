package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"PumpDump/internal/domain/models"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
)

func sign(t *testing.T, key solana.PrivateKey, msg string) Handshake {
	t.Helper()
	sig, err := key.Sign([]byte(msg))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return Handshake{
		Provider:  "Phantom",
		PublicKey: key.PublicKey().String(),
		Message:   msg,
		Signature: sig.String(),
	}
}

func newKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("NewRandomPrivateKey: %v", err)
	}
	return key
}

func TestFromHandshakeWithoutProvider(t *testing.T) {
	nonces := NewChallenges(clockwork.NewFakeClock(), time.Minute, 0)
	if p := FromHandshake(Handshake{}, nonces); p != nil {
		t.Errorf("FromHandshake(empty) = %v, want nil", p)
	}
	if p := FromHandshake(Handshake{Provider: "solflare"}, nonces); p == nil || p.IsPhantom() {
		t.Errorf("solflare provider should exist and not be phantom")
	}
}

func TestSignedProviderVerifiesSignature(t *testing.T) {
	nonces := NewChallenges(clockwork.NewFakeClock(), time.Minute, 0)
	hs := sign(t, newKey(t), nonces.Issue().Message)
	p := FromHandshake(hs, nonces)
	if !p.IsPhantom() {
		t.Fatal("Phantom provider not recognised")
	}

	key, err := p.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if key != hs.PublicKey {
		t.Errorf("key = %q, want %q", key, hs.PublicKey)
	}
	if nonces.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 after redeem", nonces.Pending())
	}
}

func TestSignedProviderRejectsReplay(t *testing.T) {
	nonces := NewChallenges(clockwork.NewFakeClock(), time.Minute, 0)
	hs := sign(t, newKey(t), nonces.Issue().Message)

	if _, err := FromHandshake(hs, nonces).Connect(context.Background()); err != nil {
		t.Fatalf("first Connect: %v", err)
	}
	_, err := FromHandshake(hs, nonces).Connect(context.Background())
	if !errors.Is(err, models.ErrUserRejected) {
		t.Errorf("replayed handshake err = %v, want ErrUserRejected", err)
	}
}

func TestSignedProviderDeclines(t *testing.T) {
	clock := clockwork.NewFakeClock()
	nonces := NewChallenges(clock, time.Minute, 0)
	key := newKey(t)
	good := sign(t, key, nonces.Issue().Message)
	other := sign(t, newKey(t), good.Message)

	foreign := NewChallenges(clock, time.Minute, 0)
	unknown := sign(t, key, foreign.Issue().Message)
	noNonce := sign(t, key, "hello from an unrelated dapp, signed last year")

	expiring := sign(t, key, nonces.Issue().Message)
	clock.Advance(2 * time.Minute)

	tests := []struct {
		name string
		hs   Handshake
	}{
		{name: "rejected in popup", hs: Handshake{Provider: ProviderPhantom, Rejected: true}},
		{name: "unsigned", hs: Handshake{Provider: ProviderPhantom, PublicKey: good.PublicKey}},
		{name: "tampered message", hs: Handshake{Provider: ProviderPhantom, PublicKey: good.PublicKey, Message: good.Message + "!", Signature: good.Signature}},
		{name: "someone else's key", hs: Handshake{Provider: ProviderPhantom, PublicKey: other.PublicKey, Message: good.Message, Signature: good.Signature}},
		{name: "bad key", hs: Handshake{Provider: ProviderPhantom, PublicKey: "not-base58-0OIl", Message: good.Message, Signature: good.Signature}},
		{name: "no nonce", hs: noNonce},
		{name: "nonce from elsewhere", hs: unknown},
		{name: "expired nonce", hs: expiring},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromHandshake(tt.hs, nonces).Connect(context.Background())
			if !errors.Is(err, models.ErrUserRejected) {
				t.Errorf("err = %v, want ErrUserRejected", err)
			}
		})
	}
}

func TestChallengesRedeem(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewChallenges(clock, time.Minute, 2)

	first := c.Issue()
	if err := c.Redeem(first.Message); err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if err := c.Redeem(first.Message); !errors.Is(err, ErrNonceUnknown) {
		t.Errorf("second Redeem = %v, want ErrNonceUnknown", err)
	}
	if err := c.Redeem("no nonce here"); !errors.Is(err, ErrNonceMissing) {
		t.Errorf("Redeem(no nonce) = %v, want ErrNonceMissing", err)
	}

	old := c.Issue()
	clock.Advance(time.Second)
	c.Issue()
	c.Issue()
	if c.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2", c.Pending())
	}
	if err := c.Redeem(old.Message); !errors.Is(err, ErrNonceUnknown) {
		t.Errorf("evicted nonce Redeem = %v, want ErrNonceUnknown", err)
	}

	clock.Advance(2 * time.Minute)
	c.Issue()
	if c.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1 after expiry", c.Pending())
	}
}
