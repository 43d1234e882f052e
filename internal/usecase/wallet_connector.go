package usecase

import (
	"context"
	"errors"
	"fmt"

	"PumpDump/internal/domain/models"
	drepo "PumpDump/internal/domain/repository"
	applogger "PumpDump/pkg/logger"

	"github.com/jonboulle/clockwork"
)

// WalletConnector runs the provider handshake and hands the resulting
// identity to the engine. The handshake runs on the caller's goroutine so a
// slow or pending approval never stalls the game loop.
type WalletConnector struct {
	engine  *RoundEngine
	clock   clockwork.Clock
	metrics drepo.Metrics
	log     *applogger.Logger
}

func NewWalletConnector(engine *RoundEngine, clock clockwork.Clock, metrics drepo.Metrics, log *applogger.Logger) *WalletConnector {
	return &WalletConnector{engine: engine, clock: clock, metrics: metrics, log: log}
}

// Connect establishes the wallet identity through provider. A nil provider
// means none is installed. Once connected, further calls return the existing
// connection without contacting the provider.
func (w *WalletConnector) Connect(ctx context.Context, provider drepo.WalletProvider, providerName string) (models.WalletConnection, error) {
	current, err := w.engine.Wallet(ctx)
	if err != nil {
		return models.WalletConnection{}, err
	}
	if current.PublicKey != "" {
		return current, nil
	}

	if provider == nil {
		return models.WalletConnection{}, w.unavailable(ctx, models.ErrProviderMissing)
	}
	if !provider.IsPhantom() {
		return models.WalletConnection{}, w.unavailable(ctx, models.ErrProviderNotKnown)
	}

	key, err := provider.Connect(ctx)
	if err != nil {
		w.metrics.RecordWalletConnect("rejected")
		w.log.Warn("wallet connection failed", applogger.String("provider", providerName), applogger.Error(err))
		if errors.Is(err, models.ErrUserRejected) {
			return models.WalletConnection{}, err
		}
		return models.WalletConnection{}, fmt.Errorf("%w: %v", models.ErrUserRejected, err)
	}
	if key == "" {
		w.metrics.RecordWalletConnect("rejected")
		w.log.Warn("wallet returned an empty public key", applogger.String("provider", providerName))
		return models.WalletConnection{}, models.ErrUserRejected
	}

	conn := models.WalletConnection{
		PublicKey:   key,
		Provider:    providerName,
		ConnectedAt: w.clock.Now().UTC(),
	}
	changed, err := w.engine.Connect(ctx, conn)
	if err != nil {
		return models.WalletConnection{}, err
	}
	if !changed {
		// another handshake finished first
		return w.engine.Wallet(ctx)
	}

	w.metrics.RecordWalletConnect("connected")
	w.log.Info("wallet connected",
		applogger.String("provider", providerName),
		applogger.String("label", models.ConnectLabel(key)),
	)
	return conn, nil
}

func (w *WalletConnector) unavailable(ctx context.Context, cause error) error {
	w.metrics.RecordWalletConnect("unavailable")
	if err := w.engine.Reject(ctx, cause); err != nil {
		return err
	}
	return cause
}
