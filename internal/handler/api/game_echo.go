package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"PumpDump/internal/domain/models"
	domrepo "PumpDump/internal/domain/repository"
	"PumpDump/internal/service/hub"
	"PumpDump/internal/service/ratelimit"
	"PumpDump/internal/service/wallet"
	"PumpDump/internal/usecase"
	xhttp "PumpDump/pkg/http"
	xlogger "PumpDump/pkg/logger"

	"github.com/labstack/echo/v4"
)

// GameEchoHandler exposes the round engine over HTTP and WebSocket.
type GameEchoHandler struct {
	logger    *xlogger.Logger
	engine    *usecase.RoundEngine
	wallets   *usecase.WalletConnector
	nonces    *wallet.Challenges
	snapshots domrepo.SnapshotStore
	history   domrepo.EventStorage
	hub       *hub.Hub
	limiter   *ratelimit.Limiter
}

// NewGameEchoHandler wires the handler. history may be nil when events are not
// stored.
func NewGameEchoHandler(
	logger *xlogger.Logger,
	engine *usecase.RoundEngine,
	wallets *usecase.WalletConnector,
	nonces *wallet.Challenges,
	snapshots domrepo.SnapshotStore,
	history domrepo.EventStorage,
	h *hub.Hub,
	limiter *ratelimit.Limiter,
) *GameEchoHandler {
	return &GameEchoHandler{
		logger:    logger,
		engine:    engine,
		wallets:   wallets,
		nonces:    nonces,
		snapshots: snapshots,
		history:   history,
		hub:       h,
		limiter:   limiter,
	}
}

func (h *GameEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/state", h.State)
	g.GET("/chart", h.Chart)
	g.POST("/votes", h.Vote, h.rateLimit)
	g.POST("/wallet/challenge", h.Challenge, h.rateLimit)
	g.POST("/wallet/connect", h.Connect, h.rateLimit)
	g.GET("/events", h.Events)
	g.RouteNotFound("/*", func(c echo.Context) error {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("Route not found."))
	})

	e.GET("/healthz", h.Health)
	e.GET("/ws", h.WebSocket)
}

func (h *GameEchoHandler) State(c echo.Context) error {
	ctx := c.Request().Context()
	d, err := h.snapshots.LoadDisplay(ctx)
	if err != nil {
		d, _, err = h.engine.Snapshot(ctx)
		if err != nil {
			return xhttp.AppErrorResponse(c, mapError(err))
		}
	}
	return xhttp.SuccessResponse(c, d)
}

func (h *GameEchoHandler) Chart(c echo.Context) error {
	ctx := c.Request().Context()
	f, err := h.snapshots.LoadChart(ctx)
	if err != nil {
		_, f, err = h.engine.Snapshot(ctx)
		if err != nil {
			return xhttp.AppErrorResponse(c, mapError(err))
		}
	}
	return xhttp.SuccessResponse(c, f)
}

func (h *GameEchoHandler) Vote(c echo.Context) error {
	req := &models.VoteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	if err := h.engine.CastVote(ctx, models.VoteOption(req.Option)); err != nil {
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	d, _, err := h.engine.Snapshot(ctx)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.AcceptedResponse(c, d)
}

func (h *GameEchoHandler) Connect(c echo.Context) error {
	req := &models.ConnectRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	provider := wallet.FromHandshake(wallet.Handshake{
		Provider:  req.Provider,
		PublicKey: req.PublicKey,
		Message:   req.Message,
		Signature: req.Signature,
		Rejected:  req.Rejected,
	}, h.nonces)
	conn, err := h.wallets.Connect(c.Request().Context(), provider, req.Provider)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.SuccessResponse(c, &models.ConnectResponse{
		Connection: conn,
		Label:      models.ConnectLabel(conn.PublicKey),
	})
}

// Challenge issues the single-use message the wallet must sign to connect.
func (h *GameEchoHandler) Challenge(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.nonces.Issue())
}

func (h *GameEchoHandler) Events(c echo.Context) error {
	if h.history == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("event history is not configured"))
	}
	req := &models.EventsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.history.Query(c.Request().Context(), models.EventFilter{
		Type:  models.EventType(req.Type),
		Since: xhttp.ParseTimeDefault(req.Since, time.Time{}),
		Limit: req.Limit,
	})
	if err != nil {
		h.logger.Error("query events", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("event history unavailable").WithError(err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *GameEchoHandler) Health(c echo.Context) error {
	res := &models.HealthResponse{Status: "ok", Subscribers: h.hub.Count(), Checks: map[string]string{}}

	select {
	case <-h.engine.Done():
		res.Status = "degraded"
		res.Checks["engine"] = "stopped"
	default:
		res.Checks["engine"] = "running"
	}
	if h.history != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.history.Health(ctx); err != nil {
			res.Status = "degraded"
			res.Checks["history"] = err.Error()
		} else {
			res.Checks["history"] = "ok"
		}
	}
	if d, err := h.snapshots.LoadDisplay(c.Request().Context()); err == nil {
		res.Round = d.Round
	}

	if res.Status != "ok" {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, res)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *GameEchoHandler) WebSocket(c echo.Context) error {
	if err := h.hub.ServeWS(c.Response(), c.Request()); err != nil {
		// the upgrader already wrote the error response
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
	}
	return nil
}

func (h *GameEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("Too many requests, slow down."))
		}
		return next(c)
	}
}

// mapError turns a domain rejection into the HTTP error shown to the caller.
func mapError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrNotConnected):
		return xhttp.UnauthorizedError(models.MsgNotConnected).WithCode("ERR_NOT_CONNECTED")
	case errors.Is(err, models.ErrVotingClosed):
		return xhttp.ConflictError(models.MsgVotingClosed).WithCode("ERR_VOTING_CLOSED")
	case errors.Is(err, models.ErrAlreadyVoted):
		return xhttp.ConflictError(models.MsgAlreadyVoted).WithCode("ERR_ALREADY_VOTED")
	case errors.Is(err, models.ErrInvalidOption):
		return xhttp.BadRequestErrorf("option must be one of: %s, %s", models.VotePump, models.VoteDump).
			WithCode("ERR_INVALID_OPTION").
			WithField("option").
			WithParam("allowed", []models.VoteOption{models.VotePump, models.VoteDump})
	case errors.Is(err, models.ErrProviderMissing):
		return xhttp.BadRequestError(models.MsgProviderMissing).WithCode("ERR_PROVIDER_UNAVAILABLE").WithField("provider")
	case errors.Is(err, models.ErrProviderUnavailable):
		return xhttp.BadRequestError(models.MsgProviderNotKnown).WithCode("ERR_PROVIDER_UNAVAILABLE").WithField("provider")
	case errors.Is(err, models.ErrUserRejected):
		return xhttp.UnauthorizedError("Wallet connection was rejected.").WithCode("ERR_USER_REJECTED").WithError(err)
	case errors.Is(err, models.ErrEngineStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return xhttp.ServiceUnavailableError("Game is not running.").WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}
