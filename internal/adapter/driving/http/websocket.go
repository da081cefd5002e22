package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/Wyydra/huddle/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/huddle/internal/core/domain"
	"github.com/Wyydra/huddle/internal/core/service"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// HTTP handler
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}

	client := ws.NewClient(conn, h.opts.WS, h.log)

	l := h.log.With().Str("conn_id", client.ID().String()).Logger()
	l.Info().Str("remote", r.RemoteAddr).Msg("New client connected")

	// The disconnect must reach the coordinator even though the request is
	// over by then.
	ctx := context.WithoutCancel(r.Context())

	if err := h.RoomService.Connect(ctx, client); err != nil {
		l.Error().Err(err).Msg("Failed to register client")
		_ = client.Close()
		return
	}
	go client.WritePump()

	defer func() {
		if err := h.RoomService.Disconnect(ctx, client.ID()); err != nil && !errors.Is(err, service.ErrStopped) {
			l.Error().Err(err).Msg("Failed to unregister client")
		}
		_ = client.Close()
		l.Info().Msg("Client disconnected")
	}()

	limiter := h.newLogLimiter()

	// listening for browser
	err = client.ReadLoop(func(data []byte) {
		h.dispatch(ctx, l, client.ID(), limiter, data)
	})
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
		l.Error().Err(err).Msg("Unexpected close error")
	} else if err != nil {
		l.Debug().Err(err).Msg("Read loop ended")
	}
}

func (h *Handler) dispatch(ctx context.Context, l zerolog.Logger, id domain.ConnID, limiter *rate.Limiter, data []byte) {
	cmd, err := decodeCommand(id, data)
	if err != nil {
		l.Debug().Err(err).Msg("Ignoring frame")
		return
	}

	if _, ok := cmd.(domain.Log); ok && !limiter.Allow() {
		l.Warn().Msg("Log relay rate exceeded, dropping message")
		return
	}

	if err := h.RoomService.Handle(ctx, cmd); err != nil {
		l.Error().Err(err).Msg("Failed to handle command")
	}
}

func (h *Handler) newLogLimiter() *rate.Limiter {
	if h.opts.LogRate <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(h.opts.LogRate), h.opts.LogBurst)
}
