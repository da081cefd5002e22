package http

import (
	"net/http"
	"strings"

	"github.com/Wyydra/huddle/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/huddle/internal/core/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

type Options struct {
	StaticDir      string
	AllowedOrigins []string
	WS             ws.Options
	// LogRate is log lines per second per connection; zero means unlimited.
	LogRate    float64
	LogBurst   int
	ICEServers []webrtc.ICEServer
}

type Handler struct {
	RoomService *service.RoomService

	opts     Options
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewHandler(roomService *service.RoomService, opts Options, logger zerolog.Logger) *Handler {
	return &Handler{
		RoomService: roomService,
		opts:        opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(opts.AllowedOrigins),
		},
		log: logger,
	}
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/ws", h.ServeWS)
	r.Get("/healthz", h.Health)
	r.Get("/ice", h.ICEServers)
	r.Get("/peerjs/id", h.PeerID)
	r.Route("/rooms", func(r chi.Router) {
		r.Get("/", h.ListRooms)
		r.Get("/{roomID}", h.GetRoom)
	})

	if h.opts.StaticDir != "" {
		fs := http.FileServer(http.Dir(h.opts.StaticDir))
		r.Handle("/*", fs)
	}

	return r
}

// checkOrigin allows every origin when allowed is empty or contains "*".
// Requests without an Origin header are not from browsers and pass.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.ToLower(strings.TrimSpace(o))
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[o] = struct{}{}
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}
