package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/Wyydra/huddle/internal/core/domain"
	"github.com/go-chi/chi/v5"
	"github.com/pion/webrtc/v4"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ICEServers hands the browser the STUN/TURN list for its RTCPeerConnection.
func (h *Handler) ICEServers(w http.ResponseWriter, r *http.Request) {
	servers := h.opts.ICEServers
	if servers == nil {
		servers = []webrtc.ICEServer{}
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]any{"iceServers": servers})
}

// PeerID issues a fresh peer identifier, as the PeerJS server's /id route
// does.
func (h *Handler) PeerID(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.WriteString(w, domain.NewPeerID().String())
}

func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.RoomService.Rooms(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list rooms")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "rooms unavailable"})
		return
	}
	if rooms == nil {
		rooms = []domain.RoomInfo{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid room id"})
		return
	}

	rooms, err := h.RoomService.Rooms(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list rooms")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "rooms unavailable"})
		return
	}

	for _, room := range rooms {
		if room.ID == domain.RoomID(roomID) {
			writeJSON(w, http.StatusOK, room)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
}

// roomParam returns the decoded room id. chi matches on RawPath when it is
// set, so only then does the parameter still carry escapes.
func roomParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "roomID")
	if r.URL.RawPath == "" {
		return id, nil
	}
	return url.PathUnescape(id)
}
