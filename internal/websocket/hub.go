// Package websocket keeps UI surfaces in sync. Every connected client gets
// the same stream of state frames; commands from any client feed back into
// the clip services.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"

	"go-cloud-clipper/internal/clipper"
	"go-cloud-clipper/internal/event"
	"go-cloud-clipper/internal/upload"
)

type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Event bus to listen for events.
	bus event.Bus

	coordinator *upload.Coordinator
	clips       *clipper.Service
	logger      *slog.Logger
}

func NewHub(bus event.Bus, coordinator *upload.Coordinator, clips *clipper.Service, logger *slog.Logger) *Hub {
	return &Hub{
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		clients:     make(map[*Client]bool),
		bus:         bus,
		coordinator: coordinator,
		clips:       clips,
		logger:      logger,
	}
}

// Run pumps bus events to all clients until ctx is canceled. A client that
// cannot keep up is dropped; it reconnects and asks for initial state.
func (h *Hub) Run(ctx context.Context) {
	events, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("ui surface connected", "clients", len(h.clients))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Debug("ui surface disconnected", "clients", len(h.clients))
			}
		case e := <-events:
			frame, forward, err := encodeOutbound(e)
			if err != nil {
				h.logger.Error("encode broadcast frame", "type", e.Type, "error", err)
				continue
			}
			if !forward {
				continue
			}
			for client := range h.clients {
				select {
				case client.send <- frame:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// handleInbound dispatches one command frame from a client.
func (h *Hub) handleInbound(ctx context.Context, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.logger.Warn("malformed client frame", "error", err)
		return
	}

	switch msg.Type {
	case MsgRequestInitialState:
		h.coordinator.PublishSnapshot()

	case MsgStartUploadFromURL:
		var clip clipper.ImageClip
		if err := json.Unmarshal(msg.Payload, &clip); err != nil {
			h.logger.Warn("bad startUploadFromUrl payload", "error", err)
			return
		}
		if _, err := h.clips.ClipImage(ctx, clip); err != nil {
			h.logger.Warn("image clip rejected", "error", err)
		}

	case MsgStartUploadFromFile:
		var clip clipper.FileClip
		if err := json.Unmarshal(msg.Payload, &clip); err != nil {
			h.logger.Warn("bad startUploadFromFile payload", "error", err)
			return
		}
		if _, err := h.clips.ClipFile(ctx, clip); err != nil {
			h.logger.Warn("file clip rejected", "error", err)
		}

	default:
		h.logger.Warn("unknown client frame type", "type", msg.Type)
	}
}
