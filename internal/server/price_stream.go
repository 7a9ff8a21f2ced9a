package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/utils"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"nhooyr.io/websocket"
)

// Stream wire formats
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

const (
	streamBufferSize = 100
	streamWriteWait  = 5 * time.Second
	defaultHeartbeat = 30 * time.Second
	connectedEvent   = "connected"
)

// streamMessage is the envelope pushed to websocket clients
type streamMessage struct {
	Timestamp time.Time        `json:"timestamp" msgpack:"timestamp"`
	Data      events.EventData `json:"data,omitempty" msgpack:"data,omitempty"`
	Type      string           `json:"type" msgpack:"type"`
	Module    string           `json:"module,omitempty" msgpack:"module,omitempty"`
}

// PriceStreamHandler pushes bus events to websocket clients.
// By default only PRICE_UPDATED is streamed; ?types= selects others.
type PriceStreamHandler struct {
	bus       *events.Bus
	log       zerolog.Logger
	heartbeat time.Duration
}

// NewPriceStreamHandler creates a new price stream handler
func NewPriceStreamHandler(bus *events.Bus, log zerolog.Logger) *PriceStreamHandler {
	return &PriceStreamHandler{
		bus:       bus,
		log:       log.With().Str("component", "price_stream").Logger(),
		heartbeat: defaultHeartbeat,
	}
}

// ServeHTTP handles GET /api/stream/prices
func (h *PriceStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatMsgpack {
		http.Error(w, "format must be json or msgpack", http.StatusBadRequest)
		return
	}

	types := parseTypes(r.URL.Query().Get("types"))

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS is open for the API as well
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	// Clients only listen; CloseRead handles control frames and cancels on disconnect
	ctx := conn.CloseRead(r.Context())

	eventChan := make(chan *events.Event, streamBufferSize)
	handler := func(event *events.Event) {
		// Non-blocking send (drop if channel full)
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Stream channel full, dropping event")
		}
	}

	for _, t := range types {
		unsubscribe := h.bus.Subscribe(t, handler)
		defer unsubscribe()
	}

	h.log.Info().
		Str("format", format).
		Int("types", len(types)).
		Msg("Client connected to price stream")

	if err := h.send(ctx, conn, format, streamMessage{Type: connectedEvent, Timestamp: time.Now().UTC()}); err != nil {
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from price stream")
			return

		case event := <-eventChan:
			msg := streamMessage{
				Timestamp: event.Timestamp,
				Data:      event.Data,
				Type:      string(event.Type),
				Module:    event.Module,
			}
			if err := h.send(ctx, conn, format, msg); err != nil {
				return
			}

		case <-heartbeat.C:
			pingCtx, cancel := context.WithTimeout(ctx, streamWriteWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Price stream heartbeat failed")
				return
			}
		}
	}
}

func (h *PriceStreamHandler) send(ctx context.Context, conn *websocket.Conn, format string, msg streamMessage) error {
	var (
		data    []byte
		err     error
		msgType = websocket.MessageText
	)
	if format == FormatMsgpack {
		data, err = msgpack.Marshal(msg)
		msgType = websocket.MessageBinary
	} else {
		data, err = json.Marshal(msg)
	}
	if err != nil {
		h.log.Error().Err(err).Str("type", msg.Type).Msg("Failed to encode stream message")
		return nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, streamWriteWait)
	defer cancel()

	if err := conn.Write(writeCtx, msgType, data); err != nil {
		h.log.Debug().Err(err).Msg("Failed to write to price stream")
		return err
	}
	return nil
}

// parseTypes reads a comma separated event type list, ignoring unknown names
func parseTypes(raw string) []events.EventType {
	known := make(map[events.EventType]bool, len(events.AllTypes))
	for _, t := range events.AllTypes {
		known[t] = true
	}

	seen := make(map[events.EventType]bool)
	var out []events.EventType
	for _, part := range utils.ParseCSV(raw) {
		t := events.EventType(strings.ToUpper(part))
		if known[t] && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return []events.EventType{events.PriceUpdated}
	}
	return out
}
