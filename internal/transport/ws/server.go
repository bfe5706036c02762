// Package ws serves the game to browser front ends: a JSON snapshot
// endpoint and a websocket that streams snapshots and accepts commands.
package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/DaanHessen/glass-bridge/internal/engine"
)

// Message types sent to clients.
const (
	TypeHello    = "hello"
	TypeSnapshot = "snapshot"
	TypeAck      = "ack"
)

// DefaultPollInterval is how often a connection checks for a new snapshot.
const DefaultPollInterval = 100 * time.Millisecond

// Controller runs commands against the game.
type Controller interface {
	Do(ctx context.Context, cmd engine.Command) (engine.Snapshot, error)
}

// Envelope is every server to client message.
type Envelope struct {
	Type     string           `json:"type"`
	ClientID string           `json:"client_id,omitempty"`
	Snapshot *engine.Snapshot `json:"snapshot,omitempty"`
	Command  string           `json:"command,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type Server struct {
	ctrl Controller
	log  *slog.Logger
	poll time.Duration

	upgrader websocket.Upgrader
}

func NewServer(ctrl Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		ctrl: ctrl,
		log:  logger,
		poll: DefaultPollInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Routes mounts /snapshot, /ws and /healthz.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/snapshot", s.SnapshotHandler())
	mux.HandleFunc("/ws", s.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) SnapshotHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		snap, err := s.ctrl.Do(r.Context(), engine.Command{Name: engine.CmdSnapshot})
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(snap)
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		clientID := uuid.NewString()
		log := s.log.With("client", clientID)
		log.Info("client connected", "remote", r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		out := make(chan []byte, 16)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		send := func(env Envelope) bool {
			b, err := json.Marshal(env)
			if err != nil {
				log.Error("encode message", "err", err)
				return false
			}
			select {
			case out <- b:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(Envelope{Type: TypeHello, ClientID: clientID}) {
			return
		}
		go s.stream(ctx, send)

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var cmd engine.Command
			if err := json.Unmarshal(msg, &cmd); err != nil {
				send(Envelope{Type: TypeAck, Error: "bad command: " + err.Error()})
				continue
			}
			_, err = s.ctrl.Do(ctx, cmd)
			ack := Envelope{Type: TypeAck, Command: cmd.Name}
			if err != nil {
				ack.Error = err.Error()
				log.Debug("command failed", "command", cmd.Name, "err", err)
			}
			if !send(ack) {
				break
			}
		}
		log.Info("client disconnected")
	}
}

// stream pushes a snapshot whenever it differs from the last one sent.
func (s *Server) stream(ctx context.Context, send func(Envelope) bool) {
	t := time.NewTicker(s.poll)
	defer t.Stop()
	var last []byte
	for {
		snap, err := s.ctrl.Do(ctx, engine.Command{Name: engine.CmdSnapshot})
		if err != nil {
			return
		}
		b, err := json.Marshal(snap)
		if err == nil && !bytes.Equal(b, last) {
			last = b
			if !send(Envelope{Type: TypeSnapshot, Snapshot: &snap}) {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
