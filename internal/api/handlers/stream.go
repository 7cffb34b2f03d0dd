package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wonny/alphapulse/internal/analysis"
	"github.com/wonny/alphapulse/internal/contracts"
	"github.com/wonny/alphapulse/internal/ingest"
	"github.com/wonny/alphapulse/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Frame types sent on the stream
const (
	FrameMetrics = "metrics"
	FrameError   = "error"
)

// StreamFrame is one server message on the recompute stream
type StreamFrame struct {
	Type   string                    `json:"type"`
	Seq    int                       `json:"seq"`
	Report *contracts.AnalysisReport `json:"report,omitempty"`
	Error  string                    `json:"error,omitempty"`
	Status int                       `json:"status,omitempty"`
}

// StreamHandler recomputes metrics for datasets pushed over a WebSocket.
// Each inbound dataset supersedes the one before it on the same connection.
type StreamHandler struct {
	service  *analysis.Service
	upgrader websocket.Upgrader
	maxBytes int64
	logger   *logger.Logger

	mu       sync.Mutex
	sessions map[*streamSession]struct{}
	closing  bool
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(service *analysis.Service, maxBytes int64, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		maxBytes: maxBytes,
		logger:   log,
		sessions: make(map[*streamSession]struct{}),
	}
}

// Serve upgrades the connection and runs the read loop
// GET /api/stream
func (h *StreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	s := &streamSession{
		conn:    conn,
		key:     "stream:" + uuid.NewString(),
		service: h.service,
		logger:  h.logger,
	}
	if !h.track(s) {
		s.goAway()
		conn.Close()
		return
	}
	defer h.untrack(s)

	s.run(r.Context(), h.maxBytes)
}

// Shutdown sends a going-away close to every open stream and refuses new ones.
// Register it with Server.OnShutdown.
func (h *StreamHandler) Shutdown() {
	h.mu.Lock()
	h.closing = true
	open := make([]*streamSession, 0, len(h.sessions))
	for s := range h.sessions {
		open = append(open, s)
	}
	h.mu.Unlock()

	for _, s := range open {
		s.goAway()
		s.conn.Close()
	}
	if len(open) > 0 {
		h.logger.WithField("streams", len(open)).Info("Closed open streams")
	}
}

func (h *StreamHandler) track(s *streamSession) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.sessions[s] = struct{}{}
	return true
}

func (h *StreamHandler) untrack(s *streamSession) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
}

type streamSession struct {
	conn    *websocket.Conn
	key     string
	service *analysis.Service
	logger  *logger.Logger

	writeMu sync.Mutex
	wg      sync.WaitGroup

	// latest is the seq of the newest dataset handed to the service
	latest atomic.Int64
}

func (s *streamSession) run(parent context.Context, maxBytes int64) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	defer func() {
		cancel()
		s.wg.Wait()
		s.conn.Close()
	}()

	if maxBytes > 0 {
		s.conn.SetReadLimit(maxBytes)
	}
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go s.pingLoop(ctx)

	seq := 0
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.WithError(err).Debug("Stream closed")
			}
			return
		}
		seq++

		ds, err := ingest.DecodeJSON(bytes.NewReader(msg))
		if err != nil {
			s.write(StreamFrame{Type: FrameError, Seq: seq, Error: err.Error(), Status: StatusFor(err)})
			continue
		}

		// 순서 보장: 고루틴 시작 전에 슬롯을 점유
		sub := s.service.Begin(ctx, s.key)
		s.latest.Store(int64(seq))

		s.wg.Add(1)
		go func(seq int) {
			defer s.wg.Done()
			report, err := sub.Run(ds)
			switch {
			case errors.Is(err, analysis.ErrSuperseded):
				return
			case err != nil:
				status := StatusFor(err)
				msg := err.Error()
				if status >= http.StatusInternalServerError {
					s.logger.WithError(err).Error("Stream analysis failed")
					msg = "analysis failed"
				}
				s.writeLatest(StreamFrame{Type: FrameError, Seq: seq, Error: msg, Status: status})
			default:
				s.writeLatest(StreamFrame{Type: FrameMetrics, Seq: seq, Report: report})
			}
		}(seq)
	}
}

func (s *streamSession) write(frame StreamFrame) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.writeLocked(frame)
}

// writeLatest drops a result whose dataset was replaced after it finished
func (s *streamSession) writeLatest(frame StreamFrame) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.latest.Load() != int64(frame.Seq) {
		return
	}
	s.writeLocked(frame)
}

func (s *streamSession) writeLocked(frame StreamFrame) {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(frame); err != nil {
		s.logger.WithError(err).Debug("Failed to write stream frame")
	}
}

func (s *streamSession) goAway() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// pingLoop keeps the connection alive until ctx ends
func (s *streamSession) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
