package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/anatomy-twin-server/internal/domain"
	"github.com/anatomy-twin-server/internal/enrichment"
	"github.com/anatomy-twin-server/internal/middleware"
	"github.com/anatomy-twin-server/internal/projection"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleComplexityStream pushes the current level on connect and every
// change after it. Slow readers only ever see the latest level.
func (s *Server) handleComplexityStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Complexity stream upgrade failed")
		return
	}
	defer conn.Close()

	entry := s.logger.WithField("request_id", c.GetString(middleware.RequestIDKey))
	entry.Debug("Complexity stream opened")

	updates := make(chan domain.Level, 1)
	push := func(l domain.Level) {
		for {
			select {
			case updates <- l:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	}
	cancel := s.opts.Complexity.Subscribe(push)
	defer cancel()
	push(s.opts.Complexity.Level())

	// The read loop only notices the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case l := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(levelBody(l)); err != nil {
				entry.WithError(err).Debug("Complexity stream write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			entry.Debug("Complexity stream closed by client")
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// regionRequest is one client message on the region stream. A message with
// only a level pins the connection to that level and re-renders the
// current region.
type regionRequest struct {
	RegionID string `json:"region_id,omitempty"`
	Level    *int   `json:"level,omitempty"`
	Refetch  bool   `json:"refetch,omitempty"`
}

type regionFrame struct {
	Type   string                 `json:"type"`
	Region *projection.RegionView `json:"region,omitempty"`
	Error  *errorBody             `json:"error,omitempty"`
}

type inbound struct {
	req regionRequest
	err error
}

type loadResult struct {
	view *domain.RegionalEncyclopediaData
	err  error
}

// handleRegionStream serves one viewer's region selection. Every selection
// cancels the fetch before it and only the newest selection is ever
// written, so a slow response for an earlier region never replaces a later
// one. Unless the client pinned a level, the view is re-rendered whenever
// the shared complexity level changes.
func (s *Server) handleRegionStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Region stream upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	requestID := c.GetString(middleware.RequestIDKey)
	entry := s.logger.WithField("request_id", requestID)
	entry.Debug("Region stream opened")

	session := enrichment.NewSession(s.opts.Fetcher)
	results := make(chan loadResult, 1)
	load := func(fetch func(context.Context) (*domain.RegionalEncyclopediaData, error)) {
		view, err := fetch(ctx)
		if errors.Is(err, enrichment.ErrSuperseded) {
			return
		}
		select {
		case results <- loadResult{view: view, err: err}:
		case <-ctx.Done():
		}
	}

	levels := make(chan domain.Level, 1)
	unsubscribe := s.opts.Complexity.Subscribe(func(l domain.Level) {
		select {
		case <-levels:
		default:
		}
		select {
		case levels <- l:
		default:
		}
	})
	defer unsubscribe()

	messages := make(chan inbound)
	go func() {
		defer close(messages)
		conn.SetReadLimit(4096)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			var req regionRequest
			err := conn.ReadJSON(&req)
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if err != nil && !errors.As(err, &syntaxErr) && !errors.As(err, &typeErr) {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
			select {
			case messages <- inbound{req: req, err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var pinned *domain.Level
	levelFor := func() domain.Level {
		if pinned != nil {
			return *pinned
		}
		return s.opts.Complexity.Level()
	}
	write := func(frame regionFrame) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(frame); err != nil {
			entry.WithError(err).Debug("Region stream write failed")
			return false
		}
		return true
	}
	writeErr := func(err error) bool {
		_, body := s.describe(err, requestID)
		return write(regionFrame{Type: "error", Error: &body})
	}
	// rerender writes the committed view again, typically at a new level.
	rerender := func() bool {
		view, err := session.View()
		if view == nil || err != nil {
			return true
		}
		return write(regionFrame{Type: "region", Region: s.project(ctx, view, levelFor())})
	}

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()
	for {
		ok := true
		select {
		case msg, open := <-messages:
			if !open {
				entry.Debug("Region stream closed by client")
				return
			}
			if msg.err != nil {
				ok = writeErr(domain.NewAppError(domain.ErrCodeInvalidParameters, "invalid message", msg.err.Error(), requestID))
				break
			}
			req := msg.req
			if req.Level != nil {
				l := domain.Level(*req.Level)
				if !l.Valid() {
					ok = writeErr(domain.NewInvalidLevelError(*req.Level, requestID))
					break
				}
				pinned = &l
			}
			id := strings.ToLower(strings.TrimSpace(req.RegionID))
			switch {
			case id != "":
				go load(func(ctx context.Context) (*domain.RegionalEncyclopediaData, error) {
					return session.Load(ctx, id)
				})
			case req.Refetch:
				if session.RegionID() == "" {
					ok = writeErr(domain.NewValidationError("region_id", "no region selected yet", nil))
					break
				}
				go load(session.Refetch)
			case req.Level != nil:
				ok = rerender()
			default:
				ok = writeErr(domain.NewValidationError("region_id", "is required", nil))
			}
		case res := <-results:
			// A newer load may have committed since this one finished.
			if view, err := session.View(); view != res.view || err != res.err {
				break
			}
			if res.err != nil {
				ok = writeErr(res.err)
				break
			}
			ok = write(regionFrame{Type: "region", Region: s.project(ctx, res.view, levelFor())})
		case <-levels:
			if pinned == nil {
				ok = rerender()
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			ok = conn.WriteMessage(websocket.PingMessage, nil) == nil
		case <-ctx.Done():
			return
		}
		if !ok {
			return
		}
	}
}
