package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/navid-fn/dupe-radar/internal/service"
)

// Stream timeouts
const (
	streamWriteTimeout = 10 * time.Second
	streamReadTimeout  = 60 * time.Second
	streamPingInterval = 30 * time.Second
)

type DupeHandler struct {
	dupeService *service.DupeService
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

func NewDupeHandler(service *service.DupeService, logger *slog.Logger) *DupeHandler {
	return &DupeHandler{
		dupeService: service,
		logger:      logger.With("component", "dupe-handler"),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
	}
}

type dupesRequest struct {
	Ignore      []string `json:"ignore"`
	MinEquity   int64    `json:"min_equity"`
	MaxRequired int64    `json:"max_required"`
}

// GetDupes serves the match set. Ignore hashes come as repeated or
// comma separated "ignore" params.
func (h *DupeHandler) GetDupes(c *gin.Context) {
	q, err := queryFromParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c, q)
}

// PostDupes serves the match set for an ignore list sent as JSON. An empty
// body is the same as GET without params.
func (h *DupeHandler) PostDupes(c *gin.Context) {
	q, err := queryFromParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req dupesRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	q.Ignore = append(q.Ignore, cleanHashes(req.Ignore)...)
	if req.MinEquity > 0 {
		q.MinEquity = req.MinEquity
	}
	if req.MaxRequired > 0 {
		q.MaxRequired = req.MaxRequired
	}
	h.respond(c, q)
}

func (h *DupeHandler) respond(c *gin.Context, q service.DupeQuery) {
	res, err := h.dupeService.Dupes(q)
	if errors.Is(err, service.ErrNoSnapshot) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("Failed to build dupes", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// Health reports whether a snapshot is being served and how old it is.
func (h *DupeHandler) Health(c *gin.Context) {
	health := h.dupeService.Health()
	status := http.StatusOK
	if !health.Ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}

// Stream upgrades to a websocket and pushes the match set for the
// connection's query every time a new snapshot is published.
func (h *DupeHandler) Stream(c *gin.Context) {
	q, err := queryFromParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Subscribe before reading the current snapshot so none is missed.
	updates, cancel := h.dupeService.Subscribe()
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.logger.Debug("Stream client connected", "remote", c.ClientIP())

	conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	})

	// Reader goroutine only watches for the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var lastGen uint64
	if snap := h.dupeService.Current(); snap != nil {
		if err := h.writeJSON(conn, h.dupeService.Result(snap, q)); err != nil {
			return
		}
		lastGen = snap.Generation
	}

	pingTicker := time.NewTicker(streamPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-closed:
			h.logger.Debug("Stream client disconnected", "remote", c.ClientIP())
			return
		case snap := <-updates:
			if snap == nil || snap.Generation <= lastGen {
				continue
			}
			if err := h.writeJSON(conn, h.dupeService.Result(snap, q)); err != nil {
				h.logger.Debug("Stream write failed", "error", err)
				return
			}
			lastGen = snap.Generation
		case <-pingTicker.C:
			deadline := time.Now().Add(streamWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (h *DupeHandler) writeJSON(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(v)
}

func queryFromParams(c *gin.Context) (service.DupeQuery, error) {
	var q service.DupeQuery
	for _, raw := range c.QueryArray("ignore") {
		q.Ignore = append(q.Ignore, cleanHashes(strings.Split(raw, ","))...)
	}

	var err error
	if q.MinEquity, err = int64Param(c, "min_equity"); err != nil {
		return q, err
	}
	if q.MaxRequired, err = int64Param(c, "max_required"); err != nil {
		return q, err
	}
	return q, nil
}

func int64Param(c *gin.Context, name string) (int64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, errors.New("invalid " + name + ": " + raw)
	}
	return v, nil
}

func cleanHashes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, h := range in {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
