package delivery

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"alarmbell-backend/internal/agent"
	"alarmbell-backend/internal/render"
	"alarmbell-backend/pkg/logger"
	"alarmbell-backend/pkg/notify"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// The daemon listens on loopback only.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type ClickRequest struct {
	Data map[string]string `json:"data"`
}

// AgentHandler exposes the background agent to the push transport, the
// platform shell and connected UI instances.
type AgentHandler struct {
	agent  *agent.Agent
	host   *agent.HostBridge
	logger *logger.Logger
}

func NewAgentHandler(a *agent.Agent, host *agent.HostBridge, log *logger.Logger) *AgentHandler {
	return &AgentHandler{agent: a, host: host, logger: log}
}

// Register mounts the agent routes on r.
func (h *AgentHandler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.POST("/push", h.Push)
	r.POST("/notifications/click", h.Click)
	r.GET("/clients/ws", h.ClientSocket)
	r.GET("/host/ws", h.HostSocket)
}

// GET /health
func (h *AgentHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state":   h.agent.Lifecycle().State().String(),
		"clients": h.agent.Clients().Len(),
		"host":    h.host.Attached(),
	})
}

// POST /push
func (h *AgentHandler) Push(c *gin.Context) {
	var msg notify.PushMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.agent.OnPush(c.Request.Context(), msg)
	switch {
	case errors.Is(err, agent.ErrNotActive), errors.Is(err, agent.ErrShuttingDown):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case errors.Is(err, render.ErrAllTiersFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("[Agent] Push failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to handle push"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"forwardedTo": res.ForwardedTo,
		"rendered":    res.Rendered,
		"tier":        res.Tier.String(),
	})
}

// POST /notifications/click
func (h *AgentHandler) Click(c *gin.Context) {
	var req ClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.agent.OnNotificationClick(c.Request.Context(), req.Data)
	if err != nil {
		h.logger.Warn("[Agent] Click routing failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /clients/ws?url=
func (h *AgentHandler) ClientSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("[Agent] Failed to upgrade client connection: %v", err)
		return
	}
	defer conn.Close()

	id := c.Query("clientId")
	if id == "" {
		id = uuid.NewString()
	}
	cc := &clientConn{conn: conn}
	h.agent.Clients().Register(id, c.Query("url"), cc)
	defer h.agent.Clients().Unregister(id)
	h.logger.Info("[Agent] Client %s connected", id)

	for {
		var frame notify.Control
		if err := conn.ReadJSON(&frame); err != nil {
			h.logger.Info("[Agent] Client %s disconnected", id)
			return
		}
		reply, err := h.agent.HandleControl(id, frame)
		if err != nil {
			h.logger.Warn("[Agent] Client %s: %v", id, err)
			continue
		}
		if reply != nil {
			if err := cc.Send(*reply); err != nil {
				h.logger.Warn("[Agent] Reply to %s failed: %v", id, err)
				return
			}
		}
	}
}

// GET /host/ws
func (h *AgentHandler) HostSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("[Agent] Failed to upgrade host connection: %v", err)
		return
	}
	h.logger.Info("[Agent] Host attached")
	err = h.host.Attach(conn)
	h.logger.Info("[Agent] Host detached: %v", err)
	_ = conn.Close()
}

// clientConn serialises writes; gorilla allows one concurrent writer.
type clientConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *clientConn) Send(frame notify.Control) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(frame)
}
