package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/qianlnk/undercover/models"
	"github.com/qianlnk/undercover/services"
)

type server struct {
	controller   *services.GameController
	webSocketMgr *services.WebSocketManager
	upgrader     websocket.Upgrader
}

func newServer(controller *services.GameController, webSocketMgr *services.WebSocketManager) *server {
	return &server{
		controller:   controller,
		webSocketMgr: webSocketMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 聊天适配层可能来自任意来源
			},
		},
	}
}

func (s *server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// 设置跨域中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/ws", s.handleWebSocket)

	api := r.Group("/api")
	{
		chats := api.Group("/chats/:chat")
		chats.POST("/session", s.createSession)
		chats.GET("/session", s.getSession)
		chats.DELETE("/session", s.endSession)
		chats.GET("/clues", s.getClues)
		chats.GET("/settings", s.getSettings)
		chats.PUT("/settings", s.putSettings)
		chats.POST("/players/:player/token", s.issueToken)

		api.POST("/game/action", s.gameAction)
	}
	return r
}

// statusFor 按错误类别映射 HTTP 状态码
func statusFor(err error) int {
	if errors.Is(err, services.ErrSessionNotFound) {
		return http.StatusNotFound
	}
	switch services.KindOf(err) {
	case services.KindInputValidation:
		return http.StatusBadRequest
	case services.KindStateViolation:
		return http.StatusConflict
	case services.KindConfiguration:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Printf("[http] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(code, gin.H{"error": err.Error(), "kind": services.KindOf(err).String()})
}

type playerRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
	Name     string `json:"name"`
	IsAdmin  bool   `json:"is_admin"`
}

func (s *server) createSession(c *gin.Context) {
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := s.controller.CreateSession(c.Request.Context(), c.Param("chat"), req.PlayerID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, status)
}

func (s *server) getSession(c *gin.Context) {
	status, err := s.controller.Status(c.Param("chat"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *server) endSession(c *gin.Context) {
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := s.controller.EndSession(c.Request.Context(), c.Param("chat"), req.PlayerID, req.IsAdmin)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *server) getClues(c *gin.Context) {
	round, clues, err := s.controller.Clues(c.Param("chat"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"round":   round,
		"clues":   clues,
		"message": services.CluesText(round, clues),
	})
}

func (s *server) getSettings(c *gin.Context) {
	settings, warnings, err := s.controller.GetSettings(c.Request.Context(), c.Param("chat"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings, "warnings": warnings})
}

func (s *server) putSettings(c *gin.Context) {
	var req struct {
		Key      string `json:"key" binding:"required"`
		Value    string `json:"value" binding:"required"`
		PlayerID string `json:"player_id"`
		IsAdmin  bool   `json:"is_admin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	settings, warnings, err := s.controller.ApplySetting(c.Request.Context(), c.Param("chat"), req.PlayerID, req.Key, req.Value, req.IsAdmin)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings, "warnings": warnings})
}

func (s *server) gameAction(c *gin.Context) {
	var action models.GameAction
	if err := c.ShouldBindJSON(&action); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if action.Timestamp == 0 {
		action.Timestamp = time.Now().Unix()
	}

	status, err := s.controller.ProcessAction(c.Request.Context(), action)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// issueToken 给玩家发放 websocket 连接凭证
func (s *server) issueToken(c *gin.Context) {
	token := s.webSocketMgr.IssueToken(c.Param("chat"), c.Param("player"))
	c.JSON(http.StatusCreated, gin.H{"token": token})
}

func (s *server) handleWebSocket(c *gin.Context) {
	chatID := c.Query("chat")
	playerID := c.Query("player")
	if chatID == "" || playerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat and player are required"})
		return
	}
	if !s.webSocketMgr.Authorize(chatID, playerID, c.Query("token")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid connection token"})
		return
	}
	connectionID := c.Query("connection_id")
	if connectionID == "" {
		connectionID = uuid.NewString()
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	s.webSocketMgr.RegisterConnection(chatID, playerID, connectionID, ws)
}
