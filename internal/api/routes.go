package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ragnet-project/ragnet/internal/config"
	"github.com/ragnet-project/ragnet/internal/epoch"
	"github.com/ragnet-project/ragnet/internal/events"
	"github.com/ragnet-project/ragnet/internal/epoch/e20120307"
	"github.com/ragnet-project/ragnet/internal/epoch/e20220406"
	"github.com/ragnet-project/ragnet/internal/util"
)

// Version is the application version reported by the public info
// endpoint.
const Version = "1.0.0"

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
}

func (s *Server) handleInfo(c *gin.Context) {
	sysInfo := util.GetSystemInfo()
	c.JSON(http.StatusOK, gin.H{
		"version":  Version,
		"epoch":    s.cfg.GetGameData().Epoch,
		"hostname": sysInfo.Hostname,
		"platform": sysInfo.Platform,
	})
}

func (s *Server) handleSessionStatus(c *gin.Context) {
	if s.gateway == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no active session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"in_world":    s.gateway.InWorld(),
		"connections": s.gateway.Status(),
	})
}

func (s *Server) handleSay(c *gin.Context) {
	if s.gateway == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no active session"})
		return
	}
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.gateway.Say(req.Message); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

func (s *Server) handleWalk(c *gin.Context) {
	if s.gateway == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no active session"})
		return
	}
	var req struct {
		X uint16 `json:"x"`
		Y uint16 `json:"y"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.gateway.Walk(req.X, req.Y); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

func (s *Server) handleListEpochs(c *gin.Context) {
	known := epoch.Known()
	out := make([]string, 0, len(known))
	for _, id := range known {
		out = append(out, id.String())
	}
	c.JSON(http.StatusOK, gin.H{"epochs": out, "active": s.cfg.GetGameData().Epoch})
}

// epochTable returns the opcode table for an epoch by its decimal ID.
func epochTable(id epoch.ID) ([]epoch.OpcodeInfo, bool) {
	switch id {
	case epoch.E20120307:
		return e20120307.NewCatalog().Describe(), true
	case epoch.E20220406:
		return e20220406.NewCatalog().Describe(), true
	}
	return nil, false
}

func (s *Server) handleEpochOpcodes(c *gin.Context) {
	id, err := epoch.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	table, ok := epochTable(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown epoch"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"epoch": id.String(), "opcodes": table})
}

func (s *Server) handleJournalRecent(c *gin.Context) {
	if s.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := s.journal.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) handleJournalStats(c *gin.Context) {
	if s.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal disabled"})
		return
	}
	stats, err := s.journal.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	total, err := s.journal.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "by_type": stats})
}

func (s *Server) handleJournalByType(c *gin.Context) {
	if s.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := s.journal.ByType(c.Param("type"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) handleSystemStats(c *gin.Context) {
	stats := gin.H{}

	if cpuUsage, err := util.GetCPUUsage(); err == nil {
		stats["cpu_percent"] = cpuUsage
	}
	if memUsage, err := util.GetMemoryUsage(); err == nil {
		stats["memory"] = memUsage
	}
	if diskUsage, err := util.GetDiskUsage("."); err == nil {
		stats["disk"] = diskUsage
	}

	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleGetConfig(c *gin.Context) {
	game := s.cfg.GetGameData()
	game.Password = "" // never expose credentials
	c.JSON(http.StatusOK, gin.H{
		"game_data":        game,
		"application_data": s.cfg.GetApplicationData(),
	})
}

func (s *Server) handleSetGameData(c *gin.Context) {
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for key, value := range updates {
		if err := s.cfg.UpdateGameField(key, value); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if result := config.Validate(s.cfg); !result.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": result.Errors})
		return
	}

	if err := s.cfg.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.notifyConfigChanged("game", updates)
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) handleSetAppData(c *gin.Context) {
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for key, value := range updates {
		if err := s.cfg.UpdateAppField(key, value); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if result := config.Validate(s.cfg); !result.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": result.Errors})
		return
	}

	if err := s.cfg.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.notifyConfigChanged("application", updates)
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// notifyConfigChanged publishes one EventConfigChanged per persisted key.
func (s *Server) notifyConfigChanged(section string, updates map[string]interface{}) {
	if s.eventBus == nil {
		return
	}
	for key, value := range updates {
		s.eventBus.Emit(context.Background(), events.Event{
			Type:   events.EventConfigChanged,
			Source: "api",
			Payload: events.ConfigChangedPayload{
				Section: section,
				Key:     key,
				Value:   value,
			},
		})
	}
}
