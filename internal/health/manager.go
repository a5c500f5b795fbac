// Package health implements periodic health check monitoring for the
// ragnet gateway: session liveness, disk utilization, host resource
// usage, and public IP change detection.
package health

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ragnet-project/ragnet/internal/client"
	"github.com/ragnet-project/ragnet/internal/config"
	"github.com/ragnet-project/ragnet/internal/events"
	"github.com/ragnet-project/ragnet/internal/util"
)

// Check intervals. Session liveness runs often because a stalled map
// connection means the character is effectively frozen in-world.
const (
	livenessInterval  = 30 * time.Second
	resourceInterval  = 60 * time.Second
	diskInterval      = 5 * time.Minute
	publicIPInterval  = time.Hour
	heartbeatInterval = 60 * time.Second

	// A bound connection with no frame for this long is considered
	// stale. Game servers tick far more often than this.
	staleAfter = 90 * time.Second
)

// Manager runs periodic health checks on all subsystems.
type Manager struct {
	cfg      *config.Config
	eventBus *events.Bus
	gateway  *client.Gateway

	mu       sync.Mutex
	publicIP string
	stale    map[string]bool
}

// NewManager creates a new health check manager.
func NewManager(cfg *config.Config, eventBus *events.Bus, gateway *client.Gateway) *Manager {
	return &Manager{
		cfg:      cfg,
		eventBus: eventBus,
		gateway:  gateway,
		stale:    make(map[string]bool),
	}
}

// Start launches all health check goroutines.
func (m *Manager) Start(ctx context.Context) {
	checks := []struct {
		name     string
		interval time.Duration
		fn       func(context.Context)
	}{
		{"session_liveness", livenessInterval, m.checkSessionLiveness},
		{"host_resources", resourceInterval, m.checkHostResources},
		{"disk_utilization", diskInterval, m.checkDiskUtilization},
		{"public_ip", publicIPInterval, m.checkPublicIP},
	}

	for _, check := range checks {
		check := check
		go func() {
			ticker := time.NewTicker(check.interval)
			defer ticker.Stop()

			// Run immediately on startup
			log.Debug().Str("check", check.name).Msg("running initial health check")
			check.fn(ctx)

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					check.fn(ctx)
				}
			}
		}()
	}

	// Heartbeat (special: published via MQTT when telemetry is up)
	go m.heartbeatLoop(ctx, heartbeatInterval)

	log.Info().Int("checks", len(checks)).Msg("health check manager started")

	// Block until context is cancelled
	<-ctx.Done()
	log.Info().Msg("health check manager stopped")
}

// checkSessionLiveness flags bound connections that stopped producing
// frames. A stale map session usually means the server dropped us
// without closing the socket.
func (m *Manager) checkSessionLiveness(ctx context.Context) {
	if m.gateway == nil {
		return
	}

	now := time.Now()
	for _, info := range m.gateway.Status() {
		if !info.Connected || !info.Bound || info.LastFrame.IsZero() {
			continue
		}

		idle := now.Sub(info.LastFrame)
		m.mu.Lock()
		wasStale := m.stale[info.Name]
		m.stale[info.Name] = idle > staleAfter
		m.mu.Unlock()

		if idle > staleAfter && !wasStale {
			log.Warn().
				Str("conn", info.Name).
				Str("remote", info.Remote).
				Dur("idle", idle).
				Msg("session stale: no frames within liveness window")

			m.eventBus.Emit(ctx, events.Event{
				Type:   events.EventSessionStale,
				Source: "health_check",
				Payload: events.SessionStalePayload{
					Conn:      info.Name,
					Remote:    info.Remote,
					LastFrame: info.LastFrame,
					IdleSec:   int64(idle.Seconds()),
				},
			})
		}
	}
}

// checkHostResources monitors CPU and memory pressure on the host.
func (m *Manager) checkHostResources(ctx context.Context) {
	cpuPct, err := util.GetCPUUsage()
	if err != nil {
		log.Warn().Err(err).Msg("CPU usage check failed")
		return
	}

	memUsage, err := util.GetMemoryUsage()
	if err != nil {
		log.Warn().Err(err).Msg("memory usage check failed")
		return
	}

	log.Debug().
		Float64("cpu_percent", cpuPct).
		Float64("mem_percent", memUsage.UsedPercent).
		Msg("host resources")

	if cpuPct >= 90 || memUsage.UsedPercent >= 90 {
		log.Warn().
			Float64("cpu_percent", cpuPct).
			Float64("mem_percent", memUsage.UsedPercent).
			Msg("host under resource pressure")
	}
}

// checkDiskUtilization monitors the journal volume and alerts at thresholds.
func (m *Manager) checkDiskUtilization(ctx context.Context) {
	path := filepath.Dir(m.cfg.GetApplicationData().Journal.Path)
	if path == "" || path == "." {
		path = "/"
	}

	usage, err := util.GetDiskUsage(path)
	if err != nil {
		log.Warn().Err(err).Msg("disk utilization check failed")
		return
	}

	log.Debug().
		Float64("used_percent", usage.UsedPercent).
		Uint64("free_gb", usage.Free).
		Msg("disk utilization")

	// Alert thresholds: 80%, 90%, 95%, 100%
	var level string
	switch {
	case usage.UsedPercent >= 100:
		level = "critical"
	case usage.UsedPercent >= 95:
		level = "error"
	case usage.UsedPercent >= 90:
		level = "warning"
	case usage.UsedPercent >= 80:
		level = "info"
	default:
		return // No alert needed
	}

	message := fmt.Sprintf("Disk usage at %.1f%% (%d GB free of %d GB total)",
		usage.UsedPercent, usage.Free, usage.Total)

	log.Warn().Str("level", level).Msg(message)
}

// checkPublicIP detects changes to the public IP address.
func (m *Manager) checkPublicIP(ctx context.Context) {
	ip, err := util.GetPublicIP()
	if err != nil {
		log.Warn().Err(err).Msg("public IP check failed")
		return
	}

	m.mu.Lock()
	previous := m.publicIP
	m.publicIP = ip
	m.mu.Unlock()

	if previous != "" && previous != ip {
		log.Warn().
			Str("old_ip", previous).
			Str("new_ip", ip).
			Msg("public IP changed")
	}
}

// heartbeatLoop emits a periodic heartbeat with session state.
func (m *Manager) heartbeatLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bound := 0
			var frames, sent uint64
			inWorld := false

			if m.gateway != nil {
				for _, info := range m.gateway.Status() {
					if info.Bound && info.Connected {
						bound++
					}
					frames += info.Frames
					sent += info.Sent
				}
				inWorld = m.gateway.InWorld()
			}

			m.eventBus.Emit(ctx, events.Event{
				Type:   events.EventHeartbeat,
				Source: "heartbeat",
				Payload: map[string]interface{}{
					"epoch":          m.cfg.GetGameData().Epoch,
					"bound_sessions": bound,
					"frames":         frames,
					"sent":           sent,
					"in_world":       inWorld,
					"timestamp":      time.Now().Unix(),
				},
			})
		}
	}
}
