// Package telemetry publishes the gateway's event stream to an MQTT
// broker so external dashboards can watch sessions live.
package telemetry

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/ragnet-project/ragnet/internal/config"
	"github.com/ragnet-project/ragnet/internal/events"
	"github.com/ragnet-project/ragnet/internal/util"
)

// MQTT topics
const (
	TopicAdmin   = "ragnet/admin"
	TopicSession = "ragnet/session"
	TopicGame    = "ragnet/game"
	TopicAnomaly = "ragnet/anomaly"
)

// MQTTHandler manages the MQTT connection and publishes telemetry
// events with TLS/mTLS support.
type MQTTHandler struct {
	mu sync.Mutex

	cfg      *config.Config
	eventBus *events.Bus
	client   mqtt.Client

	// Metadata included in every message
	metadata map[string]interface{}
}

// NewMQTTHandler creates a new MQTT telemetry handler.
func NewMQTTHandler(cfg *config.Config, eventBus *events.Bus) (*MQTTHandler, error) {
	mqttCfg := cfg.GetApplicationData().MQTT

	if !mqttCfg.Enabled {
		return nil, fmt.Errorf("MQTT is disabled")
	}

	sysInfo := util.GetSystemInfo()
	metadata := map[string]interface{}{
		"hostname":    sysInfo.Hostname,
		"platform":    sysInfo.Platform,
		"cpu_model":   sysInfo.CPUModel,
		"cpu_cores":   sysInfo.CPUCores,
		"memory_mb":   sysInfo.TotalMemory,
		"epoch":       cfg.GetGameData().Epoch,
		"app_version": "1.0.0",
	}

	handler := &MQTTHandler{
		cfg:      cfg,
		eventBus: eventBus,
		metadata: metadata,
	}

	opts := mqtt.NewClientOptions()
	scheme := "tcp"
	if mqttCfg.UseTLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, mqttCfg.BrokerURL, mqttCfg.Port))

	if mqttCfg.ClientID != "" {
		opts.SetClientID(mqttCfg.ClientID)
	} else {
		opts.SetClientID(fmt.Sprintf("ragnet-%s", sysInfo.Hostname))
	}

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(false)

	if mqttCfg.UseTLS {
		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS12,
		}

		// mTLS: load client certificate
		if mqttCfg.CertFile != "" && mqttCfg.KeyFile != "" {
			cert, err := tls.LoadX509KeyPair(mqttCfg.CertFile, mqttCfg.KeyFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load MQTT TLS certificate: %w", err)
			}
			tlsConfig.Certificates = []tls.Certificate{cert}
		}

		opts.SetTLSConfig(tlsConfig)
	}

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Info().Msg("MQTT connected")
	})

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	})

	handler.client = mqtt.NewClient(opts)

	return handler, nil
}

// Start connects to the MQTT broker and subscribes to events. It
// blocks until the context is cancelled.
func (h *MQTTHandler) Start(ctx context.Context) error {
	mqttCfg := h.cfg.GetApplicationData().MQTT
	log.Info().
		Str("broker", mqttCfg.BrokerURL).
		Int("port", mqttCfg.Port).
		Msg("connecting to MQTT broker")

	token := h.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect failed: %w", token.Error())
	}

	h.subscribeEvents()

	<-ctx.Done()

	h.PublishShutdown()
	h.client.Disconnect(5000)
	log.Info().Msg("MQTT disconnected")

	return nil
}

// subscribeEvents registers event handlers for MQTT publishing.
func (h *MQTTHandler) subscribeEvents() {
	h.eventBus.Subscribe(events.EventSessionConnected, "mqtt.sessionConnected", h.onSession("connected"))
	h.eventBus.Subscribe(events.EventSessionBound, "mqtt.sessionBound", h.onSession("bound"))
	h.eventBus.Subscribe(events.EventSessionDisconnected, "mqtt.sessionDisconnected", h.onSession("disconnected"))
	h.eventBus.Subscribe(events.EventLoginAccepted, "mqtt.loginAccepted", h.onGame("login_accepted"))
	h.eventBus.Subscribe(events.EventLoginRefused, "mqtt.loginRefused", h.onGame("login_refused"))
	h.eventBus.Subscribe(events.EventEnterWorld, "mqtt.enterWorld", h.onGame("enter_world"))
	h.eventBus.Subscribe(events.EventMapChange, "mqtt.mapChange", h.onGame("map_change"))
	h.eventBus.Subscribe(events.EventItemGained, "mqtt.itemGained", h.onGame("item_gained"))
	h.eventBus.Subscribe(events.EventItemRemoved, "mqtt.itemRemoved", h.onGame("item_removed"))
	h.eventBus.Subscribe(events.EventUnknownOpcode, "mqtt.unknownOpcode", h.onAnomaly("unknown_opcode"))
	h.eventBus.Subscribe(events.EventMalformedFrame, "mqtt.malformedFrame", h.onAnomaly("malformed_frame"))
	h.eventBus.Subscribe(events.EventSessionStale, "mqtt.sessionStale", h.onAnomaly("session_stale"))
	h.eventBus.Subscribe(events.EventHeartbeat, "mqtt.heartbeat", h.onAdmin("heartbeat"))
	h.eventBus.Subscribe(events.EventConfigChanged, "mqtt.configChanged", h.onAdmin("config_changed"))
}

// publish sends a JSON message to an MQTT topic.
func (h *MQTTHandler) publish(topic string, payload interface{}) {
	if !h.client.IsConnected() {
		return
	}

	msg := h.buildMessage(payload)

	data, err := json.Marshal(msg)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("failed to marshal MQTT message")
		return
	}

	token := h.client.Publish(topic, 1, false, data) // QoS 1
	go func() {
		token.Wait()
		if token.Error() != nil {
			log.Warn().Err(token.Error()).Str("topic", topic).Msg("MQTT publish failed")
		}
	}()
}

// buildMessage combines metadata with the event payload.
func (h *MQTTHandler) buildMessage(payload interface{}) map[string]interface{} {
	msg := make(map[string]interface{})

	for k, v := range h.metadata {
		msg[k] = v
	}

	msg["payload"] = payload
	msg["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	return msg
}

func (h *MQTTHandler) onSession(kind string) events.HandlerFunc {
	return func(_ context.Context, event events.Event) error {
		h.publish(TopicSession, map[string]interface{}{
			"event":   kind,
			"payload": event.Payload,
		})
		return nil
	}
}

func (h *MQTTHandler) onGame(kind string) events.HandlerFunc {
	return func(_ context.Context, event events.Event) error {
		h.publish(TopicGame, map[string]interface{}{
			"event":   kind,
			"source":  event.Source,
			"payload": event.Payload,
		})
		return nil
	}
}

func (h *MQTTHandler) onAnomaly(kind string) events.HandlerFunc {
	return func(_ context.Context, event events.Event) error {
		h.publish(TopicAnomaly, map[string]interface{}{
			"event":   kind,
			"source":  event.Source,
			"payload": event.Payload,
		})
		return nil
	}
}

func (h *MQTTHandler) onAdmin(kind string) events.HandlerFunc {
	return func(_ context.Context, event events.Event) error {
		h.publish(TopicAdmin, map[string]interface{}{
			"event":   kind,
			"source":  event.Source,
			"payload": event.Payload,
		})
		return nil
	}
}

// PublishShutdown sends a shutdown message to the MQTT broker.
func (h *MQTTHandler) PublishShutdown() {
	h.publish(TopicAdmin, map[string]interface{}{
		"event":     "shutdown",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
