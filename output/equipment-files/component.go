// Package equipmentfiles provides an output component that subscribes to
// serialized equipment graphs and writes each one to a file named after the
// equipment ID.
package equipmentfiles

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semequip/export"
	equipmenttransform "github.com/c360studio/semequip/processor/equipment-transform"
)

const componentName = "equipment-files"

// Notifier publishes core NATS messages. *natsclient.Client satisfies it.
type Notifier interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Component implements the equipment-files output processor.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	notifier   Notifier
	logger     *slog.Logger

	// Resolved subjects from port config
	inputSubject  string
	inputStream   string
	outputSubject string

	// Lifecycle
	running   bool
	startTime time.Time
	mu        sync.RWMutex
	cancel    context.CancelFunc

	// Metrics
	filesWritten   atomic.Int64
	writeErrors    atomic.Int64
	lastActivityMu sync.RWMutex
	lastActivity   time.Time
}

// NewComponent creates a new equipment-files output component.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	var config Config
	if err := json.Unmarshal(rawConfig, &config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Apply defaults if ports not specified
	if config.Ports == nil {
		config.Ports = DefaultConfig().Ports
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := newComponent(config, deps.GetLogger())
	c.natsClient = deps.NATSClient
	if deps.NATSClient != nil {
		c.notifier = deps.NATSClient
	}
	return c, nil
}

func newComponent(config Config, logger *slog.Logger) *Component {
	if logger == nil {
		logger = slog.Default()
	}

	inputSubject := "equipment.rdf.>"
	inputStream := "EQUIPMENT"
	outputSubject := ""
	if config.Ports != nil {
		if len(config.Ports.Inputs) > 0 {
			inputSubject = config.Ports.Inputs[0].Subject
			inputStream = config.Ports.Inputs[0].StreamName
		}
		if len(config.Ports.Outputs) > 0 {
			outputSubject = config.Ports.Outputs[0].Subject
		}
	}

	return &Component{
		name:          componentName,
		config:        config,
		logger:        logger,
		inputSubject:  inputSubject,
		inputStream:   inputStream,
		outputSubject: outputSubject,
	}
}

// Initialize creates the output directory.
func (c *Component) Initialize() error {
	if err := os.MkdirAll(c.config.OutDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

// Start begins consuming equipment graph messages.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("component already running")
	}
	if c.natsClient == nil {
		c.mu.Unlock()
		return fmt.Errorf("NATS client required")
	}

	c.running = true
	c.startTime = time.Now()

	consumeCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	consumerCfg := natsclient.StreamConsumerConfig{
		StreamName:    c.inputStream,
		ConsumerName:  componentName,
		FilterSubject: c.inputSubject,
		DeliverPolicy: "new",
		AckPolicy:     "explicit",
		MaxDeliver:    3,
		AckWait:       30 * time.Second,
	}

	err := c.natsClient.ConsumeStreamWithConfig(consumeCtx, consumerCfg, c.handleMessage)
	if err != nil {
		// Rollback running state on failure
		c.mu.Lock()
		c.running = false
		c.cancel = nil
		c.mu.Unlock()
		cancel()
		return fmt.Errorf("start consumer: %w", err)
	}

	c.logger.Info("equipment-files started",
		"out_dir", c.config.OutDir,
		"input", c.inputSubject,
		"output", c.outputSubject)

	return nil
}

// handleMessage writes the graph carried by a single message.
func (c *Component) handleMessage(ctx context.Context, msg jetstream.Msg) {
	payload, err := decodePayload(msg.Data())
	if err != nil {
		c.logger.Warn("Invalid equipment RDF message",
			"error", err,
			"subject", msg.Subject())
		_ = msg.Term()
		return
	}

	path, err := c.writeFile(ctx, payload)
	if err != nil {
		c.logger.Error("Failed to write equipment graph",
			"equipment_id", payload.EquipmentID,
			"error", err)
		c.writeErrors.Add(1)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
	c.logger.Debug("Wrote equipment graph",
		"equipment_id", payload.EquipmentID,
		"path", path)
}

// decodePayload extracts the equipment RDF payload from a BaseMessage.
func decodePayload(data []byte) (*equipmenttransform.Payload, error) {
	var baseMsg message.BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		return nil, fmt.Errorf("unmarshal base message: %w", err)
	}

	payload, ok := baseMsg.Payload().(*equipmenttransform.Payload)
	if !ok {
		// The payload may have been decoded as a generic type.
		payloadBytes, err := json.Marshal(baseMsg.Payload())
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		var raw equipmenttransform.Payload
		if err := json.Unmarshal(payloadBytes, &raw); err != nil {
			return nil, fmt.Errorf("payload is not equipment RDF: %w", err)
		}
		payload = &raw
	}

	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return payload, nil
}

// fileName returns the output file name for payload, or an error when the
// equipment ID cannot be used as a file name.
func fileName(payload *equipmenttransform.Payload) (string, error) {
	id := payload.EquipmentID
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("equipment ID %q is not a valid file name", id)
	}
	ext := ".ttl"
	if f, err := export.ParseFormat(payload.Format); err == nil {
		if info, ok := export.GetFormatInfo(f); ok {
			ext = info.Extension
		}
	}
	return id + ext, nil
}

// writeFile writes the serialized graph and publishes a notification.
func (c *Component) writeFile(ctx context.Context, payload *equipmenttransform.Payload) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	name, err := fileName(payload)
	if err != nil {
		return "", err
	}
	path := filepath.Join(c.config.OutDir, name)

	if err := os.MkdirAll(c.config.OutDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(payload.Content), 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	c.filesWritten.Add(1)
	c.updateLastActivity()

	if c.outputSubject != "" && c.notifier != nil {
		notification := &FileWrittenPayload{
			EquipmentID: payload.EquipmentID,
			RunID:       payload.RunID,
			Path:        path,
			Bytes:       len(payload.Content),
		}
		data, err := json.Marshal(message.NewBaseMessage(FileWrittenType, notification, componentName))
		if err != nil {
			c.logger.Warn("Failed to marshal written notification", "error", err)
		} else if err := c.notifier.Publish(ctx, c.outputSubject, data); err != nil {
			c.logger.Warn("Failed to publish written notification",
				"error", err,
				"subject", c.outputSubject)
		}
	}

	return path, nil
}

// Stop gracefully stops the component.
func (c *Component) Stop(_ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}

	c.running = false
	c.logger.Info("equipment-files stopped",
		"files_written", c.filesWritten.Load(),
		"write_errors", c.writeErrors.Load())

	return nil
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        componentName,
		Type:        "output",
		Description: "Writes serialized equipment graphs to files",
		Version:     "1.0.0",
	}
}

// InputPorts returns configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Inputs))
	for i, portDef := range c.config.Ports.Inputs {
		ports[i] = buildPort(portDef, component.DirectionInput)
	}
	return ports
}

// OutputPorts returns configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Outputs))
	for i, portDef := range c.config.Ports.Outputs {
		ports[i] = buildPort(portDef, component.DirectionOutput)
	}
	return ports
}

func buildPort(portDef component.PortDefinition, direction component.Direction) component.Port {
	port := component.Port{
		Name:        portDef.Name,
		Direction:   direction,
		Required:    portDef.Required,
		Description: portDef.Description,
	}
	if portDef.Type == "jetstream" {
		port.Config = component.JetStreamPort{
			StreamName: portDef.StreamName,
			Subjects:   []string{portDef.Subject},
		}
	} else {
		port.Config = component.NATSPort{
			Subject: portDef.Subject,
		}
	}
	return port
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return equipmentFilesSchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	c.mu.RLock()
	running := c.running
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	if running {
		status = "running"
	}

	return component.HealthStatus{
		Healthy:    running,
		LastCheck:  time.Now(),
		ErrorCount: int(c.writeErrors.Load()),
		Uptime:     time.Since(startTime),
		Status:     status,
	}
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	return component.FlowMetrics{
		LastActivity: c.getLastActivity(),
	}
}

func (c *Component) updateLastActivity() {
	c.lastActivityMu.Lock()
	c.lastActivity = time.Now()
	c.lastActivityMu.Unlock()
}

func (c *Component) getLastActivity() time.Time {
	c.lastActivityMu.RLock()
	defer c.lastActivityMu.RUnlock()
	return c.lastActivity
}
