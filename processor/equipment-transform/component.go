// Package equipmenttransform provides a processor that consumes raw EqHub
// equipment documents from JetStream, projects each into a graph shaped by
// its class's SHACL BlockType and publishes the serialized graph.
package equipmenttransform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/cayleygraph/quad"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semequip/equipment"
	errs "github.com/c360studio/semequip/errors"
	"github.com/c360studio/semequip/graph"
	"github.com/c360studio/semequip/mapping"
	"github.com/c360studio/semequip/shape"
	"github.com/c360studio/semequip/storage"
	"github.com/c360studio/semequip/transform"
)

const componentName = "equipment-transform"

// disposition is the acknowledgement decision for one message.
type disposition int

const (
	ack disposition = iota
	nak
	term
)

func (d disposition) String() string {
	switch d {
	case ack:
		return "ack"
	case nak:
		return "nak"
	default:
		return "term"
	}
}

// Component implements the equipment-transform processor.
type Component struct {
	name        string
	config      Config
	natsClient  *natsclient.Client
	publisher   graph.StreamPublisher
	logger      *slog.Logger
	store       *mapping.Store
	transformer *transform.Transformer
	runs        *storage.Store

	// Resolved subjects from port config
	inputSubject string
	inputStream  string
	outputPrefix string

	// Lifecycle
	running   bool
	startTime time.Time
	mu        sync.RWMutex
	cancel    context.CancelFunc
	watcher   *mapping.Watcher

	// Metrics
	transformed    atomic.Int64
	rejected       atomic.Int64
	retried        atomic.Int64
	publishErrors  atomic.Int64
	lastActivityMu sync.RWMutex
	lastActivity   time.Time
}

// NewComponent creates a new equipment-transform processor.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	config := DefaultConfig()
	if err := json.Unmarshal(rawConfig, &config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if config.Ports == nil {
		config.Ports = DefaultConfig().Ports
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := deps.GetLogger()

	store, err := mapping.NewStore(mapping.StoreConfig{
		ClassTable:    config.ClassTable,
		PropertyTable: config.PropertyTable,
		SourcePrefix:  config.SourcePrefix,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("load mapping tables: %w", err)
	}

	fetcher := shape.NewHTTPFetcher(config.GetFetchConfig())

	metrics, err := transform.NewMetrics(deps.MetricsRegistry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	c := newComponent(config, store, shape.NewResolver(fetcher, config.GetRewrite(), logger), metrics, logger)
	c.natsClient = deps.NATSClient
	if deps.NATSClient != nil {
		c.publisher = deps.NATSClient
	}
	return c, nil
}

// newComponent wires a component around an existing store and resolver.
func newComponent(config Config, store *mapping.Store, resolver *shape.Resolver, metrics *transform.Metrics, logger *slog.Logger) *Component {
	if logger == nil {
		logger = slog.Default()
	}

	inputSubject := "equipment.ingest.>"
	inputStream := "EQUIPMENT"
	if config.Ports != nil && len(config.Ports.Inputs) > 0 {
		inputSubject = config.Ports.Inputs[0].Subject
		inputStream = config.Ports.Inputs[0].StreamName
	}

	return &Component{
		name:   componentName,
		config: config,
		logger: logger,
		store:  store,
		transformer: transform.New(store, resolver, transform.Config{
			BaseIRI: config.GetBaseIRI(),
			Format:  config.GetFormat(),
		}, transform.WithLogger(logger), transform.WithMetrics(metrics)),
		inputSubject: inputSubject,
		inputStream:  inputStream,
		outputPrefix: config.outputPrefix(),
	}
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	return nil
}

// Start begins consuming equipment documents.
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

	if c.config.WatchTables {
		if err := c.startWatcher(consumeCtx); err != nil {
			c.rollbackStart(cancel)
			return err
		}
	}

	if c.config.RecordRuns {
		js, err := c.natsClient.JetStream()
		if err != nil {
			c.rollbackStart(cancel)
			return fmt.Errorf("get JetStream for run storage: %w", err)
		}
		runs, err := storage.NewStore(consumeCtx, js)
		if err != nil {
			c.rollbackStart(cancel)
			return err
		}
		c.mu.Lock()
		c.runs = runs
		c.mu.Unlock()
	}

	consumerCfg := natsclient.StreamConsumerConfig{
		StreamName:    c.inputStream,
		ConsumerName:  componentName,
		FilterSubject: c.inputSubject,
		DeliverPolicy: "new",
		AckPolicy:     "explicit",
		MaxDeliver:    3,
		AckWait:       c.config.GetFetchTimeout() + 10*time.Second,
	}

	if err := c.natsClient.ConsumeStreamWithConfig(consumeCtx, consumerCfg, c.handleMessage); err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("start consumer: %w", err)
	}

	c.logger.Info("equipment-transform started",
		"format", c.config.GetFormat(),
		"input", c.inputSubject,
		"output", c.outputPrefix+".>",
		"watch_tables", c.config.WatchTables,
		"publish_graph", c.config.PublishGraph)

	return nil
}

func (c *Component) startWatcher(ctx context.Context) error {
	w, err := mapping.NewWatcher(c.store, 0, c.logger)
	if err != nil {
		return fmt.Errorf("create table watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start table watcher: %w", err)
	}
	c.mu.Lock()
	c.watcher = w
	c.mu.Unlock()
	return nil
}

func (c *Component) rollbackStart(cancel context.CancelFunc) {
	c.mu.Lock()
	c.running = false
	c.cancel = nil
	w := c.watcher
	c.watcher = nil
	c.mu.Unlock()
	if w != nil {
		_ = w.Stop()
	}
	cancel()
}

// handleMessage processes a single equipment document.
func (c *Component) handleMessage(ctx context.Context, msg jetstream.Msg) {
	switch c.process(ctx, msg.Data()) {
	case ack:
		_ = msg.Ack()
	case nak:
		_ = msg.Nak()
	default:
		_ = msg.Term()
	}
}

// process transforms one document and publishes the result. Malformed or
// unmappable documents are terminated; failed fetches and publishes are
// retried.
func (c *Component) process(ctx context.Context, data []byte) disposition {
	c.updateLastActivity()

	res, err := c.transformer.Transform(ctx, data)
	if err != nil {
		d := term
		if errs.IsTransient(err) {
			d = nak
			c.retried.Add(1)
			c.logger.Warn("Equipment transform failed, will retry",
				"kind", errs.KindOf(err).String(),
				"error", err)
		} else {
			c.rejected.Add(1)
			c.logger.Warn("Equipment document rejected",
				"kind", errs.KindOf(err).String(),
				"error", err)
		}
		c.recordFailure(ctx, data, d, err)
		return d
	}

	subject, err := c.publishResult(ctx, res)
	if err != nil {
		c.publishErrors.Add(1)
		c.logger.Warn("Failed to publish equipment RDF",
			"equipment_id", res.EquipmentID,
			"error", err)
		c.recordRun(ctx, &storage.Run{
			RunID:       res.RunID,
			EquipmentID: res.EquipmentID,
			ClassID:     res.ClassID,
			Status:      storage.RunRetried,
			Error:       err.Error(),
		})
		return nak
	}

	c.transformed.Add(1)
	c.logger.Debug("Transformed equipment",
		"equipment_id", res.EquipmentID,
		"class_id", res.ClassID,
		"shape", res.ShapeType,
		"triples", res.Graph.Len(),
		"skipped", res.Skipped)
	c.recordRun(ctx, &storage.Run{
		RunID:       res.RunID,
		EquipmentID: res.EquipmentID,
		ClassID:     res.ClassID,
		ShapeType:   res.ShapeType,
		Status:      storage.RunSucceeded,
		Triples:     res.Graph.Len(),
		Skipped:     res.Skipped,
		Subject:     subject,
	})
	return ack
}

// recordFailure records a failed run when the document still names its
// equipment item.
func (c *Component) recordFailure(ctx context.Context, data []byte, d disposition, cause error) {
	rec, err := equipment.ParseRecord(data)
	if err != nil {
		return
	}
	status := storage.RunRejected
	if d == nak {
		status = storage.RunRetried
	}
	c.recordRun(ctx, &storage.Run{
		EquipmentID: rec.ID,
		ClassID:     rec.ClassID,
		Status:      status,
		Kind:        errs.KindOf(cause).String(),
		Error:       cause.Error(),
	})
}

func (c *Component) recordRun(ctx context.Context, run *storage.Run) {
	c.mu.RLock()
	runs := c.runs
	c.mu.RUnlock()
	if runs == nil {
		return
	}
	if err := runs.Record(ctx, run); err != nil {
		c.logger.Warn("Failed to record transform run",
			"equipment_id", run.EquipmentID,
			"error", err)
	}
}

// publishResult publishes the serialized graph and, when enabled, the
// equipment entity for graph ingestion. It returns the graph's subject.
func (c *Component) publishResult(ctx context.Context, res *transform.Result) (string, error) {
	if c.publisher == nil {
		return "", fmt.Errorf("no publisher configured")
	}

	payload := &Payload{
		RunID:        res.RunID,
		EquipmentID:  res.EquipmentID,
		EquipmentIRI: res.EquipmentIRI,
		ClassID:      res.ClassID,
		ShapeType:    res.ShapeType,
		Format:       string(res.Format),
		Content:      res.Content,
		TripleCount:  res.Graph.Len(),
		Skipped:      res.Skipped,
	}

	baseMsg := message.NewBaseMessage(payload.Schema(), payload, componentName)
	data, err := json.Marshal(baseMsg)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	subject := c.outputPrefix + "." + res.EquipmentID
	if err := c.publisher.PublishToStream(ctx, subject, data); err != nil {
		return "", fmt.Errorf("publish to %s: %w", subject, err)
	}

	if c.config.PublishGraph {
		entity := graph.EntityFromGraph(res.EquipmentID, quad.IRI(res.EquipmentIRI), res.Graph, time.Now())
		if err := graph.PublishEquipment(ctx, c.publisher, entity); err != nil {
			return "", err
		}
	}
	return subject, nil
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
	if c.watcher != nil {
		if err := c.watcher.Stop(); err != nil {
			c.logger.Warn("Failed to stop table watcher", "error", err)
		}
		c.watcher = nil
	}

	c.running = false
	c.logger.Info("equipment-transform stopped",
		"transformed", c.transformed.Load(),
		"rejected", c.rejected.Load(),
		"retried", c.retried.Load(),
		"publish_errors", c.publishErrors.Load())

	return nil
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        componentName,
		Type:        "processor",
		Description: "Projects EqHub equipment JSON into SHACL shape-conformant RDF",
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
	return equipmentTransformSchema
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
		ErrorCount: int(c.rejected.Load() + c.publishErrors.Load()),
		Uptime:     time.Since(startTime),
		Status:     status,
	}
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	var errorRate float64
	total := c.transformed.Load() + c.rejected.Load()
	if total > 0 {
		errorRate = float64(c.rejected.Load()) / float64(total)
	}
	return component.FlowMetrics{
		ErrorRate:    errorRate,
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
