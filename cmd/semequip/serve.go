package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/componentregistry"
	ssconfig "github.com/c360studio/semstreams/config"
	"github.com/c360studio/semstreams/metric"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/c360studio/semstreams/service"
	"github.com/c360studio/semstreams/types"
	"github.com/spf13/cobra"

	"github.com/c360studio/semequip/config"
	equipmentfiles "github.com/c360studio/semequip/output/equipment-files"
	equipmenttransform "github.com/c360studio/semequip/processor/equipment-transform"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var runtimeConfig string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the streaming equipment transformer on NATS",
		Long: `Serve starts a semstreams runtime with the equipment-transform processor.

Equipment documents published to equipment.ingest.<id> are transformed and
the graph published to equipment.rdf.<id>. With nats.publish_graph set, the
equipment entity is also published to graph.ingest.entity. With output.dir
set, every graph is also written to <dir>/<id><ext>.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			return runServe(cfg, runtimeConfig, logger)
		},
	}

	cmd.Flags().StringVar(&runtimeConfig, "runtime-config", "", "semstreams runtime config (JSON), replaces the generated one")

	return cmd
}

func runServe(cfg *config.Config, runtimeConfig string, logger *slog.Logger) error {
	ssCfg, err := loadRuntimeConfig(cfg, runtimeConfig)
	if err != nil {
		return fmt.Errorf("load runtime config: %w", err)
	}
	if err := ssCfg.Validate(); err != nil {
		return fmt.Errorf("invalid runtime configuration: %w", err)
	}

	ctx := context.Background()
	natsClient, err := connectToNATS(ctx, ssCfg, logger)
	if err != nil {
		return err
	}
	defer natsClient.Close(ctx)

	logger.Debug("Creating JetStream streams")
	if err := ssconfig.NewStreamsManager(natsClient, logger).EnsureStreams(ctx, ssCfg); err != nil {
		return fmt.Errorf("ensure streams: %w", err)
	}

	metricsRegistry := metric.NewMetricsRegistry()
	platform := types.PlatformMeta{Org: ssCfg.Platform.Org, Platform: ssCfg.Platform.ID}

	configManager, err := ssconfig.NewConfigManager(ssCfg, natsClient, logger)
	if err != nil {
		return fmt.Errorf("create config manager: %w", err)
	}
	if err := configManager.Start(ctx); err != nil {
		return fmt.Errorf("start config manager: %w", err)
	}
	defer configManager.Stop(5 * time.Second)

	componentRegistry := component.NewRegistry()
	if err := componentregistry.Register(componentRegistry); err != nil {
		return fmt.Errorf("register semstreams components: %w", err)
	}
	if err := equipmenttransform.Register(componentRegistry); err != nil {
		return fmt.Errorf("register equipment-transform: %w", err)
	}
	if err := equipmentfiles.Register(componentRegistry); err != nil {
		return fmt.Errorf("register equipment-files: %w", err)
	}
	slog.Info("Component factories registered", "count", len(componentRegistry.ListFactories()))

	serviceRegistry := service.NewServiceRegistry()
	if err := service.RegisterAll(serviceRegistry); err != nil {
		return fmt.Errorf("register services: %w", err)
	}
	manager := service.NewServiceManager(serviceRegistry)
	ensureServiceManagerConfig(ssCfg)

	svcDeps := &service.Dependencies{
		NATSClient:        natsClient,
		MetricsRegistry:   metricsRegistry,
		Logger:            logger,
		Platform:          platform,
		Manager:           configManager,
		ComponentRegistry: componentRegistry,
	}
	if err := configureServices(ssCfg, manager, svcDeps); err != nil {
		return err
	}

	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := manager.StartAll(signalCtx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}
	slog.Info("Semequip ready", "version", Version)

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	if err := manager.StopAll(30 * time.Second); err != nil {
		slog.Error("Error stopping services", "error", err)
	}

	slog.Info("Semequip shutdown complete")
	return nil
}

// loadRuntimeConfig reads an explicit semstreams config, expanding
// environment variables, or builds one from cfg.
func loadRuntimeConfig(cfg *config.Config, path string) (*ssconfig.Config, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		return ssconfig.NewLoader().LoadFromBytes([]byte(ssconfig.ExpandEnvWithDefaults(string(data))))
	}
	return buildRuntimeConfig(cfg)
}

// componentConfig renders cfg as equipment-transform component config.
func componentConfig(cfg *config.Config) (json.RawMessage, error) {
	c := equipmenttransform.DefaultConfig()
	c.ClassTable = cfg.Mapping.ClassTable
	c.PropertyTable = cfg.Mapping.PropertyTable
	c.SourcePrefix = cfg.Mapping.SourcePrefix
	c.WatchTables = cfg.Mapping.Watch
	rw := cfg.Rewrite()
	c.RewriteFrom = rw.From
	c.RewriteTo = rw.To
	c.DisableRewrite = rw.From == ""
	if cfg.Shape.Timeout > 0 {
		c.FetchTimeout = cfg.Shape.Timeout.String()
	}
	c.UserAgent = cfg.Shape.UserAgent
	c.MaxContentSize = cfg.Shape.MaxContentSize
	c.RequireHTTPS = cfg.Shape.RequireHTTPS
	c.BlockPrivate = cfg.Shape.BlockPrivate
	c.Format = cfg.Output.Format
	c.BaseIRI = cfg.Equipment.BaseIRI
	c.PublishGraph = cfg.NATS.PublishGraph
	c.RecordRuns = cfg.NATS.RecordRuns
	return json.Marshal(c)
}

func buildRuntimeConfig(cfg *config.Config) (*ssconfig.Config, error) {
	transformJSON, err := componentConfig(cfg)
	if err != nil {
		return nil, err
	}

	streams := ssconfig.StreamConfigs{
		"EQUIPMENT": ssconfig.StreamConfig{
			Subjects: []string{"equipment.ingest.>", "equipment.rdf.>"},
			MaxAge:   "24h",
			Storage:  "file",
			Replicas: 1,
		},
	}
	if cfg.NATS.PublishGraph {
		streams["GRAPH"] = ssconfig.StreamConfig{
			Subjects: []string{"graph.ingest.entity"},
			MaxAge:   "24h",
			Storage:  "memory",
			Replicas: 1,
		}
	}

	urls := []string{"nats://localhost:4222"}
	if cfg.NATS.URL != "" {
		urls = strings.Split(cfg.NATS.URL, ",")
	}

	components := ssconfig.ComponentConfigs{
		"equipment-transform": types.ComponentConfig{
			Name:    "equipment-transform",
			Type:    types.ComponentTypeProcessor,
			Enabled: true,
			Config:  transformJSON,
		},
	}
	if cfg.Output.Dir != "" {
		filesCfg := equipmentfiles.DefaultConfig()
		filesCfg.OutDir = cfg.Output.Dir
		filesJSON, err := json.Marshal(filesCfg)
		if err != nil {
			return nil, err
		}
		components["equipment-files"] = types.ComponentConfig{
			Name:    "equipment-files",
			Type:    types.ComponentTypeOutput,
			Enabled: true,
			Config:  filesJSON,
		}
	}

	return &ssconfig.Config{
		Version: "1.0.0",
		Platform: ssconfig.PlatformConfig{
			Org:         "semequip",
			ID:          "semequip-local",
			Environment: "dev",
		},
		NATS: ssconfig.NATSConfig{
			URLs:          urls,
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			JetStream: ssconfig.JetStreamConfig{
				Enabled: true,
			},
		},
		Services:   types.ServiceConfigs{},
		Components: components,
		Streams:    streams,
	}, nil
}

func connectToNATS(ctx context.Context, cfg *ssconfig.Config, logger *slog.Logger) (*natsclient.Client, error) {
	natsURLs := "nats://localhost:4222"
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		natsURLs = envURL
	} else if len(cfg.NATS.URLs) > 0 {
		natsURLs = strings.Join(cfg.NATS.URLs, ",")
	}

	logger.Info("Connecting to NATS", "url", natsURLs)

	client, err := natsclient.NewClient(natsURLs,
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
		natsclient.WithHealthInterval(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("NATS connection failed at %s: %w", natsURLs, err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, fmt.Errorf("NATS connection failed at %s: %w", natsURLs, err)
	}

	logger.Info("Connected to NATS", "url", natsURLs)
	return client, nil
}

// ensureServiceManagerConfig ensures service-manager config exists with defaults
func ensureServiceManagerConfig(cfg *ssconfig.Config) {
	if cfg.Services == nil {
		cfg.Services = make(types.ServiceConfigs)
	}
	if _, exists := cfg.Services["service-manager"]; exists {
		return
	}

	defaultConfig := map[string]any{
		"http_port":  8080,
		"swagger_ui": false,
		"server_info": map[string]string{
			"title":       "Semequip API",
			"description": "EqHub equipment to RDF transformer",
			"version":     Version,
		},
	}
	defaultConfigJSON, _ := json.Marshal(defaultConfig)
	cfg.Services["service-manager"] = types.ServiceConfig{
		Name:    "service-manager",
		Enabled: true,
		Config:  defaultConfigJSON,
	}
}

// configureServices configures the manager and creates every enabled,
// registered service.
func configureServices(cfg *ssconfig.Config, manager *service.Manager, svcDeps *service.Dependencies) error {
	if err := manager.ConfigureFromServices(cfg.Services, svcDeps); err != nil {
		return fmt.Errorf("configure service manager: %w", err)
	}

	for name, svcConfig := range cfg.Services {
		if name == "service-manager" || !svcConfig.Enabled {
			continue
		}
		if !manager.HasConstructor(name) {
			slog.Warn("Service configured but not registered", "key", name)
			continue
		}
		if _, err := manager.CreateService(name, svcConfig.Config, svcDeps); err != nil {
			return fmt.Errorf("create service %s: %w", name, err)
		}
		slog.Info("Created service", "name", name)
	}
	return nil
}
