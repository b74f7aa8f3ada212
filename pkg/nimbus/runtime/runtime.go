// Package runtime runs registered nimbus functions. On AWS Lambda it serves the
// one function named by NIMBUS_FUNCTION; anywhere else it serves every HTTP
// function on a local server and wires the other triggers to an in-memory
// deployment.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"go.uber.org/zap"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
	"github.com/nimbusframework/nimbus-go/pkg/nimbus/adapters"
	"github.com/nimbusframework/nimbus-go/pkg/nimbus/local"
)

// ErrFunctionNotRegistered is returned when NIMBUS_FUNCTION names no registered function
var ErrFunctionNotRegistered = errors.New("function not registered")

// Start is the main of a nimbus binary. It never returns on Lambda and
// returns locally once SIGINT or SIGTERM stopped the server.
func Start(functions ...nimbus.Function) {
	cfg := LoadConfig()
	logger, err := NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	if cfg.OnLambda {
		handler, err := LambdaHandler(context.Background(), cfg, logger, functions...)
		if err != nil {
			logger.Fatal("failed to prepare function", zap.Error(err))
		}
		lambda.Start(handler)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l, err := NewLocal(cfg, logger, functions...)
	if err != nil {
		logger.Fatal("failed to prepare local deployment", zap.Error(err))
	}
	if err := l.Run(ctx); err != nil {
		logger.Fatal("local server failed", zap.Error(err))
	}
}

// LambdaHandler selects cfg.Function among functions and returns its Lambda handler
func LambdaHandler(ctx context.Context, cfg *Config, logger *zap.Logger, functions ...nimbus.Function) (interface{}, error) {
	registry := nimbus.NewFunctionRegistry()
	if err := registry.Register(functions...); err != nil {
		return nil, err
	}
	fn, ok := registry.Get(cfg.Function)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotRegistered, cfg.Function)
	}

	metrics, err := newMetrics(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	inv, err := NewInvoker(fn, cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	logger.Info("serving function", zap.String("kind", string(fn.Kind)))
	return inv.Handler(), nil
}

func newMetrics(ctx context.Context, cfg *Config, logger *zap.Logger) (MetricsRecorder, error) {
	if !cfg.EnableMetrics {
		return noopMetrics{}, nil
	}
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.EnableTracing {
		awsv2.AWSV2Instrumentor(&awsCfg.APIOptions)
	}
	return NewCloudWatchMetrics(cfg.MetricsNamespace, cfg.Stage, cloudwatch.NewFromConfig(awsCfg), logger), nil
}

// Local serves functions on one machine: HTTP functions on a server, the
// rest through the process-wide local deployment clients talk to
type Local struct {
	cfg        *Config
	logger     *zap.Logger
	server     nimbus.Server
	deployment *local.Deployment
}

// NewLocal registers functions on a fresh deployment for cfg.Stage, makes it the
// default deployment and mounts the HTTP triggers on the configured server
func NewLocal(cfg *Config, logger *zap.Logger, functions ...nimbus.Function) (*Local, error) {
	deployment := local.New(cfg.Stage).WithLogger(logger)
	if err := deployment.Register(functions...); err != nil {
		return nil, err
	}
	server, err := adapters.New(cfg.Server)
	if err != nil {
		return nil, err
	}
	routes := adapters.Mount(server, cfg.Stage, functions...)
	local.SetDefault(deployment)

	logger.Info("local deployment ready",
		zap.String("server", server.Name()),
		zap.Int("functions", len(functions)),
		zap.Int("routes", routes))
	return &Local{cfg: cfg, logger: logger, server: server, deployment: deployment}, nil
}

func (l *Local) Server() nimbus.Server {
	return l.server
}

func (l *Local) Deployment() *local.Deployment {
	return l.deployment
}

// Run serves until ctx is done, then stops the server and waits for in-flight
// deliveries of the deployment
func (l *Local) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		l.logger.Info("starting server", zap.String("addr", l.cfg.Addr()))
		errCh <- l.server.Start(l.cfg.Addr())
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	l.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), l.cfg.ShutdownTimeout)
	defer cancel()

	err := l.server.Stop(shutdownCtx)
	l.deployment.Drain()
	if failures := l.deployment.Failures(); len(failures) > 0 {
		l.logger.Warn("deliveries failed during the session", zap.Int("failures", len(failures)))
	}
	return err
}
