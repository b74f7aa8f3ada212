package runtime

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
	"github.com/nimbusframework/nimbus-go/pkg/nimbus/adapters"
	"github.com/nimbusframework/nimbus-go/pkg/nimbus/local"
)

// Environment variables read by the runtime, next to the ones nimbus.Env* names
const (
	EnvPort             = "PORT"
	EnvLocalServer      = "NIMBUS_LOCAL_SERVER"
	EnvEnableMetrics    = "NIMBUS_ENABLE_METRICS"
	EnvEnableTracing    = "NIMBUS_ENABLE_TRACING"
	EnvMetricsNamespace = "NIMBUS_METRICS_NAMESPACE"
	EnvLogLevel         = "NIMBUS_LOG_LEVEL"
	EnvShutdownTimeout  = "NIMBUS_SHUTDOWN_TIMEOUT"

	lambdaFunctionNameEnv = "AWS_LAMBDA_FUNCTION_NAME"
)

// Config holds the runtime settings of one process
type Config struct {
	OnLambda bool
	// Function is the registered name of the function a Lambda process serves
	Function    string
	Stage       string
	ProjectName string

	Port            int
	Server          string
	ShutdownTimeout time.Duration

	LogLevel         string
	EnableMetrics    bool
	EnableTracing    bool
	MetricsNamespace string
}

// LoadConfig reads the configuration from the environment
func LoadConfig() *Config {
	return &Config{
		OnLambda:    getEnv(lambdaFunctionNameEnv, "") != "",
		Function:    getEnv(nimbus.EnvFunction, ""),
		Stage:       getEnv(nimbus.EnvStage, local.DefaultStage),
		ProjectName: getEnv(nimbus.EnvProjectName, "nimbus"),

		Port:            getEnvInt(EnvPort, 8080),
		Server:          strings.ToLower(getEnv(EnvLocalServer, adapters.EchoServer)),
		ShutdownTimeout: time.Duration(getEnvInt(EnvShutdownTimeout, 10)) * time.Second,

		LogLevel:         getEnv(EnvLogLevel, "info"),
		EnableMetrics:    getEnvBool(EnvEnableMetrics, false),
		EnableTracing:    getEnvBool(EnvEnableTracing, false),
		MetricsNamespace: getEnv(EnvMetricsNamespace, "Nimbus"),
	}
}

// Validate checks the configuration for the environment it runs in
func (c *Config) Validate() error {
	if c.OnLambda && c.Function == "" {
		return fmt.Errorf("%s is required when running on Lambda", nimbus.EnvFunction)
	}
	if c.Stage == "" {
		return fmt.Errorf("%s must not be empty", nimbus.EnvStage)
	}
	if !c.OnLambda {
		if c.Port < 1 || c.Port > 65535 {
			return fmt.Errorf("%s must be between 1 and 65535, got %d", EnvPort, c.Port)
		}
		switch c.Server {
		case adapters.EchoServer, adapters.GinServer, adapters.FiberServer:
		default:
			return fmt.Errorf("%s must be one of echo, gin, fiber, got %q", EnvLocalServer, c.Server)
		}
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvShutdownTimeout)
	}
	return nil
}

// Addr is the local listen address
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
