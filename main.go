package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"inkeep-github-trigger/models"
	"inkeep-github-trigger/services"
)

var Logger *zap.Logger

// InitLogger initializes the global logger with appropriate configuration
func InitLogger(config *models.Config) {
	// Get log level from config
	level := getLogLevel(config.Logging.Level)

	// Create encoder config based on format
	var encoderConfig zapcore.EncoderConfig
	if config.Logging.Format == models.LogFormatJSON {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		// Console format (default)
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	// Create core based on format
	var core zapcore.Core
	if config.Logging.Format == models.LogFormatJSON {
		core = zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(os.Stdout),
			level,
		)
	} else {
		// Console format (default)
		core = zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(os.Stdout),
			level,
		)
	}

	// Create logger
	Logger = zap.New(core)
}

// getLogLevel returns the log level based on config
func getLogLevel(level models.LogLevel) zapcore.Level {
	switch level {
	case models.LogLevelDebug:
		return zapcore.DebugLevel
	case models.LogLevelInfo:
		return zapcore.InfoLevel
	case models.LogLevelWarn:
		return zapcore.WarnLevel
	case models.LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// readEvent loads the inbound event the runtime delivered for this run
func readEvent() (name string, payload []byte, err error) {
	name = os.Getenv("GITHUB_EVENT_NAME")
	if name == "" {
		return "", nil, models.NewTriggerError(models.ErrCodeMalformedEvent, "GITHUB_EVENT_NAME is not set")
	}

	eventPath := os.Getenv("GITHUB_EVENT_PATH")
	if eventPath == "" {
		return "", nil, models.NewTriggerError(models.ErrCodeMalformedEvent, "GITHUB_EVENT_PATH is not set")
	}

	payload, err = os.ReadFile(eventPath)
	if err != nil {
		return "", nil, models.WrapTriggerError(models.ErrCodeMalformedEvent, err, "failed to read event payload from %s", eventPath)
	}

	return name, payload, nil
}

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional, uses environment variables by default)")
	flag.Parse()

	// Load configuration
	config, err := models.LoadConfig(*configPath)
	if err != nil {
		// Use fmt for this error since logger isn't initialized yet
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	InitLogger(config)
	defer func() { _ = Logger.Sync() }()

	// The project id must be resolvable before anything touches the network
	projectID, err := services.ParseProjectID(config.Inputs.TriggerURL)
	if err != nil {
		Logger.Fatal("Invalid trigger URL", zap.Error(err))
	}

	eventName, eventPayload, err := readEvent()
	if err != nil {
		Logger.Fatal("Failed to read event", zap.Error(err))
	}

	ctx := context.Background()

	eventResolver := services.NewEventResolverService(Logger)
	eventContext, err := eventResolver.Resolve(eventName, eventPayload)
	if err != nil {
		Logger.Fatal("Failed to resolve event", zap.Error(err))
	}

	authService := services.NewAuthService(config, Logger)
	token, err := authService.GetToken(ctx, projectID)
	if err != nil {
		Logger.Fatal("Failed to obtain GitHub token", zap.Error(err))
	}

	githubClient, err := services.NewGitHubClient(ctx, token, os.Getenv("GITHUB_API_URL_OVERRIDE"))
	if err != nil {
		Logger.Fatal("Failed to create GitHub client", zap.Error(err))
	}

	processor := services.NewTriggerProcessor(
		services.NewLoopGuardService(githubClient, Logger),
		services.NewContextFetcherService(githubClient, Logger),
		services.NewDispatcherService(Logger),
		config,
		Logger,
	)

	result, err := processor.Process(ctx, eventContext)
	if err != nil {
		Logger.Fatal("Trigger run failed", zap.Error(err))
	}

	if err := services.WriteOutputs(result.Outputs, Logger); err != nil {
		Logger.Fatal("Failed to record outputs", zap.Error(err))
	}

	if result.Skipped {
		Logger.Info("Run skipped", zap.String("reason", result.SkipReason))
		return
	}

	Logger.Info("Run complete",
		zap.String("invocationId", result.Response.InvocationID),
		zap.String("conversationId", result.Response.ConversationID))
}
