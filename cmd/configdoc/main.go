package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	typedconfig "github.com/guidsdo/typed-configs"
	"github.com/guidsdo/typed-configs/internal/application"
	"github.com/guidsdo/typed-configs/internal/config"
	"github.com/guidsdo/typed-configs/internal/logging"
	"github.com/guidsdo/typed-configs/internal/schema"
)

var signalNotify = signal.Notify

type resolveFlags struct {
	schema         *string
	configFile     *string
	configRequired *bool
	ignoreEmptyEnv *bool
}

func (f resolveFlags) options() *typedconfig.Options {
	return &typedconfig.Options{
		ConfigFilePath:                  *f.configFile,
		ConfigFileRequired:              *f.configRequired,
		IgnoreEmptyEnvironmentVariables: *f.ignoreEmptyEnv,
	}
}

type cli struct {
	app *kingpin.Application

	settingsFile *string
	logLevel     *string

	check       *kingpin.CmdClause
	checkFlags  resolveFlags
	definitions *kingpin.CmdClause
	defsSchema  *string
	defsOutput  *string
	serve       *kingpin.CmdClause
	serveFlags  resolveFlags
	port        *string
	rpsFlag     *float64
	burstFlag   *int
}

func newCLI() *cli {
	c := &cli{app: kingpin.New("configdoc", "Resolve, validate and document typed configuration classes described in a YAML schema")}
	c.settingsFile = c.app.Flag("settings", "Path to the YAML settings file of configdoc itself").Envar("CONFIGDOC_SETTINGS").String()
	c.logLevel = c.app.Flag("log-level", "Minimum log level (debug, info, warn, error)").String()

	c.check = c.app.Command("check", "Resolve every schema class and report the first error")
	c.checkFlags = addResolveFlags(c.check)

	c.definitions = c.app.Command("definitions", "Write the JSON definitions of every schema field")
	c.defsSchema = c.definitions.Flag("schema", "Path to the schema file").Envar("CONFIGDOC_SCHEMA").Required().ExistingFile()
	c.defsOutput = c.definitions.Flag("output", "Write definitions to this file instead of stdout").Short('o').String()

	c.serve = c.app.Command("serve", "Resolve the schema and serve the read-only inspection API")
	c.serveFlags = addResolveFlags(c.serve)
	c.port = c.serve.Flag("port", "HTTP port exposed by the inspection API").String()
	c.rpsFlag = c.serve.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	c.burstFlag = c.serve.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	return c
}

func addResolveFlags(cmd *kingpin.CmdClause) resolveFlags {
	return resolveFlags{
		schema:         cmd.Flag("schema", "Path to the schema file").Envar("CONFIGDOC_SCHEMA").Required().ExistingFile(),
		configFile:     cmd.Flag("config", "YAML file with values keyed by environment name").Envar("CONFIGDOC_CONFIG_FILE").String(),
		configRequired: cmd.Flag("config-required", "Fail when the config file does not exist").Bool(),
		ignoreEmptyEnv: cmd.Flag("ignore-empty-env", "Skip environment variables set to an empty string").Bool(),
	}
}

func (c *cli) overrides() *config.CLIOverrides {
	overrides := &config.CLIOverrides{
		SettingsFile: *c.settingsFile,
	}

	if *c.logLevel != "" {
		overrides.LogLevel = c.logLevel
	}

	if *c.port != "" {
		overrides.Port = c.port
	}

	if *c.rpsFlag >= 0 {
		overrides.RateLimitRPS = c.rpsFlag
	}

	if *c.burstFlag >= 0 {
		overrides.RateLimitBurst = c.burstFlag
	}

	return overrides
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Environ); err != nil {
		fmt.Fprintf(os.Stderr, "configdoc: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer, environ func() []string) error {
	c := newCLI()
	command, err := c.app.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(c.overrides(), typedconfig.WithEnviron(environ))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	switch command {
	case c.check.FullCommand():
		return runCheck(c.checkFlags, stdout, environ, logger)
	case c.definitions.FullCommand():
		return runDefinitions(*c.defsSchema, *c.defsOutput, stdout)
	case c.serve.FullCommand():
		return runServe(cfg, c.serveFlags, environ, logger)
	}
	return fmt.Errorf("unknown command %q", command)
}

func resolve(flags resolveFlags, environ func() []string, logger *zap.Logger) (*typedconfig.Registry, error) {
	doc, err := schema.Load(*flags.schema)
	if err != nil {
		return nil, err
	}
	return application.ResolveSchema(doc, flags.options(),
		typedconfig.WithEnviron(environ),
		typedconfig.WithLogger(logger),
	)
}

func runCheck(flags resolveFlags, stdout io.Writer, environ func() []string, logger *zap.Logger) error {
	registry, err := resolve(flags, environ, logger)
	if err != nil {
		return err
	}

	classes := registry.Classes()
	fields := len(registry.Definitions())
	_, err = fmt.Fprintf(stdout, "ok: %d configs, %d fields resolved\n", len(classes), fields)
	return err
}

func runDefinitions(schemaPath, output string, stdout io.Writer) error {
	doc, err := schema.Load(schemaPath)
	if err != nil {
		return err
	}
	defs, err := application.DescribeSchema(doc)
	if err != nil {
		return err
	}

	w := stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(defs); err != nil {
		return fmt.Errorf("encode definitions: %w", err)
	}
	return nil
}

func runServe(cfg config.Config, flags resolveFlags, environ func() []string, logger *zap.Logger) error {
	registry, err := resolve(flags, environ, logger)
	if err != nil {
		return err
	}

	app, err := application.New(cfg, registry, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
	return nil
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
