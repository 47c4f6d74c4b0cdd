package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vidstream/internal/repositories"
	"github.com/desertthunder/vidstream/internal/services"
	"github.com/desertthunder/vidstream/internal/session"
	"github.com/desertthunder/vidstream/internal/shared"
	"github.com/desertthunder/vidstream/internal/upload"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The API client and everything behind it are built on first use by [Runner.connect], after the config and
// logger are settled.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	httpClient *http.Client
	openURL    func(string) error

	db        *sql.DB
	jar       *repositories.PersistentJar
	client    *services.Client
	session   *session.Store
	previewer *upload.Previewer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	HTTPClient *http.Client
	OpenURL    func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		openURL:    opts.OpenURL,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, videosCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// app builds the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "vidstream",
		Usage:   "Browse, watch and upload videos from the terminal",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars(shared.ConfigEnv),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override log.level from the config (debug, info, warn, error)",
			},
		},
		Before:   r.prepare,
		Commands: r.register(),
	}
}

// prepare loads the config unless one was injected and applies the log level.
func (r *Runner) prepare(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config == nil {
		config, path, err := shared.ResolveConfig(cmd.String("config"))
		if err != nil {
			return ctx, err
		}
		if path == "" {
			r.logger.Debug("no config file found, using defaults", "path", cmd.String("config"))
		}
		r.config, r.configPath = config, path
	}

	level := r.config.Log.Level
	if override := cmd.String("log-level"); override != "" {
		level = override
	}
	ll, err := shared.ParseLogLevel(level)
	if err != nil {
		return ctx, err
	}
	shared.SetLogLevel(r.logger, ll)
	return ctx, nil
}

// SetLogger swaps the logger used by the runner and by anything [Runner.connect] builds afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// connect opens the cookie database and builds the API client, session store and previewer.
//
// Stored cookies for the API host are loaded into the jar so a session survives between invocations.
func (r *Runner) connect() error {
	if r.client != nil {
		return nil
	}
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return err
	}

	jar, err := repositories.NewPersistentJar(repositories.NewCookieRepository(db), shared.WithLogger(r.logger, "component", "jar"))
	if err != nil {
		db.Close()
		return err
	}

	client, err := services.NewClient(services.Options{
		BaseURL:           r.config.API.BaseURL,
		HTTPClient:        r.httpClient,
		Jar:               jar,
		Timeout:           r.config.API.Timeout(),
		RequestsPerSecond: r.config.API.RequestsPerSecond,
		Burst:             r.config.API.Burst,
		UserAgent:         r.config.API.UserAgent,
		Logger:            shared.WithLogger(r.logger, "component", "api"),
	})
	if err != nil {
		db.Close()
		return err
	}

	n, err := jar.Load(client.BaseURL())
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to load stored cookies: %w", err)
	}
	r.logger.Debug("cookies restored", "host", client.BaseURL().Host, "count", n)

	r.db = db
	r.jar = jar
	r.client = client
	r.session = session.NewStore(client, shared.WithLogger(r.logger, "component", "session"))
	r.previewer = upload.NewPreviewer(r.config.Upload.MaxPreviews, shared.WithLogger(r.logger, "component", "upload"))
	return nil
}

// Close releases the database handle opened by [Runner.connect].
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
