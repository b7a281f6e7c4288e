package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytcurator/internal/agent"
	"github.com/desertthunder/ytcurator/internal/catalog"
	"github.com/desertthunder/ytcurator/internal/repositories"
	"github.com/desertthunder/ytcurator/internal/session"
	"github.com/desertthunder/ytcurator/internal/shared"
	"github.com/desertthunder/ytcurator/internal/tools"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    catalog.Catalog
	factory    session.Factory
	logger     *log.Logger
	input      io.Reader
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	// Catalog replaces the YouTube Music catalog built from config.
	Catalog catalog.Catalog
	// Factory replaces the provider-backed agent factory.
	Factory session.Factory
	Logger  *log.Logger
	Input   io.Reader
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		factory:    opts.Factory,
		logger:     opts.Logger,
		input:      opts.Input,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		chatCommand, tuiCommand, serveCommand, setupCommand, authCommand,
		searchCommand, artistCommand, radioCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by the runner and everything it builds afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// before loads the file named by --config, when it exists, and overlays the environment.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if path == "" {
		path = "config.toml"
	}
	r.configPath = path

	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.logger.Debug("loaded config", "path", path)
	}

	r.config.ApplyEnv()
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// youtube returns the configured catalog, building the proxy client on first use.
func (r *Runner) youtube() catalog.Catalog {
	if r.catalog != nil {
		return r.catalog
	}

	yt := r.config.YouTube
	r.catalog = catalog.NewYouTubeCatalog(yt.ProxyURL,
		catalog.WithAuthFile(r.headersPath()),
		catalog.WithTimeout(r.config.CatalogTimeout()),
		catalog.WithRateLimit(yt.RequestsPerSecond),
		catalog.WithLogger(shared.WithLogger(r.logger, "component", "catalog")),
	)
	return r.catalog
}

func (r *Runner) headersPath() string {
	return shared.ExpandHome(r.config.YouTube.HeadersPath)
}

// openHistory opens the checkout history database, applying pending migrations.
func (r *Runner) openHistory() (*repositories.PlaylistRepository, *sql.DB, error) {
	db, err := shared.OpenMigrated(r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return repositories.NewPlaylistRepository(db), db, nil
}

// sessions builds a session manager whose agents record checkouts to recorder and report progress to progress.
//
// Both may be nil.
func (r *Runner) sessions(recorder tools.Recorder, progress func(string)) (*session.Manager, error) {
	factory := r.factory
	if factory == nil {
		if err := r.config.ValidateLLM(); err != nil {
			return nil, err
		}
		factory = session.NewAgentFactory(session.AgentConfig{
			Provider: r.config.ProviderName(),
			Options: agent.ProviderConfig{
				APIKey:       r.config.APIKey(),
				Model:        r.config.ModelName(),
				SystemPrompt: r.config.LLM.SystemPrompt,
			},
			Catalog:   r.youtube(),
			Recorder:  recorder,
			MaxRounds: r.config.LLM.MaxRounds,
			Timeout:   r.config.LLMTimeout(),
			Logger:    r.logger,
			Progress:  progress,
		})
	}

	return session.NewManager(factory, r.logger), nil
}

// recorderOrNil keeps a nil repository from becoming a non-nil [tools.Recorder].
func recorderOrNil(repo *repositories.PlaylistRepository) tools.Recorder {
	if repo == nil {
		return nil
	}
	return repo
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
