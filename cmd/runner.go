package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/roster/internal/paging"
	"github.com/desertthunder/roster/internal/repositories"
	"github.com/desertthunder/roster/internal/services"
	"github.com/desertthunder/roster/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	api        *services.APIService
	ownsAPI    bool
	httpClient *http.Client
	db         *sql.DB
	ownsDB     bool
	validator  *shared.Validator
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	API        *services.APIService
	HTTPClient *http.Client
	DB         *sql.DB // Opened from Config.Database on first use when nil
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = services.NewHTTPClient(context.Background(), opts.Config.API.Token, opts.Config.API.Timeout)
	}

	r := &Runner{
		config:     opts.Config,
		api:        opts.API,
		httpClient: opts.HTTPClient,
		db:         opts.DB,
		validator:  shared.NewValidator(),
		logger:     opts.Logger,
		output:     opts.Output,
	}
	if r.api == nil {
		r.api = r.newAPI()
		r.ownsAPI = true
	}
	return r
}

func (r *Runner) newAPI() *services.APIService {
	return services.NewAPIService(
		r.config.API.BaseURL,
		r.httpClient,
		services.WithRetry(r.config.API.MaxRetries, r.config.API.RetryBackoff),
		services.WithLogger(r.logger),
	)
}

// SetLogger replaces the logger used by commands and by the API client the runner built.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	if r.ownsAPI {
		r.api = r.newAPI()
	}
}

// Close releases the database when the runner opened it.
func (r *Runner) Close() error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, studentsCommand, resultsCommand, snapshotCommand, exportCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// database opens and migrates the configured database on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db, r.ownsDB = db, true
	return db, nil
}

// store returns the snapshot store for the configured session.
func (r *Runner) store() (*repositories.SessionStore, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewSessionStore(db, r.config.Snapshot.Session), nil
}

func (r *Runner) collection(name string) *services.Collection {
	return services.NewCollection(r.api, name, r.config.API.PageSize)
}

func (r *Runner) loader(coll *services.Collection, store *repositories.SessionStore, autoDrain bool, updates chan<- paging.Update) *paging.Loader {
	return paging.NewLoader(coll, store, paging.Options{
		Collection: coll.Name(),
		AutoDrain:  autoDrain,
		PagePause:  r.config.Loader.PagePause,
		Logger:     shared.WithLogger(r.logger, "session", r.config.Snapshot.Session),
		Updates:    updates,
	})
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	output = append(output, '\n')
	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
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
