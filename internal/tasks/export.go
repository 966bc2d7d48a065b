package tasks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/roster/internal/formatter"
	"github.com/desertthunder/roster/internal/paging"
	"github.com/desertthunder/roster/internal/services"
	"github.com/desertthunder/roster/internal/shared"
	"github.com/desertthunder/roster/internal/snapshot"
)

// FetcherFunc returns the page source for a collection.
type FetcherFunc func(collection string) paging.PageFetcher

// ExportOpts contains configuration for multi-collection exports.
type ExportOpts struct {
	Format     formatter.Format // Output format for every collection file
	OutputDir  string           // Base output directory (default: roster_export_{epoch})
	NumWorkers int              // Concurrent collections (default: 3)
	RateLimit  float64          // Collection starts per second (default: 5)
	Refresh    bool             // Discard cached snapshots before draining
}

// CollectionResult is the outcome of exporting one collection.
type CollectionResult struct {
	Collection string `json:"collection"`
	Records    int    `json:"records"`
	Pages      int    `json:"pages"`
	File       string `json:"file,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	Err        error  `json:"-"`
}

// ExportResult summarises an export and is written as its manifest.
type ExportResult struct {
	Format          formatter.Format   `json:"format"`
	OutputDirectory string             `json:"output_directory"`
	ExportedAt      time.Time          `json:"exported_at"`
	Total           int                `json:"total"`
	Successful      int                `json:"successful"`
	Failed          int                `json:"failed"`
	Results         []CollectionResult `json:"results"`
	ManifestPath    string             `json:"-"`
}

// ExportEngine drains collections through [paging.Loader] and writes them to disk.
type ExportEngine struct {
	fetchers  FetcherFunc
	store     snapshot.Store
	pagePause time.Duration
	logger    *log.Logger
}

// NewExportEngine creates an [ExportEngine]. Every collection shares store, so an export also
// refreshes the cached lists.
func NewExportEngine(fetchers FetcherFunc, store snapshot.Store, pagePause time.Duration, logger *log.Logger) *ExportEngine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ExportEngine{fetchers: fetchers, store: store, pagePause: pagePause, logger: logger}
}

// Export drains and writes each collection concurrently with rate limiting and progress tracking.
//
// Failures are per collection and recorded in the result; the manifest is written regardless.
// A cancelled context stops handing out collections and returns the partial result with the
// context's error.
func (e *ExportEngine) Export(ctx context.Context, prog chan<- ProgressUpdate, collections []string, opts ExportOpts) (*ExportResult, error) {
	collections = uniqueCollections(collections)
	if len(collections) == 0 {
		return nil, fmt.Errorf("%w: at least one collection", shared.ErrMissingArgument)
	}

	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("roster_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan string, len(collections))
	results := make(chan CollectionResult, len(collections))

	var wg sync.WaitGroup
	for i := 0; i < min(opts.NumWorkers, len(collections)); i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, name := range collections {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			sendProgress(prog, startedUpdate(i+1, len(collections), name))
			jobs <- name
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	byName := make(map[string]CollectionResult, len(collections))
	completed := 0
	for res := range results {
		completed++
		byName[res.Collection] = res

		if res.Success {
			sendProgress(prog, completedUpdate(completed, len(collections), res))
		} else {
			sendProgress(prog, failedUpdate(completed, len(collections), res))
		}
	}

	result := &ExportResult{
		Format:          opts.Format,
		OutputDirectory: opts.OutputDir,
		ExportedAt:      time.Now().UTC(),
		Total:           len(collections),
		Results:         make([]CollectionResult, 0, len(byName)),
	}
	for _, name := range collections {
		res, ok := byName[name]
		if !ok {
			continue
		}
		if res.Success {
			result.Successful++
		} else {
			result.Failed++
		}
		result.Results = append(result.Results, res)
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	sendProgress(prog, manifestUpdate(len(collections), manifestPath))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// exportWorker is a worker goroutine that exports collections from the jobs channel.
func (e *ExportEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan string,
	results chan<- CollectionResult,
	opts ExportOpts,
) {
	defer wg.Done()

	for name := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- e.exportCollection(ctx, name, opts)
	}
}

// exportCollection drains one collection and writes it to {OutputDir}/{name}{ext}.
func (e *ExportEngine) exportCollection(ctx context.Context, name string, opts ExportOpts) CollectionResult {
	res := CollectionResult{Collection: name}
	fail := func(err error) CollectionResult {
		res.Err = err
		res.Error = err.Error()
		e.logger.Error("export failed", "collection", name, "error", err)
		return res
	}

	if opts.Refresh {
		if err := snapshot.Clear(ctx, e.store, name); err != nil {
			return fail(err)
		}
	}

	l := paging.NewLoader(e.fetchers(name), e.store, paging.Options{
		Collection: name,
		AutoDrain:  true,
		PagePause:  e.pagePause,
		Logger:     e.logger,
	})
	if err := l.Mount(ctx); err != nil {
		return fail(err)
	}
	defer l.Unmount()

	if l.Start() {
		l.Wait()
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if err := l.Err(); err != nil {
		return fail(err)
	}

	records := l.Records()
	if name == services.ResultsCollection {
		records = formatter.WithGrades(records)
	}

	path := filepath.Join(opts.OutputDir, name+opts.Format.Extension())
	path, err := formatter.WriteExport(opts.Format, path, name, records, formatter.Columns(name, records))
	if err != nil {
		return fail(err)
	}

	res.Records = len(records)
	res.Pages = l.Pages()
	res.File = path
	res.Success = true
	e.logger.Info("exported collection", "collection", name, "records", res.Records, "file", path)
	return res
}

// uniqueCollections drops blank and repeated names, keeping first-seen order. Each collection
// owns one snapshot key, so two workers must never drain the same one.
func uniqueCollections(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
