// --- START OF FINAL REVISED FILE pkg/converter/engine.go ---
package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stackvity/obs2org/pkg/converter/cache"
	"github.com/stackvity/obs2org/pkg/converter/encoding"
	"github.com/stackvity/obs2org/pkg/converter/language"
	"github.com/stackvity/obs2org/pkg/converter/pandoc"
)

// ProcessorFactory defines a function type for creating FileProcessors.
type ProcessorFactory func(
	opts *Options,
	loggerHandler slog.Handler,
	cacheMgr cache.CacheManager,
	encHandler encoding.EncodingHandler,
	conv pandoc.Converter,
) *FileProcessor

// WalkerFactory defines a function type for creating Walkers.
type WalkerFactory func(
	opts *Options,
	workerChan chan<- SourceFile,
	loggerHandler slog.Handler,
) (*Walker, error)

// Engine orchestrates a run: it converts every note of the batch, then
// post-processes the converted notes once all outputs exist.
type Engine struct {
	opts             *Options
	logger           *slog.Logger
	cacheManager     cache.CacheManager
	processorFactory ProcessorFactory
	walkerFactory    WalkerFactory
	processor        *FileProcessor
	walker           *Walker
	aggregator       *reportAggregator
	ctx              context.Context
	cancelFunc       context.CancelFunc
	concurrency      int
	fatalOccurred    atomic.Bool
}

// NewEngine creates and initializes a new Engine instance, validating options and setting up dependencies.
func NewEngine(ctx context.Context, opts Options) (*Engine, error) { // minimal comment
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: Logger implementation (slog.Handler) cannot be nil", ErrConfigValidation)
	}
	if opts.Converter == nil {
		return nil, fmt.Errorf("%w: Converter implementation cannot be nil", ErrConfigValidation)
	}
	if opts.EventHooks == nil {
		opts.EventHooks = &NoOpHooks{}
	}
	if opts.OnErrorMode == "" {
		opts.OnErrorMode = DefaultOnErrorMode
	}
	if opts.GitDiffMode == "" {
		opts.GitDiffMode = GitDiffModeNone
	}

	logger := slog.New(opts.Logger).With(slog.String("component", "engine"))

	// Validate paths
	if opts.InputPath == "" {
		return nil, fmt.Errorf("%w: input path cannot be empty", ErrConfigValidation)
	}
	if opts.OutputPath == "" {
		return nil, fmt.Errorf("%w: output path cannot be empty", ErrConfigValidation)
	}
	baseDir, _, err := InputBase(opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigValidation, err)
	}
	if err := os.MkdirAll(opts.OutputPath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: cannot create or access output directory '%s': %w", ErrConfigValidation, opts.OutputPath, err)
	}

	if opts.ConversionTimeout == 0 && opts.Timeout != "" {
		timeout, parseErr := time.ParseDuration(opts.Timeout)
		if parseErr != nil || timeout <= 0 {
			return nil, fmt.Errorf("%w: invalid timeout '%s'", ErrConfigValidation, opts.Timeout)
		}
		opts.ConversionTimeout = timeout
	}

	// --- Dependency Initialization & Validation ---
	var cacheMgr cache.CacheManager = &NoOpCacheManager{}
	if opts.CacheEnabled {
		if opts.CacheFilePath == "" {
			opts.CacheFilePath = filepath.Join(opts.OutputPath, cache.CacheFileName)
			logger.Debug("CacheFilePath not set, defaulting", "path", opts.CacheFilePath)
		}
		if opts.CacheManager != nil {
			cacheMgr = opts.CacheManager
			logger.Debug("Using provided CacheManager implementation.")
		} else {
			cacheMgr = newFileCache(&opts, logger)
		}
	}
	opts.CacheManager = cacheMgr

	if opts.LanguageDetector == nil {
		opts.LanguageDetector = language.NewGoEnryDetector(opts.MarkdownExtensions)
		logger.Debug("LanguageDetector not provided, using default GoEnryDetector.")
	}
	if opts.EncodingHandler == nil {
		opts.EncodingHandler = encoding.NewGoCharsetEncodingHandler(opts.DefaultEncoding)
		logger.Debug("EncodingHandler not provided, using default GoCharsetEncodingHandler.")
	}

	if opts.GitDiffMode != GitDiffModeNone && opts.GitChangedFiles == nil {
		if opts.GitClient == nil {
			return nil, fmt.Errorf("%w: GitClient required but not provided for git diff mode '%s'", ErrConfigValidation, opts.GitDiffMode)
		}
		changed, gitErr := opts.GitClient.GetChangedFiles(baseDir, string(opts.GitDiffMode), opts.GitConfig.SinceRef)
		if gitErr != nil {
			return nil, fmt.Errorf("git diff mode '%s': %w", opts.GitDiffMode, gitErr)
		}
		opts.GitChangedFiles = make(map[string]struct{}, len(changed))
		for _, rel := range changed {
			opts.GitChangedFiles[rel] = struct{}{}
		}
		logger.Info("Restricting run to changed notes", slog.String("mode", string(opts.GitDiffMode)), slog.Int("changed", len(changed)))
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
		opts.Concurrency = concurrency
		logger.Debug("Concurrency auto-detected", "count", concurrency)
	}

	// Use provided factories or default constructors
	processorFactory := opts.ProcessorFactory
	if processorFactory == nil {
		processorFactory = NewFileProcessor
	}
	walkerFactory := opts.WalkerFactory
	if walkerFactory == nil {
		walkerFactory = NewWalker
	}

	engineCtx, cancelFunc := context.WithCancel(ctx)

	return &Engine{
		opts:             &opts,
		logger:           logger,
		cacheManager:     cacheMgr,
		processorFactory: processorFactory,
		walkerFactory:    walkerFactory,
		aggregator:       newReportAggregator(),
		ctx:              engineCtx,
		cancelFunc:       cancelFunc,
		concurrency:      concurrency,
	}, nil
}

// newFileCache creates the default cache manager and loads the index. When
// the index cannot be read the run proceeds without a cache.
func newFileCache(opts *Options, logger *slog.Logger) cache.CacheManager {
	appVersion := opts.AppVersion
	if appVersion == "" {
		appVersion = "dev"
		logger.Warn("AppVersion not set in Options, using 'dev' for cache compatibility. Cache may be invalid across builds.")
	}
	if opts.ClearCache {
		if err := os.Remove(opts.CacheFilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Failed to clear cache file", slog.String("path", opts.CacheFilePath), slog.String("error", err.Error()))
		} else {
			logger.Info("Cache cleared", slog.String("path", opts.CacheFilePath))
		}
	}

	mgr := cache.NewFileCacheManager(opts.Logger, cache.CacheSchemaVersion, appVersion, opts.CacheFormat)
	if err := mgr.Load(opts.CacheFilePath); err != nil {
		logger.Error("Failed to load cache index, proceeding without cache", slog.String("path", opts.CacheFilePath), slog.String("error", err.Error()))
		opts.CacheEnabled = false
		return &NoOpCacheManager{}
	}
	return mgr
}

// Run executes the conversion and post-processing phases.
func (e *Engine) Run() (report Report, finalErr error) { // minimal comment
	startTime := time.Now()
	e.logger.Info("Starting conversion run", "concurrency", e.concurrency, "cacheEnabled", e.opts.CacheEnabled)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic recovered during engine run", "panicValue", r)
			e.fatalOccurred.Store(true)
			if finalErr == nil {
				finalErr = fmt.Errorf("panic during execution: %v", r)
			}
		}
		e.cancelFunc()

		if e.opts.CacheEnabled {
			e.logger.Debug("Persisting cache index", "path", e.opts.CacheFilePath)
			if persistErr := e.cacheManager.Persist(e.opts.CacheFilePath); persistErr != nil {
				e.logger.Error("Failed to persist cache index", slog.String("path", e.opts.CacheFilePath), slog.String("error", persistErr.Error()))
				if finalErr == nil {
					finalErr = fmt.Errorf("failed to persist cache: %w", persistErr)
				}
			}
		}

		report = e.aggregator.getReport(e.opts, startTime, e.fatalOccurred.Load())
		e.logger.Info("Conversion run finished",
			slog.Duration("duration", time.Since(startTime)),
			slog.Int("processed", report.Summary.ProcessedCount),
			slog.Int("cached", report.Summary.CachedCount),
			slog.Int("skipped", report.Summary.SkippedCount),
			slog.Int("warnings", report.Summary.WarningCount),
			slog.Int("errors", report.Summary.ErrorCount),
			slog.Bool("fatalErrorOccurred", report.Summary.FatalErrorOccurred),
		)
		if hookErr := e.opts.EventHooks.OnRunComplete(report); hookErr != nil {
			e.logger.Warn("OnRunComplete hook returned an error", slog.String("error", hookErr.Error()))
		}
	}()

	e.processor = e.processorFactory(e.opts, e.opts.Logger, e.cacheManager, e.opts.EncodingHandler, e.opts.Converter)

	// --- Phase 1: conversion ---
	workerChan := make(chan SourceFile, e.concurrency)
	walker, walkInitErr := e.walkerFactory(e.opts, workerChan, e.opts.Logger)
	if walkInitErr != nil {
		e.logger.Error("Failed to initialize directory walker", slog.String("error", walkInitErr.Error()))
		e.fatalOccurred.Store(true)
		return report, fmt.Errorf("walker initialization failed: %w", walkInitErr)
	}
	e.walker = walker
	e.phaseStart(PhaseConversion, 0)

	results := newConversionResults()
	var wg sync.WaitGroup
	for i := 0; i < e.concurrency; i++ {
		wg.Add(1)
		go e.conversionWorker(&wg, i, workerChan, results)
	}

	walkErr := e.walker.StartWalk(e.ctx)
	if walkErr != nil && !errors.Is(walkErr, context.Canceled) && !errors.Is(walkErr, context.DeadlineExceeded) {
		e.logger.Error("Directory walk failed critically", slog.String("error", walkErr.Error()))
		e.markFatal()
	}
	wg.Wait()

	for _, skipped := range e.walker.Skipped() {
		e.aggregator.addSkipped(skipped)
	}
	e.aggregator.setScanned(len(e.walker.Dispatched()) + len(e.walker.Skipped()))

	// --- Barrier ---
	if e.ctx.Err() == nil && e.opts.CacheEnabled {
		e.reconvertStale(results)
	}

	cached, converted := results.sorted()
	for _, note := range cached {
		e.aggregator.addProcessed(note.info)
		e.aggregator.addCached()
	}

	// --- Phase 2: post-processing ---
	if e.ctx.Err() == nil {
		e.phaseStart(PhasePostProcess, len(converted))
		e.forEach(len(converted), func(i int) {
			e.postProcess(converted[i])
		})
	}

	if e.opts.CacheEnabled && e.opts.GitDiffMode == GitDiffModeNone && e.ctx.Err() == nil && walkErr == nil {
		keep := make(map[string]bool)
		for _, rel := range e.walker.Dispatched() {
			keep[rel] = true
		}
		if dropped := e.cacheManager.Retain(keep); dropped > 0 {
			e.logger.Debug("Dropped cache entries of removed notes", slog.Int("count", dropped))
		}
	}

	// Determine final error, wrapping underlying cause
	switch {
	case walkErr != nil && !errors.Is(walkErr, context.Canceled) && !errors.Is(walkErr, context.DeadlineExceeded):
		finalErr = fmt.Errorf("directory walk failed: %w", walkErr)
	case e.fatalOccurred.Load():
		if firstFatal := e.aggregator.getFirstFatalError(); firstFatal != nil {
			finalErr = fmt.Errorf("processing stopped due to fatal error: %w", firstFatal)
		} else {
			finalErr = errors.New("processing stopped due to fatal error")
		}
	case e.ctx.Err() != nil:
		e.logger.Info("Conversion run cancelled", slog.String("reason", e.ctx.Err().Error()))
		e.fatalOccurred.Store(true)
		finalErr = e.ctx.Err()
	}
	return report, finalErr
}

// phaseStart notifies the hooks that a phase begins.
func (e *Engine) phaseStart(phase Phase, total int) {
	e.logger.Debug("Phase started", slog.String("phase", string(phase)), slog.Int("total", total))
	if hookErr := e.opts.EventHooks.OnPhaseStart(phase, total); hookErr != nil {
		e.logger.Warn("OnPhaseStart hook returned an error", slog.String("phase", string(phase)), slog.String("error", hookErr.Error()))
	}
}

// statusUpdate notifies the hooks about a status change of one note.
func (e *Engine) statusUpdate(path string, status Status, message string, duration time.Duration) {
	if hookErr := e.opts.EventHooks.OnFileStatusUpdate(path, status, message, duration); hookErr != nil {
		e.logger.Warn("OnFileStatusUpdate hook returned an error", slog.String("path", path), slog.String("error", hookErr.Error()))
	}
}

// markFatal records a fatal condition and stops the run.
func (e *Engine) markFatal() {
	if e.fatalOccurred.CompareAndSwap(false, true) {
		e.cancelFunc()
	}
}

// recordError adds a per-file error to the report and stops the run when it is fatal.
func (e *Engine) recordError(path string, result interface{}, err error) {
	errorInfo := ErrorInfo{Path: path, Error: err.Error()}
	if ei, ok := result.(ErrorInfo); ok {
		errorInfo = ei
	}
	errorInfo.IsFatal = errorInfo.IsFatal || e.opts.OnErrorMode == OnErrorStop
	e.aggregator.addError(errorInfo)
	e.statusUpdate(path, StatusFailed, errorInfo.Error, 0)
	if errorInfo.IsFatal {
		e.logger.Info("Fatal error condition, signalling stop", "path", path, "error", err)
		e.markFatal()
	}
}

// recoverWorker turns a panic in a worker into a fatal error.
func (e *Engine) recoverWorker(logger *slog.Logger, path string) {
	if r := recover(); r != nil {
		logger.Error("Panic recovered in worker", "panicValue", r, "path", path)
		if path == "" {
			path = "unknown (panic)"
		}
		e.aggregator.addError(ErrorInfo{Path: path, Error: fmt.Sprintf("panic: %v", r), IsFatal: true})
		e.markFatal()
	}
}

// conversionWorker converts the notes sent by the walker until the channel closes.
func (e *Engine) conversionWorker(wg *sync.WaitGroup, workerID int, workerChan <-chan SourceFile, results *conversionResults) { // minimal comment
	defer wg.Done()
	wLogger := e.logger.With(slog.Int("workerID", workerID))
	wLogger.Debug("Worker started")

	for src := range workerChan {
		if e.ctx.Err() != nil {
			// Drain so that the walker never blocks on a cancelled run.
			continue
		}
		e.convertOne(wLogger, src, false, results)
	}
	wLogger.Debug("Worker shutting down (channel closed)")
}

// convertOne runs the conversion phase for one note and files the result.
func (e *Engine) convertOne(logger *slog.Logger, src SourceFile, forceMiss bool, results *conversionResults) {
	defer e.recoverWorker(logger, src.RelPath)
	e.statusUpdate(src.RelPath, StatusProcessing, "", 0)

	result, status, err := e.processor.Convert(e.ctx, src, forceMiss)
	if err != nil {
		e.recordError(src.RelPath, result, err)
		return
	}
	switch r := result.(type) {
	case convertedNote:
		results.add(r, status == StatusCached)
		e.statusUpdate(src.RelPath, status, r.info.CacheStatus, time.Duration(r.info.DurationMs)*time.Millisecond)
	case SkippedInfo:
		e.aggregator.addSkipped(r)
		e.statusUpdate(src.RelPath, StatusSkipped, r.Details, 0)
	default:
		e.recordError(src.RelPath, nil, fmt.Errorf("internal error: unexpected conversion result %T", result))
	}
}

// reconvertStale converts again every cached note that links to a note
// converted in this run, since the headings it resolved against may have
// changed.
func (e *Engine) reconvertStale(results *conversionResults) {
	stale := results.takeStale()
	if len(stale) == 0 {
		return
	}
	e.logger.Info("Re-converting cached notes whose link targets changed", slog.Int("count", len(stale)))
	e.forEach(len(stale), func(i int) {
		e.convertOne(e.logger, stale[i].src, true, results)
	})
}

// postProcess runs the post-processing phase for one converted note.
func (e *Engine) postProcess(note convertedNote) {
	defer e.recoverWorker(e.logger, note.src.RelPath)

	result, _, err := e.processor.PostProcess(e.ctx, note)
	if err != nil {
		e.recordError(note.src.RelPath, result, err)
		return
	}
	corrected, ok := result.(correctedNote)
	if !ok {
		e.recordError(note.src.RelPath, nil, fmt.Errorf("internal error: unexpected post-processing result %T", result))
		return
	}
	e.aggregator.addProcessed(corrected.info)
	e.aggregator.addDiagnostics(corrected.diagnostics)
	e.statusUpdate(note.src.RelPath, StatusSuccess, fmt.Sprintf("%d link diagnostics", len(corrected.diagnostics)), time.Duration(corrected.info.DurationMs)*time.Millisecond)
}

// forEach calls fn for 0..n-1 on at most e.concurrency goroutines. Items not
// yet started when the run is cancelled are skipped.
func (e *Engine) forEach(n int, fn func(i int)) {
	indexes := make(chan int)
	var wg sync.WaitGroup
	workers := e.concurrency
	if workers > n {
		workers = n
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if e.ctx.Err() == nil {
					fn(i)
				}
			}
		}()
	}
	for i := 0; i < n; i++ {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
}

// --- conversionResults ---

// conversionResults collects the notes of the conversion phase, keyed by
// their output path.
type conversionResults struct {
	mu        sync.Mutex
	cached    map[string]convertedNote
	converted map[string]convertedNote
}

func newConversionResults() *conversionResults {
	return &conversionResults{
		cached:    make(map[string]convertedNote),
		converted: make(map[string]convertedNote),
	}
}

func (r *conversionResults) add(note convertedNote, cached bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := note.src.OutputRel
	if cached {
		r.cached[key] = note
		return
	}
	delete(r.cached, key)
	r.converted[key] = note
}

// takeStale removes and returns the cached notes with a dependency among the
// converted notes.
func (r *conversionResults) takeStale() []convertedNote {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []convertedNote
	for key, note := range r.cached {
		for _, dep := range note.dependencies {
			if _, changed := r.converted[dep]; changed {
				stale = append(stale, note)
				delete(r.cached, key)
				break
			}
		}
	}
	sortNotes(stale)
	return stale
}

func (r *conversionResults) sorted() (cached, converted []convertedNote) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, note := range r.cached {
		cached = append(cached, note)
	}
	for _, note := range r.converted {
		converted = append(converted, note)
	}
	sortNotes(cached)
	sortNotes(converted)
	return cached, converted
}

func sortNotes(notes []convertedNote) {
	sort.Slice(notes, func(i, j int) bool { return notes[i].src.RelPath < notes[j].src.RelPath })
}

// --- reportAggregator ---

// reportAggregator manages the collection of results during the run.
type reportAggregator struct {
	mu             sync.Mutex
	processedFiles []FileInfo
	skippedFiles   []SkippedInfo
	errors         []ErrorInfo
	diagnostics    []DiagnosticInfo
	cachedCount    int
	warningCount   int
	scanned        int
}

// newReportAggregator creates a new report aggregator.
func newReportAggregator() *reportAggregator { // minimal comment
	return &reportAggregator{
		processedFiles: make([]FileInfo, 0, 512),
		skippedFiles:   make([]SkippedInfo, 0, 128),
		errors:         make([]ErrorInfo, 0, 32),
	}
}

// addProcessed appends a FileInfo to the list (thread-safe).
func (a *reportAggregator) addProcessed(info FileInfo) { // minimal comment
	a.mu.Lock()
	a.processedFiles = append(a.processedFiles, info)
	a.mu.Unlock()
}

// addCached increments the cached count (thread-safe).
func (a *reportAggregator) addCached() { // minimal comment
	a.mu.Lock()
	a.cachedCount++
	a.mu.Unlock()
}

// addSkipped appends a SkippedInfo to the list (thread-safe).
func (a *reportAggregator) addSkipped(info SkippedInfo) { // minimal comment
	a.mu.Lock()
	a.skippedFiles = append(a.skippedFiles, info)
	a.mu.Unlock()
}

// addError appends an ErrorInfo to the list (thread-safe).
func (a *reportAggregator) addError(info ErrorInfo) { // minimal comment
	a.mu.Lock()
	a.errors = append(a.errors, info)
	a.mu.Unlock()
}

// addDiagnostics appends link diagnostics and counts the warnings among them.
func (a *reportAggregator) addDiagnostics(diags []DiagnosticInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, d := range diags {
		a.diagnostics = append(a.diagnostics, d)
		if d.isWarning() {
			a.warningCount++
		}
	}
}

func (a *reportAggregator) setScanned(n int) {
	a.mu.Lock()
	a.scanned = n
	a.mu.Unlock()
}

// getFirstFatalError finds the first recorded error marked as fatal.
func (a *reportAggregator) getFirstFatalError() error { // minimal comment
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.errors {
		if e.IsFatal {
			return fmt.Errorf("fatal error processing file '%s': %s", e.Path, e.Error)
		}
	}
	return nil
}

// getReport compiles and returns the final Report struct. Lists are sorted by path.
func (a *reportAggregator) getReport(opts *Options, startTime time.Time, fatalOccurred bool) Report { // minimal comment
	a.mu.Lock()
	processed := append([]FileInfo{}, a.processedFiles...)
	skipped := append([]SkippedInfo{}, a.skippedFiles...)
	errorsList := append([]ErrorInfo{}, a.errors...)
	diagnostics := append([]DiagnosticInfo{}, a.diagnostics...)
	cachedCount, warningCount, scanned := a.cachedCount, a.warningCount, a.scanned
	a.mu.Unlock()

	sort.Slice(processed, func(i, j int) bool { return processed[i].Path < processed[j].Path })
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Path < skipped[j].Path })
	sort.SliceStable(errorsList, func(i, j int) bool { return errorsList[i].Path < errorsList[j].Path })
	sort.SliceStable(diagnostics, func(i, j int) bool { return diagnostics[i].Path < diagnostics[j].Path })

	return Report{
		Summary: ReportSummary{
			InputPath:          opts.InputPath,
			OutputPath:         opts.OutputPath,
			ProfileUsed:        opts.ProfileName,
			ConfigFilePath:     opts.ConfigFilePath,
			TotalFilesScanned:  scanned,
			ProcessedCount:     len(processed),
			CachedCount:        cachedCount,
			SkippedCount:       len(skipped),
			WarningCount:       warningCount,
			ErrorCount:         len(errorsList),
			FatalErrorOccurred: fatalOccurred,
			DurationSeconds:    time.Since(startTime).Seconds(),
			CacheEnabled:       opts.CacheEnabled,
			Concurrency:        opts.Concurrency,
			Timestamp:          time.Now().UTC(),
			SchemaVersion:      ReportSchemaVersion,
		},
		ProcessedFiles: processed,
		SkippedFiles:   skipped,
		Errors:         errorsList,
		Diagnostics:    diagnostics,
	}
}

// --- END OF FINAL REVISED FILE pkg/converter/engine.go ---
