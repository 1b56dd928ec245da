// --- START OF FINAL REVISED FILE pkg/converter/walker.go ---
package converter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/stackvity/obs2org/pkg/converter/language"
	"github.com/stackvity/obs2org/pkg/util"
)

// SourceFile is one Markdown note dispatched to the conversion workers.
type SourceFile struct {
	// AbsPath is the absolute path of the note.
	AbsPath string
	// RelPath is the slash-separated path relative to the input directory.
	RelPath string
	// OutputRel is the slash-separated path of the generated Org file
	// relative to the output directory.
	OutputRel string
}

// Walker is responsible for traversing the input, applying ignore rules,
// and dispatching Markdown notes to the worker pool.
// Skipped files are collected and available from Skipped once StartWalk returned.
type Walker struct {
	opts                 *Options
	workerChan           chan<- SourceFile
	hooks                Hooks
	logger               *slog.Logger
	detector             language.LanguageDetector
	baseDir              string
	singleFile           string
	outputDir            string
	ignoreMatcher        *ignoreMatcher
	gitDiffMap           map[string]struct{}
	gitDiffActive        bool
	dispatchWarnDuration time.Duration

	outputs    map[string]string
	skipped    []SkippedInfo
	dispatched []string
}

// NewWalker creates a new Walker instance. The input may be a single note or
// a directory tree.
func NewWalker(opts *Options, workerChan chan<- SourceFile, loggerHandler slog.Handler) (*Walker, error) { // Minimal comment
	logger := slog.New(loggerHandler).With(slog.String("component", "walker"))

	baseDir, singleFile, err := InputBase(opts.InputPath)
	if err != nil {
		return nil, err
	}
	outputDir, err := filepath.Abs(opts.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute path for output: %w", err)
	}

	ignoreMatcher, err := newIgnoreMatcher(baseDir, opts.IgnorePatterns, logger)
	if err != nil {
		logger.Error("Failed to initialize ignore pattern matcher", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to initialize ignore patterns: %w", err)
	}
	logger.Debug("Ignore patterns loaded", slog.Int("count", ignoreMatcher.patternCount()))

	gitDiffActive := opts.GitDiffMode == GitDiffModeDiffOnly || opts.GitDiffMode == GitDiffModeSince
	gitDiffMap := opts.GitChangedFiles
	if gitDiffActive && gitDiffMap == nil {
		logger.Warn("Git diff mode active but no changed files provided; nothing will be converted")
		gitDiffMap = map[string]struct{}{}
	}

	detector := opts.LanguageDetector
	if detector == nil {
		detector = language.NewGoEnryDetector(opts.MarkdownExtensions)
	}
	hooks := opts.EventHooks
	if hooks == nil {
		hooks = &NoOpHooks{}
	}
	dispatchWarnDuration := opts.DispatchWarnThreshold
	if dispatchWarnDuration <= 0 {
		dispatchWarnDuration = DefaultDispatchWarnThreshold
	}

	return &Walker{
		opts:                 opts,
		workerChan:           workerChan,
		hooks:                hooks,
		logger:               logger,
		detector:             detector,
		baseDir:              baseDir,
		singleFile:           singleFile,
		outputDir:            outputDir,
		ignoreMatcher:        ignoreMatcher,
		gitDiffMap:           gitDiffMap,
		gitDiffActive:        gitDiffActive,
		dispatchWarnDuration: dispatchWarnDuration,
		outputs:              make(map[string]string),
	}, nil
}

// InputBase resolves the input path. For a directory it returns its absolute
// path; for a single note it returns the note's directory and the note itself.
func InputBase(inputPath string) (baseDir, singleFile string, err error) {
	abs, err := filepath.Abs(inputPath)
	if err != nil {
		return "", "", fmt.Errorf("could not get absolute path for input: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", "", fmt.Errorf("%w: cannot access input path '%s': %w", ErrStatFailed, abs, err)
	}
	if info.IsDir() {
		return abs, "", nil
	}
	return filepath.Dir(abs), abs, nil
}

// OutputRelPath maps a note's input-relative path to its Org file: the
// extension is replaced by .org.
func OutputRelPath(relPath string) string {
	relPath = filepath.ToSlash(relPath)
	return strings.TrimSuffix(relPath, path.Ext(relPath)) + OrgExtension
}

// StartWalk begins the traversal. It closes the worker channel when done.
func (w *Walker) StartWalk(ctx context.Context) error { // Minimal comment
	defer func() {
		close(w.workerChan)
		w.logger.Debug("Worker channel closed")
	}()

	if w.singleFile != "" {
		w.logger.Info("Converting single note", slog.String("path", w.singleFile))
		rel := filepath.Base(w.singleFile)
		w.discovered(rel)
		return w.dispatch(ctx, w.singleFile, rel)
	}

	w.logger.Info("Starting directory walk", slog.String("path", w.baseDir))
	walkErr := filepath.WalkDir(w.baseDir, w.walkFunc(ctx))
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			w.logger.Info("Directory walk cancelled", slog.String("reason", walkErr.Error()))
			return walkErr
		}
		w.logger.Error("Directory walk encountered an error during traversal", slog.String("error", walkErr.Error()))
		return fmt.Errorf("directory walk failed: %w", walkErr)
	}
	w.logger.Info("Directory walk completed", slog.Int("dispatched", len(w.dispatched)), slog.Int("skipped", len(w.skipped)))
	return nil
}

// Skipped returns the files the walk did not dispatch.
func (w *Walker) Skipped() []SkippedInfo { return w.skipped }

// Dispatched returns the input-relative paths of every dispatched note.
func (w *Walker) Dispatched() []string { return w.dispatched }

// walkFunc returns the WalkDirFunc used by filepath.WalkDir.
func (w *Walker) walkFunc(ctx context.Context) fs.WalkDirFunc { // Minimal comment
	return func(absPath string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("Error accessing path during walk", slog.String("path", absPath), slog.String("error", err.Error()))
			if absPath == w.baseDir {
				return fmt.Errorf("cannot read input directory %q: %w", absPath, err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.Type()&fs.ModeSymlink != 0 {
			w.logger.Debug("Skipping symbolic link", slog.String("path", absPath))
			return nil
		}
		if absPath == w.baseDir {
			return nil
		}
		isDir := d.IsDir()
		if isDir && absPath == w.outputDir {
			w.logger.Debug("Skipping output directory inside input", slog.String("path", absPath))
			return filepath.SkipDir
		}

		relativePath, err := filepath.Rel(w.baseDir, absPath)
		if err != nil {
			w.logger.Warn("Could not calculate relative path", slog.String("path", absPath), slog.String("error", err.Error()))
			return nil
		}
		relativePath = filepath.ToSlash(relativePath)

		if w.ignoreMatcher.Match(relativePath, isDir) {
			matchedPattern := w.ignoreMatcher.LastMatchPattern(relativePath, isDir)
			w.logger.Debug("Path ignored", slog.String("path", relativePath), slog.Bool("isDir", isDir), slog.String("pattern", matchedPattern))
			if isDir {
				return filepath.SkipDir
			}
			w.discovered(relativePath)
			w.skip(relativePath, SkipReasonIgnored, fmt.Sprintf("Ignored by pattern: %s", matchedPattern))
			return nil
		}
		if isDir {
			return nil
		}

		w.discovered(relativePath)
		if !w.detector.IsMarkdown(relativePath) {
			w.skip(relativePath, SkipReasonNotMarkdown, "Not a Markdown note")
			return nil
		}
		if w.gitDiffActive {
			if _, found := w.gitDiffMap[relativePath]; !found {
				w.skip(relativePath, SkipReasonGitExclude, fmt.Sprintf("Excluded by Git diff mode %s", w.opts.GitDiffMode))
				return nil
			}
			w.logger.Debug("Path included by Git diff", slog.String("path", relativePath))
		}
		return w.dispatch(ctx, absPath, relativePath)
	}
}

func (w *Walker) discovered(relativePath string) {
	if hookErr := w.hooks.OnFileDiscovered(relativePath); hookErr != nil {
		w.logger.Warn("Event hook OnFileDiscovered failed", slog.String("path", relativePath), slog.String("error", hookErr.Error()))
	}
}

func (w *Walker) skip(relativePath, reason, details string) {
	w.logger.Debug("Skipping file", slog.String("path", relativePath), slog.String("reason", reason))
	w.skipped = append(w.skipped, SkippedInfo{Path: relativePath, Reason: reason, Details: details})
	if hookErr := w.hooks.OnFileStatusUpdate(relativePath, StatusSkipped, details, 0); hookErr != nil {
		w.logger.Warn("Event hook OnFileStatusUpdate (Skipped) failed", slog.String("path", relativePath), slog.String("error", hookErr.Error()))
	}
}

// dispatch sends a note to the workers unless its output path is already taken.
func (w *Walker) dispatch(ctx context.Context, absPath, relativePath string) error {
	outputRel := OutputRelPath(relativePath)
	if owner, taken := w.outputs[outputRel]; taken {
		details := fmt.Errorf("%w: %s is already generated from %s", ErrOutputCollision, outputRel, owner).Error()
		w.logger.Warn("Skipping note with colliding output path", slog.String("path", relativePath), slog.String("output", outputRel), slog.String("owner", owner))
		w.skip(relativePath, SkipReasonOutputCollision, details)
		return nil
	}
	w.outputs[outputRel] = relativePath
	w.dispatched = append(w.dispatched, relativePath)

	src := SourceFile{AbsPath: absPath, RelPath: relativePath, OutputRel: outputRel}
	w.logger.Debug("Dispatching file to worker channel", slog.String("path", relativePath))
	timer := time.NewTimer(w.dispatchWarnDuration)
	defer timer.Stop()
	select {
	case w.workerChan <- src:
	case <-timer.C:
		w.logger.Warn("Worker channel dispatch blocked, workers might be busy or pool too small", slog.String("path", relativePath), slog.Duration("threshold", w.dispatchWarnDuration))
		select {
		case w.workerChan <- src:
		case <-ctx.Done():
			return ctx.Err()
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// --- ignoreMatcher ---

type ignoreMatcher struct {
	patterns []ignorePattern
	basePath string // Absolute path to the input directory
	logger   *slog.Logger
}

type ignorePattern struct {
	pattern     string // Cleaned pattern string for matching (using '/' separators)
	origPattern string // Original pattern string for reporting
	negated     bool
	isDirOnly   bool
	isRooted    bool   // Pattern started with '/' relative to its base
	baseAbsPath string // Absolute path of the dir containing the defining ignore file or the input path
}

// newIgnoreMatcher loads the built-in patterns, the nearest ignore file and
// the configured patterns, in that order; later patterns take precedence.
func newIgnoreMatcher(absInputPath string, configPatterns []string, logger *slog.Logger) (*ignoreMatcher, error) { // Minimal comment
	matcher := &ignoreMatcher{
		basePath: absInputPath,
		logger:   logger.With(slog.String("component", "ignoreMatcher")),
	}
	matcher.addPatterns(DefaultIgnorePatterns, absInputPath)

	ignoreFilePath, err := findIgnoreFile(absInputPath)
	if err != nil {
		matcher.logger.Warn("Error searching for ignore file", slog.String("name", IgnoreFileName), slog.String("error", err.Error()))
	}
	if ignoreFilePath != "" {
		filePatterns, err := loadPatternsFromFile(ignoreFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load ignore file %s: %w", ignoreFilePath, err)
		}
		matcher.addPatterns(filePatterns, filepath.Dir(ignoreFilePath))
		matcher.logger.Debug("Loaded patterns from ignore file", slog.String("path", ignoreFilePath), slog.Int("count", len(filePatterns)))
	}

	matcher.addPatterns(configPatterns, absInputPath)
	return matcher, nil
}

// findIgnoreFile walks up from absStartPath looking for the ignore file.
func findIgnoreFile(absStartPath string) (string, error) { // Minimal comment
	currentPath := absStartPath
	for {
		potentialPath := filepath.Join(currentPath, IgnoreFileName)
		if _, err := os.Stat(potentialPath); err == nil {
			return potentialPath, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("error checking for ignore file at %s: %w", potentialPath, err)
		}
		parent := filepath.Dir(currentPath)
		if parent == currentPath || parent == "" {
			break
		}
		currentPath = parent
	}
	return "", nil
}

// loadPatternsFromFile reads an ignore file and returns its non-comment lines.
func loadPatternsFromFile(filePath string) ([]string, error) { // Minimal comment
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open ignore file %s: %w", filePath, err)
	}
	defer file.Close()
	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ignore file %s: %w", filePath, err)
	}
	return patterns, nil
}

// addPatterns processes raw string patterns into ignorePattern structs.
func (m *ignoreMatcher) addPatterns(rawPatterns []string, baseAbsPath string) { // Minimal comment
	for _, rawPattern := range rawPatterns {
		p := ignorePattern{origPattern: rawPattern, baseAbsPath: baseAbsPath}
		trimmedPattern := strings.TrimSpace(rawPattern)
		if strings.HasPrefix(trimmedPattern, "!") {
			p.negated = true
			trimmedPattern = strings.TrimSpace(trimmedPattern[1:])
		}
		if strings.HasPrefix(trimmedPattern, "/") {
			p.isRooted = true
			trimmedPattern = strings.TrimPrefix(trimmedPattern, "/")
		}
		if strings.HasSuffix(trimmedPattern, "/") {
			p.isDirOnly = true
			trimmedPattern = strings.TrimSuffix(trimmedPattern, "/")
		}
		p.pattern = filepath.ToSlash(trimmedPattern)
		if p.pattern == "" {
			continue
		}
		m.patterns = append(m.patterns, p)
	}
}

// Match checks if a path relative to the input directory is ignored.
func (m *ignoreMatcher) Match(relativePath string, isDir bool) bool { // Minimal comment
	matched, _ := m.match(relativePath, isDir)
	return matched
}

// LastMatchPattern returns the original pattern that ignored the path, or "".
func (m *ignoreMatcher) LastMatchPattern(relativePath string, isDir bool) string { // Minimal comment
	matched, pattern := m.match(relativePath, isDir)
	if !matched {
		return ""
	}
	return pattern
}

func (m *ignoreMatcher) match(relativePath string, isDir bool) (bool, string) {
	result, lastPattern := false, ""
	for _, p := range m.patterns {
		if p.isDirOnly && !isDir {
			continue
		}
		if util.MatchesGitignore(p.pattern, p.baseAbsPath, m.basePath, relativePath, p.isRooted) {
			result = !p.negated
			lastPattern = p.origPattern
		}
	}
	return result, lastPattern
}

// patternCount returns the number of processed patterns.
func (m *ignoreMatcher) patternCount() int { // Minimal comment
	return len(m.patterns)
}

// --- END OF FINAL REVISED FILE pkg/converter/walker.go ---
