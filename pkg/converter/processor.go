// --- START OF FINAL REVISED FILE pkg/converter/processor.go ---
package converter

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/stackvity/obs2org/pkg/converter/cache"
	"github.com/stackvity/obs2org/pkg/converter/encoding"
	"github.com/stackvity/obs2org/pkg/converter/frontmatter"
	"github.com/stackvity/obs2org/pkg/converter/orgmode"
	"github.com/stackvity/obs2org/pkg/converter/pandoc"
)

// convertedNote carries a note from the conversion phase to post-processing.
type convertedNote struct {
	src        SourceFile
	info       FileInfo
	modTime    time.Time
	sourceHash string
	fileTags   []string
	// previousID is the :ID: of the Org file the conversion replaced.
	previousID string
	// dependencies of a cache hit, as recorded in its cache entry.
	dependencies []string
}

// correctedNote is the result of post-processing one note.
type correctedNote struct {
	info        FileInfo
	diagnostics []DiagnosticInfo
}

// --- FileProcessor ---

// FileProcessor converts single notes. Convert runs pandoc during the
// conversion phase; PostProcess corrects the result once every note of the
// batch has been converted.
type FileProcessor struct {
	opts            *Options
	logger          *slog.Logger
	cacheManager    cache.CacheManager
	encodingHandler encoding.EncodingHandler
	converter       pandoc.Converter
	reporter        orgmode.Reporter
	outputDir       string
	configHash      string
}

// NewFileProcessor creates a new FileProcessor.
func NewFileProcessor(
	opts *Options,
	loggerHandler slog.Handler,
	cacheMgr cache.CacheManager,
	encHandler encoding.EncodingHandler,
	conv pandoc.Converter,
) *FileProcessor {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	logger := slog.New(loggerHandler).With(slog.String("component", "processor"))

	if cacheMgr == nil {
		cacheMgr = &NoOpCacheManager{}
	}
	if encHandler == nil {
		encHandler = encoding.NewGoCharsetEncodingHandler(opts.DefaultEncoding)
	}
	outputDir, err := filepath.Abs(opts.OutputPath)
	if err != nil {
		outputDir = opts.OutputPath
	}

	reporter := orgmode.NewLogReporter(slog.New(loggerHandler))
	if opts.Reporter != nil {
		logReporter, extra := reporter, opts.Reporter
		reporter = orgmode.ReporterFunc(func(d orgmode.Diagnostic) {
			logReporter.Report(d)
			extra.Report(d)
		})
	}

	return &FileProcessor{
		opts:            opts,
		logger:          logger,
		cacheManager:    cacheMgr,
		encodingHandler: encHandler,
		converter:       conv,
		reporter:        reporter,
		outputDir:       outputDir,
		configHash:      CalculateConfigHash(opts),
	}
}

// ConfigHash returns the hash of the options that shape the generated output.
func (p *FileProcessor) ConfigHash() string { return p.configHash }

// fileError builds the ErrorInfo for a per-file failure.
func (p *FileProcessor) fileError(path, msg string) ErrorInfo {
	return ErrorInfo{Path: path, Error: msg, IsFatal: p.opts.OnErrorMode == OnErrorStop}
}

// Convert runs the conversion phase for one note. It returns one of:
//   - convertedNote with StatusConverted: the pandoc output is on disk
//   - convertedNote with StatusCached: the existing output is up to date
//   - SkippedInfo with StatusSkipped
//   - ErrorInfo with StatusFailed and a non-nil error
//
// With forceMiss the cache is not consulted.
func (p *FileProcessor) Convert(ctx context.Context, src SourceFile, forceMiss bool) (result interface{}, status Status, err error) {
	startTime := time.Now()
	logArgs := []any{slog.String("path", src.RelPath)}
	defer func() {
		logLevel := slog.LevelDebug
		if status == StatusFailed {
			logLevel = slog.LevelError
		}
		message := ""
		if err != nil {
			message = err.Error()
		}
		p.logger.Log(ctx, logLevel, "Conversion finished",
			append(logArgs, slog.String("status", string(status)), slog.Duration("duration", time.Since(startTime)), slog.String("message", message))...)
	}()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ErrorInfo{Path: src.RelPath, Error: ctxErr.Error(), IsFatal: true}, StatusFailed, ctxErr
	}

	fileInfo, statErr := os.Stat(src.AbsPath)
	if statErr != nil {
		err = fmt.Errorf("%w: %w", ErrStatFailed, statErr)
		return p.fileError(src.RelPath, fmt.Sprintf("Failed to stat file: %v", statErr)), StatusFailed, err
	}
	modTime := fileInfo.ModTime()

	raw, readErr := os.ReadFile(src.AbsPath)
	if readErr != nil {
		err = fmt.Errorf("%w: %w", ErrReadFailed, readErr)
		return p.fileError(src.RelPath, fmt.Sprintf("Failed to read file: %v", readErr)), StatusFailed, err
	}

	if p.encodingHandler.IsBinary(raw) {
		p.logger.Info("Skipping binary file", logArgs...)
		return SkippedInfo{Path: src.RelPath, Reason: SkipReasonBinary, Details: "Binary file detected"}, StatusSkipped, nil
	}

	sourceHash := hashBytes(raw)
	absOutput := filepath.Join(p.outputDir, filepath.FromSlash(src.OutputRel))
	info := FileInfo{
		Path:        src.RelPath,
		OutputPath:  src.OutputRel,
		SizeBytes:   fileInfo.Size(),
		ModTime:     modTime,
		CacheStatus: CacheStatusDisabled,
	}

	if p.opts.CacheEnabled {
		info.CacheStatus = CacheStatusMiss
		if forceMiss {
			info.CacheStatus = CacheStatusStale
		} else if !p.opts.IgnoreCacheRead {
			if entry, hit := p.cacheManager.Check(src.RelPath, modTime, sourceHash, p.configHash); hit && outputMatches(absOutput, entry.OutputHash) {
				p.logger.Debug("Cache hit", logArgs...)
				info.CacheStatus = CacheStatusHit
				info.DurationMs = time.Since(startTime).Milliseconds()
				return convertedNote{src: src, info: info, modTime: modTime, sourceHash: sourceHash, dependencies: entry.Dependencies}, StatusCached, nil
			}
		}
	}

	content, detectedEncoding, certain, encErr := p.encodingHandler.DetectAndDecode(raw)
	if encErr != nil {
		p.logger.Warn("Encoding detection/conversion failed, converting raw content", append(logArgs, slog.String("error", encErr.Error()))...)
		content, detectedEncoding = raw, "unknown"
	}
	info.Encoding = detectedEncoding
	var stdin []byte
	if !bytes.Equal(content, raw) {
		p.logger.Debug("Piping decoded content to converter", append(logArgs, slog.String("encoding", detectedEncoding), slog.Bool("certain", certain))...)
		stdin = content
	}

	note := convertedNote{src: src, modTime: modTime, sourceHash: sourceHash}
	if p.opts.PostProcess.FileTags {
		meta, fmErr := frontmatter.Read(content)
		if fmErr != nil {
			p.logger.Warn("Ignoring unreadable front matter", append(logArgs, slog.String("error", fmErr.Error()))...)
		}
		note.fileTags = meta.Tags
		info.FileTags = meta.Tags
	}
	if p.opts.PostProcess.AddUUIDHeader {
		if previous, readErr := os.ReadFile(absOutput); readErr == nil {
			note.previousID, _ = orgmode.DocumentID(string(previous))
		}
	}

	if mkdirErr := os.MkdirAll(filepath.Dir(absOutput), 0o755); mkdirErr != nil {
		err = fmt.Errorf("%w: %w", ErrMkdirFailed, mkdirErr)
		return p.fileError(src.RelPath, fmt.Sprintf("Failed to create output directory '%s': %v", filepath.Dir(absOutput), mkdirErr)), StatusFailed, err
	}

	convCtx, cancel := ctx, context.CancelFunc(func() {})
	if p.opts.ConversionTimeout > 0 {
		convCtx, cancel = context.WithTimeout(ctx, p.opts.ConversionTimeout)
	}
	res, convErr := p.converter.Convert(convCtx, pandoc.Request{InputPath: src.AbsPath, OutputPath: absOutput, Stdin: stdin})
	cancel()
	if convErr != nil {
		msg := fmt.Sprintf("Converting %s to %s failed: %v", src.AbsPath, absOutput, convErr)
		return p.fileError(src.RelPath, msg), StatusFailed, convErr
	}
	if res.Stderr != "" {
		p.logger.Debug("Converter reported warnings", append(logArgs, slog.String("stderr", strings.TrimSpace(res.Stderr)))...)
	}

	info.DurationMs = time.Since(startTime).Milliseconds()
	note.info = info
	return note, StatusConverted, nil
}

// PostProcess corrects the Org file of a converted note in place. It must
// only run once every note of the batch has been converted, since links are
// resolved against the other generated files. It returns a correctedNote
// with StatusSuccess, or an ErrorInfo with StatusFailed and a non-nil error.
func (p *FileProcessor) PostProcess(ctx context.Context, note convertedNote) (result interface{}, status Status, err error) {
	startTime := time.Now()
	src := note.src
	logArgs := []any{slog.String("path", src.RelPath), slog.String("outputPath", src.OutputRel)}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ErrorInfo{Path: src.RelPath, Error: ctxErr.Error(), IsFatal: true}, StatusFailed, ctxErr
	}

	absOutput := filepath.Join(p.outputDir, filepath.FromSlash(src.OutputRel))
	raw, readErr := os.ReadFile(absOutput)
	if readErr != nil {
		err = fmt.Errorf("%w: %w: %w", ErrPostProcess, ErrReadFailed, readErr)
		return p.fileError(src.RelPath, fmt.Sprintf("Failed to read converted file '%s': %v", absOutput, readErr)), StatusFailed, err
	}
	content, _, _, decErr := p.encodingHandler.DetectAndDecode(raw)
	if decErr != nil {
		err = fmt.Errorf("%w: decoding %s: %w", ErrPostProcess, absOutput, decErr)
		return p.fileError(src.RelPath, err.Error()), StatusFailed, err
	}
	text := string(content)

	var diagnostics []DiagnosticInfo
	reporter := orgmode.ReporterFunc(func(d orgmode.Diagnostic) {
		p.reporter.Report(d)
		diagnostics = append(diagnostics, newDiagnosticInfo(src.RelPath, d))
	})

	newID := p.opts.IDGenerator
	if note.previousID != "" {
		previousID := note.previousID
		newID = func() string { return previousID }
	}
	corrector := orgmode.NewCorrector(orgmode.Options{
		RemoveCitations: p.opts.PostProcess.RemoveCitations,
		AddUUIDHeader:   p.opts.PostProcess.AddUUIDHeader,
		NewID:           newID,
	}, p.encodingHandler, reporter)

	corrected := corrector.CorrectDocument(text, filepath.Dir(absOutput))
	if p.opts.PostProcess.FileTags {
		corrected = orgmode.InjectFileTags(corrected, note.fileTags)
	}

	output := []byte(corrected)
	if writeErr := writeFileAtomic(absOutput, output); writeErr != nil {
		err = fmt.Errorf("%w: %w", ErrWriteFailed, writeErr)
		return p.fileError(src.RelPath, fmt.Sprintf("Failed to write output file '%s': %v", absOutput, writeErr)), StatusFailed, err
	}
	outputHash := hashBytes(output)

	if p.opts.CacheEnabled {
		entry := cache.CacheEntry{
			SourceModTime: note.modTime,
			SourceHash:    note.sourceHash,
			ConfigHash:    p.configHash,
			OutputHash:    outputHash,
			Dependencies:  dependencies(src.OutputRel, text),
		}
		if updateErr := p.cacheManager.Update(src.RelPath, entry); updateErr != nil {
			p.logger.Warn("Failed to update cache entry", append(logArgs, slog.String("error", updateErr.Error()))...)
		}
	}

	info := note.info
	info.Diagnostics = len(diagnostics)
	info.DurationMs += time.Since(startTime).Milliseconds()
	p.logger.Debug("Output file corrected", append(logArgs, slog.String("outputHash", outputHash), slog.Int("diagnostics", len(diagnostics)))...)
	return correctedNote{info: info, diagnostics: diagnostics}, StatusSuccess, nil
}

// dependencies lists the output-relative Org files whose headings the links
// of text, the document at outputRel, are resolved against.
func dependencies(outputRel, text string) []string {
	dir := path.Dir(outputRel)
	var deps []string
	for _, target := range orgmode.LinkTargets(text) {
		dep := path.Clean(path.Join(dir, filepath.ToSlash(target)))
		if dep != outputRel && !strings.HasPrefix(dep, "../") {
			deps = append(deps, dep)
		}
	}
	return deps
}

// outputMatches reports whether the file at path still has the recorded hash.
func outputMatches(path, wantHash string) bool {
	if wantHash == "" {
		return false
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return hashBytes(content) == wantHash
}

func hashBytes(b []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(b))
}

// writeFileAtomic replaces path with data through a temporary sibling file,
// so that a failed write never leaves a truncated document behind.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temporary file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Join(errors.New("rename temporary file"), err)
	}
	return nil
}

// CalculateConfigHash generates a stable hash of the options that influence
// the generated Org files. A change invalidates every cache entry.
func CalculateConfigHash(opts *Options) string {
	hasher := sha256.New()
	addToHash := func(h hash.Hash, key string, value string) {
		h.Write([]byte(key + ":" + value + ";"))
	}
	addBoolToHash := func(h hash.Hash, key string, value bool) {
		addToHash(h, key, fmt.Sprintf("%t", value))
	}

	addToHash(hasher, "PandocPath", opts.PandocPath)
	addToHash(hasher, "PandocArgs", strings.Join(pandoc.Args(pandoc.Request{InputPath: "in", OutputPath: "out"}), " "))
	addToHash(hasher, "DefaultEncoding", opts.DefaultEncoding)
	addBoolToHash(hasher, "RemoveCitations", opts.PostProcess.RemoveCitations)
	addBoolToHash(hasher, "AddUUIDHeader", opts.PostProcess.AddUUIDHeader)
	addBoolToHash(hasher, "FileTags", opts.PostProcess.FileTags)

	appVersion := opts.AppVersion
	if appVersion == "" {
		appVersion = "dev"
	}
	addToHash(hasher, "AppVersion", appVersion)

	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// --- END OF FINAL REVISED FILE pkg/converter/processor.go ---
