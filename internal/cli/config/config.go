// --- START OF FINAL REVISED FILE internal/cli/config/config.go ---
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/stackvity/obs2org/pkg/converter"
	"github.com/stackvity/obs2org/pkg/converter/cache"
)

const (
	EnvPrefix         = "OBS2ORG"
	DefaultConfigName = "obs2org"
)

// logOutput receives the CLI log. Replaced in tests.
var logOutput io.Writer = os.Stderr

// flagKeys maps flag names to the viper keys they override.
var flagKeys = map[string]string{
	"input":            "input",
	"output":           "output",
	"pandoc":           "pandoc",
	"timeout":          "timeout",
	"remove-citations": "postProcess.removeCitations",
	"add-uuid":         "postProcess.addUuid",
	"filetags":         "postProcess.fileTags",
	"concurrency":      "concurrency",
	"ignore":           "ignore",
	"on-error":         "onError",
	"output-format":    "outputFormat",
	"git-diff-only":    "git.diffOnly",
	"git-since":        "git.sinceRef",
	"verbose":          "verbose",
}

// RegisterFlags defines the command line flags understood by LoadAndValidate.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Configuration file path (default is search standard locations like ., $HOME/.config/obs2org/)")
	flags.String("profile", "", "Name of configuration profile to use")
	flags.BoolP("verbose", "v", converter.DefaultVerbose, "Enable verbose (debug) logging output (disables TUI)")

	flags.StringP("input", "i", "", "Markdown file or vault directory (alternative to the positional argument)")
	flags.StringP("output", "o", "", "Required. Output directory for the Org files")

	flags.StringP("pandoc", "p", converter.DefaultPandocPath, "pandoc executable")
	flags.String("timeout", converter.DefaultTimeoutString, "Per-note pandoc timeout (e.g. 30s, 2m)")
	flags.BoolP("remove-citations", "c", converter.DefaultRemoveCitations, "Unwrap [[cite:@key]] links to [[@key]]")
	flags.BoolP("add-uuid", "u", converter.DefaultAddUUIDHeader, "Prepend an :ID: property drawer to every document")
	flags.Bool("filetags", converter.DefaultFileTags, "Copy front matter tags into #+FILETAGS")

	flags.Int("concurrency", converter.DefaultConcurrency, "Number of parallel workers (0 for auto-detect CPU cores)")
	flags.Bool("no-cache", false, "Force reconversion by ignoring cache reads (still writes cache)")
	flags.Bool("clear-cache", false, "Delete the cache file before starting")
	flags.StringArray("ignore", []string{}, "Glob patterns for files/directories to ignore (can be specified multiple times)")
	flags.String("on-error", string(converter.DefaultOnErrorMode), `Behavior on per-note errors ("continue" or "stop")`)
	flags.String("output-format", string(converter.DefaultOutputFormat), `Final report format ("text", "json")`)
	flags.Bool("no-tui", false, "Disable interactive Terminal UI even if in a TTY")

	flags.Bool("git-diff-only", converter.DefaultGitDiffOnly, "Convert only notes changed in the Git index/working tree vs HEAD")
	flags.String("git-since", "", "Convert only notes changed since the specified Git reference (commit/tag/branch)")
}

// LoadAndValidate loads configuration from all sources (defaults, file, profile, env, flags),
// validates the merged configuration and derives the values the library needs.
// args are the positional arguments of the command; the first one is the input path.
func LoadAndValidate(cfgFile, profileName, appVersion string, args []string, flags *pflag.FlagSet) (converter.Options, *slog.Logger, error) {
	var opts converter.Options
	v := viper.New()

	tempLogger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: slog.LevelInfo}))

	setDefaults(v)

	// --- Load Config File ---
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
			v.AddConfigPath(filepath.Join(home, "."+DefaultConfigName))
		} else {
			tempLogger.Debug("Failed to get user home directory", slog.Any("error", err))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) && cfgFile == "" {
			tempLogger.Debug("No configuration file found, using defaults/env/flags.")
		} else {
			configFileUsed := cfgFile
			if configFileUsed == "" {
				configFileUsed = fmt.Sprintf("searched locations for %s.yaml", DefaultConfigName)
			}
			tempLogger.Error("Error reading configuration file", slog.String("path", configFileUsed), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error reading config file '%s': %w", configFileUsed, err)
		}
	} else {
		opts.ConfigFilePath = v.ConfigFileUsed()
		tempLogger.Debug("Using configuration file", slog.String("path", opts.ConfigFilePath))
	}

	// --- Apply Profile ---
	opts.ProfileName = profileName
	if profileName != "" {
		profileKey := "profiles." + profileName
		if !v.IsSet(profileKey) {
			configPath := v.ConfigFileUsed()
			if configPath == "" {
				configPath = "(no config file found)"
			}
			err := fmt.Errorf("profile '%s' not found in config file '%s'", profileName, configPath)
			tempLogger.Error(err.Error())
			return opts, tempLogger, err
		}
		profileSettings := v.Sub(profileKey)
		if profileSettings == nil {
			err := fmt.Errorf("failed to load profile '%s' settings from config file '%s'", profileName, v.ConfigFileUsed())
			tempLogger.Error(err.Error())
			return opts, tempLogger, err
		}
		if err := v.MergeConfigMap(profileSettings.AllSettings()); err != nil {
			tempLogger.Error("Error merging profile", slog.String("profile", profileName), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error merging profile '%s': %w", profileName, err)
		}
		tempLogger.Debug("Applied configuration profile", slog.String("profile", profileName))
	}

	// --- Bind Environment Variables ---
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// --- Bind Flags (Highest Priority) ---
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			tempLogger.Debug("Flag lookup failed during binding", slog.String("flag", name))
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			tempLogger.Error("Error binding flag", slog.String("flag", name), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error binding flag '--%s': %w", name, err)
		}
	}

	// --- Unmarshal Final Configuration ---
	opts.AppVersion = appVersion
	if err := v.Unmarshal(&opts); err != nil {
		tempLogger.Error("Error unmarshalling configuration", slog.Any("error", err))
		return opts, tempLogger, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// The positional argument names the input unless --input is given.
	if len(args) > 0 && !flags.Changed("input") {
		opts.InputPath = args[0]
	}
	if flags.Changed("no-tui") {
		if noTui, _ := flags.GetBool("no-tui"); noTui {
			opts.TuiEnabled = false
		}
	}
	if flags.Changed("no-cache") {
		opts.IgnoreCacheRead, _ = flags.GetBool("no-cache")
	}
	if flags.Changed("clear-cache") {
		opts.ClearCache, _ = flags.GetBool("clear-cache")
	}

	// --- Setup Final Logger ---
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logHandler := slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logHandler)
	opts.Logger = logHandler

	if err := validateAndDeriveOptions(&opts, logger, flags); err != nil {
		return opts, logger, err
	}

	logger.Debug("Configuration loading and validation complete",
		slog.String("configFile", opts.ConfigFilePath),
		slog.String("profile", opts.ProfileName),
		slog.Bool("verbose", opts.Verbose),
		slog.String("logLevel", logLevel.String()),
	)

	return opts, logger, nil
}

// setDefaults establishes the default values for configuration options in Viper.
func setDefaults(v *viper.Viper) {
	// --- Behavior & Control ---
	v.SetDefault("verbose", converter.DefaultVerbose)
	v.SetDefault("tuiEnabled", converter.DefaultTuiEnabled)
	v.SetDefault("onError", string(converter.DefaultOnErrorMode))
	v.SetDefault("outputFormat", string(converter.DefaultOutputFormat))

	// --- External Converter ---
	v.SetDefault("pandoc", converter.DefaultPandocPath)
	v.SetDefault("timeout", converter.DefaultTimeoutString)

	// --- Performance & Caching ---
	v.SetDefault("concurrency", converter.DefaultConcurrency)
	v.SetDefault("cache", converter.DefaultCacheEnabled)
	v.SetDefault("cacheFormat", converter.DefaultCacheFormat)

	// --- File Handling ---
	v.SetDefault("ignore", []string{})
	v.SetDefault("markdownExtensions", []string{})
	v.SetDefault("defaultEncoding", "")

	// --- Output Correction ---
	v.SetDefault("postProcess.removeCitations", converter.DefaultRemoveCitations)
	v.SetDefault("postProcess.addUuid", converter.DefaultAddUUIDHeader)
	v.SetDefault("postProcess.fileTags", converter.DefaultFileTags)

	// --- Workflow Features ---
	v.SetDefault("git.diffOnly", converter.DefaultGitDiffOnly)
	v.SetDefault("git.sinceRef", converter.DefaultGitSinceRef)
}

// isValidEnumValue checks if a given string value is present in a slice of allowed enum values.
// Case-sensitive comparison.
func isValidEnumValue[T ~string](value T, allowedValues []T) bool {
	return slices.Contains(allowedValues, value)
}

// validateAndDeriveOptions performs semantic validation on the populated Options struct
// and calculates derived fields. It wraps errors with converter.ErrConfigValidation.
func validateAndDeriveOptions(opts *converter.Options, logger *slog.Logger, flags *pflag.FlagSet) error {
	fail := func(key string, err error) error {
		logger.Error(err.Error(), slog.String("key", key))
		return err
	}

	// === Path Validations ===
	if opts.InputPath == "" {
		return fail("input", fmt.Errorf("%w: input path is required (positional argument or --input)", converter.ErrConfigValidation))
	}
	absInput, err := filepath.Abs(opts.InputPath)
	if err != nil {
		return fail("input", fmt.Errorf("%w: cannot resolve absolute input path '%s': %w", converter.ErrConfigValidation, opts.InputPath, err))
	}
	opts.InputPath = absInput
	if _, err := os.Stat(opts.InputPath); err != nil {
		if os.IsNotExist(err) {
			return fail("input", fmt.Errorf("%w: input path '%s' does not exist", converter.ErrConfigValidation, opts.InputPath))
		}
		return fail("input", fmt.Errorf("%w: cannot access input path '%s': %w", converter.ErrConfigValidation, opts.InputPath, err))
	}
	logger.Debug("Validated input path", slog.String("path", opts.InputPath))

	if opts.OutputPath == "" {
		return fail("output", fmt.Errorf("%w: output path is required (-o, --output)", converter.ErrConfigValidation))
	}
	absOutput, err := filepath.Abs(opts.OutputPath)
	if err != nil {
		return fail("output", fmt.Errorf("%w: cannot resolve absolute output path '%s': %w", converter.ErrConfigValidation, opts.OutputPath, err))
	}
	opts.OutputPath = absOutput
	if mkdirErr := os.MkdirAll(opts.OutputPath, 0o755); mkdirErr != nil {
		return fail("output", fmt.Errorf("%w: cannot create or access output directory '%s': %w", converter.ErrConfigValidation, opts.OutputPath, mkdirErr))
	}
	logger.Debug("Resolved and verified output path", slog.String("path", opts.OutputPath))

	// === Enum String Validations ===
	allowedOnError := []converter.OnErrorMode{converter.OnErrorContinue, converter.OnErrorStop}
	if !isValidEnumValue(opts.OnErrorMode, allowedOnError) {
		return fail("onError", fmt.Errorf("%w: invalid value '%s' for key 'onError' (flag --on-error). Allowed: %v", converter.ErrConfigValidation, opts.OnErrorMode, allowedOnError))
	}
	allowedOutputFormat := []converter.OutputFormat{converter.OutputFormatText, converter.OutputFormatJSON}
	if !isValidEnumValue(opts.OutputFormat, allowedOutputFormat) {
		return fail("outputFormat", fmt.Errorf("%w: invalid value '%s' for key 'outputFormat' (flag --output-format). Allowed: %v", converter.ErrConfigValidation, opts.OutputFormat, allowedOutputFormat))
	}
	allowedCacheFormat := []string{cache.CacheFormatGob, cache.CacheFormatJSON}
	if !isValidEnumValue(opts.CacheFormat, allowedCacheFormat) {
		return fail("cacheFormat", fmt.Errorf("%w: invalid value '%s' for key 'cacheFormat'. Allowed: %v", converter.ErrConfigValidation, opts.CacheFormat, allowedCacheFormat))
	}

	// === Numeric Range Validations ===
	if opts.Concurrency < 0 {
		return fail("concurrency", fmt.Errorf("%w: invalid value '%d' for key 'concurrency' (flag --concurrency). Must be >= 0", converter.ErrConfigValidation, opts.Concurrency))
	}
	timeout, err := time.ParseDuration(opts.Timeout)
	if err != nil || timeout <= 0 {
		return fail("timeout", fmt.Errorf("%w: invalid value '%s' for key 'timeout' (flag --timeout). Must be a positive duration", converter.ErrConfigValidation, opts.Timeout))
	}
	opts.ConversionTimeout = timeout

	if strings.TrimSpace(opts.PandocPath) == "" {
		return fail("pandoc", fmt.Errorf("%w: pandoc executable cannot be empty (flag --pandoc)", converter.ErrConfigValidation))
	}

	// === Git diff mode ===
	opts.GitDiffMode = converter.GitDiffModeNone
	if opts.GitConfig.DiffOnly {
		if flags.Changed("git-since") {
			return fail("git", fmt.Errorf("%w: cannot use --git-diff-only and --git-since flags simultaneously", converter.ErrConfigValidation))
		}
		opts.GitDiffMode = converter.GitDiffModeDiffOnly
	} else if flags.Changed("git-since") {
		if opts.GitConfig.SinceRef == "" {
			return fail("git.sinceRef", fmt.Errorf("%w: flag --git-since requires a non-empty reference (commit/tag/branch)", converter.ErrConfigValidation))
		}
		opts.GitDiffMode = converter.GitDiffModeSince
	}
	logger.Debug("Git diff mode derived", slog.String("mode", string(opts.GitDiffMode)), slog.String("sinceRef", opts.GitConfig.SinceRef))

	// Verbose logging and the TUI share the terminal.
	if opts.Verbose && opts.TuiEnabled {
		logger.Debug("Verbose mode enabled, TUI disabled")
		opts.TuiEnabled = false
	}

	logger.Debug("Final derived settings validated",
		slog.Int("concurrency", opts.Concurrency),
		slog.Duration("timeout", opts.ConversionTimeout),
		slog.String("gitDiffMode", string(opts.GitDiffMode)),
		slog.Bool("tuiEnabledEffective", opts.TuiEnabled),
	)

	return nil
}

// --- END OF FINAL REVISED FILE internal/cli/config/config.go ---
