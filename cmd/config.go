package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "symveil"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName  = "output"
	noCacheFlagName = "no-cache"
	excludeFlagName = "exclude"
	verboseFlagName = "verbose"

	parallelFlagName  = "parallel"
	strategyFlagName  = "strategy"
	seedFlagName      = "seed"
	prefixFlagName    = "prefix"
	kindsFlagName     = "kinds"
	resourcesFlagName = "resources"
	intensityFlagName = "intensity"
	dryRunFlagName    = "dry-run"
	strictFlagName    = "strict"
	mappingFlagName   = "mapping"

	skipCatalogsFlagName = "skip-catalogs"
	skipImagesFlagName   = "skip-images"
	skipAudioFlagName    = "skip-audio"
	skipFontsFlagName    = "skip-fonts"

	excludeConfigKey       = "paths.exclude"
	resourcePathsConfigKey = "paths.resources"
	parallelConfigKey      = "run.parallel"
	strategyConfigKey      = "run.strategy"
	seedConfigKey          = "run.seed"
	prefixConfigKey        = "run.prefix"
	kindsConfigKey         = "run.kinds"
	strictConfigKey        = "run.strict"
	intensityConfigKey     = "resources.intensity"
	verifyConfigKey        = "resources.verify"
	allowTrailingConfigKey = "resources.allow_trailing"
	skipCatalogsConfigKey  = "resources.skip_catalogs"
	skipImagesConfigKey    = "resources.skip_images"
	skipAudioConfigKey     = "resources.skip_audio"
	skipFontsConfigKey     = "resources.skip_fonts"
	whitelistPathConfigKey = "whitelist.path"
	statePathConfigKey     = "state.path"
	priorMappingConfigKey  = "mapping.prior"

	defaultOutputDir     = ".symveil-out"
	defaultNoCache       = false
	defaultParallel      = 0 // 0 selects GOMAXPROCS
	defaultStrategy      = "random"
	defaultPrefix        = "sv"
	defaultIntensity     = 0.0 // 0 selects the mutator default
	defaultWhitelistPath = ".symveil.whitelist.yaml"
	defaultStatePath     = ".symveil.state.yaml"

	envPrefix = "SYMVEIL"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".symveil.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultOutputDir)
	viper.SetDefault(noCacheFlagName, defaultNoCache)
	viper.SetDefault(excludeConfigKey, []string{})
	viper.SetDefault(resourcePathsConfigKey, []string{})
	viper.SetDefault(parallelConfigKey, defaultParallel)
	viper.SetDefault(strategyConfigKey, defaultStrategy)
	viper.SetDefault(seedConfigKey, "")
	viper.SetDefault(prefixConfigKey, defaultPrefix)
	viper.SetDefault(kindsConfigKey, []string{})
	viper.SetDefault(strictConfigKey, false)
	viper.SetDefault(intensityConfigKey, defaultIntensity)
	viper.SetDefault(verifyConfigKey, true)
	viper.SetDefault(allowTrailingConfigKey, false)
	viper.SetDefault(skipCatalogsConfigKey, false)
	viper.SetDefault(skipImagesConfigKey, false)
	viper.SetDefault(skipAudioConfigKey, false)
	viper.SetDefault(skipFontsConfigKey, false)
	viper.SetDefault(whitelistPathConfigKey, defaultWhitelistPath)
	viper.SetDefault(statePathConfigKey, defaultStatePath)
	viper.SetDefault(priorMappingConfigKey, "")

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
