package cmd

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kazie/pylint-pycharm/internal/adapter"
	"github.com/kazie/pylint-pycharm/internal/domain"
	"github.com/kazie/pylint-pycharm/internal/log"
	m "github.com/kazie/pylint-pycharm/internal/model"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "scanmirror"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	snapshotFlagName = "snapshot"
	rootFlagName     = "root"
	tempDirFlagName  = "temp-dir"
	excludeFlagName  = "exclude"
	parallelFlagName = "parallel"
	verboseFlagName  = "verbose"
	logFileFlagName  = "log-file"
	keepFlagName     = "keep"
	minAgeFlagName   = "min-age"

	snapshotConfigKey      = "snapshot"
	projectRootKey         = "project.root"
	lineSeparatorKey       = "project.line_separator"
	charsetKey             = "project.charset"
	excludeConfigKey       = "paths.exclude"
	extensionsConfigKey    = "paths.extensions"
	tempDirConfigKey       = "temp.dir"
	parallelConfigKey      = "run.parallel"
	toolCommandKey         = "tool.command"
	toolArgsKey            = "tool.args"
	toolTimeoutKey         = "tool.timeout"
	sweepMinAgeKey         = "sweep.min_age"
	defaultLineSeparator   = "lf"
	defaultCharset         = "UTF-8"
	defaultToolCommand     = "pylint"
	defaultToolTimeoutSecs = int64(adapter.DefaultToolTimeout / time.Second)

	envPrefix = "SCANMIRROR"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".scanmirror.log"
	defaultLogLevel      = "info"
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var defaultExtensions = []string{".py"}

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
	viper.SetDefault(snapshotConfigKey, "")
	viper.SetDefault(projectRootKey, "")
	viper.SetDefault(lineSeparatorKey, defaultLineSeparator)
	viper.SetDefault(charsetKey, defaultCharset)
	viper.SetDefault(excludeConfigKey, []string{})
	viper.SetDefault(extensionsConfigKey, defaultExtensions)
	viper.SetDefault(tempDirConfigKey, "")
	viper.SetDefault(parallelConfigKey, domain.DefaultParallel)
	viper.SetDefault(toolCommandKey, defaultToolCommand)
	viper.SetDefault(toolArgsKey, []string{})
	viper.SetDefault(toolTimeoutKey, defaultToolTimeoutSecs)
	viper.SetDefault(sweepMinAgeKey, int64(domain.DefaultSweepMinAge.Seconds()))

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
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return
		}

		slog.Warn("Failed to read config file", "error", err)
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
	if verbose || viper.GetBool(logVerboseKey) {
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

	globalLogger = log.New(logWriter, logLevel)
	slog.SetDefault(globalLogger)
}

// projectDefaults builds the project settings used when the snapshot does
// not provide them.
func projectDefaults() (m.Project, error) {
	root := viper.GetString(projectRootKey)
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return m.Project{}, err
		}

		root = wd
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return m.Project{}, err
	}

	sep, err := m.ParseLineSeparator(viper.GetString(lineSeparatorKey))
	if err != nil {
		return m.Project{}, err
	}

	return m.Project{
		Root:          m.Path(absRoot),
		LineSeparator: sep,
		Charset:       viper.GetString(charsetKey),
	}, nil
}

func tempBase() m.Path {
	if dir := viper.GetString(tempDirConfigKey); dir != "" {
		return m.Path(dir)
	}

	return m.Path(os.TempDir())
}

func toolTimeout() time.Duration {
	return time.Duration(viper.GetInt64(toolTimeoutKey)) * time.Second
}

func sweepMinAge() time.Duration {
	return time.Duration(viper.GetInt64(sweepMinAgeKey)) * time.Second
}
