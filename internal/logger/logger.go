package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"marketadmin/internal/config"
)

// Имя файла основного журнала внутри LOG_PATH.
const appLogFile = "app.log"

// New создает логгер приложения по конфигурации.
// Output: stdout, file или both; Format: text или json.
func New(cfg *config.Config) (*logrus.Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
				logrus.FieldKeyFunc:  "function",
				logrus.FieldKeyFile:  "file",
			},
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				s := strings.Split(f.Function, ".")
				return s[len(s)-1], fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
			},
		})
	}

	var writers []io.Writer
	if cfg.LogOutput == "file" || cfg.LogOutput == "both" {
		if err := os.MkdirAll(cfg.LogPath, 0o755); err != nil {
			return nil, fmt.Errorf("не удалось создать каталог логов %s: %w", cfg.LogPath, err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogPath, appLogFile),
			MaxSize:    50, // MB
			MaxBackups: 10,
			MaxAge:     30, // дней
			Compress:   true,
		})
	}
	if cfg.LogOutput != "file" {
		writers = append(writers, os.Stdout)
	}
	log.SetOutput(io.MultiWriter(writers...))
	log.SetReportCaller(true)

	log.WithFields(logrus.Fields{
		"level":  log.GetLevel().String(),
		"format": cfg.LogFormat,
		"output": cfg.LogOutput,
	}).Info("Логгер инициализирован")
	return log, nil
}

// Discard возвращает логгер без вывода, для тестов.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
