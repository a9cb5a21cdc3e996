package main

import (
	"github.com/google/uuid"
	"github.com/lanrat/zonepush/config"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogging configures the standard logger and returns the logger for this run.
func setupLogging(cfg *config.Config) *log.Entry {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	if cfg.Log.File != "" {
		log.SetFormatter(&log.JSONFormatter{})
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSize,
			MaxAge:     cfg.Log.MaxAge,
			MaxBackups: cfg.Log.MaxBackups,
			LocalTime:  true,
			Compress:   true,
		})
	}
	return log.WithField("run", uuid.NewString())
}
