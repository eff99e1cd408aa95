package main

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// log is the global logger. The report body prints on stdout; progress and
// diagnostics go here on stderr so piping the report stays clean.
var log = logrus.New()

// initLogger configures the global logger from LOG_LEVEL and ENVIRONMENT.
func initLogger() {
	log.SetOutput(os.Stderr)

	levelName := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if levelName == "" {
		levelName = "info"
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		log.Warnf("Invalid log level '%s', defaulting to 'info'. Error: %v", levelName, err)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	switch strings.ToLower(os.Getenv("ENVIRONMENT")) {
	case "production", "staging":
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	default:
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
}
