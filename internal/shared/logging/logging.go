package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns the engine logger. Development gets the console writer,
// anything else gets JSON on stderr.
func New(env string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
