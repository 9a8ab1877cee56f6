package main

import (
	"github.com/rs/zerolog"
	"github.com/tliron/commonlog"
	"github.com/tliron/commonlog/simple"
	commonzerolog "github.com/tliron/commonlog/zerolog"
	"gitlab.com/tozd/go/errors"
)

// configureLogging selects the commonlog backend, which glsp logs through
// as well, and its verbosity.
func configureLogging(verbose int, logfile, format string) error {
	switch format {
	case "text":
		commonlog.SetBackend(simple.NewBackend())
	case "json":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
		commonlog.SetBackend(commonzerolog.NewBackend())
	default:
		return errors.Errorf("unknown log format %q", format)
	}

	var path *string
	if logfile != "" {
		path = &logfile
	}
	commonlog.Configure(verbose, path)
	return nil
}
