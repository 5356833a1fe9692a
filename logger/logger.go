// Package logger configures the diagnostic logger. Progress output that is
// part of the CLI contract goes to stdout directly, not through here.
package logger

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// New builds a logrus logger writing to stderr, or appending to fileName when
// it is non-empty. Colors are only used when stderr is a terminal.
func New(debug bool, fileName string) (*logrus.Logger, error) {
	l := logrus.New()

	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}

	if fileName != "" {
		file, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		l.SetOutput(file)
		l.SetFormatter(&logrus.TextFormatter{DisableColors: true})
		return l, nil
	}

	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		ForceColors: term.IsTerminal(int(os.Stderr.Fd())),
	})
	return l, nil
}
