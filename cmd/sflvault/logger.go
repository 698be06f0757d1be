package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
)

// logger prints prefixed console messages. Info and debug lines only
// appear with --verbose and --debug.
type logger struct {
	out     io.Writer
	err     io.Writer
	verbose bool
	debug   bool
}

func (l logger) Infof(msg string, args ...any) {
	if l.verbose || l.debug {
		fmt.Fprintf(l.out, color.GreenString("[info] ")+msg+"\n", args...)
	}
}

func (l logger) Debugf(msg string, args ...any) {
	if l.debug {
		fmt.Fprintf(l.out, color.CyanString("[debug] ")+msg+"\n", args...)
	}
}

func (l logger) Warnf(msg string, args ...any) {
	fmt.Fprintf(l.err, color.YellowString("[warn] ")+msg+"\n", args...)
}

func (l logger) Errorf(msg string, args ...any) {
	fmt.Fprintf(l.err, color.RedString("[error] ")+msg+"\n", args...)
}

func (l logger) Abortedf(msg string, args ...any) {
	fmt.Fprintf(l.err, color.YellowString("[aborted] ")+msg+"\n", args...)
}

// slog returns the structured logger handed to the library. It is silent
// unless --verbose or --debug is set.
func (l logger) slog() *slog.Logger {
	switch {
	case l.debug:
		return slog.New(slog.NewTextHandler(l.err, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case l.verbose:
		return slog.New(slog.NewTextHandler(l.err, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.DiscardHandler)
}
