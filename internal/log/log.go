// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package log wraps logrus so the rest of the host logs structured records
// with a "span" field instead of reaching for logrus directly.
package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Fields aliases logrus.Fields.
type Fields = logrus.Fields

// Entry aliases logrus.Entry.
type Entry = logrus.Entry

// Logger is the interface the manager, loader and guest wrapper log through.
// Callers inject one (e.g. pointed at a game engine's console); nothing in
// this module reaches for a package-global logger.
type Logger interface {
	Debug(...interface{})
	Debugf(string, ...interface{})
	Info(...interface{})
	Infof(string, ...interface{})
	Warn(...interface{})
	Warnf(string, ...interface{})
	Error(...interface{})
	Errorf(string, ...interface{})

	WithField(key string, value interface{}) *Entry
	WithFields(Fields) *Entry

	SetOutput(io.Writer)
}

type logger struct {
	entry *logrus.Entry
}

// New creates a logger writing JSON-less text records at info level.
func New() Logger {
	l := logrus.New()
	return logger{entry: logrus.NewEntry(l)}
}

// Span returns a logger with a "span" field set, attaching an operation name
// to every record produced while that operation runs.
func Span(l Logger, span string) Logger {
	return logger{entry: l.WithField("span", span)}
}

func (l logger) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l logger) Info(args ...interface{})                  { l.entry.Info(args...) }
func (l logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l logger) Warn(args ...interface{})                  { l.entry.Warn(args...) }
func (l logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l logger) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l logger) WithField(key string, value interface{}) *Entry {
	return l.entry.WithField(key, value)
}

func (l logger) WithFields(f Fields) *Entry {
	return l.entry.WithFields(f)
}

func (l logger) SetOutput(w io.Writer) {
	l.entry.Logger.SetOutput(w)
}
