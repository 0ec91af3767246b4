// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger provides the structured, leveled logging used on the
// lifecycle and diagnostic paths of the hot-tracking engine. The engine's
// I/O fast path (hot.Root.RecordAccess) never logs; the hottrack facade
// logs only a failed record_access, at debug level.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
)

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// LevelOff is above any level slog defines, so nothing is ever enabled.
var LevelOff = slog.Level(math.MaxInt32 - 1000)

var (
	programLevel  = new(slog.LevelVar)
	defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: programLevel}))
)

// SetOutput redirects subsequent log output to w.
func SetOutput(w io.Writer) {
	defaultLogger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: programLevel}))
}

// SetLevel changes the minimum level that is emitted.
func SetLevel(l slog.Level) {
	programLevel.Set(l)
}

func Debugf(format string, args ...any) { logf(LevelDebug, format, args...) }
func Infof(format string, args ...any)  { logf(LevelInfo, format, args...) }
func Warnf(format string, args ...any)  { logf(LevelWarn, format, args...) }
func Errorf(format string, args ...any) { logf(LevelError, format, args...) }

func logf(level slog.Level, format string, args ...any) {
	if !defaultLogger.Enabled(context.Background(), level) {
		return
	}
	defaultLogger.Log(context.Background(), level, fmt.Sprintf(format, args...))
}
