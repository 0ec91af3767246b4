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

package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func setupTest(t *testing.T) string {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "async-logger-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })
	return tempDir
}

func captureStderr(f func()) string {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() { os.Stderr = oldStderr }()

	f()
	w.Close()

	var stderrBuf bytes.Buffer
	io.Copy(&stderrBuf, r)
	r.Close()
	return stderrBuf.String()
}

func TestAsyncLogger_WriteAndClose(t *testing.T) {
	tempDir := setupTest(t)
	logPath := filepath.Join(tempDir, "test.log")
	lj := &lumberjack.Logger{Filename: logPath}
	asyncLogger := NewAsyncLogger(lj, 10)

	fmt.Fprintln(asyncLogger, "message 1")
	fmt.Fprintln(asyncLogger, "message 2")
	fmt.Fprintln(asyncLogger, "message 3")
	err := asyncLogger.Close()

	require.NoError(t, err)
	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "message 1\nmessage 2\nmessage 3\n", string(content))
}

func TestAsyncLogger_CloseIsIdempotent(t *testing.T) {
	tempDir := setupTest(t)
	lj := &lumberjack.Logger{Filename: filepath.Join(tempDir, "test.log")}
	asyncLogger := NewAsyncLogger(lj, 10)

	require.NoError(t, asyncLogger.Close())
	require.NoError(t, asyncLogger.Close())
}

func TestAsyncLogger_DropsMessageWhenBufferFull(t *testing.T) {
	tempDir := setupTest(t)
	logPath := filepath.Join(tempDir, "test.log")

	// A writer that blocks until released, so the buffer backs up.
	release := make(chan struct{})
	var mu sync.Mutex
	var buf bytes.Buffer
	first := true
	blockingWriter := writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		wasFirst := first
		first = false
		mu.Unlock()
		if wasFirst {
			<-release
		}
		mu.Lock()
		defer mu.Unlock()
		return buf.Write(p)
	})

	asyncLogger := NewAsyncLogger(blockingWriter, 1)

	var output string
	act := func() {
		for i := 0; i < 20; i++ {
			fmt.Fprintf(asyncLogger, "message %d\n", i)
		}
		close(release)
		require.NoError(t, asyncLogger.Close())
	}
	output = captureStderr(act)

	assert.Contains(t, output, "asynclogger: log buffer is full, dropping message.")
	_ = logPath
	mu.Lock()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	mu.Unlock()
	assert.Less(t, len(lines), 20, "not all messages should have been written")
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
