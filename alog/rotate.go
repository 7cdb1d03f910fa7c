// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package alog

import (
	"io"
	"os"
	"path/filepath"

	"github.com/jrick/logrotate/rotator"
)

// NewRotatingWriter opens a size-rotated log file at logPath (creating
// its parent directory if necessary) and returns a writer that fans
// out to both stdout and the rotator, the same "console plus rotating
// file" composition astramd's teacher wires up for its own daemon log.
func NewRotatingWriter(logPath string, maxRolls int) (io.Writer, error) {
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return nil, err
	}
	r, err := rotator.New(logPath, 10*1024, false, maxRolls)
	if err != nil {
		return nil, err
	}
	return io.MultiWriter(os.Stdout, r), nil
}
