// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppDataDir returns the default per-OS application data directory for
// appName: %LOCALAPPDATA%\appName on Windows, ~/Library/Application
// Support/appName on macOS, and $XDG_DATA_HOME/.appName (falling back
// to ~/.appName) elsewhere.
func AppDataDir(appName string) string {
	if appName == "" || appName == "." {
		return "."
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(appData, appName)
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", appName)
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appName)
		}
		return filepath.Join(homeDir, "."+appName)
	}
}
