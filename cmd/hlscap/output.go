// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

const maxOutputSuffix = 1000

// resolveOutputDir picks and creates the capture directory. Without an explicit
// dir it uses <YYYYMMDD>-stream-download, appending -N when that name is taken.
func resolveOutputDir(dir string, overwrite bool, now time.Time) (string, error) {
	if dir != "" {
		used, err := inUse(dir)
		if err != nil {
			return "", err
		}
		if used && !overwrite {
			return "", fmt.Errorf("output directory %s is not empty (use --overwrite)", dir)
		}
		return dir, os.MkdirAll(dir, 0o750)
	}

	base := now.Format("20060102") + "-stream-download"
	if overwrite {
		return base, os.MkdirAll(base, 0o750)
	}
	candidate := base
	for i := 1; i <= maxOutputSuffix; i++ {
		used, err := inUse(candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, os.MkdirAll(candidate, 0o750)
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("no free output directory name for %s", base)
}

// inUse reports whether path exists and is not an empty directory.
func inUse(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("inspect output directory: %w", err)
	}
	return len(entries) > 0, nil
}
