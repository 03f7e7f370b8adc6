package logtail

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoMatch is returned by Resolve when a glob matches no regular file.
var ErrNoMatch = errors.New("no file matches pattern")

// IsGlob reports whether pattern contains glob metacharacters.
func IsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// Resolve turns a file argument into an absolute path. Plain paths are
// returned as is, even when they do not exist yet. Glob patterns (including
// ** segments) resolve to the most recently modified matching regular file.
func Resolve(pattern string) (string, error) {
	if pattern == "" {
		return "", errors.New("empty path")
	}
	if !filepath.IsAbs(pattern) {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", pattern, err)
		}
		pattern = filepath.Join(wd, pattern)
	}
	if !IsGlob(pattern) {
		return filepath.Clean(pattern), nil
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", pattern, err)
	}

	var best string
	var bestMod time.Time
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if best == "" || info.ModTime().After(bestMod) {
			best = m
			bestMod = info.ModTime()
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w: %s", ErrNoMatch, pattern)
	}
	return filepath.Clean(best), nil
}
