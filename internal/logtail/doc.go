// Package logtail reads and follows log files.
//
// # Overview
//
// The package has two halves:
//
//  1. Read: extract the last N lines of a file in one pass
//  2. Tailer: follow a growing file and report lines, rotation and
//     disappearance through a Handler
//
// # Reading Log Files
//
// Read uses a ring buffer of size maxLines, so memory stays O(maxLines)
// regardless of file size:
//
//	lines, err := logtail.Read("/var/log/app/daemon.log", 400)
//	if err != nil {
//		return fmt.Errorf("read backlog: %w", err)
//	}
//
// A missing file is an error wrapping os.ErrNotExist; an empty file
// returns an empty slice.
//
// # Following
//
// A Tailer watches the file's parent directory with fsnotify and also
// stats the path on a poll ticker, so it keeps working on filesystems that
// do not deliver events. On each wakeup it:
//
//   - reads everything between the last offset and the current size
//   - keeps an unterminated trailing line until its newline arrives
//   - strips a trailing carriage return
//   - reports OnRotated when the size drops below the offset (truncation)
//     or the path now names a different file (rename and recreate)
//
// When the file does not exist at start the Tailer reports OnFileMissing
// once and waits for it with capped exponential backoff, waking early on a
// create event. When the file disappears mid-session it is given a grace
// period to be replaced; after that Run fails with ErrFileVanished.
//
// # Concurrency
//
// A Tailer is driven by a single goroutine: the one calling Run. Handler
// callbacks run on that goroutine, in file order, and must not block for
// long.
//
// # Resolving Paths
//
// Resolve accepts a plain path or a doublestar glob such as
// /var/log/**/app-*.log and returns the most recently modified match.
package logtail
