// Package logs reads the daemon's current log file for the CLI.
package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"musicbot/internal/logging"
)

// CurrentFileName is the pointer the daemon keeps to its active log file.
const CurrentFileName = "musicbot.log"

const pollInterval = 250 * time.Millisecond

// Filter reports whether a log line should be shown.
type Filter func(line string) bool

// ForUser keeps lines tagged with the given user id in either log format.
func ForUser(userID int64) Filter {
	want := strconv.FormatInt(userID, 10)
	token := logging.FieldUserID + "=" + want
	return func(line string) bool {
		if strings.HasPrefix(strings.TrimSpace(line), "{") {
			return gjson.Get(line, logging.FieldUserID).String() == want
		}
		for _, field := range strings.Fields(line) {
			if field == token {
				return true
			}
		}
		return false
	}
}

// Last returns up to limit trailing lines of path that pass filter, plus
// the byte offset of the end of the file. A missing file yields no lines.
func Last(path string, limit int, filter Filter) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	ring := make([]string, 0, limit)
	offset, err := scan(file, filter, func(line string) {
		if len(ring) == limit {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, line)
	})
	if err != nil {
		return nil, 0, err
	}
	return ring, offset, nil
}

// Follow emits lines appended to path after offset until ctx is done.
// A truncated or rotated file is read again from the start.
func Follow(ctx context.Context, path string, offset int64, filter Filter, emit func(string)) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		next, err := readFrom(path, offset, filter, emit)
		if err != nil {
			return err
		}
		offset = next
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, filter Filter, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	read, err := scan(file, filter, emit)
	if err != nil {
		return offset, err
	}
	return offset + read, nil
}

// scan feeds complete lines to emit and returns the bytes consumed. A
// trailing partial line is left for the next read.
func scan(r io.Reader, filter Filter, emit func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if filter == nil || filter(line) {
			emit(line)
		}
	}
}
