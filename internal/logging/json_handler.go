package logging

import (
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// newJSONHandler writes one object per line with short keys (ts, level, msg)
// so log shippers and `musicbot logs --user` can read the same file.
func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool, scrub redactor) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return scrub.attr(attr)
			}
			switch attr.Key {
			case slog.TimeKey:
				return slog.String("ts", attr.Value.Time().UTC().Format(time.RFC3339))
			case slog.LevelKey:
				return slog.String("level", strings.ToLower(levelLabel(attr.Value.Any().(slog.Level))))
			case slog.SourceKey:
				src, ok := attr.Value.Any().(*slog.Source)
				if !ok || src == nil {
					return slog.Attr{}
				}
				return slog.String("source", filepath.Base(src.File)+":"+strconv.Itoa(src.Line))
			case slog.MessageKey:
				return slog.String(slog.MessageKey, scrub.text(attr.Value.String()))
			}
			return scrub.attr(attr)
		},
	})
}
