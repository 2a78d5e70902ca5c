package config

import (
	"io"
	"log/slog"
	"os"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rewriteFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
