package newssink

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/yanqian/ai-chatbot/internal/domain/news"
)

const defaultOutputDir = "./AINews"

// FileSink writes digests to a local directory.
type FileSink struct {
	dir string
}

// NewFileSink constructs the sink.
func NewFileSink(dir string) *FileSink {
	if strings.TrimSpace(dir) == "" {
		dir = defaultOutputDir
	}
	return &FileSink{dir: dir}
}

// Write implements news.Sink. The output directory is created on first use.
func (s *FileSink) Write(_ context.Context, filename, content string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	destination := filepath.Join(s.dir, filepath.Base(filename))
	if err := os.WriteFile(destination, []byte(content), 0o644); err != nil {
		return "", err
	}
	return destination, nil
}

var _ news.Sink = (*FileSink)(nil)
