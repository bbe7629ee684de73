package cli

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/matzehuels/debfetch/pkg/observability"
)

// transferStats totals the bytes written by successful downloads.
type transferStats struct {
	observability.NoopDownloadHooks
	bytes atomic.Int64
}

func (s *transferStats) OnDownloadComplete(_ context.Context, _ string, size int64, _ time.Duration, err error) {
	if err == nil {
		s.bytes.Add(size)
	}
}

func (s *transferStats) hooks() observability.Hooks {
	return observability.Hooks{Download: s}
}
