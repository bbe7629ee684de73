package cli

import (
	"context"
	"errors"
	"testing"
)

func TestTransferStats(t *testing.T) {
	s := &transferStats{}
	h := s.hooks().Resolve()
	ctx := context.Background()

	h.Download.OnDownloadComplete(ctx, "a.deb", 100, 0, nil)
	h.Download.OnDownloadComplete(ctx, "b.deb", 50, 0, nil)
	h.Download.OnDownloadComplete(ctx, "c.deb", 999, 0, errors.New("boom"))
	h.Download.OnDownloadSkip(ctx, "d.deb")

	if got := s.bytes.Load(); got != 150 {
		t.Errorf("bytes = %d, want 150", got)
	}
}
