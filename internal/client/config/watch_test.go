package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldreport/internal/logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"endpoint_url":"http://old/submit"}`), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan *FileConfig, 4)
	done := make(chan error, 1)

	go func() {
		done <- Watch(ctx, path, logging.Nop(), func(fc *FileConfig) { changes <- fc })
	}()

	// fsnotify registration is asynchronous; rewrite until an event arrives.
	var got *FileConfig
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(`{"endpoint_url":"http://new/submit"}`), 0o600)
		select {
		case got = <-changes:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, "http://new/submit", got.EndpointURL)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	defer goleak.VerifyNone(t)

	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "cfg.json"), logging.Nop(), func(*FileConfig) {})
	require.Error(t, err)
}
