package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldreport/internal/logging"
	"github.com/dmitrijs2005/fieldreport/internal/server/config"
	"github.com/dmitrijs2005/fieldreport/internal/server/handler"
	"github.com/dmitrijs2005/fieldreport/internal/server/repositories/rows"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type nopRows struct{}

func (nopRows) Insert(context.Context, *rows.Row) (bool, error) { return true, nil }

type nopBlobs struct{}

func (nopBlobs) Put(context.Context, string, string, []byte) error { return nil }

func TestRun_ServesAndStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.HealthAddr = "127.0.0.1:0"

	app := newApp(cfg, logging.Nop(), handler.New(nopRows{}, nopBlobs{}, logging.Nop(), handler.WithPlainResponse(true)))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- app.run(ctx, lis)
	}()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	url := "http://" + lis.Addr().String() + "/submit"

	resp, err := client.Post(url, "application/json", strings.NewReader(`{"id":"r-1"}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop within timeout after context cancel")
	}
}

func TestRun_ListenError(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.HTTPAddr = "256.0.0.1:bad"

	app := newApp(cfg, logging.Nop(), handler.New(nopRows{}, nopBlobs{}, logging.Nop()))
	require.Error(t, app.Run(context.Background()))
}

func TestNewApp_DBError(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDSN = "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := NewApp(ctx, cfg, logging.Nop())
	require.ErrorContains(t, err, "db init error")
}
