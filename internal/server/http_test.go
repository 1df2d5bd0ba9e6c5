package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Teamie71/folioo-server/internal/config"
)

func TestNewHTTPServerTimeoutsFromConfig(t *testing.T) {
	gin.SetMode(gin.TestMode)

	srv := NewHTTPServer(gin.New(), config.Config{
		HTTPReadTimeout:  5 * time.Second,
		HTTPWriteTimeout: 15 * time.Second,
		ShutdownTimeout:  3 * time.Second,
	})
	require.Equal(t, 5*time.Second, srv.readTimeout)
	require.Equal(t, 15*time.Second, srv.writeTimeout)
	require.Equal(t, 3*time.Second, srv.shutdownTimeout)

	// Zero-valued config falls back to defaults rather than disabling timeouts.
	srv = NewHTTPServer(gin.New(), config.Config{})
	require.Equal(t, 10*time.Second, srv.readTimeout)
	require.Equal(t, 20*time.Second, srv.writeTimeout)
	require.Equal(t, 10*time.Second, srv.shutdownTimeout)
}

func TestHTTPServerGracefulShutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	srv := NewHTTPServer(r, config.Config{ShutdownTimeout: 2 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx, "127.0.0.1:0")
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
