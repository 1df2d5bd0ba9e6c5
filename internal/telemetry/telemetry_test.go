package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Teamie71/folioo-server/internal/config"
)

func TestNewWithoutEndpointIsNoop(t *testing.T) {
	p, err := New(context.Background(), config.Config{ServiceName: "folioo-auth-test"}, nil)
	require.NoError(t, err)
	require.Nil(t, p.tracerProvider)
	require.Equal(t, "folioo-auth-test", p.serviceName)

	// The noop tracer is still usable.
	_, span := p.Tracer().Start(context.Background(), "noop")
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestProviderNilSafe(t *testing.T) {
	var p *Provider
	require.NotNil(t, p.Tracer())
	require.NoError(t, p.Shutdown(context.Background()))
}
