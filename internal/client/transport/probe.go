package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/fieldreport/internal/netx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

var ErrUnavailable = errors.New("endpoint unavailable")

// Prober reports whether the remote side is reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

// HTTPProbe sends HEAD to the client's current endpoint. Any HTTP answer
// counts as reachable.
type HTTPProbe struct {
	c *HTTPClient
}

func NewHTTPProbe(c *HTTPClient) *HTTPProbe {
	return &HTTPProbe{c: c}
}

func (p *HTTPProbe) Probe(ctx context.Context) error {
	_, err := netx.Do(ctx, p.c.client, netx.Request{
		Method:    http.MethodHead,
		URL:       p.c.Endpoint(),
		UserAgent: p.c.userAgent,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// GRPCHealthProbe asks a grpc_health_v1 server for the status of service.
type GRPCHealthProbe struct {
	conn    *grpc.ClientConn
	client  healthpb.HealthClient
	service string
}

// NewGRPCHealthProbe prepares a lazy connection to addr; nothing is dialed
// until the first Probe.
func NewGRPCHealthProbe(addr, service string) (*GRPCHealthProbe, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &GRPCHealthProbe{conn: conn, client: healthpb.NewHealthClient(conn), service: service}, nil
}

func (p *GRPCHealthProbe) Probe(ctx context.Context) error {
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: p.service})
	if err != nil {
		return mapError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", ErrUnavailable, resp.GetStatus())
	}
	return nil
}

func (p *GRPCHealthProbe) Close() error {
	return p.conn.Close()
}

func mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.NotFound:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	default:
		return err
	}
}
