package client

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/matheus3301/rtlink/internal/api"
)

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn       *grpc.ClientConn
	Connection api.ConnectionClient
}

// New dials the daemon's Unix domain socket and returns a typed client.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}

	return &Client{
		conn:       conn,
		Connection: api.NewConnectionClient(conn),
	}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
