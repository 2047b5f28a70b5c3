// Package dockertest starts ephemeral containers for the connect/pgx and
// connect/redisx integration tests, grounded on rig's own
// internal/server/dockerutil/client.go (socket discovery) and
// internal/server/service/container.go (create/start/remove flow),
// trimmed down to the single job these tests need: bring up one
// container, map one port to the host, and tear it down afterward.
package dockertest

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// Container is a running, host-port-mapped container plus its cleanup.
type Container struct {
	ID       string
	HostPort int
	cli      *client.Client
}

// Config describes the image and port to start.
type Config struct {
	Image         string
	ContainerPort int
	Env           []string
}

// Available reports whether a Docker daemon is reachable, the way every
// test in this package decides whether to run or t.Skip.
func Available(ctx context.Context) bool {
	cli, err := newClient()
	if err != nil {
		return false
	}
	defer cli.Close()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err = cli.Ping(ctx)
	return err == nil
}

// Start pulls (if needed), creates, and starts a container publishing
// cfg.ContainerPort to an arbitrary host port, returning once a TCP
// dial to that port succeeds.
func Start(ctx context.Context, cfg Config) (*Container, error) {
	cli, err := newClient()
	if err != nil {
		return nil, fmt.Errorf("dockertest: docker client: %w", err)
	}

	if _, _, err := cli.ImageInspectWithRaw(ctx, cfg.Image); err != nil {
		rc, err := cli.ImagePull(ctx, cfg.Image, image.PullOptions{})
		if err != nil {
			return nil, fmt.Errorf("dockertest: pull %s: %w", cfg.Image, err)
		}
		_, _ = io.Copy(io.Discard, rc)
		_ = rc.Close()
	}

	containerPort := nat.Port(fmt.Sprintf("%d/tcp", cfg.ContainerPort))
	resp, err := cli.ContainerCreate(ctx,
		&container.Config{
			Image:        cfg.Image,
			Env:          cfg.Env,
			ExposedPorts: nat.PortSet{containerPort: struct{}{}},
		},
		&container.HostConfig{
			PortBindings: nat.PortMap{containerPort: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: "0"}}},
			AutoRemove:   true,
		},
		nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("dockertest: create: %w", err)
	}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("dockertest: start: %w", err)
	}

	inspect, err := cli.ContainerInspect(ctx, resp.ID)
	if err != nil {
		return nil, fmt.Errorf("dockertest: inspect: %w", err)
	}
	bindings := inspect.NetworkSettings.Ports[containerPort]
	if len(bindings) == 0 {
		return nil, fmt.Errorf("dockertest: no host binding for %s", containerPort)
	}
	var hostPort int
	_, _ = fmt.Sscanf(bindings[0].HostPort, "%d", &hostPort)

	c := &Container{ID: resp.ID, HostPort: hostPort, cli: cli}
	if err := c.waitReady(ctx); err != nil {
		_ = c.Stop(context.Background())
		return nil, err
	}
	return c, nil
}

// Stop removes the container (it was created with AutoRemove, so a stop
// is enough to reclaim it).
func (c *Container) Stop(ctx context.Context) error {
	defer c.cli.Close()
	timeout := 5
	return c.cli.ContainerStop(ctx, c.ID, container.StopOptions{Timeout: &timeout})
}

func (c *Container) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", c.HostPort), 200*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return fmt.Errorf("dockertest: container never accepted a connection on port %d", c.HostPort)
}

// newClient mirrors dockerutil.Client's socket discovery: honor
// DOCKER_HOST if set, otherwise probe the usual Docker Desktop/Colima
// socket paths before falling back to the client library's own default.
func newClient() (*client.Client, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if os.Getenv("DOCKER_HOST") == "" {
		if sock := findSocket(); sock != "" {
			opts = append(opts, client.WithHost("unix://"+sock))
		}
	}
	return client.NewClientWithOpts(opts...)
}

func findSocket() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	candidates := []string{"/var/run/docker.sock"}
	if home != "" {
		candidates = append(candidates,
			filepath.Join(home, ".docker", "run", "docker.sock"),
			filepath.Join(home, ".colima", "default", "docker.sock"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
