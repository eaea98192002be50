//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// containersAvailable returns true if a Docker or Podman socket is present
func containersAvailable() bool {
	// Docker socket
	if _, err := os.Stat("/var/run/docker.sock"); err == nil {
		return true
	}
	// Podman socket per-user
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		if uid := os.Getuid(); uid > 0 {
			candidate := "/run/user/" + strconv.Itoa(uid) + "/podman/podman.sock"
			if _, err := os.Stat(candidate); err == nil {
				return true
			}
		}
	} else {
		candidate := filepath.Join(runtimeDir, "podman", "podman.sock")
		if _, err := os.Stat(candidate); err == nil {
			return true
		}
	}
	return false
}

// startContainer runs req and returns host:port for the first exposed port
func startContainer(t *testing.T, ctx context.Context, req testcontainers.ContainerRequest) string {
	t.Helper()
	if !containersAvailable() {
		t.Skip("no container runtime available")
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start %s: %v", req.Image, err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := c.MappedPort(ctx, nat.Port(req.ExposedPorts[0]))
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return host + ":" + port.Port()
}

func postgresRequest() testcontainers.ContainerRequest {
	return testcontainers.ContainerRequest{
		Image: "postgres:15-alpine",
		Env: map[string]string{
			"POSTGRES_DB":       "protectlife",
			"POSTGRES_USER":     "protectlife",
			"POSTGRES_PASSWORD": "password",
		},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
}

func natsRequest() testcontainers.ContainerRequest {
	return testcontainers.ContainerRequest{
		Image:        "nats:2.10-alpine",
		ExposedPorts: []string{"4222/tcp"},
		WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
	}
}
