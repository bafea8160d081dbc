package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog/log"
)

const (
	dockerImage         = "browserless/chrome:latest"
	dockerContainerName = "chrome"
	dockerHostPort      = "9222"
)

var dockerDebuggerURL = "http://localhost:" + dockerHostPort

// dockerChrome is a browserless/chrome container serving CDP on dockerHostPort
type dockerChrome struct {
	client      *client.Client
	containerID string
	started     bool // false when an already running container was reused
}

// startDockerChrome starts a Chrome container unless one is already running
func startDockerChrome(ctx context.Context) (*dockerChrome, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	running, err := cli.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(
			filters.Arg("name", dockerContainerName),
			filters.Arg("status", "running"),
		),
	})
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("failed to check for running chrome container: %w", err)
	}

	if len(running) > 0 {
		log.Info().Str("container", running[0].ID[:12]).Msg("using existing Chrome container")
		return &dockerChrome{client: cli, containerID: running[0].ID}, nil
	}

	d := &dockerChrome{client: cli}
	if err := d.ensureImage(ctx); err != nil {
		cli.Close()
		return nil, err
	}

	log.Info().Str("image", dockerImage).Msg("starting Chrome container")
	resp, err := cli.ContainerCreate(ctx,
		&container.Config{
			Image:        dockerImage,
			ExposedPorts: nat.PortSet{"3000/tcp": struct{}{}},
			Labels:       map[string]string{"managed-by": "page-recorder"},
		},
		&container.HostConfig{
			PortBindings: nat.PortMap{
				"3000/tcp": []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: dockerHostPort}},
			},
			AutoRemove: true,
		},
		nil, nil, dockerContainerName,
	)
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("failed to create chrome container: %w", err)
	}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		cli.Close()
		return nil, fmt.Errorf("failed to start chrome container: %w", err)
	}
	d.containerID = resp.ID
	d.started = true

	log.Info().Msg("waiting for Chrome container to be ready")
	if err := waitForDebugger(ctx, dockerDebuggerURL, 20, 500*time.Millisecond); err != nil {
		d.Stop(context.Background())
		return nil, err
	}

	log.Info().Msg("Chrome container is ready")
	return d, nil
}

// URL returns the DevTools endpoint for a remote allocator
func (d *dockerChrome) URL() string {
	return dockerDebuggerURL
}

func (d *dockerChrome) ensureImage(ctx context.Context) error {
	images, err := d.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return fmt.Errorf("failed to list images: %w", err)
	}
	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == dockerImage {
				return nil
			}
		}
	}

	log.Info().Str("image", dockerImage).Msg("pulling Chrome image")
	reader, err := d.client.ImagePull(ctx, dockerImage, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

// Stop stops the container if this process started it
func (d *dockerChrome) Stop(ctx context.Context) error {
	defer d.client.Close()

	if !d.started {
		return nil
	}

	log.Info().Msg("stopping Chrome container")
	timeout := 10
	if err := d.client.ContainerStop(ctx, d.containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop chrome container: %w", err)
	}
	log.Info().Msg("Chrome container stopped")
	return nil
}

// waitForDebugger polls the /json/version endpoint until Chrome answers
func waitForDebugger(ctx context.Context, baseURL string, retries int, interval time.Duration) error {
	url := strings.TrimSuffix(baseURL, "/") + "/json/version"

	for i := 0; i < retries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if resp, err := http.DefaultClient.Do(req); err == nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK && strings.Contains(string(body), "webSocketDebuggerUrl") {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	return fmt.Errorf("chrome did not become ready after %d retries", retries)
}
