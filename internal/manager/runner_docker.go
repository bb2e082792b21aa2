package manager

import (
	"bytes"
	"context"
	"fmt"

	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
)

// DockerRunner runs model containers against the local Docker engine.
type DockerRunner struct {
	cli client.APIClient
}

// NewDockerRunner connects to the Docker engine using environment defaults
// (DOCKER_HOST etc.) with API version negotiation.
func NewDockerRunner() (*DockerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &DockerRunner{cli: cli}, nil
}

// NewDockerRunnerWithClient wraps an existing API client, mainly for tests.
func NewDockerRunnerWithClient(cli client.APIClient) *DockerRunner {
	return &DockerRunner{cli: cli}
}

func (r *DockerRunner) Run(ctx context.Context, spec RunSpec) (string, error) {
	cfg := &container.Config{
		Image: spec.Image,
		Env:   spec.Env,
	}
	if spec.Port > 0 {
		cfg.ExposedPorts = nat.PortSet{
			nat.Port(fmt.Sprintf("%d/tcp", spec.Port)): struct{}{},
		}
	}
	hostCfg := &container.HostConfig{
		// Containers clean themselves up on stop, mirroring the platform's
		// remove-on-stop deployment semantics.
		AutoRemove: true,
	}
	if spec.UseGPU {
		hostCfg.Resources.DeviceRequests = []container.DeviceRequest{
			{Count: -1, Capabilities: [][]string{{"gpu"}}},
		}
	}
	var netCfg *network.NetworkingConfig
	if spec.Network != "" {
		netCfg = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				spec.Network: {},
			},
		}
	}
	created, err := r.cli.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, spec.Name)
	if err != nil {
		return "", r.mapErr(err, spec.Name)
	}
	if err := r.cli.ContainerStart(ctx, created.ID, dockertypes.ContainerStartOptions{}); err != nil {
		return "", r.mapErr(err, spec.Name)
	}
	return created.ID, nil
}

func (r *DockerRunner) Stop(ctx context.Context, name string) error {
	if err := r.cli.ContainerStop(ctx, name, container.StopOptions{}); err != nil {
		return r.mapErr(err, name)
	}
	return nil
}

func (r *DockerRunner) Status(ctx context.Context, name string) (string, error) {
	info, err := r.cli.ContainerInspect(ctx, name)
	if err != nil {
		return "", r.mapErr(err, name)
	}
	if info.State == nil {
		return "unknown", nil
	}
	return info.State.Status, nil
}

func (r *DockerRunner) Logs(ctx context.Context, name string) (string, error) {
	rc, err := r.cli.ContainerLogs(ctx, name, dockertypes.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", r.mapErr(err, name)
	}
	defer rc.Close()
	// Docker multiplexes stdout/stderr on a single stream; demux to text.
	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, rc); err != nil {
		return "", fmt.Errorf("demux logs: %w", err)
	}
	return buf.String(), nil
}

func (r *DockerRunner) Ping(ctx context.Context) error {
	if _, err := r.cli.Ping(ctx); err != nil {
		return ErrRunnerUnavailable("docker engine unreachable: " + err.Error())
	}
	return nil
}

// mapErr converts engine errors into the manager's typed errors.
func (r *DockerRunner) mapErr(err error, name string) error {
	switch {
	case client.IsErrNotFound(err):
		return ErrDeploymentNotFound(name)
	case client.IsErrConnectionFailed(err):
		return ErrRunnerUnavailable("docker engine unreachable: " + err.Error())
	default:
		return err
	}
}
