package runner

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/google/uuid"
)

// DockerConfig configures the sandbox container
type DockerConfig struct {
	Image      string
	MemoryMB   int
	CPULimit   float64
	NetworkOff bool
}

// DefaultDockerConfig returns sensible defaults
func DefaultDockerConfig() DockerConfig {
	return DockerConfig{
		Image:      DefaultLanguageConfigs()[LanguagePython].DockerImage,
		MemoryMB:   256,
		CPULimit:   0.5,
		NetworkOff: true,
	}
}

const dockerWorkspace = "/workspace"

// DockerRunner runs commands inside one long-lived container. Every run
// gets its own directory under the workspace.
type DockerRunner struct {
	client *client.Client
	config DockerConfig

	mu          sync.Mutex
	containerID string
}

// NewDockerRunner creates a new Docker runner
func NewDockerRunner(cfg DockerConfig) (*DockerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	// Verify Docker is reachable
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker not reachable: %w", err)
	}

	return &DockerRunner{client: cli, config: cfg}, nil
}

func (r *DockerRunner) Run(ctx context.Context, files map[string]string, cmd []string, timeout time.Duration) (*ExecResult, error) {
	containerID, err := r.ensureContainer(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecutorFailed, err)
	}

	dir := path.Join(dockerWorkspace, "run-"+uuid.NewString())
	if err := r.copyFiles(ctx, containerID, dir, files); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecutorFailed, err)
	}
	defer r.cleanup(containerID, dir)

	return r.exec(ctx, containerID, dir, cmd, timeout)
}

// ensureContainer starts the sandbox container on first use.
func (r *DockerRunner) ensureContainer(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.containerID != "" {
		info, err := r.client.ContainerInspect(ctx, r.containerID)
		if err == nil && info.State.Running {
			return r.containerID, nil
		}
		_ = r.client.ContainerRemove(ctx, r.containerID, container.RemoveOptions{Force: true})
		r.containerID = ""
	}

	if err := r.ensureImage(ctx, r.config.Image); err != nil {
		return "", fmt.Errorf("ensure image: %w", err)
	}

	// Container stays alive (sleep loop); work happens through exec
	containerCfg := &container.Config{
		Image:           r.config.Image,
		Cmd:             []string{"sh", "-c", "while true; do sleep 3600; done"},
		WorkingDir:      dockerWorkspace,
		NetworkDisabled: r.config.NetworkOff,
		Tty:             false,
		Labels: map[string]string{
			"nudge.sandbox": "true",
			"nudge.lang":    string(LanguagePython),
		},
	}

	hostCfg := &container.HostConfig{
		Resources: container.Resources{
			Memory:   int64(r.config.MemoryMB) * 1024 * 1024,
			NanoCPUs: int64(r.config.CPULimit * 1e9),
		},
	}

	resp, err := r.client.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}

	if err := r.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = r.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return "", fmt.Errorf("start container: %w", err)
	}

	r.containerID = resp.ID
	return resp.ID, nil
}

// copyFiles copies files into dir inside the container.
func (r *DockerRunner) copyFiles(ctx context.Context, containerID, dir string, files map[string]string) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	prefix := strings.TrimPrefix(dir, dockerWorkspace+"/")
	if err := tw.WriteHeader(&tar.Header{Name: prefix + "/", Mode: 0755, Typeflag: tar.TypeDir}); err != nil {
		return fmt.Errorf("write tar header: %w", err)
	}
	for name, content := range files {
		header := &tar.Header{
			Name: path.Join(prefix, name),
			Mode: 0644,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("write tar header: %w", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			return fmt.Errorf("write tar content: %w", err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}

	return r.client.CopyToContainer(ctx, containerID, dockerWorkspace, &buf, container.CopyToContainerOptions{})
}

func (r *DockerRunner) exec(ctx context.Context, containerID, dir string, cmd []string, timeout time.Duration) (*ExecResult, error) {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execCfg := container.ExecOptions{
		Cmd:          cmd,
		WorkingDir:   dir,
		AttachStdout: true,
		AttachStderr: true,
	}

	execResp, err := r.client.ContainerExecCreate(execCtx, containerID, execCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create exec: %v", ErrExecutorFailed, err)
	}

	start := time.Now()

	attachResp, err := r.client.ContainerExecAttach(execCtx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: attach exec: %v", ErrExecutorFailed, err)
	}
	defer attachResp.Close()

	var outBuf bytes.Buffer
	_, copyErr := io.Copy(&outBuf, attachResp.Reader)
	duration := time.Since(start)

	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	if copyErr != nil {
		return nil, fmt.Errorf("%w: read exec output: %v", ErrExecutorFailed, copyErr)
	}

	inspectResp, err := r.client.ContainerExecInspect(execCtx, execResp.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: inspect exec: %v", ErrExecutorFailed, err)
	}

	stdout, stderr := demuxOutput(outBuf.Bytes())

	return &ExecResult{
		ExitCode: inspectResp.ExitCode,
		Stdout:   stdout,
		Stderr:   stderr,
		Duration: duration,
	}, nil
}

func (r *DockerRunner) cleanup(containerID, dir string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := r.client.ContainerExecCreate(ctx, containerID, container.ExecOptions{Cmd: []string{"rm", "-rf", dir}})
	if err != nil {
		return
	}
	_ = r.client.ContainerExecStart(ctx, resp.ID, container.ExecStartOptions{})
}

// Close destroys the container and closes the Docker client.
func (r *DockerRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.containerID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		timeout := 10
		_ = r.client.ContainerStop(ctx, r.containerID, container.StopOptions{Timeout: &timeout})
		_ = r.client.ContainerRemove(ctx, r.containerID, container.RemoveOptions{Force: true})
		r.containerID = ""
	}
	return r.client.Close()
}

func (r *DockerRunner) ensureImage(ctx context.Context, img string) error {
	_, err := r.client.ImageInspect(ctx, img)
	if err == nil {
		return nil // Already present
	}

	reader, err := r.client.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", img, err)
	}
	defer reader.Close()
	// Drain the reader to complete the pull
	_, _ = io.Copy(io.Discard, reader)
	return nil
}

// demuxOutput separates Docker multiplexed stdout/stderr streams.
// Docker stream protocol uses 8-byte headers: [type][0][0][0][size1][size2][size3][size4]
// type: 1=stdout, 2=stderr
func demuxOutput(data []byte) (stdout, stderr string) {
	var outBuf, errBuf strings.Builder
	raw := data

	for len(data) >= 8 {
		streamType := data[0]
		size := int(data[4])<<24 | int(data[5])<<16 | int(data[6])<<8 | int(data[7])
		data = data[8:]

		if size > len(data) {
			size = len(data)
		}

		chunk := string(data[:size])
		data = data[size:]

		switch streamType {
		case 1:
			outBuf.WriteString(chunk)
		case 2:
			errBuf.WriteString(chunk)
		}
	}

	// If no headers were found, treat entire output as stdout
	if outBuf.Len() == 0 && errBuf.Len() == 0 && len(raw) > 0 {
		return string(raw), ""
	}

	return outBuf.String(), errBuf.String()
}

var _ CommandRunner = (*DockerRunner)(nil)
