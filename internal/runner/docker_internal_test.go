package runner

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestDemuxOutput(t *testing.T) {
	tests := []struct {
		name       string
		input      []byte
		wantStdout string
		wantStderr string
	}{
		{
			name:  "empty input",
			input: nil,
		},
		{
			name:       "stdout message",
			input:      makeDockerHeader(1, []byte("hello")),
			wantStdout: "hello",
		},
		{
			name:       "stderr message",
			input:      makeDockerHeader(2, []byte("error")),
			wantStderr: "error",
		},
		{
			name: "multiple messages",
			input: append(
				makeDockerHeader(1, []byte("hello\n")),
				makeDockerHeader(1, []byte("world\n"))...,
			),
			wantStdout: "hello\nworld\n",
		},
		{
			name: "mixed stdout and stderr",
			input: append(
				makeDockerHeader(1, []byte("out\n")),
				makeDockerHeader(2, []byte("err\n"))...,
			),
			wantStdout: "out\n",
			wantStderr: "err\n",
		},
		{
			name:       "no header treated as stdout",
			input:      []byte("short"),
			wantStdout: "short",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stdout, stderr := demuxOutput(tc.input)
			if stdout != tc.wantStdout {
				t.Errorf("demuxOutput() stdout = %q, want %q", stdout, tc.wantStdout)
			}
			if stderr != tc.wantStderr {
				t.Errorf("demuxOutput() stderr = %q, want %q", stderr, tc.wantStderr)
			}
		})
	}
}

// makeDockerHeader creates a Docker log frame with the specified stream type and payload
func makeDockerHeader(streamType byte, payload []byte) []byte {
	header := make([]byte, 8)
	header[0] = streamType
	binary.BigEndian.PutUint32(header[4:], uint32(len(payload)))
	return append(header, payload...)
}

func TestDemuxOutput_PartialPayload(t *testing.T) {
	header := make([]byte, 8)
	header[0] = 1
	binary.BigEndian.PutUint32(header[4:], 100) // claims 100 bytes

	stdout, _ := demuxOutput(append(header, []byte("partial")...))
	if stdout != "partial" {
		t.Errorf("demuxOutput() stdout = %q, want %q", stdout, "partial")
	}
}

func TestDefaultDockerConfig_Values(t *testing.T) {
	cfg := DefaultDockerConfig()

	if cfg.Image == "" {
		t.Error("Image should not be empty")
	}
	if cfg.MemoryMB == 0 {
		t.Error("MemoryMB should not be zero")
	}
	if cfg.CPULimit == 0 {
		t.Error("CPULimit should not be zero")
	}
	if !cfg.NetworkOff {
		t.Error("NetworkOff should default to true")
	}
}

func TestCreateTempCodeDir(t *testing.T) {
	code := map[string]string{
		"harness.py":       "print('hi')",
		"nested/data.json": "{}",
	}

	dir, err := createTempCodeDir(code)
	if err != nil {
		t.Fatalf("createTempCodeDir() error = %v", err)
	}
	defer removeTempDir(dir)

	for filename, content := range code {
		data, err := os.ReadFile(filepath.Join(dir, filename))
		if err != nil {
			t.Errorf("read %s: %v", filename, err)
			continue
		}
		if string(data) != content {
			t.Errorf("file %s content = %q, want %q", filename, string(data), content)
		}
	}
}

func TestRemoveTempDir(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "test-remove-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	os.WriteFile(filepath.Join(tmpDir, "file.txt"), []byte("content"), 0644)

	removeTempDir(tmpDir)

	if _, err := os.Stat(tmpDir); !os.IsNotExist(err) {
		t.Error("temp directory should be removed")
	}
}
