package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"capcall/internal/domain"
	"capcall/internal/infra/envutil"
	"capcall/internal/infra/telemetry"
)

type processCleanup func()

// dialCommand spawns the endpoint's subprocess and connects over stdio.
// Stderr is mirrored into the logger so backend diagnostics are not lost.
func dialCommand(ctx context.Context, spec domain.EndpointSpec, logger *zap.Logger) (mcp.Connection, processCleanup, error) {
	if len(spec.Command) == 0 {
		return nil, nil, errors.New("command is required for stdio endpoints")
	}

	cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...)
	cmd.Env = envutil.EnsureLoginPATH(append(os.Environ(), formatEnv(spec.Env)...))
	groupCleanup := bindProcessLifetime(cmd)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stderr pipe: %w", err)
	}
	downstreamLogger := logger.With(
		telemetry.EndpointField(spec.Name),
		zap.String("stream", "stderr"),
	)
	go mirrorStderr(stderr, downstreamLogger)

	transport := &mcp.CommandTransport{
		Command: cmd,
	}
	conn, err := transport.Connect(ctx)
	if err != nil {
		if groupCleanup != nil {
			groupCleanup()
		}
		return nil, nil, fmt.Errorf("connect stdio: %w", err)
	}

	return conn, groupCleanup, nil
}

const maxStderrLineLength = 32 * 1024

func mirrorStderr(reader io.Reader, logger *zap.Logger) {
	buf := bufio.NewReaderSize(reader, 8192)
	for {
		line, isPrefix, err := buf.ReadLine()
		if len(line) > 0 {
			trimmed := strings.TrimRight(string(line), "\r\n")
			if trimmed != "" {
				if len(trimmed) > maxStderrLineLength {
					trimmed = trimmed[:maxStderrLineLength] + "... [truncated]"
				}
				logger.Info(trimmed)
			}
			if isPrefix {
				for isPrefix && err == nil {
					_, isPrefix, err = buf.ReadLine()
				}
			}
		}
		if err != nil {
			return
		}
	}
}

func formatEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(env))
	for _, key := range keys {
		out = append(out, fmt.Sprintf("%s=%s", key, env[key]))
	}
	return out
}
