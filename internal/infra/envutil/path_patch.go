// Package envutil prepares the environment handed to spawned capability
// backends. GUI-launched processes on macOS inherit a minimal PATH, so
// command endpoints would miss the interpreters and package managers a
// login shell would find.
package envutil

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	skipPatchEnv = "CAPCALL_SKIP_PATH_PATCH"
	defaultShell = "/bin/zsh"
)

// EnsureLoginPATH returns env with PATH widened to what a login shell
// would see, on macOS only. A set TERM means a terminal launched us and
// PATH is already right; CAPCALL_SKIP_PATH_PATCH opts out entirely.
func EnsureLoginPATH(env []string) []string {
	if runtime.GOOS != "darwin" {
		return env
	}
	if v, _ := lookupEnv(env, skipPatchEnv); strings.TrimSpace(v) != "" {
		return env
	}
	if v, _ := lookupEnv(env, "TERM"); strings.TrimSpace(v) != "" {
		return env
	}

	shell, _ := lookupEnv(env, "SHELL")
	shell = strings.TrimSpace(shell)
	if shell == "" {
		shell = defaultShell
	}
	loginPath, err := loginShellPATH(shell)
	if err != nil || strings.TrimSpace(loginPath) == "" {
		return env
	}

	current, _ := lookupEnv(env, "PATH")
	merged := mergePATH(loginPath, current)
	if merged == "" || merged == current {
		return env
	}
	return replaceEnv(env, "PATH", merged)
}

type loginPathResult struct {
	path string
	err  error
}

var (
	loginPathMu    sync.Mutex
	loginPathCache = map[string]loginPathResult{}
)

// loginShellPATH probes each shell at most once per process. The mutex
// also serializes concurrent first callers onto one probe.
func loginShellPATH(shell string) (string, error) {
	loginPathMu.Lock()
	defer loginPathMu.Unlock()
	if r, ok := loginPathCache[shell]; ok {
		return r.path, r.err
	}
	path, err := probeLoginShell(shell)
	loginPathCache[shell] = loginPathResult{path: path, err: err}
	return path, err
}

// probeLoginShell asks the shell what PATH a login session would see.
// Profile scripts may print noise before the echo, so only the last
// line counts.
func probeLoginShell(shell string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, shell, "-lc", "echo $PATH")
	cmd.Env = append(os.Environ(), "LANG=C", "LC_ALL=C")
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	probed := strings.TrimSpace(string(out))
	if i := strings.LastIndexByte(probed, '\n'); i >= 0 {
		probed = strings.TrimSpace(probed[i+1:])
	}
	return probed, nil
}

// mergePATH joins the lists in order, keeping the first occurrence of
// each directory.
func mergePATH(lists ...string) string {
	sep := string(os.PathListSeparator)
	seen := make(map[string]struct{})
	var merged []string
	for _, list := range lists {
		for _, dir := range strings.Split(list, sep) {
			dir = strings.TrimSpace(dir)
			if dir == "" {
				continue
			}
			if _, dup := seen[dir]; dup {
				continue
			}
			seen[dir] = struct{}{}
			merged = append(merged, dir)
		}
	}
	return strings.Join(merged, sep)
}

// lookupEnv returns the last value for key, the one the kernel surfaces
// when duplicates exist.
func lookupEnv(env []string, key string) (string, bool) {
	prefix := key + "="
	value, found := "", false
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			value, found = kv[len(prefix):], true
		}
	}
	return value, found
}

// replaceEnv removes every existing key entry and appends the new value.
func replaceEnv(env []string, key, value string) []string {
	prefix := key + "="
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return append(out, prefix+value)
}
