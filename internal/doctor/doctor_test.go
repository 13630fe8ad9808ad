package doctor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/audioanchor/internal/config"
	"github.com/rbright/audioanchor/internal/health"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_ENV", "/run/user/1000")

	check := checkEnv(
		"TEST_DOCTOR_ENV",
		func(v string) bool { return strings.HasPrefix(v, "/run") },
		"looks good",
		"unexpected",
	)

	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "notify.command")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryFound(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCommandUsesBinaryFromPath(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fake-bin")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/usr/bin/env bash\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	check := checkCommand([]string{"fake-bin", "--arg"}, "notify.command")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "notify.command command is available")
}

func TestCheckStoreWritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "priorities.json")

	check := checkStore(config.StoreConfig{Path: path})
	require.True(t, check.Pass, check.Message)
	require.Contains(t, check.Message, path)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Empty(t, entries, "probe file must be cleaned up")
}

func TestCheckStoreUnwritable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o700) })

	check := checkStore(config.StoreConfig{Path: filepath.Join(dir, "priorities.json")})
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "not writable")
}

func TestCheckPulseFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkPulse(context.Background(), "audioanchor")
	require.False(t, check.Pass)
	require.Equal(t, "pulse", check.Name)
}

func TestCheckDaemonNotRunningIsInformational(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	check := checkDaemon(context.Background())
	require.True(t, check.Pass)
	require.Equal(t, "not running", check.Message)
}

func TestCheckDaemonServing(t *testing.T) {
	runtimeDir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)

	srv, listener, err := health.Listen(filepath.Join(runtimeDir, health.SocketName))
	require.NoError(t, err)
	srv.SetServing(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	check := checkDaemon(context.Background())
	require.True(t, check.Pass, check.Message)
	require.Equal(t, "running and serving", check.Message)

	cancel()
	require.NoError(t, <-done)
}

func TestRunMemoryBackendWithHyprNotifications(t *testing.T) {
	binDir := t.TempDir()
	fakeHypr := filepath.Join(binDir, "hyprctl")
	require.NoError(t, os.WriteFile(fakeHypr, []byte("#!/usr/bin/env sh\necho '{\"tag\":\"v0.45.2\"}'\n"), 0o755))
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	cfg := config.Default()
	cfg.Backend = "memory"
	cfg.Notify.Backend = "hypr"
	cfg.Store.Path = filepath.Join(t.TempDir(), "priorities.json")

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg, Exists: true})
	require.True(t, report.OK(), report.String())

	var names []string
	for _, check := range report.Checks {
		names = append(names, check.Name)
	}
	require.Equal(t, []string{"config", "XDG_RUNTIME_DIR", "store", "backend", "hyprctl", "daemon"}, names)
	require.Contains(t, report.String(), "Hyprland v0.45.2 reachable")
}

func TestCheckHyprUnreachable(t *testing.T) {
	binDir := t.TempDir()
	fakeHypr := filepath.Join(binDir, "hyprctl")
	require.NoError(t, os.WriteFile(fakeHypr, []byte("#!/usr/bin/env sh\necho 'HYPRLAND_INSTANCE_SIGNATURE not set' >&2\nexit 1\n"), 0o755))
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))

	check := checkHypr(context.Background())
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "HYPRLAND_INSTANCE_SIGNATURE not set")
}

func TestRunReportsMissingConfigAsDefaults(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	cfg := config.Default()
	cfg.Backend = "memory"
	cfg.Notify.Enable = false
	cfg.Store.Path = filepath.Join(t.TempDir(), "priorities.json")

	report := Run(context.Background(), config.Loaded{Path: "/tmp/missing.jsonc", Config: cfg})
	require.Contains(t, report.String(), "using defaults")
}
