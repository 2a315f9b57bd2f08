package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kahiteam/redisvc/internal/config"
	"github.com/kahiteam/redisvc/internal/service"
	"github.com/kahiteam/redisvc/internal/testutil"
	"golang.org/x/crypto/bcrypt"
)

// execute runs the root command with fresh flag values and captured output.
func execute(t *testing.T, stdin string, args ...string) (string, int) {
	t.Helper()
	settingsPath, foreground = "", false
	initOutput, initStdout, initForce = "", false, false
	hashCost = bcrypt.MinCost
	installUnitDir = ""

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetIn(strings.NewReader(stdin))
	code := run(args)
	return buf.String(), code
}

func TestRootCommandHelp(t *testing.T) {
	out, code := execute(t, "", "--help")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	for _, sub := range []string{"check", "install", "remove", "version", "init", "hash-password", "completion"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing subcommand %q", sub)
		}
	}
	if !strings.Contains(out, "--foreground") {
		t.Error("help output missing --foreground")
	}
}

func TestVersionCommand(t *testing.T) {
	out, code := execute(t, "", "version")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	for _, want := range []string{"redisvc", "commit:", "built:", "go:", "os/arch:"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q", want)
		}
	}
}

func TestTooManyArguments(t *testing.T) {
	_, code := execute(t, "", "redis", "redis.conf", "extra")
	if code != exitUsage {
		t.Errorf("exit code = %d, want %d", code, exitUsage)
	}
}

func TestUnknownFlag(t *testing.T) {
	_, code := execute(t, "", "--nonexistent")
	if code != exitUsage {
		t.Errorf("exit code = %d, want %d", code, exitUsage)
	}
}

func TestInvocationDefaults(t *testing.T) {
	tests := []struct {
		args       []string
		name, conf string
	}{
		{nil, config.DefaultServiceName, config.DefaultConfigFile},
		{[]string{"cache"}, "cache", config.DefaultConfigFile},
		{[]string{"cache", "c.conf"}, "cache", "c.conf"},
		{[]string{"", ""}, config.DefaultServiceName, config.DefaultConfigFile},
	}
	for _, tt := range tests {
		name, conf := invocation(tt.args)
		if name != tt.name || conf != tt.conf {
			t.Errorf("invocation(%q) = %q, %q; want %q, %q", tt.args, name, conf, tt.name, tt.conf)
		}
	}
}

func TestInitStdout(t *testing.T) {
	out, code := execute(t, "", "init", "--stdout")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if out != config.DefaultSettingsTOML {
		t.Error("init --stdout did not print the sample settings")
	}
}

func TestInitWritesFileOnce(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "redisvc.toml")

	if _, code := execute(t, "", "init", "--output", path); code != 0 {
		t.Fatalf("first init exit code = %d", code)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := config.LoadSettingsBytes(data, path); err != nil {
		t.Errorf("generated settings do not load: %v", err)
	}

	if _, code := execute(t, "", "init", "--output", path); code == 0 {
		t.Error("second init without --force should fail")
	}
	if _, code := execute(t, "", "init", "--output", path, "--force"); code != 0 {
		t.Errorf("init --force exit code = %d", code)
	}
}

func TestHashPasswordFromStdin(t *testing.T) {
	out, code := execute(t, "s3cret\n", "hash-password")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	hash := strings.TrimSpace(out)
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")); err != nil {
		t.Errorf("hash does not match password: %v", err)
	}
}

func TestHashPasswordEmpty(t *testing.T) {
	if _, code := execute(t, "\n", "hash-password"); code == 0 {
		t.Error("empty password should fail")
	}
}

func TestCheckPrintsMaskedConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(config.SettingsEnv, "")
	dir := testutil.TempDir(t)
	conf := testutil.WriteRedisConf(t, dir,
		"port 7000",
		"requirepass hunter2",
		"rename-command SHUTDOWN STOPNOW",
	)

	out, code := execute(t, "", "check", "cache", conf)
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	for _, want := range []string{"service:          cache", ":7000", "shutdown command: STOPNOW", "********"} {
		if !strings.Contains(out, want) {
			t.Errorf("check output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hunter2") {
		t.Error("check output leaks the password")
	}
}

func TestCheckMissingConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(config.SettingsEnv, "")
	missing := filepath.Join(testutil.TempDir(t), "absent.conf")
	if _, code := execute(t, "", "check", "cache", missing); code != service.ExitConfig {
		t.Errorf("exit code = %d, want %d", code, service.ExitConfig)
	}
}

func TestCheckBadSettings(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := testutil.TempDir(t)
	conf := testutil.WriteRedisConf(t, dir, "port 7000")
	settings := testutil.WriteFile(t, dir, "redisvc.toml", "kill_wait = \"not a duration\"\n")

	if _, code := execute(t, "", "--settings", settings, "check", "cache", conf); code != service.ExitConfig {
		t.Errorf("exit code = %d, want %d", code, service.ExitConfig)
	}
}
