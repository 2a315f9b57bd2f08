package process

import (
	"errors"
	"testing"
	"time"
)

func TestSpawnConfigCommandLine(t *testing.T) {
	tests := []struct {
		cfg  SpawnConfig
		want string
	}{
		{SpawnConfig{Command: "/opt/redis-server"}, "/opt/redis-server"},
		{SpawnConfig{Command: "/opt/redis-server", Argv0: "redis", Args: []string{"conf/redis.conf"}}, "redis conf/redis.conf"},
	}
	for _, tt := range tests {
		if got := tt.cfg.CommandLine(); got != tt.want {
			t.Errorf("CommandLine() = %q, want %q", got, tt.want)
		}
	}
}

func TestStartErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := error(&StartError{Command: "redis-server", Err: inner})
	if !errors.Is(err, inner) {
		t.Fatal("StartError should unwrap to its cause")
	}
	var se *StartError
	if !errors.As(err, &se) || se.Command != "redis-server" {
		t.Fatalf("errors.As = %v", se)
	}
}

func TestMockSpawnerRecordsCalls(t *testing.T) {
	m := &MockSpawner{}
	c, err := m.Spawn(SpawnConfig{Command: "a", Args: []string{"x"}})
	if err != nil {
		t.Fatal(err)
	}
	if c.Pid() == 0 {
		t.Fatal("mock child has zero pid")
	}
	calls := m.Calls()
	if len(calls) != 1 || calls[0].Command != "a" {
		t.Fatalf("calls = %+v", calls)
	}
}

func TestMockSpawnerSpawnFn(t *testing.T) {
	want := errors.New("no binary")
	m := &MockSpawner{SpawnFn: func(SpawnConfig) (Child, error) { return nil, want }}
	if _, err := m.Spawn(SpawnConfig{}); !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}

func TestMockChildExit(t *testing.T) {
	c := NewMockChild(42)
	select {
	case <-c.Done():
		t.Fatal("child done before exit")
	default:
	}
	c.Exit(3)
	c.Exit(7) // ignored
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("done not closed")
	}
	if c.ExitCode() != 3 {
		t.Fatalf("exit code = %d, want 3", c.ExitCode())
	}
}

func TestMockChildTerminate(t *testing.T) {
	c := NewMockChild(1)
	if err := c.Terminate(); err != nil {
		t.Fatal(err)
	}
	<-c.Done()
	if c.TerminateCalls() != 1 {
		t.Fatalf("terminate calls = %d", c.TerminateCalls())
	}

	stuck := NewMockChild(2)
	stuck.IgnoreTerminate = true
	_ = stuck.Terminate()
	select {
	case <-stuck.Done():
		t.Fatal("child ignoring terminate should stay alive")
	default:
	}
}
