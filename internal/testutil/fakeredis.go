package testutil

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/tidwall/redcon"

	"github.com/kahiteam/redisvc/internal/netutil"
)

// FakeReply is what a FakeRedis handler answers. Exactly one of Status or
// Error is sent unless Hangup is set, in which case the connection is
// closed without a reply.
type FakeReply struct {
	Status string
	Error  string
	Hangup bool
}

// OK is the "+OK" reply.
var OK = FakeReply{Status: "OK"}

// Hangup closes the connection instead of replying.
var Hangup = FakeReply{Hangup: true}

// FakeRedis is a loopback RESP server that answers commands from a table of
// handlers. Unknown commands get an "ERR unknown command" reply. HELLO is
// refused the way a RESP2-only server refuses it and is not recorded.
type FakeRedis struct {
	Host string
	Port int

	ln       net.Listener
	mu       sync.Mutex
	handlers map[string]func(args []string) FakeReply
	commands [][]string
	wg       sync.WaitGroup
}

// NewFakeRedis starts a FakeRedis on a free loopback port. It is closed
// when the test ends.
func NewFakeRedis(t *testing.T) *FakeRedis {
	t.Helper()
	ln, err := netutil.Listen(context.Background(), "127.0.0.1", 0)
	if err != nil {
		t.Fatal(err)
	}
	f := &FakeRedis{
		Host:     "127.0.0.1",
		Port:     ln.Addr().(*net.TCPAddr).Port,
		ln:       ln,
		handlers: make(map[string]func([]string) FakeReply),
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		_ = redcon.Serve(ln, f.handle, nil, nil)
	}()
	t.Cleanup(f.Close)
	return f
}

// Handle registers fn for the command name (case-insensitive).
func (f *FakeRedis) Handle(name string, fn func(args []string) FakeReply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[strings.ToUpper(name)] = fn
}

// Reply registers a fixed reply for the command name.
func (f *FakeRedis) Reply(name string, r FakeReply) {
	f.Handle(name, func([]string) FakeReply { return r })
}

// Commands returns every command received so far, name first.
func (f *FakeRedis) Commands() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.commands))
	copy(out, f.commands)
	return out
}

// Close stops accepting connections and drops the open ones.
func (f *FakeRedis) Close() {
	f.ln.Close()
	f.wg.Wait()
}

func (f *FakeRedis) handle(conn redcon.Conn, cmd redcon.Command) {
	if len(cmd.Args) == 0 {
		return
	}
	args := make([]string, len(cmd.Args))
	for i, a := range cmd.Args {
		args[i] = string(a)
	}
	name := strings.ToUpper(args[0])
	if name == "HELLO" {
		conn.WriteError("ERR unknown command 'HELLO'")
		return
	}

	f.mu.Lock()
	f.commands = append(f.commands, args)
	fn := f.handlers[name]
	f.mu.Unlock()

	reply := FakeReply{Error: fmt.Sprintf("ERR unknown command '%s'", args[0])}
	if fn != nil {
		reply = fn(args[1:])
	}

	switch {
	case reply.Hangup:
		conn.Close()
	case reply.Error != "":
		conn.WriteError(reply.Error)
	default:
		conn.WriteString(reply.Status)
	}
}
