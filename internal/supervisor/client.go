package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kahiteam/redisvc/internal/netutil"
)

// ErrNoReply means the child closed the connection instead of replying.
var ErrNoReply = errors.New("connection closed before reply")

// ReplyError is an error reply sent by the child.
type ReplyError struct {
	Msg string
}

func (e *ReplyError) Error() string { return e.Msg }

// Client issues one command at a time to the child. Do returns the status
// text of the reply; an error reply comes back as *ReplyError. The deadline
// of ctx bounds the round trip, and a ctx without one waits for as long as
// the child takes.
type Client interface {
	Do(ctx context.Context, name string, args ...string) (string, error)
	Close() error
}

// Dialer opens a Client connection to the child.
type Dialer interface {
	Dial(ctx context.Context, host string, port int, timeout time.Duration) (Client, error)
}

// DialFunc adapts a function to Dialer.
type DialFunc func(ctx context.Context, host string, port int, timeout time.Duration) (Client, error)

// Dial calls f.
func (f DialFunc) Dial(ctx context.Context, host string, port int, timeout time.Duration) (Client, error) {
	return f(ctx, host, port, timeout)
}

// RedisDialer dials the child over TCP and talks to it through a single
// go-redis connection that never retries or redials.
var RedisDialer Dialer = DialFunc(dialRedis)

func dialRedis(ctx context.Context, host string, port int, timeout time.Duration) (Client, error) {
	nc, err := netutil.Connect(ctx, host, port, timeout)
	if err != nil {
		return nil, err
	}

	var once sync.Once
	rdb := redis.NewClient(&redis.Options{
		Addr: netutil.Address(host, port),
		// The socket is already open; hand it over exactly once.
		Dialer: func(context.Context, string, string) (net.Conn, error) {
			var c net.Conn
			once.Do(func() { c = nc })
			if c == nil {
				return nil, errors.New("connection to redis server already used")
			}
			return c, nil
		},
		Protocol:              2,
		MaxRetries:            -1,
		PoolSize:              1,
		ReadTimeout:           -1,
		WriteTimeout:          -1,
		ContextTimeoutEnabled: true,
		DisableIdentity:       true,
	})
	conn := rdb.Conn()
	c := &redisClient{rdb: rdb, conn: conn}

	// go-redis runs its HELLO handshake on first use. Trigger it here so it
	// falls under the dial deadline rather than under a later command's.
	if err := conn.Hello(ctx, 2, "", "", "").Err(); err != nil && !isReplyError(err) {
		c.Close()
		nc.Close()
		return nil, fmt.Errorf("cannot connect to %s: %w", netutil.Address(host, port), err)
	}
	return c, nil
}

type redisClient struct {
	rdb  *redis.Client
	conn *redis.Conn
}

func (c *redisClient) Do(ctx context.Context, name string, args ...string) (string, error) {
	cmd := make([]any, 0, len(args)+1)
	cmd = append(cmd, name)
	for _, a := range args {
		cmd = append(cmd, a)
	}

	res, err := c.conn.Do(ctx, cmd...).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", nil
	case isReplyError(err):
		return "", &ReplyError{Msg: err.Error()}
	case netutil.IsClosed(err):
		return "", fmt.Errorf("%w: %w", ErrNoReply, err)
	case err != nil:
		return "", fmt.Errorf("cannot send %s: %w", name, err)
	}
	if s, ok := res.(string); ok {
		return s, nil
	}
	return fmt.Sprint(res), nil
}

func (c *redisClient) Close() error {
	return errors.Join(c.conn.Close(), c.rdb.Close())
}

func isReplyError(err error) bool {
	var rerr redis.Error
	return err != nil && !errors.Is(err, redis.Nil) && errors.As(err, &rerr)
}
