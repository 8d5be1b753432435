package port

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tidwall/redcon"
)

const RedisOk = "OK"

var (
	address = flag.String("address", ":6380", "The ip:port to listen on for Redis protocol.")

	commandsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dlist_commands_total",
		Help: "Total number of handled Redis commands.",
	}, []string{
		"command", // Upper-cased command name; "UNKNOWN" for unsupported commands.
		"status",  // ok | error
	})
)

// redisCommand represents a Redis command with its arguments.
type redisCommand struct {
	command string // Upper-cased command name.
	args    []string
}

// redisOutput conforms to a real Redis server output on non pub / sub commands.
type redisOutput struct {
	closeConnection bool     // Closes the connection if true.
	writeNil        bool     // Writes a nil value if true.
	err             *string  // Error to return if set.
	writeInt        *int     // Writes an integer value if set.
	writeBulk       *string  // Writes a bulk string if set.
	writeArray      []string // Writes an array of bulk strings if isArray is set.
	isArray         bool
	writeString     string // Writes a simple string otherwise.
}

func closeRedisConnection(msg string) redisOutput {
	return redisOutput{writeString: msg, closeConnection: true}
}

func writeRedisNil() redisOutput {
	return redisOutput{writeNil: true}
}

func writeRedisInt(i int) redisOutput {
	return redisOutput{writeInt: &i}
}

func writeRedisBulk(s string) redisOutput {
	return redisOutput{writeBulk: &s}
}

func writeRedisArray(values []string) redisOutput {
	return redisOutput{writeArray: values, isArray: true}
}

func writeRedisString(s string) redisOutput {
	return redisOutput{writeString: s}
}

func writeRedisError(err error) redisOutput {
	msg := err.Error()
	if !errors.Is(err, ErrWrongType) { // WRONGTYPE errors carry their own prefix.
		msg = "ERR " + msg
	}
	return redisOutput{err: &msg}
}

func wrongArgCount(command string) redisOutput {
	return writeRedisError(fmt.Errorf("wrong number of arguments for '%s' command", strings.ToLower(command)))
}

// optionalBulk writes `value` if found, nil otherwise.
func optionalBulk(value string, found bool, err error) redisOutput {
	if err != nil {
		return writeRedisError(err)
	}
	if !found {
		return writeRedisNil()
	}
	return writeRedisBulk(value)
}

// countOrError writes `count` unless there's an error.
func countOrError(count int, err error) redisOutput {
	if err != nil {
		return writeRedisError(err)
	}
	return writeRedisInt(count)
}

var errNotInteger = errors.New("value is not an integer or out of range")

type redisHandler struct {
	store *ListStore
}

// newRedisHandler creates a new redisHandler.
func newRedisHandler(store *ListStore) (*redisHandler, error) {
	if store == nil {
		return nil, errors.New("expected a non-nil storage")
	}
	return &redisHandler{store: store}, nil
}

// handle runs `cmd` against the store and records it in the commands metric.
func (rh *redisHandler) handle(cmd redisCommand) redisOutput {
	output, known := rh.dispatch(cmd)
	command := cmd.command
	if !known {
		command = "UNKNOWN"
	}
	status := "ok"
	if output.err != nil {
		status = "error"
	}
	commandsMetric.WithLabelValues(command, status).Inc()
	return output
}

func (rh *redisHandler) dispatch(cmd redisCommand) (redisOutput, bool /*known*/) {
	args := cmd.args
	switch cmd.command {
	case "PING":
		if len(args) == 1 {
			return writeRedisBulk(args[0]), true
		}
		return writeRedisString("PONG"), true
	case "QUIT":
		return closeRedisConnection(RedisOk), true
	case "LPUSH", "RPUSH":
		if len(args) < 2 {
			return wrongArgCount(cmd.command), true
		}
		end := Head
		if cmd.command == "RPUSH" {
			end = Tail
		}
		return countOrError(rh.store.Push(args[0], end, args[1:]...)), true
	case "LPOP", "RPOP":
		if len(args) != 1 {
			return wrongArgCount(cmd.command), true
		}
		end := Head
		if cmd.command == "RPOP" {
			end = Tail
		}
		return optionalBulk(rh.store.Pop(args[0], end)), true
	case "LLEN":
		if len(args) != 1 {
			return wrongArgCount(cmd.command), true
		}
		return countOrError(rh.store.Len(args[0])), true
	case "LRANGE":
		if len(args) != 3 {
			return wrongArgCount(cmd.command), true
		}
		start, startErr := strconv.Atoi(args[1])
		stop, stopErr := strconv.Atoi(args[2])
		if startErr != nil || stopErr != nil {
			return writeRedisError(errNotInteger), true
		}
		values, err := rh.store.Range(args[0], start, stop)
		if err != nil {
			return writeRedisError(err), true
		}
		return writeRedisArray(values), true
	case "LREM":
		if len(args) != 3 {
			return wrongArgCount(cmd.command), true
		}
		count, err := strconv.Atoi(args[1])
		if err != nil {
			return writeRedisError(errNotInteger), true
		}
		return countOrError(rh.store.Remove(args[0], count, args[2])), true
	case "LMAX":
		if len(args) != 1 {
			return wrongArgCount(cmd.command), true
		}
		return optionalBulk(rh.store.Max(args[0])), true
	case "LIST.PROMOTE", "LIST.DEMOTE":
		if len(args) != 2 {
			return wrongArgCount(cmd.command), true
		}
		end := Head
		if cmd.command == "LIST.DEMOTE" {
			end = Tail
		}
		found, err := rh.store.Reposition(args[0], args[1], end)
		if err != nil {
			return writeRedisError(err), true
		}
		if found {
			return writeRedisInt(1), true
		}
		return writeRedisInt(0), true
	case "STACK.PUSH":
		if len(args) < 2 {
			return wrongArgCount(cmd.command), true
		}
		return countOrError(rh.store.StackPush(args[0], args[1:]...)), true
	case "STACK.POP":
		if len(args) != 1 {
			return wrongArgCount(cmd.command), true
		}
		return optionalBulk(rh.store.StackPop(args[0])), true
	case "STACK.PEEK":
		if len(args) != 1 {
			return wrongArgCount(cmd.command), true
		}
		return optionalBulk(rh.store.StackPeek(args[0])), true
	case "STACK.LEN":
		if len(args) != 1 {
			return wrongArgCount(cmd.command), true
		}
		return countOrError(rh.store.StackLen(args[0])), true
	case "DEL":
		if len(args) < 1 {
			return wrongArgCount(cmd.command), true
		}
		return writeRedisInt(rh.store.Delete(args...)), true
	case "KEYS":
		if len(args) != 1 {
			return wrongArgCount(cmd.command), true
		}
		return writeRedisArray(rh.store.Keys(args[0])), true
	default:
		return writeRedisError(fmt.Errorf("unknown command '%s'", strings.ToLower(cmd.command))), false
	}
}

// writeTo writes the output to the client connection.
func (o redisOutput) writeTo(conn redcon.Conn) {
	switch {
	case o.err != nil:
		conn.WriteError(*o.err)
	case o.writeNil:
		conn.WriteNull()
	case o.writeInt != nil:
		conn.WriteInt(*o.writeInt)
	case o.writeBulk != nil:
		conn.WriteBulkString(*o.writeBulk)
	case o.isArray:
		conn.WriteArray(len(o.writeArray))
		for _, value := range o.writeArray {
			conn.WriteBulkString(value)
		}
	default:
		conn.WriteString(o.writeString)
	}
}

// RunRedisServer starts a Redis protocol server on top of the given store and blocks until `ctx` is cancelled.
// Once the server is listening, its address is sent to `listening` if it's non-nil.
func RunRedisServer(ctx context.Context, store *ListStore, listening chan<- net.Addr) error {
	if *address == "" {
		return errors.New("expected a non-empty --address flag")
	}

	redisHandler, err := newRedisHandler(store)
	if err != nil {
		return fmt.Errorf("failed to create a new redis handler: %w", err)
	}

	redisServer := redcon.NewServerNetwork("tcp" /*net*/, *address,
		/*handler*/ func(conn redcon.Conn, cmd redcon.Command) {
			// Convert redcon.Command to redisCommand.
			command := redisCommand{command: strings.ToUpper(string(cmd.Args[0])), args: make([]string, len(cmd.Args)-1)}
			for i := 1; i < len(cmd.Args); i++ {
				command.args[i-1] = string(cmd.Args[i])
			}
			output := redisHandler.handle(command)
			output.writeTo(conn)
			if output.closeConnection {
				if err := conn.Close(); err != nil {
					slog.Error("Failed to close connection.", "error", err)
				}
			}
		},
		/*accept*/ func(conn redcon.Conn) bool {
			slog.Debug("Accepted a connection.", "remote", conn.RemoteAddr())
			return true // Accept all connections.
		},
		/*closed*/ func(conn redcon.Conn, err error) {
			if err != nil {
				slog.Debug("Connection closed with an error.", "remote", conn.RemoteAddr(), "error", err)
			}
		})

	listenSignal := make(chan error, 1)
	serverErrSignal := make(chan error, 1)
	go func() {
		serverErrSignal <- redisServer.ListenServeAndSignal(listenSignal)
		close(serverErrSignal)
	}()
	if err := <-listenSignal; err != nil {
		return fmt.Errorf("failed to listen on %s: %w", *address, err)
	}
	slog.Info("Redis server is listening.", "address", redisServer.Addr())
	if listening != nil {
		listening <- redisServer.Addr()
	}

	select {
	case <-ctx.Done():
		if err := redisServer.Close(); err != nil {
			return fmt.Errorf("failed to close dlist: %w", err)
		}
	case err := <-serverErrSignal:
		return fmt.Errorf("redis server stopped unexpectedly: %w", err)
	}

	return nil // Exited with no errors.
}
