package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoEngine     = errors.New("no engine command configured")
	ErrEngineExited = errors.New("engine exited")
)

const (
	handshakeTimeout = 30 * time.Second
	closeTimeout     = 5 * time.Second
)

type Options struct {
	// Command is the engine command line, shell-quoted.
	Command       string
	Dir           string
	StartAttempts uint
}

type SessionOptions struct {
	Threads    int
	HashMB     int
	SyzygyPath string
}

// Engine is one UCI engine process. Searches are serialized; the engine keeps
// its hash table between searches.
type Engine struct {
	mu sync.Mutex

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	output chan string
	group  *errgroup.Group
	cancel context.CancelFunc

	multiPV int
}

// Start launches the engine and waits for it to answer "uciok" and "readyok".
// Launch failures are retried with backoff, except when the binary does not exist.
func Start(ctx context.Context, opts Options) (*Engine, error) {
	args, err := shellquote.Split(opts.Command)
	if err != nil {
		return nil, fmt.Errorf("engine command '%s': %w", opts.Command, err)
	}
	if len(args) == 0 {
		return nil, ErrNoEngine
	}

	attempts := opts.StartAttempts
	if attempts == 0 {
		attempts = 1
	}

	var e *Engine
	err = retry.Do(
		func() error {
			var err error
			e, err = launch(ctx, args, opts.Dir)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, exec.ErrNotFound)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Str("command", opts.Command).Msg("engine-start-failed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("start engine '%s': %w", opts.Command, err)
	}

	return e, nil
}

func launch(ctx context.Context, args []string, dir string) (*Engine, error) {
	ctx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, err
	}

	e := &Engine{
		cmd:    cmd,
		stdin:  stdin,
		output: make(chan string, 512),
		group:  &errgroup.Group{},
		cancel: cancel,
	}

	// stdout loop
	e.group.Go(func() error {
		defer close(e.output)
		r := bufio.NewScanner(stdout)
		r.Buffer(make([]byte, 64*1024), 1024*1024)
		for r.Scan() {
			line := r.Text()
			if showEngineOutput(line) {
				log.Trace().Msgf("<- %s", line)
			}
			select {
			case e.output <- line:
			case <-ctx.Done():
				return nil
			}
		}
		return r.Err()
	})

	// stderr loop
	e.group.Go(func() error {
		r := bufio.NewScanner(stderr)
		for r.Scan() {
			log.Warn().Str("line", r.Text()).Msg("engine-stderr")
		}
		return r.Err()
	})

	hctx, hcancel := context.WithTimeout(ctx, handshakeTimeout)
	defer hcancel()

	if err := e.send("uci"); err != nil {
		_ = e.Close()
		return nil, err
	}
	if err := e.waitFor(hctx, "uciok"); err != nil {
		_ = e.Close()
		return nil, err
	}
	if err := e.waitReady(hctx); err != nil {
		_ = e.Close()
		return nil, err
	}

	return e, nil
}

// Configure sets session-wide options. Call once, before the first search.
func (e *Engine) Configure(ctx context.Context, opts SessionOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var cmds []string
	if opts.Threads > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name Threads value %d", opts.Threads))
	}
	if opts.HashMB > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name Hash value %d", opts.HashMB))
	}
	if opts.SyzygyPath != "" {
		cmds = append(cmds, fmt.Sprintf("setoption name SyzygyPath value %s", opts.SyzygyPath))
	}
	cmds = append(cmds, "setoption name UCI_AnalyseMode value true", "ucinewgame")

	for _, cmd := range cmds {
		if err := e.send(cmd); err != nil {
			return err
		}
	}

	log.Info().Int("threads", opts.Threads).Int("hash_mb", opts.HashMB).Str("syzygy", opts.SyzygyPath).Msg("engine-configured")

	return e.waitReady(ctx)
}

// Evaluate searches fen for the given number of nodes and returns up to
// multiPV lines, best first. A position without legal moves yields no lines.
// If ctx ends during the search the engine is stopped and its output drained,
// so the next search reads only its own lines.
func (e *Engine) Evaluate(ctx context.Context, fen string, nodes, multiPV int) (Evals, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if multiPV < 1 {
		multiPV = 1
	}

	if multiPV != e.multiPV {
		if err := e.send(fmt.Sprintf("setoption name MultiPV value %d", multiPV)); err != nil {
			return nil, err
		}
		e.multiPV = multiPV
	}

	if err := e.send("position fen " + fen); err != nil {
		return nil, err
	}
	if err := e.send(fmt.Sprintf("go nodes %d", nodes)); err != nil {
		return nil, err
	}

	latest := make(map[int]Eval, multiPV)

	for {
		line, err := e.readLine(ctx)
		if err != nil {
			if ctx.Err() != nil {
				e.stopSearch()
			}
			return nil, fmt.Errorf("evaluate '%s': %w", fen, err)
		}

		if strings.HasPrefix(line, "bestmove") {
			break
		}

		if !strings.HasPrefix(line, "info") || !strings.Contains(line, " score ") {
			continue
		}

		eval, err := ParseInfo(line)
		if err != nil {
			return nil, err
		}

		if eval.UpperBound || eval.LowerBound || eval.Empty() {
			continue
		}
		if eval.MultiPV == 0 {
			eval.MultiPV = 1
		}
		if eval.MultiPV > multiPV {
			continue
		}

		latest[eval.MultiPV] = eval
	}

	evals := Evals(lo.Values(latest))
	sort.Slice(evals, func(i, j int) bool {
		return evals[i].MultiPV < evals[j].MultiPV
	})

	return evals, nil
}

// Close asks the engine to quit and kills it if it does not exit in time.
func (e *Engine) Close() error {
	_ = e.send("quit")
	_ = e.stdin.Close()

	done := make(chan error, 1)
	go func() {
		readErr := e.group.Wait()
		waitErr := e.cmd.Wait()
		done <- errors.Join(readErr, waitErr)
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(closeTimeout):
		log.Warn().Dur("timeout", closeTimeout).Msg("engine-did-not-quit")
		e.cancel()
		<-done
	}

	e.cancel()
	return err
}

// stopSearch ends the running search and discards its output up to and
// including "bestmove".
func (e *Engine) stopSearch() {
	if err := e.send("stop"); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if err := e.waitForPrefix(ctx, "bestmove"); err != nil {
		log.Warn().Err(err).Msg("engine-stop-failed")
	}
}

func (e *Engine) send(line string) error {
	log.Trace().Msgf("-> %s", line)
	if _, err := io.WriteString(e.stdin, line+"\n"); err != nil {
		return fmt.Errorf("write '%s': %w", line, err)
	}
	return nil
}

func (e *Engine) readLine(ctx context.Context) (string, error) {
	select {
	case line, ok := <-e.output:
		if !ok {
			return "", ErrEngineExited
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (e *Engine) waitFor(ctx context.Context, want string) error {
	for {
		line, err := e.readLine(ctx)
		if err != nil {
			return fmt.Errorf("waiting for '%s': %w", want, err)
		}
		if line == want {
			return nil
		}
	}
}

func (e *Engine) waitForPrefix(ctx context.Context, prefix string) error {
	for {
		line, err := e.readLine(ctx)
		if err != nil {
			return fmt.Errorf("waiting for '%s': %w", prefix, err)
		}
		if strings.HasPrefix(line, prefix) {
			return nil
		}
	}
}

func (e *Engine) waitReady(ctx context.Context) error {
	if err := e.send("isready"); err != nil {
		return err
	}
	return e.waitFor(ctx, "readyok")
}
