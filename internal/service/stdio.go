package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"imgconform/internal/domain"
	"imgconform/internal/parser"
)

const maxLineSize = 16 * 1024 * 1024

// Wire messages of the stdio binding: one JSON object per line.
type request struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Args   any    `json:"args,omitempty"`
}

type reply struct {
	ID     string         `json:"id"`
	Result map[string]any `json:"result"`
	Error  map[string]any `json:"error"`
}

const (
	methodDescribe  = "describe"
	methodTransform = "transform"
)

// StdioSession talks to a service process over its stdin and stdout
type StdioSession struct {
	proc    *process
	stdin   io.WriteCloser
	replies chan reply
	eof     chan struct{} // stdout reached EOF
	closing chan struct{}
	info    map[string]any

	mu        sync.Mutex // serializes calls
	closeOnce sync.Once
	closeErr  error

	parser *parser.ResponseParser
	logger *slog.Logger
	opts   Options
}

// StartStdio launches the service and performs the describe handshake
// within opts.StartupTimeout
func StartStdio(ctx context.Context, opts Options) (*StdioSession, error) {
	opts = opts.withDefaults()
	logger := opts.Logger.With("service", opts.name())

	cmd := command(opts)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	// Own the read ends so Wait never races the readers.
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return nil, err
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	proc, err := startProcess(cmd)
	outW.Close()
	errW.Close()
	if err != nil {
		outR.Close()
		errR.Close()
		return nil, &domain.ServiceUnavailableError{Service: opts.name(), Err: err}
	}

	s := &StdioSession{
		proc:    proc,
		stdin:   stdin,
		replies: make(chan reply),
		eof:     make(chan struct{}),
		closing: make(chan struct{}),
		parser:  parser.NewResponseParser(),
		logger:  logger,
		opts:    opts,
	}
	go s.readLoop(outR)
	go func() {
		defer errR.Close()
		logLines(errR, logger, "service stderr")
	}()

	hctx, cancel := context.WithTimeout(ctx, opts.StartupTimeout)
	defer cancel()
	info, err := s.call(hctx, methodDescribe, nil)
	if err != nil {
		_ = s.Close()
		return nil, &domain.ServiceUnavailableError{Service: opts.name(), Err: fmt.Errorf("handshake: %w", err)}
	}
	s.info = info

	logger.Info("service session allocated", "pid", cmd.Process.Pid, "info", info)
	return s, nil
}

// readLoop hands replies to the waiting call and logs anything else
func (s *StdioSession) readLoop(r io.ReadCloser) {
	defer close(s.eof)
	defer r.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var rep reply
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		if err := dec.Decode(&rep); err != nil || rep.ID == "" {
			s.logger.Debug("service stdout", "line", string(line))
			continue
		}

		select {
		case s.replies <- rep:
		case <-s.closing:
			return
		}
	}
	if err := sc.Err(); err != nil {
		s.logger.Warn("read service output", "error", err)
	}
}

// call writes one request and waits for the reply with the same id.
// Replies to abandoned requests are discarded.
func (s *StdioSession) call(ctx context.Context, method string, args any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.closing:
		return nil, domain.ErrSessionClosed
	default:
	}

	id := uuid.NewString()
	line, err := json.Marshal(request{ID: id, Method: method, Args: args})
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	if _, err := s.stdin.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("%w: write request: %v", domain.ErrSessionClosed, err)
	}

	for {
		select {
		case rep := <-s.replies:
			if rep.ID != id {
				s.logger.Warn("discarding reply to an abandoned request", "id", rep.ID)
				continue
			}
			if rep.Error != nil {
				return nil, s.parser.ParseServiceError(rep.Error)
			}
			return rep.Result, nil
		case <-s.eof:
			return nil, s.exitError()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *StdioSession) exitError() error {
	select {
	case <-s.proc.done():
		if s.proc.err != nil {
			return fmt.Errorf("%w: service exited: %v", domain.ErrSessionClosed, s.proc.err)
		}
	default:
	}
	return fmt.Errorf("%w: service closed its output", domain.ErrSessionClosed)
}

// Transform implements Session
func (s *StdioSession) Transform(ctx context.Context, req domain.TransformRequest) (domain.TransformResponse, error) {
	result, err := s.call(ctx, methodTransform, req)
	if err != nil {
		return domain.TransformResponse{}, err
	}
	resp, err := s.parser.ParseResponse(result)
	if err != nil {
		return domain.TransformResponse{}, &domain.TransformError{Code: "bad_response", Message: err.Error()}
	}
	return resp, nil
}

// Info implements Session
func (s *StdioSession) Info() map[string]any {
	return s.info
}

// Close closes the service's stdin and waits for it to exit
func (s *StdioSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		s.closeErr = s.proc.stop(func() { _ = s.stdin.Close() }, s.opts.ShutdownGrace)
		s.logger.Info("service session released")
	})
	return s.closeErr
}
