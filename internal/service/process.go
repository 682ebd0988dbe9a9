package service

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// process is a started service executable
type process struct {
	cmd    *exec.Cmd
	exited chan struct{}
	err    error // set before exited is closed
}

// command builds the service invocation: runner, service path, extra args,
// then harness-provided args
func command(opts Options, extra ...string) *exec.Cmd {
	name := opts.ServicePath
	var args []string
	if opts.Runner != "" {
		name = opts.Runner
		args = append(args, opts.ServicePath)
	}
	args = append(args, opts.Args...)
	if opts.ProviderDir != "" {
		args = append(args, "--provider-dir", opts.ProviderDir)
	}
	args = append(args, extra...)

	cmd := exec.Command(name, args...)
	cmd.Env = append(os.Environ(), opts.Env...)
	return cmd
}

func startProcess(cmd *exec.Cmd) (*process, error) {
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cmd.Path, err)
	}
	p := &process{cmd: cmd, exited: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.exited)
	}()
	return p, nil
}

// stop asks the process to exit and kills it when it has not exited after grace
func (p *process) stop(ask func(), grace time.Duration) error {
	if ask != nil {
		ask()
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-p.exited:
		return p.err
	case <-timer.C:
	}

	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill service: %w", err)
	}
	<-p.exited
	return fmt.Errorf("service did not exit within %s and was killed", grace)
}

func (p *process) done() <-chan struct{} {
	return p.exited
}

// logLines forwards every line of r to the logger until EOF
func logLines(r io.Reader, logger *slog.Logger, msg string) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		logger.Debug(msg, "line", sc.Text())
	}
}

// lineLogger is an io.Writer that logs each complete line
type lineLogger struct {
	mu     sync.Mutex
	buf    strings.Builder
	logger *slog.Logger
	msg    string
}

func newLineLogger(logger *slog.Logger, msg string) io.Writer {
	return &lineLogger{logger: logger, msg: msg}
}

func (w *lineLogger) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	s := w.buf.String()
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			break
		}
		w.logger.Debug(w.msg, "line", strings.TrimRight(s[:i], "\r"))
		s = s[i+1:]
	}
	w.buf.Reset()
	w.buf.WriteString(s)
	return len(p), nil
}
