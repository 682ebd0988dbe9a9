package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"imgconform/internal/domain"
	"imgconform/internal/parser"
)

// GRPCSession calls the service's unary methods over a gRPC connection.
// When no address is configured the service is launched with --listen.
type GRPCSession struct {
	conn *grpc.ClientConn
	proc *process // nil when dialing an external address
	info map[string]any

	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error

	parser *parser.ResponseParser
	logger *slog.Logger
	opts   Options
}

// StartGRPC connects to the service and calls Describe, waiting for the
// connection to become ready within opts.StartupTimeout
func StartGRPC(ctx context.Context, opts Options) (*GRPCSession, error) {
	opts = opts.withDefaults()
	logger := opts.Logger.With("service", opts.name())

	s := &GRPCSession{
		parser: parser.NewResponseParser(),
		logger: logger,
		opts:   opts,
	}

	addr := opts.Address
	if addr == "" {
		var err error
		if addr, err = freeAddress(); err != nil {
			return nil, err
		}
		cmd := command(opts, "--listen", addr)
		stdout, stderr := newLineLogger(logger, "service stdout"), newLineLogger(logger, "service stderr")
		cmd.Stdout, cmd.Stderr = stdout, stderr
		if s.proc, err = startProcess(cmd); err != nil {
			return nil, &domain.ServiceUnavailableError{Service: opts.name(), Err: err}
		}
	}

	dial := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts.DialOptions...)
	conn, err := grpc.NewClient(addr, dial...)
	if err != nil {
		_ = s.Close()
		return nil, &domain.ServiceUnavailableError{Service: opts.name(), Err: err}
	}
	s.conn = conn

	hctx, cancel := context.WithTimeout(ctx, opts.StartupTimeout)
	defer cancel()
	info := &structpb.Struct{}
	if err := conn.Invoke(hctx, DescribeMethod, &structpb.Struct{}, info, grpc.WaitForReady(true)); err != nil {
		_ = s.Close()
		return nil, &domain.ServiceUnavailableError{Service: opts.name(), Err: fmt.Errorf("handshake: %w", err)}
	}
	s.info = info.AsMap()

	logger.Info("service session allocated", "address", addr, "info", s.info)
	return s, nil
}

// Transform implements Session
func (s *GRPCSession) Transform(ctx context.Context, req domain.TransformRequest) (domain.TransformResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return domain.TransformResponse{}, domain.ErrSessionClosed
	}

	in, err := toStruct(req)
	if err != nil {
		return domain.TransformResponse{}, fmt.Errorf("encode transform request: %w", err)
	}
	out := &structpb.Struct{}
	if err := s.conn.Invoke(ctx, TransformMethod, in, out); err != nil {
		st, ok := status.FromError(err)
		switch {
		case !ok:
			return domain.TransformResponse{}, err
		case st.Code() == codes.Canceled || st.Code() == codes.DeadlineExceeded:
			return domain.TransformResponse{}, err
		case st.Code() == codes.Unavailable:
			return domain.TransformResponse{}, fmt.Errorf("%w: %s", domain.ErrSessionClosed, st.Message())
		}
		return domain.TransformResponse{}, &domain.TransformError{Code: st.Code().String(), Message: st.Message()}
	}

	resp, err := s.parser.ParseResponse(out.AsMap())
	if err != nil {
		return domain.TransformResponse{}, &domain.TransformError{Code: "bad_response", Message: err.Error()}
	}
	return resp, nil
}

// Info implements Session
func (s *GRPCSession) Info() map[string]any {
	return s.info
}

// Close closes the connection and stops a launched service
func (s *GRPCSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		conn := s.conn
		s.conn = nil
		s.mu.Unlock()

		if conn != nil {
			if err := conn.Close(); err != nil {
				s.closeErr = err
			}
		}
		if s.proc != nil {
			interrupt := func() {
				if err := s.proc.cmd.Process.Signal(os.Interrupt); err != nil {
					_ = s.proc.cmd.Process.Kill()
				}
			}
			if err := s.proc.stop(interrupt, s.opts.ShutdownGrace); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
		s.logger.Info("service session released")
	})
	return s.closeErr
}

// toStruct converts request parameters through JSON so json.Number values
// keep their exact text
func toStruct(req domain.TransformRequest) (*structpb.Struct, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}

func freeAddress() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("pick a listen address: %w", err)
	}
	defer l.Close()
	return l.Addr().String(), nil
}
