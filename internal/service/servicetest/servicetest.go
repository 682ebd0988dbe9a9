// Package servicetest provides a fake image service for tests. The fake runs
// inside the test binary: either re-executed as a child process speaking the
// stdio binding, or in-process behind a bufconn gRPC listener.
//
// Test packages that launch it must route the re-executed binary to Main:
//
//	func TestMain(m *testing.M) {
//		if servicetest.IsHelper() {
//			servicetest.Main()
//		}
//		os.Exit(m.Run())
//	}
package servicetest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"imgconform/internal/locator"
	"imgconform/internal/service"
)

// Environment of the re-executed fake
const (
	EnvHelper = "IMGCONFORM_FAKE_SERVICE" // stdio|grpc
	EnvMode   = "IMGCONFORM_FAKE_MODE"
	EnvOut    = "IMGCONFORM_FAKE_OUT"
)

// Process modes
const (
	ModeNormal = ""
	ModeDead   = "dead"   // exits before the handshake
	ModeSilent = "silent" // never answers
	ModeNoisy  = "noisy"  // writes log lines and stale replies around each reply
	ModeLinger = "linger" // ignores stdin EOF
)

// Per-request behaviours, selected by the "fake" request parameter
const (
	FakeError       = "error"
	FakeLegacyError = "legacy_error"
	FakeEmpty       = "empty"
	FakeNoFile      = "no_file"
	FakeReverse     = "reverse"
	FakeCrash       = "crash"
	FakeSlow        = "slow"
)

// Fixed dimensions reported by the fake
const (
	Width, Height         = 10, 20
	OrigWidth, OrigHeight = 20, 40
)

// IsHelper reports whether this binary was re-executed as the fake service
func IsHelper() bool {
	return os.Getenv(EnvHelper) != ""
}

// Stdio returns options that launch the fake over the stdio binding.
// Outputs are written below a test temp dir.
func Stdio(t testing.TB, mode string) service.Options {
	t.Helper()
	return service.Options{
		Transport:      service.TransportStdio,
		ServicePath:    os.Args[0],
		Env:            []string{EnvHelper + "=stdio", EnvMode + "=" + mode, EnvOut + "=" + t.TempDir()},
		StartupTimeout: 5 * time.Second,
		ShutdownGrace:  2 * time.Second,
	}
}

// GRPCProcess returns options that launch the fake as a gRPC server
func GRPCProcess(t testing.TB) service.Options {
	t.Helper()
	return service.Options{
		Transport:      service.TransportGRPC,
		ServicePath:    os.Args[0],
		Env:            []string{EnvHelper + "=grpc", EnvOut + "=" + t.TempDir()},
		StartupTimeout: 10 * time.Second,
		ShutdownGrace:  2 * time.Second,
	}
}

// GRPC serves the fake in-process and returns options dialing it
func GRPC(t testing.TB) service.Options {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	service.RegisterTransformServer(srv, &Server{Out: t.TempDir()})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}
	return service.Options{
		Transport:      service.TransportGRPC,
		Address:        "passthrough:///bufnet",
		StartupTimeout: 5 * time.Second,
		ShutdownGrace:  time.Second,
		DialOptions: []grpc.DialOption{
			grpc.WithContextDialer(dialer),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		},
	}
}

// fault is an error answer of the fake
type fault struct {
	code, message string
	legacy        bool
}

// Server implements both bindings' request handling
type Server struct {
	Out         string
	ProviderDir string
	seq         atomic.Int64
}

func (s *Server) describe() map[string]any {
	return map[string]any{
		"name":         "ImageAlter",
		"version":      "fake",
		"provider_dir": s.ProviderDir,
	}
}

func (s *Server) transform(args map[string]any) (map[string]any, *fault) {
	behaviour, _ := args["fake"].(string)
	switch behaviour {
	case FakeError:
		return nil, &fault{code: "bad_param", message: "unsupported parameter"}
	case FakeLegacyError:
		return nil, &fault{code: "ImageAlter.badParam", message: "legacy failure", legacy: true}
	case FakeCrash:
		os.Exit(3)
	case FakeSlow:
		time.Sleep(2 * time.Second)
	}

	src, _ := args["file"].(string)
	srcPath, err := locator.Decode(src)
	if err != nil {
		return nil, &fault{code: "bad_locator", message: err.Error()}
	}
	in, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, &fault{code: "read_error", message: err.Error()}
	}

	var data []byte
	switch behaviour {
	case FakeEmpty:
	case FakeReverse:
		data = slices.Clone(in)
		slices.Reverse(data)
	default:
		data = in
	}

	out := filepath.Join(s.Out, fmt.Sprintf("out-%d-%s", s.seq.Add(1), filepath.Base(srcPath)))
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return nil, &fault{code: "write_error", message: err.Error()}
	}
	loc, err := locator.Encode(out, locator.File)
	if err != nil {
		return nil, &fault{code: "write_error", message: err.Error()}
	}

	result := map[string]any{
		"file":        loc,
		"width":       Width,
		"height":      Height,
		"orig_width":  OrigWidth,
		"orig_height": OrigHeight,
	}
	if behaviour == FakeNoFile {
		delete(result, "file")
	}
	return result, nil
}

// Describe implements service.TransformServer
func (s *Server) Describe(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(s.describe())
}

// Transform implements service.TransformServer
func (s *Server) Transform(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	result, f := s.transform(in.AsMap())
	if f != nil {
		return nil, status.Error(codes.InvalidArgument, f.message)
	}
	return structpb.NewStruct(result)
}

// Main runs the re-executed fake and exits
func Main() {
	s := &Server{Out: os.Getenv(EnvOut)}
	var listen string
	args := os.Args[1:]
	for i := 0; i+1 < len(args); i++ {
		switch args[i] {
		case "--provider-dir":
			s.ProviderDir = args[i+1]
		case "--listen":
			listen = args[i+1]
		}
	}

	var err error
	if os.Getenv(EnvHelper) == "grpc" {
		err = serveGRPC(s, listen)
	} else {
		err = serveStdio(s, os.Getenv(EnvMode))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}

func serveGRPC(s *Server, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := grpc.NewServer()
	service.RegisterTransformServer(srv, s)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()
	return srv.Serve(lis)
}

type wireRequest struct {
	ID     string         `json:"id"`
	Method string         `json:"method"`
	Args   map[string]any `json:"args"`
}

func serveStdio(s *Server, mode string) error {
	switch mode {
	case ModeDead:
		return fmt.Errorf("fake service refused to start")
	case ModeSilent:
		_, _ = io.Copy(io.Discard, os.Stdin)
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	fmt.Fprintln(os.Stderr, "fake service ready")

	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		var req wireRequest
		if err := json.Unmarshal(sc.Bytes(), &req); err != nil {
			return fmt.Errorf("bad request line %q: %w", sc.Text(), err)
		}

		if mode == ModeNoisy {
			fmt.Println("processing " + req.Method)
			_ = enc.Encode(map[string]any{"id": "stale-" + req.ID, "result": map[string]any{"file": "stale"}})
		}

		reply := map[string]any{"id": req.ID}
		switch req.Method {
		case "describe":
			reply["result"] = s.describe()
		case "transform":
			result, f := s.transform(req.Args)
			switch {
			case f == nil:
				reply["result"] = result
			case f.legacy:
				reply["error"] = map[string]any{"error": f.code, "verboseError": f.message}
			default:
				reply["error"] = map[string]any{"code": f.code, "message": f.message}
			}
		default:
			reply["error"] = map[string]any{"code": "unknown_method", "message": req.Method}
		}
		if err := enc.Encode(reply); err != nil {
			return err
		}
	}

	if mode == ModeLinger {
		time.Sleep(time.Hour)
	}
	return sc.Err()
}
