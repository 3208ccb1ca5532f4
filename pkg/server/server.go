package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/hearthguard/sentryfw/pkg/audit"
	"github.com/hearthguard/sentryfw/pkg/audit/index"
	"github.com/hearthguard/sentryfw/pkg/clientproto"
	"github.com/hearthguard/sentryfw/pkg/firewall/engine"
	"github.com/hearthguard/sentryfw/pkg/firewall/lkg"
	"github.com/hearthguard/sentryfw/pkg/firewall/reconcile"
	"github.com/hearthguard/sentryfw/pkg/server/auth"
	"github.com/hearthguard/sentryfw/pkg/server/ratelimit"
	"github.com/hearthguard/sentryfw/pkg/telemetry/metrics"
	"github.com/hearthguard/sentryfw/pkg/watcher"
)

// Version is the service version string echoed by the ping handler.
// Overridden at build time with -ldflags if a release process sets one.
var Version = "dev"

// Config is the subset of pkg/config.ServerConfig the server needs
// directly (kept separate so this package does not import pkg/config
// and create a dependency cycle with cmd/sentryfwd).
type Config struct {
	SocketPath                  string
	AdminGroup                  string
	ReadTimeout                 time.Duration
	MaxMessageBytes             int
	ProtocolVersionCurrent      int
	ProtocolVersionMinSupported int
}

// Deps bundles every capability a handler may need. Handlers are pure
// functions of (parsed request, Deps) and share no other mutable state.
type Deps struct {
	Engine     engine.Engine
	Reconciler *reconcile.Reconciler
	LKG        *lkg.Store
	Watcher    *watcher.Watcher
	Audit      *audit.Log
	AuditPath  string
	Index      *index.Index // nil when audit indexing is disabled
	Metrics    *metrics.Collector
	Logger     *slog.Logger
	Config     Config

	// WatcherDebounce is the debounce interval applied to watch-set;
	// the wire request carries only a path, not an override.
	WatcherDebounce time.Duration
}

// Server accepts connections on a Unix domain socket and runs the
// per-connection pipeline: authenticate, rate-limit, read, dispatch, reply.
type Server struct {
	deps  Deps
	authn *auth.Authenticator
	limit *ratelimit.Limiter

	mu           sync.Mutex
	listener     *net.UnixListener
	running      bool
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// New builds a Server. perIdentityTokens/windowSeconds/globalTokens
// parameterize the rate limiter.
func New(deps Deps, perIdentityTokens, windowSeconds, globalTokens int) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Server{
		deps:       deps,
		authn:      auth.New(auth.UnixPeerCredSource{}, auth.OSGroupMembership{}, auth.RootSystemAccount{}, deps.Config.AdminGroup),
		limit:      ratelimit.New(perIdentityTokens, windowSeconds, globalTokens),
		shutdownCh: make(chan struct{}),
	}
}

// Start binds the Unix socket and serves connections until Shutdown is
// called or ctx is cancelled. Blocks until the accept loop exits.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := os.Remove(s.deps.Config.SocketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket: %w", err)
	}

	addr, err := net.ResolveUnixAddr("unix", s.deps.Config.SocketPath)
	if err != nil {
		return fmt.Errorf("resolving socket address: %w", err)
	}
	listener, err := net.ListenUnix("unix", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.deps.Config.SocketPath, err)
	}
	if err := os.Chmod(s.deps.Config.SocketPath, 0o660); err != nil {
		listener.Close()
		return fmt.Errorf("setting socket permissions: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.deps.Logger.Info("request server listening", "socket", s.deps.Config.SocketPath)

	go func() {
		select {
		case <-ctx.Done():
			s.Shutdown(context.Background())
		case <-s.shutdownCh:
		}
	}()

	for {
		conn, err := listener.AcceptUnix()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			s.deps.Logger.Warn("accept failed", "error", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}

	s.wg.Wait()
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

// Shutdown stops accepting new connections, waits up to grace for
// in-flight handlers to finish, then returns.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)
		s.mu.Lock()
		l := s.listener
		s.mu.Unlock()
		if l != nil {
			l.Close()
		}
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the accept loop is active.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// handleConn runs the per-connection pipeline.
func (s *Server) handleConn(conn *net.UnixConn) {
	defer conn.Close()

	current := s.deps.Config.ProtocolVersionCurrent

	identity := s.authn.Authenticate(conn)
	if !identity.IsOk() {
		s.writeError(conn, current, identity.Err().Message)
		return
	}
	id := identity.Value()
	identityKey := id.Account
	if identityKey == "" {
		identityKey = fmt.Sprintf("uid:%d", id.UID)
	}

	if !s.limit.Allow(identityKey) {
		if s.deps.Metrics != nil {
			s.deps.Metrics.RecordRateLimitRejection("identity")
		}
		s.writeError(conn, current, "Rate limited: request rate exceeds the configured limit")
		return
	}

	if s.deps.Config.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.deps.Config.ReadTimeout))
	}

	maxBytes := uint32(s.deps.Config.MaxMessageBytes)
	if maxBytes == 0 {
		maxBytes = clientproto.MaxMessageBytes
	}

	req, err := clientproto.ReadRequest(conn, maxBytes)
	if err != nil {
		msg := err.Error()
		var tooLarge *clientproto.ErrMessageTooLarge
		if errors.As(err, &tooLarge) {
			msg = tooLarge.Error()
		} else if isTimeout(err) {
			msg = "reading request timed out"
		}
		s.writeError(conn, current, msg)
		return
	}

	if req.Type == "" {
		s.writeError(conn, current, "request type is required")
		return
	}

	if err := clientproto.CheckProtocolVersion(req.ProtocolVersion, s.deps.Config.ProtocolVersionMinSupported, current); err != nil {
		s.writeError(conn, current, err.Error())
		return
	}

	handler, ok := handlers[req.Type]
	if !ok {
		s.writeError(conn, current, fmt.Sprintf("unknown request type %q", req.Type))
		return
	}

	ctx := auth.IntoContext(context.Background(), id)
	resp := handler(ctx, req, &s.deps)
	resp.ProtocolVersion = current

	if err := clientproto.WriteResponse(conn, resp); err != nil {
		s.deps.Logger.Warn("writing response failed", "error", err)
	}
}

func (s *Server) writeError(conn *net.UnixConn, protocolVersion int, message string) {
	resp := clientproto.Response{Ok: false, ProtocolVersion: protocolVersion, Error: message}
	if err := clientproto.WriteResponse(conn, resp); err != nil {
		s.deps.Logger.Warn("writing error response failed", "error", err)
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
