// ABOUTME: ProtocolServer runs the line-delimited JSON-RPC loop over stdio
// ABOUTME: Gates tools behind initialize and delegates permitted messages to mcp-go
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/harper/vaultsearch/internal/apperr"
)

// maxLineBytes bounds one request line
const maxLineBytes = 16 << 20

// State is the server lifecycle state
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateDispatching
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateDispatching:
		return "dispatching"
	case StateShutdown:
		return "shutdown"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Loader builds the searcher when initialize arrives. It is retried on every
// initialize until it succeeds.
type Loader func(ctx context.Context) (Searcher, error)

// ProtocolServer owns the request loop. Requests are handled one at a time in
// arrival order.
type ProtocolServer struct {
	mcp      *mcpserver.MCPServer
	handlers *Handlers
	loader   Loader
	state    State
	logger   *zap.Logger
}

// NewProtocolServer creates a server in the Uninitialized state
func NewProtocolServer(name, version string, loader Loader, logger *zap.Logger) *ProtocolServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	handlers := NewHandlers(logger)
	return &ProtocolServer{
		mcp:      NewMCPServer(name, version, handlers),
		handlers: handlers,
		loader:   loader,
		state:    StateUninitialized,
		logger:   logger,
	}
}

// State returns the current lifecycle state
func (s *ProtocolServer) State() State { return s.state }

// Serve reads requests from r and writes responses to w until EOF or ctx is
// cancelled. A request already being handled runs to completion.
func (s *ProtocolServer) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
		close(lines)
	}()

	out := bufio.NewWriter(w)
	defer func() { s.state = StateShutdown }()

	// requests finish even after a shutdown signal
	reqCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutdown signal received")
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("reading requests: %w", err)
				}
				s.logger.Info("input closed")
				return nil
			}
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}

			resp := s.Handle(reqCtx, line)
			if resp == nil {
				continue
			}
			if _, err := out.Write(append(resp, '\n')); err != nil {
				return fmt.Errorf("writing response: %w", err)
			}
			if err := out.Flush(); err != nil {
				return fmt.Errorf("writing response: %w", err)
			}
		}
	}
}

// Handle processes one request line and returns the response line, or nil
// when the message needs no response
func (s *ProtocolServer) Handle(ctx context.Context, line []byte) []byte {
	if !json.Valid(line) {
		s.logger.Warn("malformed request line", zap.Int("bytes", len(line)))
		return errorResponse(nullID, apperr.New(apperr.MalformedRequest, "parse error: request is not valid JSON"))
	}

	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return errorResponseCode(nullID, invalidRequestCode, apperr.MalformedRequest, "invalid request: expected a JSON-RPC object")
	}
	if env.JSONRPC != jsonrpcVersion || env.Method == "" {
		if env.isNotification() && env.Method == "" {
			// a response or junk object without id; nothing to answer
			return nil
		}
		return errorResponseCode(env.ID, invalidRequestCode, apperr.MalformedRequest, "invalid request: jsonrpc must be \"2.0\" and method is required")
	}

	logger := s.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("method", env.Method),
	)
	start := time.Now()
	defer func() {
		logger.Debug("request handled", zap.Duration("took", time.Since(start)), zap.Stringer("state", s.state))
	}()

	if env.isNotification() {
		s.delegate(ctx, line)
		return nil
	}

	switch env.Method {
	case "initialize":
		return s.initialize(ctx, &env, line, logger)
	case "tools/list":
		if s.state != StateReady {
			return errorResponse(env.ID, notReady())
		}
		return s.delegate(ctx, line)
	case "tools/call":
		if s.state != StateReady {
			return errorResponse(env.ID, notReady())
		}
		return s.call(ctx, &env, line, logger)
	default:
		// ping and anything else mcp-go knows how to answer
		return s.delegate(ctx, line)
	}
}

func (s *ProtocolServer) initialize(ctx context.Context, env *envelope, line []byte, logger *zap.Logger) []byte {
	if s.state == StateReady {
		return s.delegate(ctx, line)
	}

	searcher, err := s.loader(ctx)
	if err != nil {
		if apperr.KindOf(err).Fatal() {
			logger.Error("vault failed to load", zap.Error(err))
		} else {
			logger.Warn("initialize failed", zap.Error(err))
		}
		return errorResponse(env.ID, err)
	}

	s.handlers.SetSearcher(searcher)
	s.state = StateReady
	logger.Info("initialized")
	return s.delegate(ctx, line)
}

func (s *ProtocolServer) call(ctx context.Context, env *envelope, line []byte, logger *zap.Logger) []byte {
	var params callParams
	if len(env.Params) == 0 || json.Unmarshal(env.Params, &params) != nil || params.Name == "" {
		return errorResponse(env.ID, apperr.New(apperr.InvalidArgument, "tools/call requires params with a tool name"))
	}
	if !knownTool(params.Name) {
		logger.Warn("unknown tool", zap.String("tool", params.Name))
		return errorResponse(env.ID, apperr.New(apperr.UnknownTool, "unknown tool %q", params.Name))
	}

	logger.Debug("dispatching", zap.String("call", describe(params.Name, params.Arguments)))
	s.state = StateDispatching
	defer func() { s.state = StateReady }()
	return s.delegate(ctx, line)
}

func (s *ProtocolServer) delegate(ctx context.Context, line []byte) []byte {
	msg := s.mcp.HandleMessage(ctx, json.RawMessage(line))
	if msg == nil {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("marshaling response", zap.Error(err))
		var env envelope
		_ = json.Unmarshal(line, &env)
		return errorResponse(env.ID, apperr.Wrap(apperr.Internal, err, "marshaling response"))
	}
	return data
}
