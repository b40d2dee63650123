package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"os"

	clipime "github.com/Paranoid-AF/clipime"
)

// Converter processes a conversion request and returns a response.
type Converter interface {
	Convert(ctx context.Context, req *clipime.ConvertRequest) *clipime.ConvertResponse
	Reload(ctx context.Context, cfg *clipime.Config) error
	Close()
}

// Server listens on a Unix domain socket for conversion requests.
type Server struct {
	listener  net.Listener
	sockPath  string
	converter Converter
	logger    *slog.Logger

	// ctx is the lifetime of background work started by requests.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new IPC server bound to the given socket path.
func NewServer(sockPath string, converter Converter, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	// Remove stale socket file if it exists
	if err := os.Remove(sockPath); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		listener:  listener,
		sockPath:  sockPath,
		converter: converter,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Serve accepts connections and handles requests. It returns nil once the
// server is closed.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

// Close stops listening and removes the socket file. The converter is left
// to its owner.
func (s *Server) Close() {
	s.cancel()
	s.listener.Close()
	os.Remove(s.sockPath)
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}

	raw := scanner.Bytes()
	s.logger.Debug("request", "data", string(raw))

	// Check if this is a config request (has "action" field)
	var cfgReq clipime.ConfigRequest
	if err := json.Unmarshal(raw, &cfgReq); err == nil && cfgReq.Action != "" {
		s.writeJSON(conn, s.handleConfigRequest(&cfgReq))
		return
	}

	var req clipime.ConvertRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.logger.Warn("invalid request", "error", err)
		s.writeJSON(conn, &clipime.ConvertResponse{
			Error: &clipime.Error{Code: "invalid_request", Message: err.Error()},
		})
		return
	}

	s.writeJSON(conn, s.converter.Convert(s.ctx, &req))
}

func (s *Server) writeJSON(conn net.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		return
	}

	s.logger.Debug("response", "data", string(data))

	conn.Write(append(data, '\n'))
}

func (s *Server) handleConfigRequest(req *clipime.ConfigRequest) *clipime.ConfigResponse {
	var resp clipime.ConfigResponse

	switch req.Action {
	case "get":
		cfg, err := clipime.LoadConfig()
		if err != nil {
			resp.Error = &clipime.Error{
				Code:    "config_error",
				Message: err.Error(),
			}
		} else {
			resp.Config = cfg
		}

	case "reload":
		cfg, err := clipime.LoadConfig()
		if err != nil {
			resp.Error = &clipime.Error{
				Code:    "config_error",
				Message: err.Error(),
			}
			break
		}
		// Respond immediately; spawning a worker can take up to the
		// handshake timeout.
		go s.reload(cfg)
		resp.Config = cfg

	case "defaults":
		resp.Config = clipime.DefaultConfig()

	case "validate":
		cfg, err := clipime.LoadConfig()
		if err != nil {
			resp.Error = &clipime.Error{
				Code:    "config_error",
				Message: err.Error(),
			}
		} else {
			resp.Warnings = clipime.ValidateConfig(cfg)
		}

	default:
		resp.Error = &clipime.Error{
			Code:    "unknown_action",
			Message: "unknown config action: " + req.Action,
		}
	}

	return &resp
}

func (s *Server) reload(cfg *clipime.Config) {
	if err := s.converter.Reload(s.ctx, cfg); err != nil {
		s.logger.Error("reload failed", "error", err)
		return
	}
	s.logger.Info("configuration reloaded")
}
