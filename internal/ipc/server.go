package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"
	"time"

	"soundscape/internal/daemon"
	"soundscape/internal/events"
	"soundscape/internal/jobs"
	"soundscape/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Soundscape", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the socket file manually before restarting"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	s.log().Debug("job submission requested",
		logging.String("source_path", req.SourcePath))

	job, err := s.daemon.Submit(s.ctx, req.SourcePath)
	if err != nil {
		var conflict *jobs.ConflictError
		if errors.As(err, &conflict) {
			resp.Accepted = false
			resp.ActiveJobID = conflict.ActiveJobID
			resp.Message = err.Error()
			return nil
		}
		return err
	}
	resp.Accepted = true
	resp.Job = fromJob(job)
	s.log().Info("job submitted via IPC",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldEventType, "job_submitted"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.ActiveJobID = status.ActiveJobID
	resp.JobCounts = status.JobCounts
	resp.SnapshotDBPath = status.SnapshotDBPath
	resp.SocketPath = status.SocketPath
	resp.LockPath = status.LockPath
	resp.Store = StoreHealth{
		DBPath:           status.Store.DBPath,
		DatabaseExists:   status.Store.DatabaseExists,
		DatabaseReadable: status.Store.DatabaseReadable,
		SchemaVersion:    status.Store.SchemaVersion,
		TotalJobs:        status.Store.TotalJobs,
		Error:            status.Store.Error,
	}
	for _, job := range s.daemon.List() {
		resp.Jobs = append(resp.Jobs, fromJob(job))
	}
	return nil
}

func (s *service) Describe(req DescribeRequest, resp *DescribeResponse) error {
	id := strings.TrimSpace(req.JobID)
	if id == "" {
		return errors.New("describe requires a job id")
	}
	job, ok := s.daemon.Get(id)
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	resp.Job = fromJob(job)
	return nil
}

func (s *service) Cancel(req CancelRequest, resp *CancelResponse) error {
	id := strings.TrimSpace(req.JobID)
	if id == "" {
		return errors.New("cancel requires a job id")
	}
	resp.Cancelled = s.daemon.Cancel(s.ctx, id)
	if resp.Cancelled {
		s.log().Info("job cancelled via IPC",
			logging.String(logging.FieldJobID, id),
			logging.String(logging.FieldEventType, "job_cancel_requested"))
	}
	return nil
}

func (s *service) Events(req EventsRequest, resp *EventsResponse) error {
	id := strings.TrimSpace(req.JobID)
	if id == "" {
		return errors.New("events requires a job id")
	}
	since, err := events.ParseIndex(req.AfterIndex)
	if err != nil {
		return err
	}

	wait := req.WaitMillis > 0
	ctx := s.ctx
	if wait {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, time.Duration(req.WaitMillis)*time.Millisecond)
		defer cancel()
	}

	evts, err := s.daemon.Events(ctx, id, since, wait)
	if err != nil {
		// A wait that timed out with nothing new is an empty result, not a
		// failure; the client simply polls again from the same cursor.
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			resp.Events = evts
			return nil
		}
		return err
	}
	resp.Events = evts
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
