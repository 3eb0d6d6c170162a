package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ashureev/shsh-relay/internal/relaypb"
	"github.com/ashureev/shsh-relay/internal/session"
)

// Open registers a new session (or takes the caller's requested name) and
// returns its bearer token and share URL.
func (s *Server) Open(ctx context.Context, req *relaypb.OpenRequest) (*relaypb.OpenResponse, error) {
	meta := session.Metadata{
		EncryptedZeros:    req.EncryptedZeros,
		WritePasswordHash: req.WritePasswordHash,
	}
	name, _, err := s.openSession(req.Name, meta)
	if err != nil {
		return nil, status.Error(codes.AlreadyExists, err.Error())
	}

	return &relaypb.OpenResponse{
		Name:  name,
		Token: s.signer.Token(name),
		URL:   fmt.Sprintf("%s/s/%s", req.Origin, name),
	}, nil
}

// Close verifies the caller's token and terminates the named session.
func (s *Server) Close(ctx context.Context, req *relaypb.CloseRequest) (*relaypb.CloseResponse, error) {
	if err := s.signer.Verify(req.Name, req.Token); err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	sess, ok := s.registry.Get(req.Name)
	if !ok {
		return nil, status.Error(codes.NotFound, "no such session")
	}
	sess.Close()
	s.registry.Remove(req.Name)
	return &relaypb.CloseResponse{}, nil
}

// Channel is the backend's bidirectional stream: one per attached host
// agent. The first frame must be Hello("name,token"); everything after is
// multiplexed per spec.md §4.3.
func (s *Server) Channel(stream grpc.BidiStreamingServer[relaypb.ClientUpdate, relaypb.ServerUpdate]) error {
	first, err := stream.Recv()
	if err != nil {
		return err
	}
	if first.Hello == nil {
		return status.Error(codes.InvalidArgument, "first frame must be hello")
	}
	name, token, ok := strings.Cut(*first.Hello, ",")
	if !ok {
		return status.Error(codes.InvalidArgument, "malformed hello")
	}
	if err := s.signer.Verify(name, token); err != nil {
		return status.Error(codes.Unauthenticated, err.Error())
	}
	sess, ok := s.registry.Get(name)
	if !ok {
		return status.Error(codes.NotFound, "no such session")
	}

	return s.runChannel(stream.Context(), sess, stream, stream)
}

// channelSender and channelReceiver are the subset of
// grpc.BidiStreamingServer this package exercises, kept separate from the concrete type so the CLI transport
// (backed by a JSON WebSocket, not gRPC) can share runChannel.
type channelSender interface {
	Send(*relaypb.ServerUpdate) error
}

type channelReceiver interface {
	Recv() (*relaypb.ClientUpdate, error)
}

func (s *Server) runChannel(ctx context.Context, sess *session.Session, tx channelSender, rx channelReceiver) error {
	kill, detach := s.attach(sess.Metadata().Name)
	defer detach()

	// A session stays alive for as long as a backend channel is attached,
	// independent of traffic volume, so touch the idle clock now and on
	// every sync tick below (spec.md §3 "idle-expiry ... no backend
	// channel and no frontend").
	sess.Access()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recvErr := make(chan error, 1)
	go s.recvLoop(ctx, sess, rx, recvErr)

	syncTicker := time.NewTicker(s.cfg.SyncInterval)
	defer syncTicker.Stop()
	pingTicker := time.NewTicker(s.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-kill:
			tx.Send(&relaypb.ServerUpdate{Error: strPtr("session is closed")})
			return nil
		case <-sess.Done():
			tx.Send(&relaypb.ServerUpdate{Error: strPtr("disconnecting because session is closed")})
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case err := <-recvErr:
			return err
		case <-syncTicker.C:
			sess.Access()
			sess.SyncNow()
		case now := <-pingTicker.C:
			if err := tx.Send(&relaypb.ServerUpdate{Ping: int64Ptr(now.UnixMilli())}); err != nil {
				return err
			}
		case msg, ok := <-sess.UpdateRx():
			if !ok {
				return nil
			}
			wire := toServerUpdate(msg)
			if wire == nil {
				continue
			}
			if err := tx.Send(wire); err != nil {
				return err
			}
		}
	}
}

func (s *Server) recvLoop(ctx context.Context, sess *session.Session, rx channelReceiver, errc chan<- error) {
	for {
		msg, err := rx.Recv()
		if err != nil {
			select {
			case errc <- err:
			case <-ctx.Done():
			}
			return
		}
		s.handleClientUpdate(sess, msg)
	}
}

func (s *Server) handleClientUpdate(sess *session.Session, msg *relaypb.ClientUpdate) {
	switch {
	case msg.Data != nil:
		d := msg.Data
		if err := sess.AddData(idsSid(d.ID), d.Data, d.Seq); err != nil {
			logf("backend: AddData: %v", err)
		}
	case msg.CreatedShell != nil:
		cs := msg.CreatedShell
		sess.CommitShell(idsSid(cs.ID), session.Winsize{X: cs.X, Y: cs.Y, Rows: 24, Cols: 80})
		sess.SyncNow()
	case msg.ClosedShell != nil:
		sess.AckClosedShell(idsSid(msg.ClosedShell.ID))
		sess.SyncNow()
	case msg.Pong != nil:
		now := time.Now().UnixMilli()
		latency := now - *msg.Pong
		if latency < 0 {
			latency = 0
		}
		sess.SendLatencyMeasurement(uint64(latency))
	case msg.Error != nil:
		logf("backend: session %s reported error: %s", sess.Metadata().Name, *msg.Error)
	case msg.Hello != nil:
		// ignored after the handshake frame
	}
}
