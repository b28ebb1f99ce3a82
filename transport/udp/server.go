package udp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync"

	"github.com/rocketscienceinc/tictactoe-udp/internal/config"
)

var ErrServerClosed = errors.New("udp server closed")

type packetConn interface {
	ReadFromUDPAddrPort(b []byte) (int, netip.AddrPort, error)
	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)
	LocalAddr() net.Addr
	Close() error
}

type handler interface {
	Handle(data []byte, from netip.AddrPort)
}

type datagram struct {
	from netip.AddrPort
	data []byte
}

// Server reads datagrams on one goroutine and hands them to a fixed pool of workers.
type Server struct {
	logger *slog.Logger
	conf   config.UDP

	conn    packetConn
	handler handler
}

// Listen - binds an IPv4 datagram socket on all interfaces.
func Listen(port string) (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp4", ":"+port)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve udp port %q: %w", port, err)
	}

	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind udp port %q: %w", port, err)
	}

	return conn, nil
}

func New(logger *slog.Logger, conf config.UDP, conn packetConn, handler handler) *Server {
	if conf.Workers <= 0 {
		conf.Workers = 1
	}

	if conf.QueueSize < 0 {
		conf.QueueSize = 0
	}

	if conf.MaxDatagram <= 0 {
		conf.MaxDatagram = 5000
	}

	return &Server{
		logger:  logger.With("component", "udp-server"),
		conf:    conf,
		conn:    conn,
		handler: handler,
	}
}

func (that *Server) Addr() net.Addr {
	return that.conn.LocalAddr()
}

// Start - serves datagrams until ctx is done or the socket fails.
// The socket is closed on return.
func (that *Server) Start(ctx context.Context) error {
	log := that.logger.With("method", "Start")

	queue := make(chan datagram, that.conf.QueueSize)

	var wg sync.WaitGroup
	for range that.conf.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			that.work(queue)
		}()
	}

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}

		if err := that.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Error("failed to close socket", "error", err)
		}
	}()

	log.Info("serving datagrams", "addr", that.Addr().String(), "workers", that.conf.Workers)

	err := that.read(ctx, queue)

	close(stop)
	close(queue)
	wg.Wait()

	log.Info("stopped serving datagrams")

	return err
}

func (that *Server) read(ctx context.Context, queue chan<- datagram) error {
	log := that.logger.With("method", "read")

	// one spare byte tells a full datagram from a truncated one
	buf := make([]byte, that.conf.MaxDatagram+1)

	for {
		n, from, err := that.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			if errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}

			return fmt.Errorf("failed to read datagram: %w", err)
		}

		if n > that.conf.MaxDatagram {
			log.Warn("oversized datagram, dropping", "from", from.String(), "limit", that.conf.MaxDatagram)
			continue
		}

		select {
		case queue <- datagram{from: from, data: bytes.Clone(buf[:n])}:
		default:
			log.Warn("queue is full, dropping datagram", "from", from.String(), "size", n)
		}
	}
}

func (that *Server) work(queue <-chan datagram) {
	for dg := range queue {
		that.handler.Handle(dg.data, dg.from)
	}
}
