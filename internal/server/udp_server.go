package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// maxDatagramSize bounds what a single read accepts. The codec itself
// imposes no limit; the socket layer does.
const maxDatagramSize = 4096

// bufferPool reduces allocations for incoming UDP packets.
var bufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, maxDatagramSize)
		return &buf
	},
}

// UDPServer answers DNS queries over UDP.
//
// Features:
//   - Buffer pooling to reduce GC pressure under load
//   - Semaphore-based concurrency limiting
//   - Per-IP/prefix/global rate limiting
//   - Optional SO_REUSEPORT multi-socket listening
//   - Graceful shutdown with timeout
type UDPServer struct {
	Logger         *slog.Logger  // Optional logger
	Handler        *QueryHandler // Query processor
	Limiter        *RateLimiter  // Optional pre-parse rate limiter
	MaxConcurrency int           // Maximum concurrent request handlers
	Sockets        int           // Number of SO_REUSEPORT sockets (<=1: single socket)

	mu      sync.Mutex
	conns   []*net.UDPConn
	wg      sync.WaitGroup // Tracks in-flight requests
	sem     chan struct{}  // Concurrency semaphore
	semOnce sync.Once
}

// Run starts the UDP server on addr and blocks until ctx is canceled or
// a socket error occurs. With Sockets > 1, that many SO_REUSEPORT sockets
// are bound to the same address, each with its own receive loop.
func (s *UDPServer) Run(ctx context.Context, addr string) error {
	n := s.Sockets
	if n <= 1 {
		udpAddr, err := net.ResolveUDPAddr("udp", addr)
		if err != nil {
			return err
		}
		conn, err := net.ListenUDP("udp", udpAddr)
		if err != nil {
			return err
		}
		return s.RunOnConn(ctx, conn)
	}

	lc := net.ListenConfig{Control: setReusePort}
	errCh := make(chan error, n)
	started := 0
	for i := 0; i < n; i++ {
		pc, err := lc.ListenPacket(ctx, "udp", addr)
		if err != nil {
			if started == 0 {
				return err
			}
			break
		}
		conn, ok := pc.(*net.UDPConn)
		if !ok {
			pc.Close()
			return errors.New("udp server: listener is not a UDP connection")
		}
		started++
		go func() { errCh <- s.RunOnConn(ctx, conn) }()
	}

	var firstErr error
	for i := 0; i < started; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// setReusePort enables SO_REUSEPORT so multiple sockets can share a port,
// letting the kernel spread datagrams across receive loops.
func setReusePort(network, address string, c syscall.RawConn) error {
	var sockErr error
	if err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	}); err != nil {
		return err
	}
	return sockErr
}

// RunOnConn runs a receive loop on an existing UDP connection.
// Useful for testing and when the caller manages the socket.
//
// Per datagram:
//  1. Read packet (1s read deadline so shutdown is noticed)
//  2. Apply rate limiting (drop if exceeded)
//  3. Acquire a semaphore slot (drop if at max concurrency)
//  4. Handle in a goroutine and send the reply, if any
func (s *UDPServer) RunOnConn(ctx context.Context, conn *net.UDPConn) error {
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()
	defer conn.Close()

	s.semOnce.Do(func() {
		maxConc := s.MaxConcurrency
		if maxConc <= 0 {
			maxConc = 1
		}
		s.sem = make(chan struct{}, maxConc)
	})

	for ctx.Err() == nil {
		packet, remote, ok := s.receivePacket(ctx, conn)
		if !ok {
			continue
		}

		src := remote.AddrPort()
		if s.Limiter != nil && !s.Limiter.AllowAddr(src.Addr().Unmap()) {
			continue
		}

		if !s.tryAcquireSemaphore() {
			continue // at max concurrency, drop request
		}

		s.wg.Add(1)
		go s.handleRequest(ctx, conn, packet, src)
	}

	return nil
}

// receivePacket reads a UDP packet using a pooled buffer.
// Returns ok=false on timeout or error; the caller just loops.
func (s *UDPServer) receivePacket(ctx context.Context, conn *net.UDPConn) ([]byte, *net.UDPAddr, bool) {
	bufPtr := bufferPool.Get().(*[]byte)
	buf := *bufPtr
	defer bufferPool.Put(bufPtr)

	_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	n, remote, err := conn.ReadFromUDP(buf)
	if err != nil || remote == nil {
		return nil, nil, false
	}

	// Copy data out of the pooled buffer
	data := make([]byte, n)
	copy(data, buf[:n])
	return data, remote, true
}

// tryAcquireSemaphore attempts to acquire a concurrency slot.
func (s *UDPServer) tryAcquireSemaphore() bool {
	select {
	case s.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

// handleRequest processes a single DNS request and writes the reply.
func (s *UDPServer) handleRequest(ctx context.Context, conn *net.UDPConn, payload []byte, src netip.AddrPort) {
	defer s.wg.Done()
	defer func() { <-s.sem }()

	if s.Handler == nil {
		return
	}

	res := s.Handler.Handle(ctx, src, payload)
	if len(res) == 0 {
		return // dropped: undecodable datagrams get no reply
	}
	_, _ = conn.WriteToUDPAddrPort(res, src)
}

// Stop gracefully shuts down the server, waiting up to timeout for
// in-flight requests to complete.
func (s *UDPServer) Stop(timeout time.Duration) error {
	s.mu.Lock()
	for _, conn := range s.conns {
		_ = conn.Close()
	}
	s.conns = nil
	s.mu.Unlock()

	if timeout <= 0 {
		s.wg.Wait()
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.New("udp server: timeout waiting for in-flight requests")
	}
}
