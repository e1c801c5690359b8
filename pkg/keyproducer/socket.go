package keyproducer

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/Amr-9/AddressFinder/pkg/secret"
)

// Socket reads 32 byte big-endian secrets from a TCP peer. In client mode it
// dials Host:Port, in server mode it listens there and accepts one peer at a
// time. A lost connection is reopened on the next read.
type Socket struct {
	interruptible

	cfg      SocketConfig
	timeout  time.Duration
	delay    time.Duration
	quit     chan struct{}
	quitOnce sync.Once

	// readMu keeps the secrets of one batch contiguous when several
	// producers share the source.
	readMu sync.Mutex

	mu       sync.Mutex
	listener net.Listener
	conn     net.Conn
}

// NewSocket returns a Socket producer. In server mode the listener is opened
// immediately.
func NewSocket(cfg SocketConfig) (*Socket, error) {
	if cfg.ConnectionRetryCount < 1 || cfg.ReadRetryCount < 1 {
		return nil, fmt.Errorf("socket retry counts must be positive")
	}

	s := &Socket{
		cfg:     cfg,
		timeout: time.Duration(cfg.TimeoutMillis) * time.Millisecond,
		delay:   time.Duration(cfg.RetryDelayMillis) * time.Millisecond,
		quit:    make(chan struct{}),
	}

	switch cfg.Mode {
	case ModeClient:
	case ModeServer:
		l, err := net.Listen("tcp", s.address())
		if err != nil {
			return nil, fmt.Errorf("failed to listen on %s: %w", s.address(), err)
		}
		s.listener = l
		log.Infof("Waiting for secrets on %s", l.Addr())
	default:
		return nil, fmt.Errorf("unknown socket mode %q", cfg.Mode)
	}
	return s, nil
}

func (s *Socket) address() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Addr returns the listening address in server mode and nil otherwise.
func (s *Socket) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Interrupt aborts pending retries and unblocks a read or accept in
// progress.
func (s *Socket) Interrupt() {
	s.interruptible.Interrupt()
	s.quitOnce.Do(func() { close(s.quit) })

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.SetDeadline(time.Now())
	}
	if s.listener != nil {
		s.listener.Close()
	}
}

// sleep waits for the retry delay and reports false if interrupted.
func (s *Socket) sleep() bool {
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.quit:
		return false
	}
}

// connect opens the connection, retrying up to ConnectionRetryCount times.
func (s *Socket) connect() (net.Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.ConnectionRetryCount; attempt++ {
		if s.isInterrupted() {
			return nil, fmt.Errorf("%w: interrupted", ErrNoMoreSecrets)
		}

		conn, err := s.open()
		if err == nil {
			return conn, nil
		}
		lastErr = err
		log.Warnf("Connection attempt %d/%d to %s failed: %v",
			attempt, s.cfg.ConnectionRetryCount, s.address(), err)

		if attempt < s.cfg.ConnectionRetryCount && !s.sleep() {
			return nil, fmt.Errorf("%w: interrupted", ErrNoMoreSecrets)
		}
	}
	return nil, fmt.Errorf("%w: unable to connect: %v", ErrNoMoreSecrets, lastErr)
}

func (s *Socket) open() (net.Conn, error) {
	if s.listener == nil {
		return net.DialTimeout("tcp", s.address(), s.timeout)
	}
	if tl, ok := s.listener.(*net.TCPListener); ok && s.timeout > 0 {
		tl.SetDeadline(time.Now().Add(s.timeout))
	}
	return s.listener.Accept()
}

// readSecret reads one secret, reopening the connection on failure up to
// ReadRetryCount times.
func (s *Socket) readSecret(buf []byte) (*uint256.Int, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.ReadRetryCount; attempt++ {
		conn, err := s.current()
		if err != nil {
			return nil, err
		}

		if s.timeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.timeout))
		}
		if _, err = io.ReadFull(conn, buf); err == nil {
			return new(uint256.Int).SetBytes32(buf), nil
		}

		lastErr = err
		s.drop(conn)
		if s.isInterrupted() {
			return nil, fmt.Errorf("%w: interrupted", ErrNoMoreSecrets)
		}
		log.Warnf("Read attempt %d/%d failed: %v", attempt, s.cfg.ReadRetryCount, err)
	}
	return nil, fmt.Errorf("%w: unable to read: %v", ErrNoMoreSecrets, lastErr)
}

// current returns the open connection, connecting first if there is none.
func (s *Socket) current() (net.Conn, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		return conn, nil
	}

	conn, err := s.connect()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isInterrupted() {
		conn.Close()
		return nil, fmt.Errorf("%w: interrupted", ErrNoMoreSecrets)
	}
	s.conn = conn
	return conn, nil
}

func (s *Socket) drop(conn net.Conn) {
	conn.Close()
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
}

// CreateSecrets reads the secrets one after another from the peer.
func (s *Socket) CreateSecrets(overallWorkSize int, returnBaseOnly bool) ([]*uint256.Int, error) {
	n, err := secretCount(overallWorkSize, returnBaseOnly)
	if err != nil {
		return nil, err
	}

	s.readMu.Lock()
	defer s.readMu.Unlock()

	buf := make([]byte, secret.Size)
	secrets := make([]*uint256.Int, n)
	for i := range secrets {
		if secrets[i], err = s.readSecret(buf); err != nil {
			return nil, err
		}
	}
	return secrets, nil
}

// Close closes the connection and the listener.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.conn != nil {
		err = s.conn.Close()
		s.conn = nil
	}
	if s.listener != nil {
		if lerr := s.listener.Close(); err == nil && !isClosedErr(lerr) {
			err = lerr
		}
		s.listener = nil
	}
	return err
}

func isClosedErr(err error) bool {
	return err == nil || errors.Is(err, net.ErrClosed)
}
