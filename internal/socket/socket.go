package socket

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"golang.org/x/sys/unix"
)

// ErrTimeout reports a receive that found no data within the socket's read
// timeout. It is the expected steady-state outcome while waiting for a reply
// and must be checked with errors.Is before treating a receive error as hard.
var ErrTimeout = errors.New("receive timed out")

// RawICMP is a raw AF_INET socket speaking IPPROTO_ICMP. Opening one requires
// CAP_NET_RAW (typically root); see IsPermissionError.
type RawICMP struct {
	fd int
}

// Open creates the raw ICMP socket and arms its kernel read timeout, so every
// receive is bounded by readTimeout rather than blocking indefinitely.
func Open(readTimeout time.Duration) (*RawICMP, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW, unix.IPPROTO_ICMP)
	if err != nil {
		return nil, fmt.Errorf("raw ICMP socket: %w", err)
	}

	tv := unix.NsecToTimeval(readTimeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set receive timeout: %w", err)
	}

	return &RawICMP{fd: fd}, nil
}

// SendTo transmits one ICMP frame to dst. The kernel prepends the IP header.
func (s *RawICMP) SendTo(pkt []byte, dst netip.Addr) error {
	sa := &unix.SockaddrInet4{Addr: dst.As4()}
	if err := unix.Sendto(s.fd, pkt, 0, sa); err != nil {
		return fmt.Errorf("sendto %s: %w", dst, err)
	}
	return nil
}

// Recv reads one inbound datagram into buf. The three outcomes are kept
// distinguishable: data (n, nil), no data within the read timeout
// (0, ErrTimeout), or a hard socket error.
func (s *RawICMP) Recv(buf []byte) (int, error) {
	n, _, err := unix.Recvfrom(s.fd, buf, 0)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR) {
			return 0, ErrTimeout
		}
		return 0, fmt.Errorf("recvfrom: %w", err)
	}
	return n, nil
}

// Close releases the socket file descriptor.
func (s *RawICMP) Close() error {
	return unix.Close(s.fd)
}

// IsPermissionError reports whether err means the process lacks the privilege
// to open a raw socket, as opposed to some other setup failure.
func IsPermissionError(err error) bool {
	return errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES)
}
