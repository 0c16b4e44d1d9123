package prober

import (
	"errors"
	"log/slog"
	"net/netip"
	"sync/atomic"
	"time"

	"icmp-ping/internal/models"
	"icmp-ping/internal/packet"
	"icmp-ping/internal/socket"
)

// recvBufferSize fits a full Ethernet MTU worth of reply, IP header included.
const recvBufferSize = 1500

// cancelPollGranularity bounds how long a shutdown request can sit unnoticed
// while the loop sleeps between probes.
const cancelPollGranularity = 100 * time.Millisecond

// Socket is the raw network endpoint the prober drives. socket.RawICMP is the
// production implementation; tests substitute their own. The caller keeps
// ownership of the socket's lifetime.
type Socket interface {
	SendTo(pkt []byte, dst netip.Addr) error
	// Recv must return socket.ErrTimeout when no data arrived within the
	// endpoint's read timeout, and a different error for hard failures.
	Recv(buf []byte) (int, error)
}

// Prober owns one socket and drives the request/reply cycle against a single
// destination. It is the only mutator of its statistics; the cancel flag is
// the only state shared with the outside.
type Prober struct {
	Interval time.Duration // pause between consecutive probes
	Deadline time.Duration // per-probe wait bound for a matching reply

	sock      Socket
	dest      netip.Addr
	id        uint16
	payload   []byte
	cancelled *atomic.Bool
	results   chan<- models.ProbeResult
	logger    *slog.Logger
	buf       []byte
}

// New creates a Prober. results may be nil when no reporting is wanted; the
// identifier is fixed for the prober's lifetime.
func New(sock Socket, dest netip.Addr, id uint16, payload []byte, cancelled *atomic.Bool, results chan<- models.ProbeResult, parentLogger *slog.Logger) *Prober {
	return &Prober{
		Interval:  time.Second,
		Deadline:  2 * time.Second,
		sock:      sock,
		dest:      dest,
		id:        id,
		payload:   payload,
		cancelled: cancelled,
		results:   results,
		logger:    parentLogger.With(slog.String("component", "prober")),
		buf:       make([]byte, recvBufferSize),
	}
}

// RunProbe performs one send/await cycle for seq. Send failures and deadline
// expiry both come back as StatusLost; only the Reason differs.
func (p *Prober) RunProbe(seq uint16) models.ProbeResult {
	pkt := packet.BuildEchoRequest(p.id, seq, p.payload)

	t0 := time.Now()
	result := models.ProbeResult{Timestamp: t0, Seq: seq}

	if err := p.sock.SendTo(pkt, p.dest); err != nil {
		p.logger.Warn("Send failed.", "icmp_seq", seq, "error", err)
		result.Status = models.StatusLost
		result.Reason = models.ReasonSendFailed
		result.Error = err
		return result
	}

	deadline := t0.Add(p.Deadline)
	for {
		if !time.Now().Before(deadline) {
			p.logger.Info("Request timed out.", "icmp_seq", seq)
			result.Status = models.StatusLost
			result.Reason = models.ReasonTimeout
			return result
		}
		if p.cancelled.Load() {
			result.Status = models.StatusLost
			result.Reason = models.ReasonCancelled
			return result
		}

		n, err := p.sock.Recv(p.buf)
		if errors.Is(err, socket.ErrTimeout) {
			continue
		}
		if err != nil {
			p.logger.Warn("Receive failed.", "icmp_seq", seq, "error", err)
			result.Status = models.StatusLost
			result.Reason = models.ReasonRecvError
			result.Error = err
			return result
		}

		reply, ok := packet.ParseEchoReply(p.buf, n)
		if !ok {
			// Truncated noise, keep polling.
			continue
		}
		if reply.Type != packet.TypeEchoReply || reply.Code != 0 || reply.ID != p.id || reply.Seq != seq {
			// Unrelated ICMP traffic or a reply to a stale sequence.
			p.logger.Debug("Discarding non-matching datagram.",
				"type", reply.Type, "code", reply.Code, "id", reply.ID, "seq", reply.Seq, "want_seq", seq)
			continue
		}

		result.Status = models.StatusReplied
		result.RTT = time.Since(t0)
		result.Bytes = reply.Bytes
		return result
	}
}

// Run drives probes until the cancel flag is set or, when count > 0, that
// many attempts were made. Sequence numbers start at 1 and wrap around to 1,
// never emitting 0. A cancelled run still returns complete statistics.
func (p *Prober) Run(count uint64) models.RunStats {
	var stats models.RunStats
	var attempts uint64
	seq := uint16(1)

	for {
		if p.cancelled.Load() {
			break
		}
		if count > 0 && attempts >= count {
			break
		}

		result := p.RunProbe(seq)
		stats.Transmitted++
		attempts++
		if result.Status == models.StatusReplied {
			stats.RecordReply(result.RTT)
		}
		p.emit(result)

		if p.cancelled.Load() {
			break
		}
		if count > 0 && attempts >= count {
			// No sleep after the final counted probe.
			break
		}

		seq = nextSeq(seq)
		p.sleepInterval()
	}

	return stats
}

func (p *Prober) emit(result models.ProbeResult) {
	if p.results != nil {
		p.results <- result
	}
}

// sleepInterval pauses for the probe cadence, polling the cancel flag so a
// shutdown during the pause is honored promptly.
func (p *Prober) sleepInterval() {
	wake := time.Now().Add(p.Interval)
	for {
		if p.cancelled.Load() {
			return
		}
		remaining := time.Until(wake)
		if remaining <= 0 {
			return
		}
		if remaining > cancelPollGranularity {
			remaining = cancelPollGranularity
		}
		time.Sleep(remaining)
	}
}

// nextSeq advances the sequence number, skipping 0 on wrap-around since a
// zero sequence is ambiguous with "no sequence".
func nextSeq(seq uint16) uint16 {
	seq++
	if seq == 0 {
		seq = 1
	}
	return seq
}
