package pinger

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	probing "github.com/go-ping/ping"

	"icmp-ping/config"
	"icmp-ping/internal/models"
)

// Run executes the whole ping schedule through the go-ping library in
// unprivileged UDP mode. It is the fallback for hosts where opening a raw
// ICMP socket is denied; the library owns the wire format, so only the
// statistics and the per-reply stream match the raw engine.
func Run(cfg *config.Config, cancelled *atomic.Bool, results chan<- models.ProbeResult, parentLogger *slog.Logger) (models.RunStats, error) {
	logger := parentLogger.With(slog.String("component", "pinger"))

	p, err := probing.NewPinger(cfg.Dest.String())
	if err != nil {
		return models.RunStats{}, fmt.Errorf("unprivileged pinger: %w", err)
	}
	p.SetPrivileged(false)
	p.Interval = cfg.Interval
	if cfg.Count > 0 {
		p.Count = int(cfg.Count)
		// The library only returns early when every request was answered;
		// under loss it waits for its overall timeout, which defaults to
		// effectively forever. Cap it to the schedule so a bounded lossy
		// run still terminates once the last probe's wait expires.
		p.Timeout = boundedRunTimeout(cfg.Count, cfg.Interval, cfg.Deadline)
	}

	received := make(map[int]bool)
	p.OnRecv = func(pkt *probing.Packet) {
		received[pkt.Seq] = true
		if results != nil {
			results <- models.ProbeResult{
				Timestamp: time.Now(),
				Seq:       uint16(pkt.Seq),
				Status:    models.StatusReplied,
				Bytes:     pkt.Nbytes,
				RTT:       pkt.Rtt,
			}
		}
	}

	// The library has its own stop mechanism; bridge the cancellation flag
	// to it so Ctrl-C behaves the same as in the raw engine.
	runDone := make(chan struct{})
	go func() {
		for {
			if cancelled.Load() {
				p.Stop()
				return
			}
			select {
			case <-time.After(100 * time.Millisecond):
			case <-runDone:
				return
			}
		}
	}()

	logger.Info("Raw socket unavailable, probing in unprivileged UDP mode.", "dest", cfg.Dest)
	err = p.Run()
	close(runDone)
	if err != nil {
		return models.RunStats{}, fmt.Errorf("unprivileged ping run: %w", err)
	}

	s := p.Statistics()
	stats := models.RunStats{
		Transmitted: uint64(s.PacketsSent),
		Received:    uint64(s.PacketsRecv),
	}
	for _, rtt := range s.Rtts {
		stats.RTTs = append(stats.RTTs, rtt.Seconds()*1000)
	}

	// The library has no per-loss callback, so lost probes are reconstructed
	// here: every sent sequence without a matching receive gets a LOST
	// record, keeping the console and CSV truthful in fallback mode.
	if results != nil {
		for seq := 0; seq < s.PacketsSent; seq++ {
			if !received[seq] {
				results <- models.ProbeResult{
					Timestamp: time.Now(),
					Seq:       uint16(seq),
					Status:    models.StatusLost,
					Reason:    models.ReasonTimeout,
				}
			}
		}
	}
	return stats, nil
}

// boundedRunTimeout is the worst-case duration of a counted schedule: the
// pause before each of the later probes plus the final probe's reply wait.
func boundedRunTimeout(count uint64, interval, deadline time.Duration) time.Duration {
	return time.Duration(count)*interval + deadline
}
