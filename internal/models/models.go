package models

import (
	"fmt"
	"time"
)

// EchoReply is the parsed view of an inbound ICMP Echo Reply. Bytes is the
// length of the ICMP portion only, after any leading IPv4 header was skipped.
type EchoReply struct {
	Type  uint8
	Code  uint8
	ID    uint16
	Seq   uint16
	Bytes int
}

// ProbeStatus represents the outcome of a single echo request.
type ProbeStatus string

const (
	StatusReplied ProbeStatus = "REPLIED"
	StatusLost    ProbeStatus = "LOST"
)

// LossReason distinguishes the flavors of LOST for diagnostics. All of them
// count identically in the run statistics.
type LossReason string

const (
	ReasonNone       LossReason = ""
	ReasonSendFailed LossReason = "SEND_FAILED"
	ReasonTimeout    LossReason = "TIMEOUT"
	ReasonRecvError  LossReason = "RECV_ERROR"
	ReasonCancelled  LossReason = "CANCELLED"
)

// ProbeResult holds the outcome of a single probe attempt.
type ProbeResult struct {
	Timestamp time.Time
	Seq       uint16
	Status    ProbeStatus
	Reason    LossReason
	Bytes     int
	RTT       time.Duration
	Error     error
}

// ToCSVRow converts a ProbeResult into a slice of strings for CSV writing.
func (r *ProbeResult) ToCSVRow() []string {
	reason := string(r.Reason)
	if r.Reason != ReasonNone && r.Error != nil {
		reason = fmt.Sprintf("%s: %v", r.Reason, r.Error)
	}
	return []string{
		r.Timestamp.Format(time.RFC3339),
		fmt.Sprintf("%d", r.Seq),
		string(r.Status),
		fmt.Sprintf("%d", r.Bytes),
		fmt.Sprintf("%.3f", r.RTT.Seconds()*1000), // RTT in ms
		reason,
	}
}

// CSVHeader returns the header row for the results CSV file.
func CSVHeader() []string {
	return []string{"timestamp", "icmp_seq", "status", "bytes", "rtt_ms", "reason"}
}

// RunStats aggregates one whole run. Only the probe loop mutates it; it is
// summarized once at exit.
type RunStats struct {
	Transmitted uint64
	Received    uint64
	RTTs        []float64 // milliseconds, in arrival order
}

// RecordReply folds one successful probe into the aggregate.
func (s *RunStats) RecordReply(rtt time.Duration) {
	s.Received++
	s.RTTs = append(s.RTTs, rtt.Seconds()*1000)
}

// LossPercent returns the packet loss ratio as a percentage. A run with no
// transmissions has 0% loss.
func (s *RunStats) LossPercent() float64 {
	if s.Transmitted == 0 {
		return 0
	}
	return float64(s.Transmitted-s.Received) / float64(s.Transmitted) * 100
}

// MinRTT returns the smallest observed RTT in milliseconds, 0 with no replies.
func (s *RunStats) MinRTT() float64 {
	min := 0.0
	for i, rtt := range s.RTTs {
		if i == 0 || rtt < min {
			min = rtt
		}
	}
	return min
}

// MaxRTT returns the largest observed RTT in milliseconds, 0 with no replies.
func (s *RunStats) MaxRTT() float64 {
	max := 0.0
	for _, rtt := range s.RTTs {
		if rtt > max {
			max = rtt
		}
	}
	return max
}

// AvgRTT returns the mean observed RTT in milliseconds, 0 with no replies.
func (s *RunStats) AvgRTT() float64 {
	if len(s.RTTs) == 0 {
		return 0
	}
	sum := 0.0
	for _, rtt := range s.RTTs {
		sum += rtt
	}
	return sum / float64(len(s.RTTs))
}
