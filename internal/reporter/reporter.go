package reporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"os"
	"sync"

	"icmp-ping/internal/models"
)

// Reporter renders per-probe results on the console and, when an output file
// is configured, mirrors them as CSV rows. It runs in its own goroutine and
// drains the result channel until it closes.
type Reporter struct {
	ctx         context.Context
	wg          *sync.WaitGroup
	resultsChan <-chan models.ProbeResult
	dest        netip.Addr
	out         io.Writer
	outputFile  string
	logger      *slog.Logger
}

// New creates a Reporter. out receives the human-readable lines (os.Stdout in
// production); outputFile may be empty to disable the CSV mirror.
func New(ctx context.Context, wg *sync.WaitGroup, resultsChan <-chan models.ProbeResult, dest netip.Addr, out io.Writer, outputFile string, logger *slog.Logger) *Reporter {
	return &Reporter{
		ctx:         ctx,
		wg:          wg,
		resultsChan: resultsChan,
		dest:        dest,
		out:         out,
		outputFile:  outputFile,
		logger:      logger.With(slog.String("component", "reporter")),
	}
}

// Run consumes results until the channel closes or the context is cancelled,
// draining any buffered results before returning.
func (r *Reporter) Run() {
	defer r.wg.Done()

	var writer *csv.Writer
	if r.outputFile != "" {
		file, err := os.Create(r.outputFile)
		if err != nil {
			// Losing the CSV mirror is not worth killing the run over.
			r.logger.Error("Failed to create output file, continuing without CSV.", "file", r.outputFile, "error", err)
		} else {
			defer file.Close()
			writer = csv.NewWriter(file)
			defer writer.Flush()
			if err := writer.Write(models.CSVHeader()); err != nil {
				r.logger.Error("Failed to write CSV header.", "error", err)
			}
			r.logger.Info("Writing per-probe results.", "file", r.outputFile)
		}
	}

	for {
		select {
		case result, ok := <-r.resultsChan:
			if !ok {
				r.logger.Debug("Results channel closed. Shutting down.")
				return
			}
			r.record(writer, result)
		case <-r.ctx.Done():
			r.logger.Debug("Shutdown signal received. Draining remaining results...")
			for result := range r.resultsChan {
				r.record(writer, result)
			}
			return
		}
	}
}

func (r *Reporter) record(writer *csv.Writer, result models.ProbeResult) {
	r.printLine(result)
	if writer != nil {
		if err := writer.Write(result.ToCSVRow()); err != nil {
			r.logger.Error("Failed to write CSV record.", "error", err)
		}
	}
}

func (r *Reporter) printLine(result models.ProbeResult) {
	switch {
	case result.Status == models.StatusReplied:
		fmt.Fprintf(r.out, "Reply from %s: bytes=%d icmp_seq=%d time=%.2f ms\n",
			r.dest, result.Bytes, result.Seq, result.RTT.Seconds()*1000)
	case result.Reason == models.ReasonSendFailed:
		fmt.Fprintf(r.out, "Send failed for icmp_seq=%d: %v\n", result.Seq, result.Error)
	case result.Reason == models.ReasonTimeout:
		fmt.Fprintf(r.out, "Request timed out. icmp_seq=%d\n", result.Seq)
	case result.Reason == models.ReasonRecvError:
		fmt.Fprintf(r.out, "Receive error for icmp_seq=%d: %v\n", result.Seq, result.Error)
	case result.Reason == models.ReasonCancelled:
		// Interrupted mid-wait; the summary covers it.
	}
}

// PrintPreamble writes the opening line of a run.
func PrintPreamble(w io.Writer, dest netip.Addr, payloadLen int) {
	fmt.Fprintf(w, "PING %s with %d bytes of data:\n", dest, payloadLen)
}

// PrintSummary writes the end-of-run statistics block. The RTT line is
// omitted when no replies were received.
func PrintSummary(w io.Writer, dest netip.Addr, stats models.RunStats) {
	fmt.Fprintf(w, "\n--- %s ping statistics ---\n", dest)
	fmt.Fprintf(w, "%d packets transmitted, %d received, %.0f%% packet loss\n",
		stats.Transmitted, stats.Received, stats.LossPercent())
	if len(stats.RTTs) > 0 {
		fmt.Fprintf(w, "rtt min/avg/max = %.3f/%.3f/%.3f ms\n",
			stats.MinRTT(), stats.AvgRTT(), stats.MaxRTT())
	}
}
