package reporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"icmp-ping/internal/models"
	"icmp-ping/internal/testutils"
)

func TestReporter_Run(t *testing.T) {
	logger, logBuf := testutils.SetupTestLogger()
	tempDir := t.TempDir()
	outputFile := filepath.Join(tempDir, "results.csv")

	resultsChan := make(chan models.ProbeResult, 3)
	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var console bytes.Buffer
	dest := netip.MustParseAddr("192.0.2.1")
	r := New(ctx, &wg, resultsChan, dest, &console, outputFile, logger)

	wg.Add(1)
	go r.Run()

	now := time.Now()
	resultsToSend := []models.ProbeResult{
		{Timestamp: now, Seq: 1, Status: models.StatusReplied, Bytes: 22, RTT: 12340 * time.Microsecond},
		{Timestamp: now, Seq: 2, Status: models.StatusLost, Reason: models.ReasonTimeout},
		{Timestamp: now, Seq: 3, Status: models.StatusLost, Reason: models.ReasonSendFailed, Error: os.ErrPermission},
	}
	for _, res := range resultsToSend {
		resultsChan <- res
	}
	close(resultsChan)
	wg.Wait()

	lines := console.String()
	if !strings.Contains(lines, "Reply from 192.0.2.1: bytes=22 icmp_seq=1 time=12.34 ms") {
		t.Errorf("missing reply line, console output:\n%s", lines)
	}
	if !strings.Contains(lines, "Request timed out. icmp_seq=2") {
		t.Errorf("missing timeout line, console output:\n%s", lines)
	}
	if !strings.Contains(lines, "Send failed for icmp_seq=3") {
		t.Errorf("missing send-failure line, console output:\n%s", lines)
	}

	file, err := os.Open(outputFile)
	if err != nil {
		t.Fatalf("Failed to open output file: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV records: %v", err)
	}
	if len(records) != len(resultsToSend)+1 { // +1 for header
		t.Fatalf("Expected %d records, got %d", len(resultsToSend)+1, len(records))
	}
	if !equalSlices(records[0], models.CSVHeader()) {
		t.Errorf("Expected header %v, got %v", models.CSVHeader(), records[0])
	}
	if records[1][1] != "1" || records[1][2] != string(models.StatusReplied) {
		t.Errorf("Unexpected first data row: %v", records[1])
	}
	if records[3][5] == "" {
		t.Errorf("Send-failure row should carry a reason, got: %v", records[3])
	}

	if !strings.Contains(logBuf.String(), "Results channel closed") {
		t.Errorf("Expected shutdown log line, got:\n%s", logBuf.String())
	}
}

func TestReporter_Run_NoCSVFile(t *testing.T) {
	logger, _ := testutils.SetupTestLogger()
	resultsChan := make(chan models.ProbeResult, 1)
	var wg sync.WaitGroup
	var console bytes.Buffer

	r := New(context.Background(), &wg, resultsChan, netip.MustParseAddr("127.0.0.1"), &console, "", logger)
	wg.Add(1)
	go r.Run()

	resultsChan <- models.ProbeResult{Seq: 1, Status: models.StatusReplied, Bytes: 30, RTT: time.Millisecond}
	close(resultsChan)
	wg.Wait()

	if !strings.Contains(console.String(), "icmp_seq=1") {
		t.Errorf("console line missing, got:\n%s", console.String())
	}
}

func TestReporter_Run_ContextCancelDrains(t *testing.T) {
	logger, _ := testutils.SetupTestLogger()
	resultsChan := make(chan models.ProbeResult, 2)
	var wg sync.WaitGroup
	var console bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())

	resultsChan <- models.ProbeResult{Seq: 1, Status: models.StatusReplied, Bytes: 30, RTT: time.Millisecond}
	resultsChan <- models.ProbeResult{Seq: 2, Status: models.StatusLost, Reason: models.ReasonTimeout}
	cancel()
	close(resultsChan)

	r := New(ctx, &wg, resultsChan, netip.MustParseAddr("127.0.0.1"), &console, "", logger)
	wg.Add(1)
	go r.Run()
	wg.Wait()

	out := console.String()
	if !strings.Contains(out, "icmp_seq=1") || !strings.Contains(out, "icmp_seq=2") {
		t.Errorf("buffered results were not drained, got:\n%s", out)
	}
}

func TestPrintSummary(t *testing.T) {
	dest := netip.MustParseAddr("10.0.0.1")

	var withReplies bytes.Buffer
	stats := models.RunStats{Transmitted: 4, Received: 2, RTTs: []float64{1.5, 2.5}}
	PrintSummary(&withReplies, dest, stats)
	out := withReplies.String()
	if !strings.Contains(out, "--- 10.0.0.1 ping statistics ---") {
		t.Errorf("missing header, got:\n%s", out)
	}
	if !strings.Contains(out, "4 packets transmitted, 2 received, 50% packet loss") {
		t.Errorf("missing loss line, got:\n%s", out)
	}
	if !strings.Contains(out, "rtt min/avg/max = 1.500/2.000/2.500 ms") {
		t.Errorf("missing rtt line, got:\n%s", out)
	}

	var noReplies bytes.Buffer
	PrintSummary(&noReplies, dest, models.RunStats{Transmitted: 3})
	if strings.Contains(noReplies.String(), "rtt min/avg/max") {
		t.Errorf("rtt line must be omitted with zero replies, got:\n%s", noReplies.String())
	}
	if !strings.Contains(noReplies.String(), "3 packets transmitted, 0 received, 100% packet loss") {
		t.Errorf("missing loss line, got:\n%s", noReplies.String())
	}
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
