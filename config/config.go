package config

import (
	"flag"
	"fmt"
	"net/netip"
	"os"
	"time"
)

// Config holds all runtime parameters for a ping run.
type Config struct {
	Dest         netip.Addr
	Count        uint64 // 0 means unbounded
	Interval     time.Duration
	Deadline     time.Duration
	Payload      string
	OutputFile   string
	LogFile      string
	LogLevel     string
	Unprivileged bool
}

// Load parses command-line flags and returns a populated Config struct. The
// destination is the single positional argument and must be a literal
// dotted-decimal IPv4 address; hostnames are not resolved.
func Load() (*Config, error) {
	count := flag.Uint64("c", 0, "Stop after this many echo requests (0 = run until interrupted).")
	intervalSec := flag.Float64("i", 1, "Seconds to wait between probes.")
	deadlineSec := flag.Float64("W", 2, "Seconds to wait for each reply.")
	payload := flag.String("payload", "icmp-ping probe data", "Payload carried in each echo request.")
	outputFile := flag.String("output", "", "Optional CSV file for per-probe results.")
	logFile := flag.String("log", "", "Optional file to mirror diagnostic logs to.")
	logLevel := flag.String("log-level", "INFO", "Log level: DEBUG, INFO, WARN or ERROR.")
	unprivileged := flag.Bool("unprivileged", false, "Fall back to unprivileged UDP ping when raw sockets are denied.")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <ipv4-address>\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Sends ICMPv4 echo requests to a single destination and reports round trips.")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return nil, fmt.Errorf("expected exactly one destination address, got %d arguments", flag.NArg())
	}
	dest, err := netip.ParseAddr(flag.Arg(0))
	if err != nil {
		return nil, fmt.Errorf("invalid destination %q: %w", flag.Arg(0), err)
	}
	if !dest.Is4() {
		return nil, fmt.Errorf("destination %q is not an IPv4 address", flag.Arg(0))
	}
	if *intervalSec <= 0 {
		return nil, fmt.Errorf("-i must be positive")
	}
	if *deadlineSec <= 0 {
		return nil, fmt.Errorf("-W must be positive")
	}

	cfg := &Config{
		Dest:         dest,
		Count:        *count,
		Interval:     time.Duration(*intervalSec * float64(time.Second)),
		Deadline:     time.Duration(*deadlineSec * float64(time.Second)),
		Payload:      *payload,
		OutputFile:   *outputFile,
		LogFile:      *logFile,
		LogLevel:     *logLevel,
		Unprivileged: *unprivileged,
	}

	return cfg, nil
}
