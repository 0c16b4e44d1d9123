package utils

import (
	"log/slog"
	"runtime"

	"golang.org/x/sys/unix"
)

// CheckPrivileges warns when the process is unlikely to be allowed to open a
// raw ICMP socket. The socket call itself is the authoritative check
// (CAP_NET_RAW suffices without uid 0), so this only informs.
func CheckPrivileges(logger *slog.Logger) {
	if runtime.GOOS != "windows" && unix.Geteuid() != 0 {
		logger.Warn("Running as non-root; opening the raw ICMP socket may fail without CAP_NET_RAW.",
			"euid", unix.Geteuid())
	}
}
