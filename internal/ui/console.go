// Package ui formats numbers and rates for the statistics log and renders
// the console output of the command line tool.
package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Amr-9/AddressFinder/pkg/opencl"
	"github.com/Amr-9/AddressFinder/pkg/publickey"
	"github.com/Amr-9/AddressFinder/pkg/secret"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorRed    = "\033[31m"
	ColorPurple = "\033[35m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
)

// PrintWelcomeBanner shows the welcome screen
func PrintWelcomeBanner(w io.Writer, version string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%s", ColorCyan, ColorBold)
	fmt.Fprintln(w, "  ╔══════════════════════════════════════════════════════════╗")
	fmt.Fprintln(w, "  ║                     ADDRESS FINDER                       ║")
	fmt.Fprintln(w, "  ╠══════════════════════════════════════════════════════════╣")
	fmt.Fprintf(w, "  ║%s      secp256k1 key search %s• v%-8s%s                    ║\n", ColorYellow, ColorDim, version, ColorCyan+ColorBold)
	fmt.Fprintln(w, "  ╚══════════════════════════════════════════════════════════╝")
	fmt.Fprint(w, ColorReset)
	fmt.Fprintln(w)
}

// FormatHashRate formats hash rate nicely
func FormatHashRate(rate float64) string {
	if rate >= 1000000 {
		return fmt.Sprintf("%.1fM/s", rate/1000000)
	}
	if rate >= 1000 {
		return fmt.Sprintf("%.1fK/s", rate/1000)
	}
	return fmt.Sprintf("%.0f/s", rate)
}

// FormatNumber adds commas to large numbers
func FormatNumber(n uint64) string {
	return humanize.Comma(int64(n))
}

// FormatDuration formats duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", h, m)
}

// PrintHit shows a key whose address is in the database.
func PrintHit(w io.Writer, k *publickey.PublicKeyBytes) {
	uh := k.UncompressedKeyHash()
	ch := k.CompressedKeyHash()

	fmt.Fprintf(w, "\n    %s%s╔══════════════════════════════════════════════════════════╗%s\n", ColorGreen, ColorBold, ColorReset)
	fmt.Fprintf(w, "    %s%s║                     ADDRESS FOUND                        ║%s\n", ColorGreen, ColorBold, ColorReset)
	fmt.Fprintf(w, "    %s%s╚══════════════════════════════════════════════════════════╝%s\n\n", ColorGreen, ColorBold, ColorReset)

	fmt.Fprintf(w, "    %sUNCOMPRESSED%s %s%s%s %s(%x)%s\n",
		ColorCyan+ColorBold, ColorReset, ColorGreen, k.UncompressedAddress(), ColorReset, ColorDim, uh[:], ColorReset)
	fmt.Fprintf(w, "    %sCOMPRESSED%s   %s%s%s %s(%x)%s\n\n",
		ColorCyan+ColorBold, ColorReset, ColorGreen, k.CompressedAddress(), ColorReset, ColorDim, ch[:], ColorReset)

	fmt.Fprintf(w, "    %sPRIVATE KEY%s\n", ColorPurple+ColorBold, ColorReset)
	fmt.Fprintf(w, "       %s%s%s\n\n", ColorYellow, secret.Hex(k.Secret()), ColorReset)
	fmt.Fprintf(w, "    %s%sKEEP YOUR PRIVATE KEY SECRET!%s\n", ColorRed, ColorBold, ColorReset)
}

// PrintDevices lists the OpenCL devices found on the machine.
func PrintDevices(w io.Writer, devices []opencl.DeviceInfo) {
	if len(devices) == 0 {
		fmt.Fprintf(w, "  %sNo OpenCL devices found%s\n", ColorYellow, ColorReset)
		return
	}
	for i, d := range devices {
		endian := "big-endian"
		if d.LittleEndian {
			endian = "little-endian"
		}
		fmt.Fprintf(w, "  %s[%d]%s %s%s%s on %s, %d compute units, %s, %s\n",
			ColorDim, i, ColorReset, ColorBold, d.Name, ColorReset,
			d.Platform, d.ComputeUnits, humanize.IBytes(d.GlobalMem), endian)
	}
}

// PrintVerifyResults prints the device against CPU comparison and a summary.
// Indices of skipped secrets are not listed.
func PrintVerifyResults(w io.Writer, passed bool, results []opencl.TestResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  ╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(w, "  ║                  OpenCL Verification Test                         ║")
	fmt.Fprintln(w, "  ╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(w)

	var matched, mismatched, skipped int
	for _, r := range results {
		switch {
		case r.Match && r.DeviceAddress == "":
			skipped++
			continue
		case r.Match:
			matched++
		default:
			mismatched++
		}

		fmt.Fprintf(w, "  Index %d\n", r.Index)
		if r.ErrorMessage != "" {
			fmt.Fprintf(w, "    %sError: %s%s\n", ColorRed, r.ErrorMessage, ColorReset)
			fmt.Fprintln(w)
			continue
		}
		fmt.Fprintf(w, "    Private Key: %s...%s\n", r.Secret[:8], r.Secret[len(r.Secret)-8:])
		fmt.Fprintf(w, "    CPU Address: %s\n", r.CPUAddress)
		fmt.Fprintf(w, "    GPU Address: %s\n", r.DeviceAddress)
		if r.Match {
			fmt.Fprintf(w, "    %sMATCH%s\n", ColorGreen, ColorReset)
		} else {
			fmt.Fprintf(w, "    %sMISMATCH%s\n", ColorRed, ColorReset)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "  ─────────────────────────────────────────────────────────────────")
	fmt.Fprintf(w, "  %d matched, %d mismatched, %d skipped\n", matched, mismatched, skipped)
	if passed {
		fmt.Fprintf(w, "  %sALL TESTS PASSED%s\n", ColorGreen+ColorBold, ColorReset)
	} else {
		fmt.Fprintf(w, "  %sSOME TESTS FAILED%s\n", ColorRed+ColorBold, ColorReset)
	}
	fmt.Fprintln(w)
}
