package testutils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"sortmedia/internal/config"
	"sortmedia/internal/worker"

	"github.com/stretchr/testify/require"
)

// Environment used to turn a test binary into a fake sort-media worker.
const (
	FakeWorkerEnv = "SORTMEDIA_FAKE_WORKER"
	FakeModeEnv   = "SORTMEDIA_FAKE_MODE"
	FakeChunksEnv = "SORTMEDIA_FAKE_CHUNKS"
	FakeExitEnv   = "SORTMEDIA_FAKE_EXIT"
)

// Fake worker modes
const (
	// ModeHandshake writes SORTMEDIA_FAKE_CHUNKS progress lines, reading one
	// acknowledgement after each, then exits 0.
	ModeHandshake = "handshake"
	// ModeSilent exits 0 without output.
	ModeSilent = "silent"
	// ModeExit exits with SORTMEDIA_FAKE_EXIT without output.
	ModeExit = "exit"
	// ModeStderr writes one line to stderr, reads one ack and exits 1.
	ModeStderr = "stderr"
	// ModeArgs echoes its worker arguments, one per line, reads one ack and exits.
	ModeArgs = "args"
	// ModeTrailer writes one progress line, reads its ack, then writes a
	// closing banner and exits without reading again, like the real worker.
	ModeTrailer = "trailer"
)

// RunFakeWorkerIfRequested must be called from TestMain of every package
// that launches the fake worker. It never returns in the worker process.
func RunFakeWorkerIfRequested() {
	if os.Getenv(FakeWorkerEnv) != "1" {
		return
	}
	os.Exit(runFakeWorker(workerArgs(os.Args)))
}

// FakeWorkerLauncher returns a launcher that starts the current test binary
// as a fake worker in the given mode.
func FakeWorkerLauncher(mode string, env ...string) *worker.Launcher {
	settings := config.WorkerSettings{
		Executable:   os.Args[0],
		StartTimeout: 10 * time.Second,
		AckLine:      config.DefaultAckLine,
	}
	return worker.NewLauncher(settings, FakeWorkerOptions(mode, env...)...)
}

// FakeWorkerOptions are the launcher options that turn os.Args[0] into a
// fake worker in the given mode.
func FakeWorkerOptions(mode string, env ...string) []worker.Option {
	env = append([]string{FakeWorkerEnv + "=1", FakeModeEnv + "=" + mode}, env...)
	return []worker.Option{
		worker.WithLeadingArgs("-test.run=^$", "--"),
		worker.WithEnv(env...),
	}
}

// ProgressLine is the line the fake worker writes for file i of n
func ProgressLine(i, n int) string {
	return fmt.Sprintf("%3d%%| IMG_%04d.JPG to /photos/2021/07\n", int(float64(i)/float64(n)*100), i)
}

func workerArgs(args []string) []string {
	for i, a := range args {
		if a == "--" {
			return args[i+1:]
		}
	}
	return nil
}

func runFakeWorker(args []string) int {
	acks := bufio.NewScanner(os.Stdin)
	synced := false
	for _, a := range args {
		if a == worker.FlagSyncStdInOut {
			synced = true
		}
	}
	waitAck := func() bool {
		if !synced {
			return true
		}
		if !acks.Scan() || acks.Text() != "done" {
			fmt.Fprintf(os.Stderr, "bad acknowledgement %q\n", acks.Text())
			return false
		}
		return true
	}

	switch os.Getenv(FakeModeEnv) {
	case ModeHandshake:
		n, _ := strconv.Atoi(os.Getenv(FakeChunksEnv))
		for i := 0; i < n; i++ {
			os.Stdout.WriteString(ProgressLine(i, n))
			if !waitAck() {
				return 2
			}
		}
		return 0
	case ModeSilent:
		return 0
	case ModeExit:
		code, _ := strconv.Atoi(os.Getenv(FakeExitEnv))
		return code
	case ModeStderr:
		os.Stderr.WriteString("source directory does not exist\n")
		waitAck()
		return 1
	case ModeArgs:
		os.Stdout.WriteString(strings.Join(args, "\n") + "\n")
		waitAck()
		return 0
	case ModeTrailer:
		os.Stdout.WriteString(ProgressLine(0, 1))
		if !waitAck() {
			return 2
		}
		os.Stdout.WriteString("\nall files sorted\n")
		return 0
	}
	fmt.Fprintln(os.Stderr, "unknown fake worker mode")
	return 3
}

// CreateTestFilesWithContent creates test files with specific content
func CreateTestFilesWithContent(t *testing.T, dir string, files map[string]string) {
	for name, content := range files {
		err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644)
		require.NoError(t, err)
	}
}

// StripANSI removes ANSI escape sequences from a string
func StripANSI(str string) string {
	var result []rune
	inEscape := false
	for _, r := range str {
		if r == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
				inEscape = false
			}
			continue
		}
		result = append(result, r)
	}
	return string(result)
}
