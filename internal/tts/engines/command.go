package engines

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
)

// errTimeout marks a command that outlived its own deadline, as opposed to
// one whose caller cancelled.
var errTimeout = errors.New("command timed out")

// commandLine splits a configured command such as "piper" or
// "python3 -m piper" into argv.
func commandLine(command, fallback string) ([]string, error) {
	if strings.TrimSpace(command) == "" {
		command = fallback
	}
	argv, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return argv, nil
}

// runCommand runs argv plus args with stdin pre-loaded and returns stdout.
// The process is interrupted when ctx is done or timeout passes, and killed
// if it does not exit promptly.
func runCommand(ctx context.Context, timeout time.Duration, argv []string, args []string, stdin io.Reader) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command(argv[0], append(argv[1:len(argv):len(argv)], args...)...)
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("%s failed: %w, stderr: %s", argv[0], err, strings.TrimSpace(stderr.String()))
		}
		return stdout.Bytes(), nil

	case <-runCtx.Done():
		_ = cmd.Process.Signal(os.Interrupt)
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
			_ = cmd.Process.Kill()
			<-done
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%s after %v: %w", argv[0], timeout, errTimeout)
	}
}
