package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// StreamName identifies the pipe a Line was read from.
type StreamName string

const (
	Stdout StreamName = "stdout"
	Stderr StreamName = "stderr"
)

// Line is one line of subprocess output, newline included when present.
type Line struct {
	Stream StreamName
	Text   string
}

const (
	// DefaultMaxWait bounds a Stream run when MaxWait is zero.
	DefaultMaxWait = 2 * time.Minute

	// exitGrace is how long a process may linger after closing both streams
	// before it is killed.
	exitGrace = 500 * time.Millisecond

	// drainGrace is how long readers get to flush after a kill before their
	// pipes are closed under them.
	drainGrace = time.Second
)

// Stream runs a shell command while two readers drain stdout and stderr
// into one channel. Run returns once both streams hit EOF or MaxWait
// expires; in both cases the process group is killed and reaped before
// returning, and every line read so far is part of the Outcome.
type Stream struct {
	Shell   string
	Dir     string
	Env     map[string]string
	MaxWait time.Duration

	// OnLine, when set, sees each line as it arrives. It is called from the
	// goroutine running Run.
	OnLine func(Line)
}

// NewShell returns a Stream runner using the platform shell.
func NewShell(maxWait time.Duration) *Stream {
	return &Stream{
		Shell:   DefaultShell(),
		Env:     map[string]string{"PYTHONIOENCODING": "utf-8"},
		MaxWait: maxWait,
	}
}

func (s *Stream) Run(ctx context.Context, code string) Outcome {
	shell, err := splitCommandLine(s.Shell)
	if err != nil {
		return failure(err.Error(), -1)
	}
	start := time.Now()

	cmd := exec.Command(shell[0], append(shell[1:], code)...)
	cmd.Dir = s.Dir
	cmd.Env = childEnv(s.Env)
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return failure(fmt.Sprintf("Failed to start process: %v", err), -1)
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		return failure(fmt.Sprintf("Failed to start process: %v", err), -1)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return failure(fmt.Sprintf("Failed to start process: %v", err), -1)
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err := cmd.Start(); err != nil {
		for _, f := range []*os.File{outR, outW, errR, errW} {
			f.Close()
		}
		return failure(fmt.Sprintf("Failed to start process: %v", err), -1)
	}
	// The child holds its own copies of the write ends.
	outW.Close()
	errW.Close()
	stdin.Close()

	lines := make(chan Line, 64)
	var readers sync.WaitGroup
	readers.Add(2)
	go readLines(outR, Stdout, lines, &readers)
	go readLines(errR, Stderr, lines, &readers)
	go func() {
		readers.Wait()
		close(lines)
	}()

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	var collected []string
	collect := func(l Line) {
		collected = append(collected, l.Text)
		if s.OnLine != nil {
			s.OnLine(l)
		}
	}

	maxWait := s.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()

	drained, timedOut := false, false
wait:
	for {
		select {
		case l, ok := <-lines:
			if !ok {
				drained = true
				break wait
			}
			collect(l)
		case <-deadline.C:
			timedOut = true
			break wait
		case <-ctx.Done():
			break wait
		}
	}

	var waitErr error
	reaped := false
	if drained {
		select {
		case waitErr = <-exited:
			reaped = true
		case <-time.After(exitGrace):
		}
	}
	// Kill the group even after a clean exit so background children die too.
	_ = killProcessGroup(cmd)
	if !reaped {
		waitErr = <-exited
	}

	if !drained {
		grace := time.NewTimer(drainGrace)
	flush:
		for {
			select {
			case l, ok := <-lines:
				if !ok {
					break flush
				}
				collect(l)
			case <-grace.C:
				// Something outside the group still holds the pipes.
				outR.Close()
				errR.Close()
				for l := range lines {
					collect(l)
				}
				break flush
			}
		}
		grace.Stop()
	}
	outR.Close()
	errR.Close()

	output := strings.Join(collected, "")
	out := outcome(output, maxWait, drained, reaped, timedOut, waitErr, ctx.Err())
	out.Duration = time.Since(start)
	return out
}

func outcome(output string, maxWait time.Duration, drained, reaped, timedOut bool, waitErr, ctxErr error) Outcome {
	switch {
	case timedOut:
		o := failure(appendNote(output, fmt.Sprintf("Process killed after %s", maxWait)), -1)
		o.TimedOut = true
		return o
	case !drained:
		return failure(appendNote(output, fmt.Sprintf("Process cancelled: %v", ctxErr)), -1)
	case !reaped:
		// Streams closed but the process lingered; it was killed.
		return success(output)
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code := exitErr.ExitCode()
		return failure(appendNote(output, fmt.Sprintf("Exit with code: %d", code)), code)
	}
	if waitErr != nil {
		return failure(appendNote(output, waitErr.Error()), -1)
	}
	return success(output)
}

func appendNote(output, note string) string {
	if output == "" {
		return note
	}
	if !strings.HasSuffix(output, "\n") {
		output += "\n"
	}
	return output + note
}

func readLines(r io.Reader, name StreamName, lines chan<- Line, wg *sync.WaitGroup) {
	defer wg.Done()
	br := bufio.NewReader(r)
	for {
		text, err := br.ReadString('\n')
		if text != "" {
			lines <- Line{Stream: name, Text: text}
		}
		if err != nil {
			return
		}
	}
}
