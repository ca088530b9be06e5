package execrunner

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunEcho(t *testing.T) {
	res, err := Run(context.Background(), Request{
		Interpreter:    "/bin/echo",
		Path:           "hi",
		TimeoutMS:      2000,
		MaxOutputBytes: 65536,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RC != 0 {
		t.Fatalf("expected rc 0, got %d", res.RC)
	}
	if res.Stdout != "hi\n" {
		t.Fatalf("expected stdout %q, got %q", "hi\n", res.Stdout)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	res, err := Run(context.Background(), Request{
		Interpreter:    "/bin/sh -c",
		Path:           "exit 3",
		TimeoutMS:      2000,
		MaxOutputBytes: 65536,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RC != 3 {
		t.Fatalf("expected rc 3, got %d", res.RC)
	}
}

func TestRunTimeout(t *testing.T) {
	res, err := Run(context.Background(), Request{
		Interpreter:    "/bin/sh -c",
		Path:           "trap '' TERM; sleep 30",
		TimeoutMS:      200,
		MaxOutputBytes: 65536,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RC != 124 {
		t.Fatalf("expected rc 124 on timeout, got %d", res.RC)
	}
	if res.ElapsedMS > 2000 {
		t.Fatalf("elapsed too large: %dms", res.ElapsedMS)
	}
}

func TestRunOutputCap(t *testing.T) {
	res, err := Run(context.Background(), Request{
		Interpreter:    "/bin/sh -c",
		Path:           "yes x | head -c 100",
		TimeoutMS:      2000,
		MaxOutputBytes: 10,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Stdout) > 10 {
		t.Fatalf("expected stdout capped at 10 bytes, got %d", len(res.Stdout))
	}
}

func TestSplitInterpreter(t *testing.T) {
	got := splitInterpreter("/bin/sh -c")
	want := []string{"/bin/sh", "-c"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRunElapsedMonotonic(t *testing.T) {
	start := time.Now()
	_, err := Run(context.Background(), Request{
		Interpreter:    "/bin/sh -c",
		Path:           "sleep 0.1",
		TimeoutMS:      2000,
		MaxOutputBytes: 65536,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if time.Since(start) < 90*time.Millisecond {
		t.Fatal("expected the command to actually sleep")
	}
}
