package cmd

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestRunDemoWalksEveryDirection(t *testing.T) {
	original := demoItemID
	t.Cleanup(func() {
		demoItemID = original
	})
	demoItemID = 7

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	var runErr error
	output := captureStdout(t, func() {
		runErr = runDemo(log)
	})
	if runErr != nil {
		t.Fatalf("runDemo error: %v", runErr)
	}

	wantLines := []string{
		"main received log: [left] panel booted",
		"left fetched: Item 7",
		"right fetched: Item 8",
		"right window received push: refresh ready",
		"demo complete",
	}
	for _, want := range wantLines {
		if !strings.Contains(output, want) {
			t.Fatalf("demo output missing %q\noutput:\n%s", want, output)
		}
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	original := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("create pipe: %v", err)
	}

	os.Stdout = w

	outCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		var builder strings.Builder
		_, copyErr := io.Copy(&builder, r)
		if copyErr != nil {
			errCh <- copyErr
			return
		}
		outCh <- builder.String()
	}()

	fn()

	_ = w.Close()
	os.Stdout = original

	select {
	case copyErr := <-errCh:
		_ = r.Close()
		t.Fatalf("read captured stdout: %v", copyErr)
	case output := <-outCh:
		_ = r.Close()
		return output
	}

	return ""
}
