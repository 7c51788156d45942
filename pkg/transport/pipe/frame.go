// Package pipe implements the transport boundary across a process boundary:
// newline-delimited JSON frames over a byte-stream pair, typically the stdio
// pipes of a spawned child. One side runs a MainEndpoint, the other a
// RendererEndpoint; requests correlate to responses by id.
package pipe

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

const (
	initialScanSize = 64 * 1024
	maxFrameSize    = 1024 * 1024
)

// ErrEndpointClosed reports use of an endpoint whose Run has ended.
var ErrEndpointClosed = errors.New("pipe: endpoint closed")

type frameType string

const (
	frameRequest  frameType = "request"
	frameResponse frameType = "response"
	frameEvent    frameType = "event"
)

// frame is the wire envelope. Requests carry id+channel+payload, responses
// echo the id with payload or error, events carry channel+payload.
type frame struct {
	Type    frameType       `json:"type"`
	ID      string          `json:"id,omitempty"`
	Channel string          `json:"channel,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// readFrames scans newline-delimited frames into out until EOF, a read
// error, or stop closes. Blank lines and lines that do not decode are
// skipped.
func readFrames(reader io.Reader, out chan<- frame, stop <-chan struct{}, log *slog.Logger) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, initialScanSize), maxFrameSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var f frame
		if err := json.Unmarshal(line, &f); err != nil {
			log.Debug("Dropping malformed frame", "error", err)
			continue
		}

		select {
		case out <- f:
		case <-stop:
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan frames: %w", err)
	}

	return nil
}
