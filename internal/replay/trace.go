// Package replay runs recorded pose traces through the tracker, either
// in-process or against a running server.
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/meltforce/curlcoach/internal/pose"
)

// Line is one trace record: the frame and when it was captured.
type Line struct {
	T     time.Time  `json:"t"`
	Frame pose.Frame `json:"frame"`
}

// maxLineBytes bounds a single JSONL record.
const maxLineBytes = 1 << 20

// ReadTrace parses a JSON Lines trace. Blank lines are skipped. Timestamps
// must not go backwards and every frame must pass pose validation.
func ReadTrace(r io.Reader) ([]Line, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	var lines []Line
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var l Line
		if err := json.Unmarshal([]byte(text), &l); err != nil {
			return nil, fmt.Errorf("trace line %d: %w", n, err)
		}
		if l.T.IsZero() {
			return nil, fmt.Errorf("trace line %d: missing timestamp", n)
		}
		if err := l.Frame.Validate(); err != nil {
			return nil, fmt.Errorf("trace line %d: %w", n, err)
		}
		if len(lines) > 0 && l.T.Before(lines[len(lines)-1].T) {
			return nil, fmt.Errorf("trace line %d: timestamp %s goes back in time", n, l.T.Format(time.RFC3339Nano))
		}
		lines = append(lines, l)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	return lines, nil
}

// WriteTrace writes lines as JSON Lines.
func WriteTrace(w io.Writer, lines []Line) error {
	enc := json.NewEncoder(w)
	for i, l := range lines {
		if err := enc.Encode(l); err != nil {
			return fmt.Errorf("writing trace line %d: %w", i+1, err)
		}
	}
	return nil
}
