// Package chatclient folds a chat turn's event stream into renderable
// conversation state.
//
// The server pushes records of the form "event: <kind>\ndata:
// <payload>\n\n". Network chunks are not aligned to record boundaries,
// so the reducer buffers raw bytes and only acts on complete records.
//
// Example:
//
//	red := chatclient.NewReducer()
//	defer red.Fail() // synthesizes a fallback message if nothing arrived
//	if err := red.Consume(resp.Body); err != nil {
//	    return err
//	}
//	conv := red.Conversation()
package chatclient

import (
	"bytes"
	"strings"
)

// splitRecords extracts the complete records from buf. A record ends at
// a blank line; the trailing partial record, if any, is returned as
// rest for the caller to carry into the next chunk.
func splitRecords(buf []byte) (records [][]byte, rest []byte) {
	for {
		idx := bytes.Index(buf, []byte("\n\n"))
		if idx < 0 {
			return records, buf
		}
		records = append(records, buf[:idx])
		buf = buf[idx+2:]
	}
}

// parseRecord decodes one record. Consecutive data lines join with a
// newline. Records without a recognized event line report ok=false and
// are dropped by the caller.
func parseRecord(rec []byte) (ev Event, ok bool) {
	var data []string
	for _, line := range strings.Split(string(rec), "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case strings.HasPrefix(line, "event: "):
			ev.Kind = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(line, "data:"))
		}
	}
	if ev.Kind == "" {
		return Event{}, false
	}
	ev.Data = strings.Join(data, "\n")
	return ev, true
}
