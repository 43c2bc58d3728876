package realtime

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// STOMP 1.2 commands used by the notification channel.
const (
	CmdConnect     = "CONNECT"
	CmdConnected   = "CONNECTED"
	CmdSubscribe   = "SUBSCRIBE"
	CmdUnsubscribe = "UNSUBSCRIBE"
	CmdMessage     = "MESSAGE"
	CmdReceipt     = "RECEIPT"
	CmdError       = "ERROR"
	CmdDisconnect  = "DISCONNECT"
)

// Subprotocol is the WebSocket subprotocol name for STOMP 1.2.
const Subprotocol = "v12.stomp"

var errIncompleteFrame = errors.New("stomp: incomplete frame")

// Frame is one STOMP frame. Repeated headers keep their first value.
type Frame struct {
	Command string
	Headers map[string]string
	Body    []byte
}

func NewFrame(command string, headers map[string]string) Frame {
	if headers == nil {
		headers = map[string]string{}
	}
	return Frame{Command: command, Headers: headers}
}

func (f Frame) Header(name string) string {
	return f.Headers[name]
}

// escapes reports whether header values of this frame use STOMP escaping.
// CONNECT and CONNECTED are exempt.
func (f Frame) escapes() bool {
	return f.Command != CmdConnect && f.Command != CmdConnected
}

// Encode renders the frame with headers in sorted order.
func (f Frame) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte('\n')

	keys := make([]string, 0, len(f.Headers))
	for k := range f.Headers {
		if k == "content-length" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := f.Headers[k]
		if f.escapes() {
			k, v = escapeHeader(k), escapeHeader(v)
		}
		buf.WriteString(k)
		buf.WriteByte(':')
		buf.WriteString(v)
		buf.WriteByte('\n')
	}
	if len(f.Body) > 0 {
		buf.WriteString("content-length:")
		buf.WriteString(strconv.Itoa(len(f.Body)))
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// Decode parses every frame in data. Heart-beat end-of-lines between frames
// are skipped, so a heart-beat-only message yields no frames.
func Decode(data []byte) ([]Frame, error) {
	var frames []Frame
	for {
		data = skipEOLs(data)
		if len(data) == 0 {
			return frames, nil
		}
		frame, rest, err := decodeOne(data)
		if err != nil {
			return frames, err
		}
		frames = append(frames, frame)
		data = rest
	}
}

func decodeOne(data []byte) (Frame, []byte, error) {
	line, data, ok := cutLine(data)
	if !ok {
		return Frame{}, nil, errIncompleteFrame
	}
	frame := NewFrame(string(line), nil)
	if frame.Command == "" {
		return Frame{}, nil, errors.New("stomp: empty command")
	}

	for {
		line, data, ok = cutLine(data)
		if !ok {
			return Frame{}, nil, errIncompleteFrame
		}
		if len(line) == 0 {
			break
		}
		key, value, found := strings.Cut(string(line), ":")
		if !found {
			return Frame{}, nil, fmt.Errorf("stomp: malformed header %q", line)
		}
		if frame.escapes() {
			var err error
			if key, err = unescapeHeader(key); err != nil {
				return Frame{}, nil, err
			}
			if value, err = unescapeHeader(value); err != nil {
				return Frame{}, nil, err
			}
		}
		if _, seen := frame.Headers[key]; !seen {
			frame.Headers[key] = value
		}
	}

	if raw, ok := frame.Headers["content-length"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Frame{}, nil, fmt.Errorf("stomp: bad content-length %q", raw)
		}
		if n >= len(data) || data[n] != 0 {
			return Frame{}, nil, errIncompleteFrame
		}
		frame.Body = append([]byte(nil), data[:n]...)
		return frame, data[n+1:], nil
	}

	end := bytes.IndexByte(data, 0)
	if end < 0 {
		return Frame{}, nil, errIncompleteFrame
	}
	frame.Body = append([]byte(nil), data[:end]...)
	return frame, data[end+1:], nil
}

func cutLine(data []byte) (line, rest []byte, ok bool) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return nil, nil, false
	}
	line = data[:i]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, data[i+1:], true
}

func skipEOLs(data []byte) []byte {
	for len(data) > 0 && (data[0] == '\n' || data[0] == '\r') {
		data = data[1:]
	}
	return data
}

var headerEscaper = strings.NewReplacer(`\`, `\\`, "\r", `\r`, "\n", `\n`, ":", `\c`)

func escapeHeader(s string) string {
	return headerEscaper.Replace(s)
}

func unescapeHeader(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 >= len(s) {
			return "", fmt.Errorf("stomp: dangling escape in %q", s)
		}
		i++
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		case 'c':
			b.WriteByte(':')
		default:
			return "", fmt.Errorf("stomp: undefined escape \\%c", s[i])
		}
	}
	return b.String(), nil
}
