package openai

import (
	"bufio"
	"io"
	"strings"
)

// maxSSELine bounds a single data line; tool-call argument deltas can be long.
const maxSSELine = 1 << 20

// streamSSE calls onEvent for every complete server-sent event in r. Events
// without data are skipped and an error from onEvent ends the read.
func streamSSE(r io.Reader, onEvent func(event string, data string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxSSELine)

	var name string
	var data []string
	dispatch := func() error {
		ev, payload := name, strings.Join(data, "\n")
		has := len(data) > 0
		name, data = "", data[:0]
		if !has || onEvent == nil {
			return nil
		}
		return onEvent(ev, payload)
	}

	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			if err := dispatch(); err != nil {
				return err
			}
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimSpace(value)
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return dispatch()
}
