package adapter

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/errors"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

// DumpMarker delimits the counter dump in a runtime log.
const DumpMarker = "__COVPATCH__"

// ErrNoDump is returned when a log carries no counter dump.
var ErrNoDump = errors.New("no coverage dump found")

// ReadDump reads a runtime log and extracts its counter dump.
func ReadDump(r io.Reader) (m.Dump, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read runtime log")
	}

	return ParseDump(data)
}

// ParseDump extracts the JSON between the first marker and the next one, or
// the end of the log when the closing marker is missing.
func ParseDump(log []byte) (m.Dump, error) {
	marker := []byte(DumpMarker)

	start := bytes.Index(log, marker)
	if start < 0 {
		return nil, ErrNoDump
	}

	payload := log[start+len(marker):]
	if end := bytes.Index(payload, marker); end >= 0 {
		payload = payload[:end]
	}

	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, ErrNoDump
	}

	var dump m.Dump
	if err := json.Unmarshal(payload, &dump); err != nil {
		return nil, errors.Wrap(err, "malformed coverage dump")
	}

	if dump == nil {
		dump = m.Dump{}
	}

	return dump, nil
}
