// File: internal/ingest/ingest.go
// Description: Decodes scanner output into the finding schema. Accepts either
// a bare JSON array of findings or an envelope object with a "findings" key,
// and normalizes the free-form severity and confidence vocabularies the
// scanner fleet emits.

package ingest

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/Jai3405/vulntriage/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// envelope is the wrapped input shape some scanners emit.
type envelope struct {
	Findings []schemas.Finding `json:"findings"`
}

// ReadFile decodes the findings file at path. "-" reads stdin.
func ReadFile(path string) ([]schemas.Finding, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading findings input: %w", err)
	}
	return Decode(data)
}

// Decode parses findings from raw JSON, trying the bare-array shape first and
// the envelope shape second.
func Decode(data []byte) ([]schemas.Finding, error) {
	var findings []schemas.Finding
	if err := json.Unmarshal(data, &findings); err == nil {
		normalize(findings)
		return findings, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding findings JSON: %w", err)
	}
	normalize(env.Findings)
	return env.Findings, nil
}

// normalize maps the scanners' severity and confidence vocabularies onto the
// canonical levels. Values with no known alias pass through unchanged; the
// downstream ordinal encodings treat them conservatively.
func normalize(findings []schemas.Finding) {
	for i := range findings {
		if sev, ok := schemas.ParseSeverity(string(findings[i].Severity)); ok {
			findings[i].Severity = sev
		}
		if conf, ok := schemas.ParseConfidence(string(findings[i].Confidence)); ok {
			findings[i].Confidence = conf
		}
	}
}
