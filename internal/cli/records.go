package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"
)

// readRecords reads rows from a YAML or JSON file. A file may hold several YAML documents,
// and a document that is a list contributes each of its items. Every row must be an object.
func readRecords(filename string) ([]map[string]any, error) {
	var data []byte
	var err error
	if filename == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(filename)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	data = bytes.ReplaceAll(data, []byte("\t"), []byte("  "))
	data, err = expandEnv(data)
	if err != nil {
		return nil, err
	}
	return parseRecords(data)
}

func parseRecords(data []byte) ([]map[string]any, error) {
	content := strings.TrimSpace(string(data))
	if len(content) == 0 || strings.Trim(content, "- \n\t") == "" {
		return []map[string]any{}, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	result := []map[string]any{}
	for {
		var doc any
		if err := decoder.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode records: %w", err)
		}
		switch v := doc.(type) {
		case nil:
			// empty document, common with a trailing ---
		case map[string]any:
			result = append(result, v)
		case []any:
			for i, item := range v {
				row, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("record %d is not an object", i)
				}
				result = append(result, row)
			}
		default:
			return nil, fmt.Errorf("records must be objects, got %T", doc)
		}
	}
	return result, nil
}

// buildRecord assembles one JSON object from key=value assignments. Keys are sjson paths, so
// "address.city=Paris" sets a nested field. Values that parse as JSON keep their type;
// anything else is a string.
func buildRecord(assignments []string) ([]byte, error) {
	record := []byte("{}")
	for _, a := range assignments {
		key, value, ok := strings.Cut(a, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected key=value", a)
		}
		var err error
		if json.Valid([]byte(value)) {
			record, err = sjson.SetRawBytes(record, key, []byte(value))
		} else {
			record, err = sjson.SetBytes(record, key, value)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid assignment %q: %w", a, err)
		}
	}
	return record, nil
}
