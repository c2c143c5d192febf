// internal/task/identity.go
package task

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// descriptor is the canonical signature hashed into a task id. encoding/json
// emits struct fields in declaration order and sorts map keys, so marshaling
// this shape yields a stable byte string for a given name and parameter set.
type descriptor struct {
	TaskName   string `json:"task_name"`
	TaskParams any    `json:"task_params"`
}

// Identify derives the content-addressed id for a task: the lowercase hex MD5
// of the canonicalized descriptor. Two submissions with the same name and the
// same parameters, regardless of key order, always map to the same id. The
// digest is a dedup key, not a security boundary.
func Identify(taskName string, taskParams json.RawMessage) (string, error) {
	params, err := decodeCanonical(taskParams)
	if err != nil {
		return "", fmt.Errorf("invalid task params: %w", err)
	}

	data, err := json.Marshal(descriptor{TaskName: taskName, TaskParams: params})
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize descriptor: %w", err)
	}

	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

// decodeCanonical parses params preserving numeric literals as written, so
// that re-encoding is deterministic (1 stays 1, 1.50 stays 1.50).
func decodeCanonical(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
