package roster

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between records and Redis hashes.
//
// Scalar fields map to individual hash fields. Nested references (homeworld,
// master, apprentice) are JSON-encoded into a single field each; an absent
// reference is stored as an empty string.

// RecordToHash converts a Record to a Redis hash.
func RecordToHash(r *Record) (map[string]interface{}, error) {
	homeworld, err := encodeRef(r.Homeworld)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal homeworld: %w", err)
	}

	master, err := encodeRef(r.Master)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal master: %w", err)
	}

	apprentice, err := encodeRef(r.Apprentice)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal apprentice: %w", err)
	}

	hash := map[string]interface{}{
		"id":         r.ID,
		"name":       r.Name,
		"homeworld":  homeworld,
		"master":     master,
		"apprentice": apprentice,
	}

	return hash, nil
}

// HashToRecord converts a Redis hash back to a Record.
func HashToRecord(hash map[string]string) (*Record, error) {
	id, err := strconv.Atoi(hash["id"])
	if err != nil {
		return nil, fmt.Errorf("invalid id field: %w", err)
	}

	record := &Record{
		ID:   id,
		Name: hash["name"],
	}

	if raw := hash["homeworld"]; raw != "" {
		record.Homeworld = &Homeworld{}
		if err := json.Unmarshal([]byte(raw), record.Homeworld); err != nil {
			return nil, fmt.Errorf("failed to unmarshal homeworld: %w", err)
		}
	}

	if raw := hash["master"]; raw != "" {
		record.Master = &Link{}
		if err := json.Unmarshal([]byte(raw), record.Master); err != nil {
			return nil, fmt.Errorf("failed to unmarshal master: %w", err)
		}
	}

	if raw := hash["apprentice"]; raw != "" {
		record.Apprentice = &Link{}
		if err := json.Unmarshal([]byte(raw), record.Apprentice); err != nil {
			return nil, fmt.Errorf("failed to unmarshal apprentice: %w", err)
		}
	}

	return record, nil
}

// encodeRef JSON-encodes a nested reference, or returns "" for nil.
func encodeRef[T any](ref *T) (string, error) {
	if ref == nil {
		return "", nil
	}
	data, err := json.Marshal(ref)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
