package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain prefix for run digests. Version suffix enables future algorithm
// migration without colliding with old rows.
const digestDomain = "orbitkit/run/v1"

// ParamsDigest computes the content digest that identifies one evaluation:
// SHA-256 over the command name and the JSON-encoded parameters, with a
// null-separated domain prefix to prevent boundary ambiguity.
//
// Determinism relies on encoding/json: struct fields serialize in
// declaration order and map keys are sorted, so equal parameter values
// always produce equal digests.
func ParamsDigest(command string, params any) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("digest params: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(digestDomain))
	h.Write([]byte{0x00})
	h.Write([]byte(command))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
