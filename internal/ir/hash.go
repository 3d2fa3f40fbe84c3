package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed digests.
// Version suffix enables future algorithm migration.
const (
	DomainQuery = "lazyset/query/v1"
	DomainModel = "lazyset/model/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// QueryDigest computes a digest of a compiled statement and its parameters.
// Used to correlate log lines and scenario traces with the SQL that ran.
func QueryDigest(sql string, params []any) (string, error) {
	args := make(IRArray, len(params))
	for i, p := range params {
		v, err := FromNative(p)
		if err != nil {
			return "", fmt.Errorf("QueryDigest: param %d: %w", i, err)
		}
		if _, isNull := v.(IRNull); isNull {
			// canonical JSON has no null; encode as a tagged marker
			v = IRObject{"null": IRBool(true)}
		}
		args[i] = v
	}

	canonical, err := MarshalCanonical(IRObject{
		"sql":    IRString(sql),
		"params": args,
	})
	if err != nil {
		return "", fmt.Errorf("QueryDigest: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainQuery, canonical), nil
}

// DefinitionDigest computes a stable digest of an entity type definition.
// The store records it so a database seeded from one set of models is not
// silently reused with another.
func DefinitionDigest(def IRObject) (string, error) {
	canonical, err := MarshalCanonical(def)
	if err != nil {
		return "", fmt.Errorf("DefinitionDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainModel, canonical), nil
}
