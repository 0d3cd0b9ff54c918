package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainScript = "wtas/script/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ScriptHash computes the content-addressed identity of a validated script.
// Two scripts that play back identically hash identically, regardless of
// comments, whitespace or relative tick notation in their source.
func ScriptHash(s *Script) (string, error) {
	lines := make(IRArray, len(s.Lines))
	for i, line := range s.Lines {
		obj := IRObject{
			"tick": IRInt(line.Tick),
			"keys": IRString(line.Keys),
		}
		if line.Mouse != nil {
			obj["mouse"] = IRArray{IRInt(line.Mouse.X), IRInt(line.Mouse.Y)}
		}
		if line.Tool != nil {
			obj["tool"] = IRObject{
				"kind": IRInt(line.Tool.Kind),
				"args": IRArray{
					floatString(line.Tool.Position.X),
					floatString(line.Tool.Position.Y),
					floatString(line.Tool.Position.Z),
					floatString(line.Tool.Angle.X),
					floatString(line.Tool.Angle.Y),
				},
			}
		}
		lines[i] = obj
	}

	canonical, err := MarshalCanonical(IRObject{
		"version": IRInt(s.Version),
		"start": IRObject{
			"kind": IRString(s.Start.Kind.String()),
			"path": IRString(s.Start.Path),
		},
		"lines": lines,
	})
	if err != nil {
		return "", fmt.Errorf("ScriptHash: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainScript, canonical), nil
}

func floatString(f float32) IRString {
	return IRString(strconv.FormatFloat(float64(f), 'g', -1, 32))
}
