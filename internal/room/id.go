package room

import (
	"encoding/binary"
	"hash/fnv"
	"strconv"
	"strings"
	"unicode"

	"github.com/bloops-games/stockrush/internal/apperr"
	"github.com/bloops-games/stockrush/internal/rng"
)

const (
	minIDLen = 3
	maxIDLen = 12
	genIDLen = 6
)

// NormalizeID returns the canonical room key: trimmed and upper case.
func NormalizeID(raw string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(raw))
	if len(id) < minIDLen || len(id) > maxIDLen {
		return "", apperr.Validation("room id", "%q must have %d to %d characters", raw, minIDLen, maxIDLen)
	}
	for _, r := range id {
		if r > unicode.MaxASCII || !(unicode.IsDigit(r) || unicode.IsLetter(r)) {
			return "", apperr.Validation("room id", "%q must be alphanumeric", raw)
		}
	}
	return id, nil
}

// GenerateID returns a fresh six character code.
func GenerateID(src rng.Source) string {
	var buf [8]byte
	binary.BigEndian.PutUint32(buf[:4], src.Uint32n(1<<31))
	binary.BigEndian.PutUint32(buf[4:], src.Uint32n(1<<31))

	h := fnv.New64a()
	_, _ = h.Write(buf[:])

	code := strings.ToUpper(strconv.FormatUint(h.Sum64(), 36))
	for len(code) < genIDLen {
		code = "0" + code
	}
	return code[:genIDLen]
}
