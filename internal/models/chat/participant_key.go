package chat

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strconv"

	"github.com/samber/lo"
)

// NormalizeParticipants убирает пустые id и дубли, сортирует результат.
func NormalizeParticipants(ids []string) []string {
	out := lo.Uniq(lo.Compact(ids))
	slices.Sort(out)
	return out
}

// ParticipantKey - канонический ключ набора участников.
// Не зависит от порядка и повторов; каждый id префиксуется длиной,
// чтобы разные наборы не склеивались в одну строку.
func ParticipantKey(ids []string) string {
	h := sha256.New()
	for _, id := range NormalizeParticipants(ids) {
		h.Write([]byte(strconv.Itoa(len(id))))
		h.Write([]byte{':'})
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil))
}
