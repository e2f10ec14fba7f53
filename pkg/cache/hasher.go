package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// RunPrefix префикс ключей результатов прогона
const RunPrefix = "run:"

// RunKey параметры, полностью определяющие результат прогона.
// Прогоны с переносом состояния между запусками не кэшируются.
type RunKey struct {
	Mode            string
	Nodes           int
	Arcs            int
	Seed            uint32
	Iterations      int
	RefreshInterval int
	PrimePotentials bool
	Trace           bool
}

// canonical детерминированное представление ключа
func (k RunKey) canonical() string {
	var b strings.Builder
	b.WriteString("m:")
	b.WriteString(k.Mode)
	b.WriteString(";n:")
	b.WriteString(strconv.Itoa(k.Nodes))
	b.WriteString(";a:")
	b.WriteString(strconv.Itoa(k.Arcs))
	b.WriteString(";s:")
	b.WriteString(strconv.FormatUint(uint64(k.Seed), 16))
	b.WriteString(";i:")
	b.WriteString(strconv.Itoa(k.Iterations))
	b.WriteString(";r:")
	b.WriteString(strconv.Itoa(k.RefreshInterval))
	b.WriteString(";p:")
	b.WriteString(strconv.FormatBool(k.PrimePotentials))
	b.WriteString(";t:")
	b.WriteString(strconv.FormatBool(k.Trace))
	return b.String()
}

// Hash sha256 канонического представления, первые 16 байт в hex
func (k RunKey) Hash() string {
	sum := sha256.Sum256([]byte(k.canonical()))
	return hex.EncodeToString(sum[:16])
}

// BuildRunKey строит ключ кэша: run:<mode>:<hash>
func BuildRunKey(k RunKey) string {
	return fmt.Sprintf("%s%s:%s", RunPrefix, k.Mode, k.Hash())
}
