package cache

import (
	"strings"
	"testing"
)

func TestRunKey_Hash(t *testing.T) {
	base := RunKey{Mode: "textbook", Nodes: 64, Arcs: 256, Seed: 0xCAFEBABE, Iterations: 50, RefreshInterval: 10}

	if base.Hash() != base.Hash() {
		t.Fatal("hash must be deterministic")
	}
	if len(base.Hash()) != 32 {
		t.Errorf("hash length = %d, want 32", len(base.Hash()))
	}

	variants := []RunKey{base, base, base, base, base, base, base}
	variants[0].Mode = "reference"
	variants[1].Nodes = 65
	variants[2].Arcs = 257
	variants[3].Seed = 1
	variants[4].Iterations = 51
	variants[5].PrimePotentials = true
	variants[6].Trace = true

	seen := map[string]int{base.Hash(): -1}
	for i, v := range variants {
		h := v.Hash()
		if prev, ok := seen[h]; ok {
			t.Errorf("variant %d collides with %d", i, prev)
		}
		seen[h] = i
	}
}

func TestBuildRunKey(t *testing.T) {
	k := RunKey{Mode: "reference", Nodes: 64, Arcs: 256, Seed: 7, Iterations: 50}
	key := BuildRunKey(k)

	if !strings.HasPrefix(key, RunPrefix+"reference:") {
		t.Errorf("key %s has unexpected prefix", key)
	}
	if !strings.HasSuffix(key, k.Hash()) {
		t.Errorf("key %s does not end with hash", key)
	}
}
