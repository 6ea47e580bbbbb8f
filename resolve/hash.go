package resolve

import (
	"cmp"
	"encoding/binary"
	"maps"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/plus3/cellquery/ecs"
)

// Tags separating the contributions of each result set to a query hash.
const (
	tagOverrides byte = iota + 1
	tagResults
	tagDefaults
	tagBootstrap
	tagTiers
)

func sortedNames[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

func hashLatestAt(d *xxhash.Digest, tag byte, results *ecs.LatestAtResults) {
	_, _ = d.Write([]byte{tag})
	for _, name := range results.Names() {
		u, _ := results.Get(name)
		_, _ = d.WriteString(string(name))
		_, _ = d.Write(u.Index.RowID[:])
	}
}

func hashRange(d *xxhash.Digest, tag byte, results *ecs.RangeResults) {
	_, _ = d.Write([]byte{tag})
	for _, name := range results.Names() {
		chunks, _ := results.Get(name)
		_, _ = d.WriteString(string(name))
		for _, chunk := range chunks {
			for id := range chunk.RowIDs() {
				_, _ = d.Write(id[:])
			}
		}
	}
}

func hashTiers(d *xxhash.Digest, tiers TierMap) {
	var buf [9]byte
	buf[0] = tagTiers
	binary.LittleEndian.PutUint64(buf[1:], tiers.Hash())
	_, _ = d.Write(buf[:])
}
