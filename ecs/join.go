package ecs

import (
	"iter"
	"slices"
)

// JoinInstances left-joins secondary (key, value) pairs onto the primary keys.
//
// For every primary key it yields the matching secondary value, or nil when
// there is none. Both key sequences must be increasing. A secondary sequence
// whose next key is Splat broadcasts its value to every remaining primary key.
// The output always has exactly as many items as primary, in primary's order.
// When the secondary sequence repeats a key only its first occurrence is used.
//
// The returned sequence is single-pass: it pulls from its inputs as it goes.
func JoinInstances[T any](primary, secondaryKeys iter.Seq[InstanceKey], secondaryValues iter.Seq[T]) iter.Seq[*T] {
	return func(yield func(*T) bool) {
		nextKey, stopKeys := iter.Pull(secondaryKeys)
		defer stopKeys()
		nextValue, stopValues := iter.Pull(secondaryValues)
		defer stopValues()

		// Lookahead of one secondary pair.
		var (
			key       InstanceKey
			value     T
			hasNext   bool
			splat     *T
			splatSeen bool
		)
		advance := func() {
			key, hasNext = nextKey()
			if !hasNext {
				return
			}
			if key == Splat {
				return
			}
			var ok bool
			value, ok = nextValue()
			if !ok {
				// Fewer values than keys: treat the secondary as exhausted.
				hasNext = false
			}
		}
		advance()

		for p := range primary {
			for {
				if splatSeen {
					if !yield(splat) {
						return
					}
					break
				}
				if !hasNext {
					if !yield(nil) {
						return
					}
					break
				}
				if key == Splat {
					if v, ok := nextValue(); ok {
						splat = &v
					}
					splatSeen = true
					continue
				}
				if p < key {
					if !yield(nil) {
						return
					}
					break
				}
				if p == key {
					v := value
					advance()
					if !yield(&v) {
						return
					}
					break
				}
				advance()
			}
		}
	}
}

// JoinComponent joins values against primary, decoding the values of ci.
func JoinComponent[T Codec[T]](primary iter.Seq[InstanceKey], ci *ComponentInstances) (iter.Seq[*T], error) {
	values, err := ToNative[T](ci.Values())
	if err != nil {
		return nil, err
	}
	return JoinInstances(primary, ci.IterKeys(), slices.Values(values)), nil
}
