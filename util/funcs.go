package util

import (
	"iter"
	"slices"

	"github.com/hashicorp/go-set/v3"
)

func SlicesEquivalent[A set.Hash, B, BB set.Hasher[A]](fst []B, snd []BB) bool {
	return slices.EqualFunc(fst, snd, func(e1 B, e2 BB) bool {
		return e1.Hash() == e2.Hash()
	})
}

func MapIter[A, B any](it iter.Seq[A], f func(A) B) iter.Seq[B] {
	return func(yield func(B) bool) {
		for v := range it {
			if !yield(f(v)) {
				return
			}
		}
	}
}

func SetFromSeq[V comparable](s iter.Seq[V], size int) *set.Set[V] {
	newSet := set.New[V](size)
	for item := range s {
		newSet.Insert(item)
	}
	return newSet
}
