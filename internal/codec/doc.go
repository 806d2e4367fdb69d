// Package codec holds the named transforms a Transformer applies to keys and
// values. Codecs are registered once at init time and looked up by name when a
// store is built; a codec either round-trips (Decode(Encode(x)) == x) or is
// one-way, in which case Decode reports ErrNotInvertible.
package codec
