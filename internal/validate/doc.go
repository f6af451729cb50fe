// Package validate re-checks containers independently of the codec and
// measures how reliably that check catches corruption.
//
// Packet derives every layout invariant from raw words and the buffer
// length the caller holds, then applies the profile's fixed row widths.
// Conformance flips single bits of a known-good packet with a seeded
// xorshift32 stream and reports how many mutants were rejected. The result
// is statistical; some flips preserve every invariant.
package validate
