// Package schema owns the operation table: its CUE source, the schema
// packet encoding, and the read-only Snapshot the dispatcher consults.
//
// The table is authored in ops.cue (embedded), compiled with the CUE Go
// API, written by Build as a schema-profile container and read back at
// startup with LoadFile. A packet that fails to decode or load is fatal to
// startup; nothing partial is ever served.
package schema
