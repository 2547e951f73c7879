// Package stream implements the ordered, unidirectional, capacity-bounded
// integer streams that connect sieve stages.
//
// A stream has exactly one writer and one reader. The writer appends
// records with Write, blocking while the buffer is full, and calls Close
// exactly once after its last record. The reader pulls records with Read
// and observes end-of-stream as (0, false, nil), a signal that is distinct
// from every record value and from every error.
//
// Two transports are provided:
//
//   - Chan: an in-process buffered channel.
//   - Pipe: an OS pipe carrying fixed-width little-endian records. A short
//     read inside a record is reported as a FRAMING_ERROR, never as
//     end-of-stream.
//
// Both unblock on context cancellation and report it as a CANCELED error.
package stream
