// Package flatfile provides a generic store persisting records as delimited text lines.
//
// # Overview
//
// The package centers around [Store], a generic container that keeps one
// record per line in a UTF-8 text file. A [Codec] converts between a record
// and its line. The first line of the file is a header naming the columns.
//
// # Persistence model
//
// Nothing is cached between calls: every operation loads the whole file and
// every mutation rewrites it entirely. The file is therefore the only source
// of truth and callers always observe a complete view of it.
//
// Identity values are assigned by the store as the highest id present in the
// file plus one, computed once by [Store.Init] and then advanced in memory.
// The process owning a Store is assumed to be the only writer of its file for
// the lifetime of the Store.
//
// # Damaged lines
//
// A line that cannot be decoded is skipped and logged; the rest of the file
// still loads. The errors of the most recent load are available from
// [Store.Diagnostics]. A Codec can instead fail the whole load by wrapping
// [ErrAbort].
//
// # File Format
//
//	id;title;author;copiesAvailable;copiesTotal
//	1;1984;George Orwell;2;2
//
// Columns are separated by ';'. Text columns go through [Escape] before being
// written so they can never contain the delimiter or a line break.
package flatfile
