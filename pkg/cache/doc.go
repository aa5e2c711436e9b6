// Package cache provides optional Redis-backed memoization of extraction
// results.
//
// Extraction is expensive server-side. When the cache is enabled, a
// successful result is stored keyed by the document's content digest, the
// target service, and the option set; a later run over the same bytes with
// the same settings writes the cached body without contacting the server.
// The cache is entirely optional: the processing pipeline treats a nil
// Manager as a permanent miss.
package cache
