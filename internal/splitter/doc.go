// Package splitter segments free text into speakable chunks. It splits on
// lines and sentence punctuation, keeps headings and paragraph breaks
// intact, and merges undersized pieces up to a target size band.
package splitter
