// Package cache stores synthesized audio so repeated text is not sent to
// the engine again. It has an in-memory LRU level (L1) and a zstd
// compressed disk level (L2) that survives restarts.
package cache
