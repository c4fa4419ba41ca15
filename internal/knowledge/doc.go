// Package knowledge provides the in-process lookup index over learned
// Q&A entries. The durable store is the source of truth; the index is a
// refreshable snapshot tuned for fast similarity matching on the hot
// path of every caller utterance.
package knowledge
