// Package cleaner runs the annoyance removal pipeline for one episode.
//
// The episode is decoded once. Its native clip is kept for editing while a
// mono copy is transformed into the spectrogram every snippet is scanned
// against. Snippets are decoded, transformed, and scanned on a bounded worker
// pool; their match lists are merged once into the deletion plan, which the
// exciser then removes from the clip.
//
// Snippet load failures follow Options.SnippetErrors: "fail" aborts the
// episode with an error naming the snippet, "skip" records the snippet in
// Result.SkippedSnippets and carries on. An episode that cannot be decoded is
// always fatal.
package cleaner
