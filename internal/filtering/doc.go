// Package filtering selects registry field names with include and exclude
// glob patterns.
//
// Exclude patterns take precedence. With include patterns a field must match
// at least one of them; without any every field not excluded is selected.
// Patterns use gobwas/glob syntax, for example "vervaldatum_*" or "*_dt".
package filtering
