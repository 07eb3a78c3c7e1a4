// Package catalog holds the read-only configuration tables the detection engine runs
// against: the PatternCatalog (categories of textual match rules with a base confidence
// weight) and the PlaceholderVocabulary (keyword to canonical {{NAME}} lookups).
//
// Both are built once, either from the bundled defaults or from a YAML file, and are
// never mutated afterwards. A new run may be handed a different catalog, but a catalog
// in use is safe for concurrent reads without locking.
package catalog
