package domain

// SourceID identifies a server log source. It is parsed from the log file name
// (e.g. "5.log" -> 5) and used to scope triggers to specific servers.
type SourceID uint32

// ExtractedLine is the single line selected from a read cycle of one file
type ExtractedLine struct {
	Path      string
	Source    SourceID
	HasSource bool // false when the file name is not numeric
	Text      string
}
