package corpus

// Document is one corpus file, identified by its file stem.
type Document struct {
	Source  string
	Content string
}
