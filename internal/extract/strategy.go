package extract

import "context"

// Input is one uploaded document: its raw bytes plus the media type the
// client declared, which may be empty or wrong.
type Input struct {
	Data         []byte
	DeclaredMIME string
}

// Strategy is implemented by every extraction backend. A strategy that finds
// no text returns an empty string; an error means the strategy could not run
// at all. Either way the cascade moves on to the next strategy.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, in Input) (string, error)
}

// Extraction is the cascade's outcome. Text is empty when every strategy
// came up empty — a valid terminal state, not an error. MIMEType is the
// declared type, or the sniffed type when none was declared, or "" when
// neither is known. Strategy names the backend that produced the text.
type Extraction struct {
	Text     string
	MIMEType string
	Strategy string
}
