package domain

// Sentence is one author-attributed contribution with an accumulated vote count.
// An unwritten slot has an empty Author and Text.
type Sentence struct {
	Author Identity `json:"author"`
	Text   string   `json:"text"`
	Votes  int64    `json:"votes"`
}

// Written reports whether the slot holds a contribution.
func (s Sentence) Written() bool {
	return s.Text != "" || s.Author != NoIdentity
}

// Book is a read-only view of one collaborative story. Sentences always has
// the book's full capacity; slots at or past WriteCursor are empty.
type Book struct {
	Index       int        `json:"index"`
	Prompt      string     `json:"prompt"`
	Sentences   []Sentence `json:"sentences"`
	WriteCursor int        `json:"write_cursor"`
}

// Full reports whether every slot of the book has been written.
func (b Book) Full() bool {
	return b.WriteCursor >= len(b.Sentences)
}

// SentenceReceipt describes an accepted addSentence call.
type SentenceReceipt struct {
	Book  int   `json:"book"`
	Index int   `json:"index"`
	Cost  int64 `json:"cost"`
}

// VoteReceipt describes an accepted voteOnSentence call.
type VoteReceipt struct {
	Book   int   `json:"book"`
	Index  int   `json:"index"`
	Amount int64 `json:"amount"`
	Votes  int64 `json:"votes"`
}
