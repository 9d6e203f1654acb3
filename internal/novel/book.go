package novel

import (
	"fmt"
	"strings"

	"github.com/pscheid92/worldnovel/internal/domain"
)

// book is a fixed-capacity arena of sentence slots filled left to right.
type book struct {
	prompt    string
	sentences []domain.Sentence
	cursor    int
}

func newBook(prompt string, capacity int) *book {
	return &book{
		prompt:    prompt,
		sentences: make([]domain.Sentence, capacity),
	}
}

func (b *book) full() bool {
	return b.cursor >= len(b.sentences)
}

// BookLedger is the append-only sequence of books. The last book is current.
type BookLedger struct {
	books     []*book
	capacity  int
	maxLength int
}

// NewBookLedger seeds book 0 from the genesis prompt.
func NewBookLedger(prompt string, capacity, maxLength int) *BookLedger {
	l := &BookLedger{capacity: capacity, maxLength: maxLength}
	l.append(prompt)
	return l
}

func (l *BookLedger) append(prompt string) int {
	l.books = append(l.books, newBook(prompt, l.capacity))
	return len(l.books) - 1
}

func (l *BookLedger) current() *book {
	return l.books[len(l.books)-1]
}

// CurrentIndex is the index of the current book.
func (l *BookLedger) CurrentIndex() int {
	return len(l.books) - 1
}

// Len is the number of books ever added, genesis included.
func (l *BookLedger) Len() int {
	return len(l.books)
}

// CurrentBook returns a copy of the current book with all of its slots.
func (l *BookLedger) CurrentBook() domain.Book {
	b := l.current()
	return domain.Book{
		Index:       l.CurrentIndex(),
		Prompt:      b.prompt,
		Sentences:   l.CurrentSentences(),
		WriteCursor: b.cursor,
	}
}

func (l *BookLedger) CurrentPrompt() string {
	return l.current().prompt
}

// CurrentSentences returns a copy of every slot, including unwritten ones.
func (l *BookLedger) CurrentSentences() []domain.Sentence {
	b := l.current()
	out := make([]domain.Sentence, len(b.sentences))
	copy(out, b.sentences)
	return out
}

func (l *BookLedger) checkAppend(text string) error {
	if strings.TrimSpace(text) == "" {
		return domain.ErrEmptyText
	}
	if len(text) > l.maxLength {
		return fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrTextTooLong, len(text), l.maxLength)
	}
	if l.current().full() {
		return fmt.Errorf("%w: all %d slots written", domain.ErrBookFull, l.capacity)
	}
	return nil
}

// appendSentence writes at the cursor; checkAppend must have passed.
func (l *BookLedger) appendSentence(author domain.Identity, text string) int {
	b := l.current()
	index := b.cursor
	b.sentences[index] = domain.Sentence{Author: author, Text: text}
	b.cursor++
	return index
}

// currentVotes copies the vote totals of the current book's written sentences.
func (l *BookLedger) currentVotes() []int64 {
	b := l.current()
	votes := make([]int64, b.cursor)
	for i := range votes {
		votes[i] = b.sentences[i].Votes
	}
	return votes
}

// rewind drops every book past count, then clears the current book back to
// cursor and puts back the vote totals of its written sentences.
func (l *BookLedger) rewind(count, cursor int, votes []int64) {
	clear(l.books[count:])
	l.books = l.books[:count]

	b := l.current()
	for i := cursor; i < b.cursor; i++ {
		b.sentences[i] = domain.Sentence{}
	}
	b.cursor = cursor
	for i, v := range votes {
		b.sentences[i].Votes = v
	}
}

// snapshotFrom copies the written sentences of every book from first onward.
func (l *BookLedger) snapshotFrom(first int) []domain.BookSnapshot {
	out := make([]domain.BookSnapshot, 0, len(l.books)-first)
	for _, b := range l.books[first:] {
		written := make([]domain.Sentence, b.cursor)
		copy(written, b.sentences[:b.cursor])
		out = append(out, domain.BookSnapshot{Prompt: b.prompt, Sentences: written})
	}
	return out
}

func restoreBookLedger(books []domain.BookSnapshot, capacity, maxLength int) (*BookLedger, error) {
	if len(books) == 0 {
		return nil, fmt.Errorf("snapshot has no books")
	}
	l := &BookLedger{capacity: capacity, maxLength: maxLength}
	for i, bs := range books {
		if len(bs.Sentences) > capacity {
			return nil, fmt.Errorf("book %d holds %d sentences, capacity is %d", i, len(bs.Sentences), capacity)
		}
		b := newBook(bs.Prompt, capacity)
		for j, s := range bs.Sentences {
			if s.Votes < 0 {
				return nil, fmt.Errorf("book %d sentence %d has negative votes", i, j)
			}
			b.sentences[j] = s
		}
		b.cursor = len(bs.Sentences)
		l.books = append(l.books, b)
	}
	return l, nil
}
