package novel

import (
	"fmt"

	"github.com/pscheid92/worldnovel/internal/domain"
)

// checkVote bounds index by the number of written sentences, so a vote can never
// land on an empty slot. Index == capacity is always out of bounds.
func (l *BookLedger) checkVote(index int, amount int64) error {
	b := l.current()
	if index < 0 || index >= b.cursor {
		return fmt.Errorf("%w: index %d, %d sentences written", domain.ErrOutOfBounds, index, b.cursor)
	}
	if amount < 1 {
		return fmt.Errorf("%w: got %d", domain.ErrInvalidAmount, amount)
	}
	return nil
}

// vote adds amount to the sentence; checkVote must have passed.
func (l *BookLedger) vote(index int, amount int64) int64 {
	s := &l.current().sentences[index]
	s.Votes += amount
	return s.Votes
}

// TotalVotes sums the votes of every sentence in the current book.
func (l *BookLedger) TotalVotes() int64 {
	var total int64
	for _, s := range l.current().sentences {
		total += s.Votes
	}
	return total
}
