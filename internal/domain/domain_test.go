package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		input string
		want  Period
	}{
		{"INITIALIZING", PeriodInitializing},
		{"writing", PeriodWriting},
		{" Voting ", PeriodVoting},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePeriod(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePeriod_Unknown(t *testing.T) {
	_, err := ParsePeriod("CLOSED")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestPeriod_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(struct {
		P Period `json:"p"`
	}{P: PeriodVoting})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":"VOTING"}`, string(data))

	var decoded struct {
		P Period `json:"p"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"p":"initializing"}`), &decoded))
	assert.Equal(t, PeriodInitializing, decoded.P)
}

func TestPeriodError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("add book: %w", NewPeriodError(PeriodWriting, "addBook requires INITIALIZING"))

	assert.ErrorIs(t, err, ErrWrongPeriod)
	assert.Contains(t, err.Error(), "addBook requires INITIALIZING")

	var pe *PeriodError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, PeriodWriting, pe.Current)
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{ErrOwnerOnly, "owner_only"},
		{NewPeriodError(PeriodVoting, "requires WRITING"), "wrong_period"},
		{ErrTextTooLong, "text_too_long"},
		{ErrEmptyText, "empty_text"},
		{fmt.Errorf("wrapped: %w", ErrBookFull), "book_full"},
		{ErrOutOfBounds, "out_of_bounds"},
		{ErrInsufficientBalance, "insufficient_balance"},
		{fmt.Errorf("credit: %w", ErrBalanceOverflow), "balance_overflow"},
		{ErrLedgerUnavailable, "ledger_unavailable"},
		{errors.New("boom"), "internal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err))
	}
}

func TestBook_Full(t *testing.T) {
	b := Book{Sentences: make([]Sentence, 2), WriteCursor: 1}
	assert.False(t, b.Full())
	b.WriteCursor = 2
	assert.True(t, b.Full())
}
