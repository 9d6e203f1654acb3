package httpserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/worldnovel/internal/domain"
	apperrors "github.com/pscheid92/worldnovel/internal/platform/errors"
)

func (s *Server) registerNovelRoutes(api *echo.Group) {
	api.GET("/book", s.handleGetBook)
	api.GET("/book/prompt", s.handleGetPrompt)
	api.GET("/book/sentences", s.handleGetSentences)
	api.GET("/book/votes", s.handleGetTotalVotes)
	api.GET("/cost", s.handleGetCost)
	api.GET("/period", s.handleGetPeriod)
	api.GET("/balance", s.handleGetBalance, s.requireIdentity)

	api.POST("/books", s.handleAddBook, s.requireIdentity)
	api.POST("/sentences", s.handleAddSentence, s.requireIdentity)
	api.POST("/sentences/:index/votes", s.handleVote, s.requireIdentity)
	api.PUT("/period", s.handleSetPeriod, s.requireIdentity)
}

type bookResponse struct {
	Index       int               `json:"index"`
	Prompt      string            `json:"prompt"`
	WriteCursor int               `json:"write_cursor"`
	Capacity    int               `json:"capacity"`
	Sentences   []domain.Sentence `json:"sentences"`
}

type addBookRequest struct {
	Prompt string `json:"prompt"`
}

type addSentenceRequest struct {
	Text string `json:"text"`
}

type voteRequest struct {
	Amount int64 `json:"amount"`
}

type setPeriodRequest struct {
	Period string `json:"period"`
}

func writeJSON(c echo.Context, status int, body any) error {
	if err := c.JSON(status, body); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// --- Queries ---

func (s *Server) handleGetBook(c echo.Context) error {
	book := s.novel.CurrentBook(c.Request().Context())
	return writeJSON(c, http.StatusOK, bookResponse{
		Index:       book.Index,
		Prompt:      book.Prompt,
		WriteCursor: book.WriteCursor,
		Capacity:    len(book.Sentences),
		Sentences:   book.Sentences,
	})
}

func (s *Server) handleGetPrompt(c echo.Context) error {
	return writeJSON(c, http.StatusOK, map[string]string{
		"prompt": s.novel.CurrentPrompt(c.Request().Context()),
	})
}

func (s *Server) handleGetSentences(c echo.Context) error {
	return writeJSON(c, http.StatusOK, map[string][]domain.Sentence{
		"sentences": s.novel.CurrentSentences(c.Request().Context()),
	})
}

func (s *Server) handleGetTotalVotes(c echo.Context) error {
	return writeJSON(c, http.StatusOK, map[string]int64{
		"total_votes": s.novel.TotalVotes(c.Request().Context()),
	})
}

func (s *Server) handleGetCost(c echo.Context) error {
	cost, err := s.novel.CostToAddSentence(c.Request().Context())
	if err != nil {
		return toAPIError(err)
	}
	return writeJSON(c, http.StatusOK, map[string]int64{"cost": cost})
}

func (s *Server) handleGetPeriod(c echo.Context) error {
	p := s.novel.Period(c.Request().Context())
	return writeJSON(c, http.StatusOK, map[string]string{"period": p.String()})
}

func (s *Server) handleGetBalance(c echo.Context) error {
	caller := callerFrom(c)
	balance, err := s.novel.BalanceOf(c.Request().Context(), caller)
	if err != nil {
		return toAPIError(err)
	}
	return writeJSON(c, http.StatusOK, map[string]any{
		"identity": caller.String(),
		"balance":  balance,
	})
}

// --- Writes ---

func (s *Server) handleAddBook(c echo.Context) error {
	var req addBookRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	index, err := s.novel.AddBook(c.Request().Context(), callerFrom(c), req.Prompt)
	if err != nil {
		return toAPIError(err)
	}
	return writeJSON(c, http.StatusCreated, map[string]int{"book": index})
}

func (s *Server) handleAddSentence(c echo.Context) error {
	var req addSentenceRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	receipt, err := s.novel.AddSentence(c.Request().Context(), callerFrom(c), req.Text)
	if err != nil {
		return toAPIError(err)
	}
	return writeJSON(c, http.StatusCreated, receipt)
}

func (s *Server) handleVote(c echo.Context) error {
	raw := c.Param("index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		return apperrors.ValidationError("sentence index must be an integer").WithField("index", raw)
	}

	var req voteRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	receipt, err := s.novel.VoteOnSentence(c.Request().Context(), callerFrom(c), index, req.Amount)
	if err != nil {
		return toAPIError(err)
	}
	return writeJSON(c, http.StatusOK, receipt)
}

func (s *Server) handleSetPeriod(c echo.Context) error {
	var req setPeriodRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	p, err := domain.ParsePeriod(req.Period)
	if err != nil {
		return toAPIError(err)
	}

	if err := s.novel.SetPeriod(c.Request().Context(), callerFrom(c), p); err != nil {
		return toAPIError(err)
	}
	return writeJSON(c, http.StatusOK, map[string]string{"period": p.String()})
}
