package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pscheid92/worldnovel/internal/adapter/metrics"
	"github.com/pscheid92/worldnovel/internal/domain"
	"github.com/pscheid92/worldnovel/internal/platform/config"
	"github.com/pscheid92/worldnovel/internal/platform/credential"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockNovelService struct {
	currentBookFn    func(ctx context.Context) domain.Book
	totalVotesFn     func(ctx context.Context) int64
	costFn           func(ctx context.Context) (int64, error)
	periodFn         func(ctx context.Context) domain.Period
	balanceOfFn      func(ctx context.Context, id domain.Identity) (int64, error)
	addBookFn        func(ctx context.Context, caller domain.Identity, prompt string) (int, error)
	addSentenceFn    func(ctx context.Context, caller domain.Identity, text string) (*domain.SentenceReceipt, error)
	voteOnSentenceFn func(ctx context.Context, caller domain.Identity, index int, amount int64) (*domain.VoteReceipt, error)
	setPeriodFn      func(ctx context.Context, caller domain.Identity, p domain.Period) error
}

func defaultBook() domain.Book {
	sentences := make([]domain.Sentence, 3)
	sentences[0] = domain.Sentence{Author: "alice", Text: "It was a dark night.", Votes: 4}
	return domain.Book{Index: 0, Prompt: "Write a great story", Sentences: sentences, WriteCursor: 1}
}

func (m *mockNovelService) CurrentBook(ctx context.Context) domain.Book {
	if m.currentBookFn != nil {
		return m.currentBookFn(ctx)
	}
	return defaultBook()
}

func (m *mockNovelService) CurrentPrompt(ctx context.Context) string {
	return m.CurrentBook(ctx).Prompt
}

func (m *mockNovelService) CurrentSentences(ctx context.Context) []domain.Sentence {
	return m.CurrentBook(ctx).Sentences
}

func (m *mockNovelService) TotalVotes(ctx context.Context) int64 {
	if m.totalVotesFn != nil {
		return m.totalVotesFn(ctx)
	}
	return 0
}

func (m *mockNovelService) CostToAddSentence(ctx context.Context) (int64, error) {
	if m.costFn != nil {
		return m.costFn(ctx)
	}
	return 1, nil
}

func (m *mockNovelService) Period(ctx context.Context) domain.Period {
	if m.periodFn != nil {
		return m.periodFn(ctx)
	}
	return domain.PeriodWriting
}

func (m *mockNovelService) BalanceOf(ctx context.Context, id domain.Identity) (int64, error) {
	if m.balanceOfFn != nil {
		return m.balanceOfFn(ctx, id)
	}
	return 0, nil
}

func (m *mockNovelService) AddBook(ctx context.Context, caller domain.Identity, prompt string) (int, error) {
	if m.addBookFn != nil {
		return m.addBookFn(ctx, caller, prompt)
	}
	return 1, nil
}

func (m *mockNovelService) AddSentence(ctx context.Context, caller domain.Identity, text string) (*domain.SentenceReceipt, error) {
	if m.addSentenceFn != nil {
		return m.addSentenceFn(ctx, caller, text)
	}
	return &domain.SentenceReceipt{Index: 1, Cost: 1}, nil
}

func (m *mockNovelService) VoteOnSentence(ctx context.Context, caller domain.Identity, index int, amount int64) (*domain.VoteReceipt, error) {
	if m.voteOnSentenceFn != nil {
		return m.voteOnSentenceFn(ctx, caller, index, amount)
	}
	return &domain.VoteReceipt{Index: index, Amount: amount, Votes: amount}, nil
}

func (m *mockNovelService) SetPeriod(ctx context.Context, caller domain.Identity, p domain.Period) error {
	if m.setPeriodFn != nil {
		return m.setPeriodFn(ctx, caller, p)
	}
	return nil
}

// --- Test helpers ---

const testSessionSecret = "test-secret-key-32-bytes-long!!!"

func testConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		SessionSecret:  testSessionSecret,
		SessionMaxAge:  time.Hour,
	}
}

// testCredential issues the credential the test server accepts for identity.
func testCredential(t *testing.T, identity string) string {
	t.Helper()
	token, err := credential.NewIssuer([]byte(testSessionSecret), time.Hour).Issue(identity)
	require.NoError(t, err)
	return token
}

type testServerOptions struct {
	cfg            *config.Config
	metricsHandler http.Handler
	feedHandler    http.Handler
	healthChecks   []HealthCheck
}

func newTestServer(t *testing.T, novel novelService, opts ...func(*testServerOptions)) *Server {
	t.Helper()

	o := &testServerOptions{cfg: testConfig()}
	for _, opt := range opts {
		opt(o)
	}

	return NewServer(o.cfg, novel, metrics.NewHTTPMetrics(metrics.NewRegistry()), o.metricsHandler, o.feedHandler, o.healthChecks)
}

func withHealthChecks(checks ...HealthCheck) func(*testServerOptions) {
	return func(o *testServerOptions) {
		o.healthChecks = checks
	}
}

func withConfig(cfg *config.Config) func(*testServerOptions) {
	return func(o *testServerOptions) {
		o.cfg = cfg
	}
}

func withMetricsHandler(h http.Handler) func(*testServerOptions) {
	return func(o *testServerOptions) {
		o.metricsHandler = h
	}
}

func withFeedHandler(h http.Handler) func(*testServerOptions) {
	return func(o *testServerOptions) {
		o.feedHandler = h
	}
}

// do sends a request through the full middleware stack. A non-blank identity is
// sent with a valid credential.
func do(t *testing.T, srv *Server, method, path, identity string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if identity != "" {
		req.Header.Set(identityHeader, identity)
	}
	if strings.TrimSpace(identity) != "" {
		req.Header.Set(credentialHeader, testCredential(t, identity))
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
