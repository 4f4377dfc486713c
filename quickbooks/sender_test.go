package quickbooks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/businessday"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/models"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/report"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/utils"
)

type fakeTokens struct {
	mu      sync.Mutex
	token   *models.QbToken
	upserts int
}

func (f *fakeTokens) GetQbToken(ctx context.Context, userId string) (*models.QbToken, error) {
	if f.token == nil {
		return nil, utils.ErrorRecordNotFound
	}
	return f.token, nil
}

func (f *fakeTokens) UpsertQbToken(ctx context.Context, token *models.QbToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	f.upserts++
	return nil
}

type fakeLogs struct {
	mu      sync.Mutex
	success map[string]*models.QbReportLog
	added   []*models.QbReportLog
}

func (f *fakeLogs) GetSuccessReportLog(ctx context.Context, cafeId string, businessDate string) (*models.QbReportLog, error) {
	if log, ok := f.success[cafeId+"|"+businessDate]; ok {
		return log, nil
	}
	return nil, utils.ErrorRecordNotFound
}

func (f *fakeLogs) AddReportLog(ctx context.Context, log *models.QbReportLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, log)
	if log.Status == models.ReportLogStatusSuccess {
		if f.success == nil {
			f.success = map[string]*models.QbReportLog{}
		}
		f.success[log.CafeId+"|"+log.BusinessDate] = log
	}
	return nil
}

type fakeGenerator struct {
	rep *report.AggregatedReport
	err error
}

func (f *fakeGenerator) Generate(ctx context.Context, window businessday.Window) (*report.AggregatedReport, error) {
	return f.rep, f.err
}

func fixedNow() time.Time {
	return time.Date(2026, 2, 10, 7, 0, 0, 0, time.UTC)
}

func validToken() *models.QbToken {
	return &models.QbToken{
		UserId:                "u1",
		RealmId:               "realm1",
		AccessToken:           "access-old",
		RefreshToken:          "refresh-old",
		AccessTokenExpiresAt:  fixedNow().Add(time.Hour),
		RefreshTokenExpiresAt: fixedNow().Add(90 * 24 * time.Hour),
	}
}

func testCafe() *models.Cafe {
	return &models.Cafe{UserId: "u1", Name: "Brio Cafe", CafeId: "c1", ApiKey: "k", IsActive: true}
}

// qbTestServer answers both the journal endpoint and the token endpoint.
type qbTestServer struct {
	srv           *httptest.Server
	journalCalls  int
	refreshCalls  int
	failuresLeft  int
	refreshBroken bool
	lastAuth      string
}

func newQBTestServer(t *testing.T) *qbTestServer {
	ts := &qbTestServer{}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/token"):
			ts.refreshCalls++
			if ts.refreshBroken {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(TokenResponse{
				AccessToken:            "access-new",
				RefreshToken:           "refresh-new",
				ExpiresIn:              3600,
				XRefreshTokenExpiresIn: 8640000,
			})
		case strings.Contains(r.URL.Path, "/journalentry"):
			ts.journalCalls++
			ts.lastAuth = r.Header.Get("Authorization")
			if ts.failuresLeft > 0 {
				ts.failuresLeft--
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"Fault":{"type":"AUTHENTICATION"}}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"JournalEntry": map[string]any{"Id": "je-42"},
			})
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func newTestSender(ts *qbTestServer, tokens *fakeTokens, logs SendLogStore) *Sender {
	api := &API{
		clientID:     "cid",
		clientSecret: "secret",
		apiBase:      ts.srv.URL,
		tokenURL:     ts.srv.URL + "/token",
		revokeURL:    ts.srv.URL + "/revoke",
		http:         ts.srv.Client(),
	}
	s := NewSender(api, tokens, logs, utils.NewKeyLock())
	s.now = fixedNow
	return s
}

func sendParams() SendParams {
	return SendParams{
		UserId:    "u1",
		Cafe:      testCafe(),
		Date:      feb9,
		Generator: &fakeGenerator{rep: testReport()},
	}
}

func TestSendDailyReportSuccess(t *testing.T) {
	ts := newQBTestServer(t)
	tokens := &fakeTokens{token: validToken()}
	logs := &fakeLogs{}
	s := newTestSender(ts, tokens, logs)

	logRow, err := s.SendDailyReport(context.Background(), sendParams())
	if err != nil {
		t.Fatal(err)
	}
	if logRow.Status != models.ReportLogStatusSuccess || logRow.JournalEntryId != "je-42" {
		t.Errorf("log = %+v", logRow)
	}
	if logRow.ShiftCount != 3 || !logRow.TotalCash.Equal(testReport().Cash) {
		t.Errorf("log totals = %+v", logRow)
	}
	if ts.journalCalls != 1 || ts.refreshCalls != 0 {
		t.Errorf("calls = %d journal / %d refresh", ts.journalCalls, ts.refreshCalls)
	}
}

func TestSendDailyReportAlreadySent(t *testing.T) {
	ts := newQBTestServer(t)
	logs := &fakeLogs{success: map[string]*models.QbReportLog{
		"c1|2026-02-09": {Status: models.ReportLogStatusSuccess},
	}}
	s := newTestSender(ts, &fakeTokens{token: validToken()}, logs)

	_, err := s.SendDailyReport(context.Background(), sendParams())
	if !errors.Is(err, ErrAlreadySent) {
		t.Fatalf("err = %v, want ErrAlreadySent", err)
	}
	if ts.journalCalls != 0 {
		t.Error("no external call may happen once the day is delivered")
	}
	if len(logs.added) != 0 {
		t.Error("an already-sent day must not append audit rows")
	}
}

func TestSendDailyReportNotConnected(t *testing.T) {
	ts := newQBTestServer(t)
	s := newTestSender(ts, &fakeTokens{}, &fakeLogs{})

	_, err := s.SendDailyReport(context.Background(), sendParams())
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}

func TestSendDailyReportRefreshTokenExpired(t *testing.T) {
	ts := newQBTestServer(t)
	token := validToken()
	token.RefreshTokenExpiresAt = fixedNow().Add(-time.Hour)
	s := newTestSender(ts, &fakeTokens{token: token}, &fakeLogs{})

	_, err := s.SendDailyReport(context.Background(), sendParams())
	if !errors.Is(err, ErrRefreshTokenExpired) {
		t.Fatalf("err = %v, want ErrRefreshTokenExpired", err)
	}
	if ts.refreshCalls != 0 {
		t.Error("a dead refresh token must not be used")
	}
}

func TestSendDailyReportRefreshesExpiredAccessToken(t *testing.T) {
	ts := newQBTestServer(t)
	token := validToken()
	token.AccessTokenExpiresAt = fixedNow().Add(-time.Minute)
	tokens := &fakeTokens{token: token}
	s := newTestSender(ts, tokens, &fakeLogs{})

	if _, err := s.SendDailyReport(context.Background(), sendParams()); err != nil {
		t.Fatal(err)
	}
	if ts.refreshCalls != 1 {
		t.Fatalf("refresh calls = %d, want 1", ts.refreshCalls)
	}
	if tokens.upserts != 1 {
		t.Error("rotated token pair must be persisted")
	}
	if tokens.token.RefreshToken != "refresh-new" {
		t.Errorf("stored refresh token = %q", tokens.token.RefreshToken)
	}
	if ts.lastAuth != "Bearer access-new" {
		t.Errorf("journal posted with %q, want the refreshed access token", ts.lastAuth)
	}
}

func TestSendDailyReportRetriesOnceOnAuthError(t *testing.T) {
	ts := newQBTestServer(t)
	ts.failuresLeft = 1
	tokens := &fakeTokens{token: validToken()}
	logs := &fakeLogs{}
	s := newTestSender(ts, tokens, logs)

	logRow, err := s.SendDailyReport(context.Background(), sendParams())
	if err != nil {
		t.Fatal(err)
	}
	if ts.journalCalls != 2 || ts.refreshCalls != 1 {
		t.Errorf("calls = %d journal / %d refresh, want 2/1", ts.journalCalls, ts.refreshCalls)
	}
	if logRow.Status != models.ReportLogStatusSuccess {
		t.Errorf("status = %q", logRow.Status)
	}
}

func TestSendDailyReportSecondAuthFailureIsFatal(t *testing.T) {
	ts := newQBTestServer(t)
	ts.failuresLeft = 2
	logs := &fakeLogs{}
	s := newTestSender(ts, &fakeTokens{token: validToken()}, logs)

	_, err := s.SendDailyReport(context.Background(), sendParams())
	if err == nil {
		t.Fatal("expected failure after the single retry")
	}
	if ts.journalCalls != 2 {
		t.Errorf("journal calls = %d, want exactly 2 (one retry)", ts.journalCalls)
	}
	if len(logs.added) != 1 || logs.added[0].Status != models.ReportLogStatusFailed {
		t.Errorf("audit rows = %+v, want one failed row", logs.added)
	}
}

func TestSendDailyReportRecordsAggregationFailure(t *testing.T) {
	ts := newQBTestServer(t)
	logs := &fakeLogs{}
	s := newTestSender(ts, &fakeTokens{token: validToken()}, logs)

	p := sendParams()
	p.Generator = &fakeGenerator{err: errors.New("upstream down")}

	_, err := s.SendDailyReport(context.Background(), p)
	if err == nil || !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("err = %v", err)
	}
	if ts.journalCalls != 0 {
		t.Error("nothing may be posted when aggregation fails")
	}
	if len(logs.added) != 1 || logs.added[0].Status != models.ReportLogStatusFailed {
		t.Errorf("audit rows = %+v, want one failed row", logs.added)
	}
}

func TestFailedAttemptDoesNotBlockRetry(t *testing.T) {
	ts := newQBTestServer(t)
	logs := &fakeLogs{}
	s := newTestSender(ts, &fakeTokens{token: validToken()}, logs)

	p := sendParams()
	p.Generator = &fakeGenerator{err: errors.New("transient")}
	if _, err := s.SendDailyReport(context.Background(), p); err == nil {
		t.Fatal("expected first attempt to fail")
	}

	if _, err := s.SendDailyReport(context.Background(), sendParams()); err != nil {
		t.Fatalf("failed rows must not block retries: %v", err)
	}
}

// racedLogs sees no success row on the first lookup and a success row
// afterwards, as when another send for the same day finishes while this
// one is waiting on the token lock.
type racedLogs struct {
	fakeLogs
	lookups int
}

func (f *racedLogs) GetSuccessReportLog(ctx context.Context, cafeId string, businessDate string) (*models.QbReportLog, error) {
	f.lookups++
	if f.lookups == 1 {
		return nil, utils.ErrorRecordNotFound
	}
	return &models.QbReportLog{Status: models.ReportLogStatusSuccess}, nil
}

func TestSendDailyReportRechecksSuccessRowUnderLock(t *testing.T) {
	ts := newQBTestServer(t)
	logs := &racedLogs{}
	s := newTestSender(ts, &fakeTokens{token: validToken()}, logs)

	_, err := s.SendDailyReport(context.Background(), sendParams())
	if !errors.Is(err, ErrAlreadySent) {
		t.Fatalf("err = %v, want ErrAlreadySent", err)
	}
	if logs.lookups != 2 {
		t.Errorf("success-row lookups = %d, want 2 (before and under the lock)", logs.lookups)
	}
	if ts.journalCalls != 0 {
		t.Errorf("journal calls = %d, want 0", ts.journalCalls)
	}
	if len(logs.added) != 0 {
		t.Errorf("audit rows = %d, want 0", len(logs.added))
	}
}

func TestSendDailyReportRecordsFailedRefresh(t *testing.T) {
	ts := newQBTestServer(t)
	ts.refreshBroken = true
	tokens := &fakeTokens{token: validToken()}
	tokens.token.AccessTokenExpiresAt = fixedNow().Add(-time.Minute)
	logs := &fakeLogs{}
	s := newTestSender(ts, tokens, logs)

	logRow, err := s.SendDailyReport(context.Background(), sendParams())
	if err == nil {
		t.Fatal("expected an error when the pre-flight refresh fails")
	}
	if ts.refreshCalls != 1 || ts.journalCalls != 0 {
		t.Errorf("calls = %d refresh / %d journal, want 1 / 0", ts.refreshCalls, ts.journalCalls)
	}
	if logRow == nil || logRow.Status != models.ReportLogStatusFailed || logRow.ErrorMessage == "" {
		t.Fatalf("log = %+v, want a failed audit row with the refresh error", logRow)
	}
	if len(logs.added) != 1 {
		t.Errorf("audit rows = %d, want 1", len(logs.added))
	}
}
