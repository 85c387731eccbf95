package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/studyhub/internal/contentsync"
	"github.com/p-n-ai/studyhub/internal/gate"
	"github.com/p-n-ai/studyhub/internal/progress"
	"github.com/p-n-ai/studyhub/internal/sheets"
	"github.com/p-n-ai/studyhub/internal/storage"
)

const testPassword = "open sesame"

type staticSource struct {
	configured bool
	result     sheets.Result
}

func (s staticSource) IsConfigured() bool { return s.configured }

func (s staticSource) FetchAll(context.Context) sheets.Result { return s.result }

func artSource(SyncSettings) contentsync.Source {
	return staticSource{configured: true, result: sheets.Result{Tables: sheets.TableSet{
		sheets.TableSubjects: sheets.ParseRows([][]string{
			{"subject_id", "subject_key", "name"},
			{"art-001", "art", "Art"},
		}),
		sheets.TableTopics: sheets.ParseRows([][]string{
			{"topic_id", "subject_key", "topic_name"},
			{"art-t001", "art", "Line"},
		}),
	}}}
}

type fixture struct {
	ctrl    *contentsync.Controller
	store   *progress.Store
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctrl := contentsync.New(staticSource{}, contentsync.WithLogger(logger), contentsync.WithAutoRefresh(false))
	require.NoError(t, ctrl.Start(t.Context()))
	t.Cleanup(ctrl.Stop)

	store := progress.NewStore(t.Context(), storage.NewMemoryKV(), "", progress.WithLogger(logger), progress.WithNoteDelay(time.Hour))
	t.Cleanup(func() { _ = store.Close() })

	g, err := gate.New(testPassword)
	require.NoError(t, err)

	srv := New(ctrl, store,
		WithLogger(logger),
		WithGate(g, artSource, SyncSettings{APIKey: "AIzaSyExample1234", RefreshIntervalSeconds: 60}),
	)
	return &fixture{ctrl: ctrl, store: store, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestContentEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/content", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[struct {
		Subjects []struct {
			Key string `json:"key"`
		} `json:"subjects"`
	}](t, rec)
	assert.Len(t, snap.Subjects, 4)

	rec = f.do(t, http.MethodGet, "/api/content/topics/phys-t001", "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[TopicDetail](t, rec)
	assert.Equal(t, "physics", detail.SubjectKey)
	assert.Len(t, detail.Sections, 7)
	assert.Len(t, detail.StudyContent["phys-t001-s004"], 5)
	assert.Len(t, detail.Quiz, 3)

	rec = f.do(t, http.MethodGet, "/api/content/topics/phys-t002", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[TopicDetail](t, rec).Sections)

	rec = f.do(t, http.MethodGet, "/api/content/topics/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncEndpoints_Offline(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[contentsync.StatusInfo](t, rec)
	assert.Equal(t, contentsync.StatusOffline, status.Status)
	assert.True(t, status.DemoMode)

	rec = f.do(t, http.MethodPost, "/api/sync/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentsync.StatusOffline, decode[contentsync.StatusInfo](t, rec).Status)
}

func TestCompleteSection(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/progress/sections", `{"topicId":"phys-t001","sectionId":"phys-t001-s004"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[progress.SectionResult](t, rec)
	assert.True(t, res.Accepted)
	assert.Equal(t, 57, res.Progress)

	rec = f.do(t, http.MethodPost, "/api/progress/sections", `{"topicId":"phys-t001","sectionId":"phys-t001-s002"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[progress.SectionResult](t, rec).Accepted)

	rec = f.do(t, http.MethodGet, "/api/progress", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[progressResponse](t, rec)
	assert.Equal(t, 57, got.State.Progress.Topics["phys-t001"].Progress)
	assert.Equal(t, progress.SectionXP, got.Summary.XP)
	assert.Equal(t, 19, got.Summary.Subjects["physics"])
}

func TestCompleteSection_BadRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"malformed", "{", http.StatusBadRequest},
		{"unknown field", `{"topicId":"a","sectionId":"b","extra":1}`, http.StatusBadRequest},
		{"missing section", `{"topicId":"phys-t001"}`, http.StatusBadRequest},
		{"unknown section", `{"topicId":"phys-t001","sectionId":"zzz"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/progress/sections", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestAnswerQuiz(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/progress/quiz", `{"topicId":"phys-t001","answer":"b"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[progress.QuizResult](t, rec)
	assert.True(t, res.Correct)
	assert.Equal(t, "B", res.CorrectAnswer)

	rec = f.do(t, http.MethodPost, "/api/progress/quiz", `{"topicId":"math-t001","answer":"A"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookmarksAndNotes(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/progress/bookmarks", `{"topicId":"phys-t001","sectionId":"phys-t001-s003"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"key":"phys-t001-phys-t001-s003","bookmarked":true}`, rec.Body.String())

	rec = f.do(t, http.MethodPut, "/api/progress/notes/phys-t001", `{"text":"inertia"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/progress/notes/phys-t001/save", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"topicId":"phys-t001","text":"inertia"}`, rec.Body.String())

	state := f.store.Get()
	assert.Equal(t, "inertia", state.Progress.Notes["phys-t001"])
	assert.Equal(t, []string{"phys-t001-phys-t001-s003"}, state.Progress.Bookmarks)

	rec = f.do(t, http.MethodPost, "/api/progress/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, progress.DefaultProgress(), f.store.Get().Progress)
}

func TestDisplaySettings(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/progress/settings/dark-mode", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[progress.Settings](t, rec).DarkMode)

	rec = f.do(t, http.MethodPut, "/api/progress/settings", `{"darkMode":false,"notifications":false,"soundEffects":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, progress.Settings{SoundEffects: true}, decode[progress.Settings](t, rec))
}

func TestSyncSettings_Gated(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/settings/sync", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/settings/unlock", `{"password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/settings/unlock", `{"password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode[unlockResponse](t, rec).Token
	require.NotEmpty(t, token)

	rec = f.do(t, http.MethodGet, "/api/settings/sync", "", SettingsHeader, token)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[syncSettingsResponse](t, rec)
	assert.Equal(t, "*************1234", got.Settings.APIKey)
	assert.Equal(t, contentsync.StatusOffline, got.Status.Status)

	rec = f.do(t, http.MethodPut, "/api/settings/sync",
		`{"spreadsheetId":"sheet-1","apiKey":"","autoRefresh":false,"refreshInterval":0}`,
		SettingsHeader, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got = decode[syncSettingsResponse](t, rec)
	assert.Equal(t, contentsync.StatusSuccess, got.Status.Status)
	assert.Equal(t, 60, got.Settings.RefreshIntervalSeconds)
	assert.Equal(t, "*************1234", got.Settings.APIKey, "blank key keeps the current one")

	assert.Equal(t, "art", f.ctrl.Snapshot().Subjects[0].Key)
	auto, interval := f.ctrl.Schedule()
	assert.False(t, auto)
	assert.Equal(t, time.Minute, interval)
}

func TestSyncSettings_SessionExpires(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	g, err := gate.New(testPassword)
	require.NoError(t, err)

	ctrl := contentsync.New(nil, contentsync.WithLogger(logger))
	store := progress.NewStore(t.Context(), storage.NewMemoryKV(), "", progress.WithLogger(logger))
	defer store.Close()

	f := &fixture{handler: New(ctrl, store,
		WithLogger(logger),
		WithGate(g, artSource, SyncSettings{}),
		WithSessionTTL(time.Minute),
		WithClock(func() time.Time { return now }),
	).Handler()}

	rec := f.do(t, http.MethodPost, "/api/settings/unlock", `{"password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode[unlockResponse](t, rec).Token

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/settings/sync", "", SettingsHeader, token).Code)
	now = now.Add(2 * time.Minute)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/settings/sync", "", SettingsHeader, token).Code)
}

func TestSettingsDisabledWithoutGate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := progress.NewStore(t.Context(), storage.NewMemoryKV(), "", progress.WithLogger(logger))
	defer store.Close()
	f := &fixture{handler: New(contentsync.New(nil, contentsync.WithLogger(logger)), store, WithLogger(logger)).Handler()}

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/settings/unlock", `{"password":"x"}`).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/settings/sync", "").Code)
}

func TestMaskSecret(t *testing.T) {
	tests := map[string]string{
		"":         "",
		"abc":      "***",
		"abcd":     "****",
		"abcdefgh": "****efgh",
	}
	for in, want := range tests {
		assert.Equal(t, want, maskSecret(in), "maskSecret(%q)", in)
	}
}

func TestSyncStream(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/sync", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var ev contentsync.StatusInfo
	require.NoError(t, wsjson.Read(ctx, conn, &ev))
	assert.Equal(t, contentsync.StatusOffline, ev.Status)

	require.NoError(t, f.ctrl.Reconfigure(artSource(SyncSettings{}), contentsync.WithAutoRefresh(false)))

	var seen []contentsync.Status
	for len(seen) == 0 || seen[len(seen)-1] != contentsync.StatusSuccess {
		require.NoError(t, wsjson.Read(ctx, conn, &ev))
		seen = append(seen, ev.Status)
	}
	assert.Equal(t, []contentsync.Status{contentsync.StatusIdle, contentsync.StatusSyncing, contentsync.StatusSuccess}, seen)

	conn.Close(websocket.StatusNormalClosure, "")
}
