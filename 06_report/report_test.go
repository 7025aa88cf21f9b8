package report

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopee-shorts-pipeline/types"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func TestNotifierMessages(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifierWithSender(sender, "12345", hclog.NewNullLogger())
	n.now = func() time.Time { return time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC) }

	assert.True(t, n.SendSuccess(types.UploadResult{Title: "Top <5>", URL: "https://youtu.be/x"}))
	assert.True(t, n.SendError(errors.New("encode failed: exit 1")))
	assert.True(t, n.SendDailyReport(types.Stats{VideosCreated: 2, VideosUploaded: 1, Errors: 1, ProductsScraped: 10}))
	require.Len(t, sender.sent, 3)

	success := sender.sent[0]
	assert.Equal(t, int64(12345), success.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, success.ParseMode)
	assert.Contains(t, success.Text, "Top &lt;5&gt;", "titles are HTML escaped")
	assert.Contains(t, success.Text, "14:30:00 05/03/2024")

	assert.Contains(t, sender.sent[1].Text, "encode failed: exit 1")
	assert.Contains(t, sender.sent[2].Text, "• Videos created: 2")
	assert.Contains(t, sender.sent[2].Text, "<b>Products scraped:</b> 10")
}

func TestNotifierChannelAndFailures(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifierWithSender(sender, "@shopee_alerts", hclog.NewNullLogger())
	require.True(t, n.SendError(errors.New("x")))
	assert.Equal(t, "@shopee_alerts", sender.sent[0].ChannelUsername)

	sender.err = errors.New("bot was blocked")
	assert.False(t, n.SendError(errors.New("x")))
}

func TestNotifierUnconfigured(t *testing.T) {
	n := NewNotifier("", "", "", hclog.NewNullLogger())
	assert.False(t, n.Enabled())
	assert.False(t, n.SendSuccess(types.UploadResult{}))
}

func TestNotifierAgainstBotAPI(t *testing.T) {
	var mu sync.Mutex
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bot","username":"shorts_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
			assert.Equal(t, "777", r.PostForm.Get("chat_id"))
			assert.Equal(t, "HTML", r.PostForm.Get("parse_mode"))
			mu.Lock()
			texts = append(texts, r.PostForm.Get("text"))
			mu.Unlock()
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":9,"date":0,"chat":{"id":777,"type":"private"}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	n := NewNotifier("TOKEN", "777", srv.URL+"/bot%s/%s", hclog.NewNullLogger())
	require.True(t, n.Enabled())
	assert.True(t, n.SendDailyReport(types.Stats{VideosCreated: 1}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Daily Report")
}

func TestStatsStore(t *testing.T) {
	store, err := OpenStats(filepath.Join(t.TempDir(), "db", "stats.db"))
	require.NoError(t, err)
	defer store.Close()

	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	runs := []RunRecord{
		{RunID: "a", StartedAt: day.Add(8 * time.Hour), ProductsScraped: 5, VideoCreated: true, Uploaded: true},
		{RunID: "b", StartedAt: day.Add(12 * time.Hour), ProductsScraped: 5, VideoCreated: true},
		{RunID: "c", StartedAt: day.Add(23 * time.Hour), ProductsScraped: 0, Failed: true},
		{RunID: "d", StartedAt: day.Add(25 * time.Hour), ProductsScraped: 5, VideoCreated: true},
	}
	for _, r := range runs {
		require.NoError(t, store.Record(r))
	}

	stats, err := store.Daily(day.Add(15 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, types.Stats{VideosCreated: 2, VideosUploaded: 1, Errors: 1, ProductsScraped: 10}, stats)

	// re-recording a run updates it instead of counting it twice
	runs[1].Uploaded = true
	require.NoError(t, store.Record(runs[1]))
	stats, err = store.Daily(day)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.VideosUploaded)
	assert.Equal(t, 2, stats.VideosCreated)

	empty, err := store.Daily(day.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Zero(t, empty)
}

func TestStatsRecordSurfacesLookupErrors(t *testing.T) {
	store, err := OpenStats(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.db.Migrator().DropTable(&RunRecord{}))
	err = store.Record(RunRecord{RunID: "a", StartedAt: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "look up run a", "only a missing row leads to an insert")
}
