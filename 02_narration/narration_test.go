package narration

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"shopee-shorts-pipeline/types"
)

var testProducts = []types.Product{
	{Name: "Áo thun", Price: "₫89.000", Sold: "1,2k+ đã bán", Rank: 1},
	{Name: "Giày sneaker", Price: "₫299.000", Sold: "850+ đã bán", Rank: 2},
}

func TestWriteScript(t *testing.T) {
	s := WriteScript(testProducts)
	assert.True(t, strings.HasPrefix(s, "Chào mọi người! Hôm nay mình sẽ giới thiệu top 2 sản phẩm"))
	assert.Contains(t, s, "Vị trí số 1: Áo thun. Giá chỉ ₫89.000. 1,2k+ đã bán. ")
	assert.Contains(t, s, "Vị trí số 2: Giày sneaker. Giá chỉ ₫299.000. 850+ đã bán. ")
	assert.True(t, strings.HasSuffix(s, "ủng hộ mình nhé!"))
	assert.Less(t, strings.Index(s, "số 1"), strings.Index(s, "số 2"))
}

func TestTextScriptAndSave(t *testing.T) {
	s := TextScript(testProducts)
	assert.Contains(t, s, "#1 Áo thun\n💰 ₫89.000\n📦 1,2k+ đã bán")
	assert.Contains(t, s, "LIKE & SUBSCRIBE")

	dir := filepath.Join(t.TempDir(), "nested")
	path, err := SaveTextScript(dir, s, time.UnixMilli(1700000000123))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "script_1700000000123.txt"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, s, string(data))
}

func TestGoogleTTS(t *testing.T) {
	audio := []byte("ID3 fake mp3 payload")
	var got struct {
		Input struct {
			Text string `json:"text"`
		} `json:"input"`
		Voice struct {
			LanguageCode string `json:"languageCode"`
			Name         string `json:"name"`
			SsmlGender   string `json:"ssmlGender"`
		} `json:"voice"`
		AudioConfig struct {
			AudioEncoding string `json:"audioEncoding"`
		} `json:"audioConfig"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text:synthesize", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString(audio),
		})
	}))
	defer srv.Close()

	tts, err := NewGoogleTTS(context.Background(), VoiceOptions{
		LanguageCode: "vi-VN",
		Voice:        "vi-VN-Standard-A",
		Gender:       "female",
		SpeakingRate: 1,
	}, option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "a.mp3")
	require.NoError(t, tts.Synthesize(context.Background(), "xin chào", out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, audio, data)
	assert.Equal(t, "xin chào", got.Input.Text)
	assert.Equal(t, "vi-VN-Standard-A", got.Voice.Name)
	assert.Equal(t, "FEMALE", got.Voice.SsmlGender)
	assert.Equal(t, "MP3", got.AudioConfig.AudioEncoding)
}

func newTestCommandTTS(command string, run func(ctx context.Context, name string, args ...string) ([]byte, error)) *CommandTTS {
	return &CommandTTS{
		command:  command,
		voice:    "vi-VN-HoaiMyNeural",
		attempts: 3,
		backoff:  time.Millisecond,
		run:      run,
		logger:   hclog.NewNullLogger(),
	}
}

func TestCommandTTSArgs(t *testing.T) {
	tests := []struct {
		command  string
		wantName string
		wantArgs []string
	}{
		{"edge-tts", "edge-tts", []string{"--voice", "vi-VN-HoaiMyNeural", "--text", "hi", "--write-media", "o.mp3"}},
		{"/opt/tts.py", "python3", []string{"/opt/tts.py", "--text", "hi", "--output", "o.mp3"}},
		{"my-tts", "my-tts", []string{"--text", "hi", "--output", "o.mp3"}},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			name, args := newTestCommandTTS(tt.command, nil).args("hi", "o.mp3")
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestCommandTTSRetries(t *testing.T) {
	out := filepath.Join(t.TempDir(), "a.mp3")
	calls := 0
	tts := newTestCommandTTS("my-tts", func(_ context.Context, _ string, args ...string) ([]byte, error) {
		calls++
		if calls < 3 {
			return []byte("network hiccup"), errors.New("exit status 1")
		}
		return nil, os.WriteFile(args[len(args)-1], []byte("mp3"), 0644)
	})
	require.NoError(t, tts.Synthesize(context.Background(), "hi", out))
	assert.Equal(t, 3, calls)

	calls = 0
	tts = newTestCommandTTS("my-tts", func(context.Context, string, ...string) ([]byte, error) {
		calls++
		return nil, nil
	})
	err := tts.Synthesize(context.Background(), "hi", filepath.Join(t.TempDir(), "never.mp3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "produced no audio")
	assert.Equal(t, 3, calls)
}

type stubSynth struct {
	err  error
	text string
}

func (s *stubSynth) Name() string { return "stub" }

func (s *stubSynth) Synthesize(_ context.Context, text, outPath string) error {
	s.text = text
	if s.err != nil {
		_ = os.WriteFile(outPath, []byte("partial"), 0644)
		return s.err
	}
	return os.WriteFile(outPath, []byte("mp3"), 0644)
}

func TestGeneratorRun(t *testing.T) {
	dir := t.TempDir()
	synth := &stubSynth{}
	g := NewWithSynthesizer(synth, hclog.NewNullLogger())
	g.now = func() time.Time { return time.UnixMilli(42) }

	res := g.Run(context.Background(), testProducts, dir)
	assert.Equal(t, filepath.Join(dir, "tts_42.mp3"), res.AudioPath)
	assert.FileExists(t, res.AudioPath)
	assert.Empty(t, res.ScriptPath)
	assert.Equal(t, WriteScript(testProducts), synth.text)
}

func TestGeneratorRunFallsBackToTextScript(t *testing.T) {
	dir := t.TempDir()
	g := NewWithSynthesizer(&stubSynth{err: errors.New("quota exceeded")}, hclog.NewNullLogger())
	g.now = func() time.Time { return time.UnixMilli(42) }

	res := g.Run(context.Background(), testProducts, dir)
	assert.Empty(t, res.AudioPath)
	assert.NoFileExists(t, filepath.Join(dir, "tts_42.mp3"), "partial audio is removed")
	assert.Equal(t, filepath.Join(dir, "script_42.txt"), res.ScriptPath)
	assert.FileExists(t, res.ScriptPath)

	res = NewWithSynthesizer(nil, hclog.NewNullLogger()).Run(context.Background(), testProducts, dir)
	assert.Empty(t, res.AudioPath)
	assert.NotEmpty(t, res.ScriptPath)
	assert.NotEmpty(t, res.Script)
}
