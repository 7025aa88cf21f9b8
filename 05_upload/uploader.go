package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"shopee-shorts-pipeline/config"
	"shopee-shorts-pipeline/types"
)

var (
	ErrMissingCredentials = errors.New("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET or YOUTUBE_REFRESH_TOKEN not set")
	ErrUnauthorized       = errors.New("authentication failed, check the YouTube API credentials")
	ErrForbidden          = errors.New("quota exceeded or API access denied")
)

// Uploader handles YouTube video upload via Data API v3
type Uploader struct {
	cfg    config.UploadConfig
	logger hclog.Logger
	opts   []option.ClientOption
}

// New creates an Uploader. Without opts the OAuth2 refresh-token flow from
// cfg is used.
func New(cfg *config.Config, logger hclog.Logger, opts ...option.ClientOption) *Uploader {
	return &Uploader{cfg: cfg.Upload, logger: logger.Named("upload"), opts: opts}
}

// Run uploads videoPath. The result is filled in on failure too, so callers
// can record it.
func (u *Uploader) Run(ctx context.Context, videoPath string, meta types.VideoMetadata) (types.UploadResult, error) {
	result := types.UploadResult{Title: meta.Title}

	svc, err := u.service(ctx)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	f, err := os.Open(videoPath)
	if err != nil {
		err = fmt.Errorf("open video file: %w", err)
		result.Error = err.Error()
		return result, err
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		u.logger.Info("uploading", "title", meta.Title, "size_mb", float64(fi.Size())/1024/1024)
	}

	visibility := meta.Visibility
	if visibility == "" {
		visibility = u.cfg.Visibility
	}
	lang := meta.DefaultLanguage
	if lang == "" {
		lang = u.cfg.DefaultLanguage
	}
	category := meta.CategoryID
	if category == "" {
		category = u.cfg.CategoryID
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                meta.Title,
			Description:          meta.Description,
			Tags:                 meta.Tags,
			CategoryId:           category,
			DefaultLanguage:      lang,
			DefaultAudioLanguage: lang,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           visibility,
			SelfDeclaredMadeForKids: u.cfg.MadeForKids,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f).
		Context(ctx).
		Do()
	if err != nil {
		err = describe(err)
		result.Error = err.Error()
		return result, err
	}

	result.Success = true
	result.VideoID = uploaded.Id
	result.URL = "https://youtu.be/" + uploaded.Id
	u.logger.Info("uploaded", "video_id", result.VideoID, "url", result.URL)
	return result, nil
}

func (u *Uploader) service(ctx context.Context) (*youtube.Service, error) {
	opts := u.opts
	if len(opts) == 0 {
		client, err := u.oauthClient(ctx)
		if err != nil {
			return nil, err
		}
		opts = []option.ClientOption{option.WithHTTPClient(client)}
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return svc, nil
}

func (u *Uploader) oauthClient(ctx context.Context) (*http.Client, error) {
	if u.cfg.ClientID == "" || u.cfg.ClientSecret == "" || u.cfg.RefreshToken == "" {
		return nil, ErrMissingCredentials
	}
	conf := &oauth2.Config{
		ClientID:     u.cfg.ClientID,
		ClientSecret: u.cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}
	// expired on purpose so the first request refreshes
	token := &oauth2.Token{
		RefreshToken: u.cfg.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	}
	return conf.Client(ctx, token), nil
}

func describe(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return fmt.Errorf("youtube upload: %w: %s", ErrUnauthorized, gerr.Message)
		case http.StatusForbidden:
			return fmt.Errorf("youtube upload: %w: %s", ErrForbidden, gerr.Message)
		}
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("youtube upload: %w: %v", ErrUnauthorized, rerr)
	}
	return fmt.Errorf("youtube upload: %w", err)
}

// LogUpload saves the upload result as dir/upload_<timestamp>.json
func LogUpload(dir string, result types.UploadResult, videoPath string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	entry := struct {
		types.UploadResult
		VideoFile  string `json:"video_file"`
		UploadedAt string `json:"uploaded_at"`
	}{result, videoPath, time.Now().UTC().Format(time.RFC3339)}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("upload_%s.json", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
