package types

// Product is one ranked item scraped from the marketplace.
// Price and Sold are already formatted for display.
type Product struct {
	Name  string `json:"name" yaml:"name"`
	Price string `json:"price" yaml:"price"`
	Image string `json:"image" yaml:"image"`
	Link  string `json:"link" yaml:"link"`
	Sold  string `json:"sold" yaml:"sold"`
	Rank  int    `json:"rank" yaml:"rank"`
}

// VideoConfig is the output geometry and timing of the rendered short
type VideoConfig struct {
	Width    int     `json:"width" yaml:"width"`
	Height   int     `json:"height" yaml:"height"`
	FPS      int     `json:"fps" yaml:"fps"`
	Duration float64 `json:"duration" yaml:"duration"` // seconds
}

// VideoMetadata holds all YouTube upload metadata
type VideoMetadata struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Tags            []string `json:"tags"`
	CategoryID      string   `json:"category_id"`
	Visibility      string   `json:"visibility"`
	DefaultLanguage string   `json:"default_language"`
}

// UploadResult is what the uploader reports back for one video
type UploadResult struct {
	Success bool   `json:"success"`
	VideoID string `json:"video_id,omitempty"`
	URL     string `json:"url,omitempty"`
	Title   string `json:"title,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Stats are the counters sent in the daily report
type Stats struct {
	VideosCreated   int `json:"videos_created"`
	VideosUploaded  int `json:"videos_uploaded"`
	Errors          int `json:"errors"`
	ProductsScraped int `json:"products_scraped"`
}

// PipelineState tracks the full state of one pipeline run
type PipelineState struct {
	RunID         string         `json:"run_id"`
	StartedAt     string         `json:"started_at"`
	CompletedAt   string         `json:"completed_at"`
	Products      []Product      `json:"products"`
	AudioFile     string         `json:"audio_file"`
	ScriptFile    string         `json:"script_file,omitempty"`
	RenderBackend string         `json:"render_backend"`
	VideoFile     string         `json:"video_file"`
	Metadata      *VideoMetadata `json:"metadata"`
	Upload        *UploadResult  `json:"upload,omitempty"`
	Error         string         `json:"error,omitempty"`
}
