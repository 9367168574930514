package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "methnet/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries bounds retries on HTTP 429 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// NCBIConfig holds the E-utilities credentials and identification that NCBI
// asks every client to send.
type NCBIConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey raises the request ceiling from 3 to 10 requests per second.
	// Optional.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Email is the contact address sent as the email parameter.
	Email string `json:"email" yaml:"email"`

	// Tool is the tool name sent as the tool parameter.
	Tool string `json:"tool" yaml:"tool"`

	// MaxResults caps the number of search hits retrieved (default 10000).
	// Hits beyond the cap are dropped with a warning.
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// FailurePolicy selects how the dataset builder reacts to a per-record
// fetch failure.
type FailurePolicy string

const (
	// PolicyAbort dumps the partial table and stops the run on any error.
	PolicyAbort FailurePolicy = "abort"

	// PolicySkip logs per-record fetch failures and continues with the
	// next record. Search and translation failures still abort.
	PolicySkip FailurePolicy = "skip"
)

// DataConfig holds settings for the data acquisition stage.
type DataConfig struct {
	NCBI NCBIConfig `json:"ncbi" yaml:"ncbi"`

	// DataDir is the directory holding pubmed_data__<id>.csv files.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// OnError selects the failure policy (default abort).
	OnError FailurePolicy `json:"on_error" yaml:"on_error"`

	// Resume enables the per-record checkpoint log so an interrupted run
	// can continue from the last completed record.
	Resume bool `json:"resume" yaml:"resume"`
}

// FigureConfig holds settings for the visualization stage.
type FigureConfig struct {
	// ImageDir is the directory holding frames, the final PNG and the GIF.
	ImageDir string `json:"image_dir" yaml:"image_dir"`

	// MethodColors lists one color per method keyword, in keyword order.
	MethodColors []string `json:"method_colors" yaml:"method_colors"`

	// ConstantColor is the shared far end of every edge gradient.
	ConstantColor string `json:"constant_color" yaml:"constant_color"`

	// NoneColor starts the gradient of papers matching no keyword.
	NoneColor string `json:"none_color" yaml:"none_color"`

	// Background fills the frame before drawing.
	Background string `json:"background" yaml:"background"`

	// SortByYear orders the circle chronologically.
	SortByYear bool `json:"sort_by_year" yaml:"sort_by_year"`

	// Shuffle applies a seeded shuffle to the circle order. Ignored when
	// SortByYear is set.
	Shuffle bool  `json:"shuffle" yaml:"shuffle"`
	Seed    int64 `json:"seed" yaml:"seed"`

	// Title is displayed above every frame.
	Title string `json:"title" yaml:"title"`

	// RepeatLast is the number of extra copies of the final frame (default 10).
	RepeatLast int `json:"repeat_last" yaml:"repeat_last"`

	// FrameDelay is the per-frame display duration (default 500ms).
	FrameDelay time.Duration `json:"frame_delay" yaml:"frame_delay"`

	// Size is the square frame edge in pixels (default 1000).
	Size int `json:"size" yaml:"size"`

	// FontPath optionally names a TrueType font for titles and legends.
	FontPath string `json:"font_path,omitempty" yaml:"font_path,omitempty"`
}
