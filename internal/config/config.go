package config

import (
	"errors"
	"fmt"
	"image/color"
	"net/url"
	"os"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Camera     CameraConfig     `yaml:"camera"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Detector   DetectorConfig   `yaml:"detector"`
	OCR        OCRConfig        `yaml:"ocr"`
	Overlay    OverlayConfig    `yaml:"overlay"`
	Status     StatusConfig     `yaml:"status"`
	Chat       ChatConfig       `yaml:"chat"`
	Headless   bool             `yaml:"headless"` // log accepted text instead of opening a window
}

// LogConfig contains logger settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// CameraConfig contains capture device settings
type CameraConfig struct {
	Device     int `yaml:"device"`
	BufferSize int `yaml:"buffer_size"` // frames queued inside the driver
	Width      int `yaml:"width"`       // display width after resize
	Height     int `yaml:"height"`      // display height after resize
}

// PreprocessConfig contains preprocessor settings
type PreprocessConfig struct {
	DenoisedOutput bool `yaml:"denoised_output"`
}

// DetectorConfig contains text region detector settings
type DetectorConfig struct {
	ModelPath      string  `yaml:"model_path"` // empty: treat the whole frame as one region
	InputWidth     int     `yaml:"input_width"`
	InputHeight    int     `yaml:"input_height"`
	ScoreThreshold float64 `yaml:"score_threshold"`
	NMSThreshold   float64 `yaml:"nms_threshold"`
}

// OCRConfig contains Tesseract settings
type OCRConfig struct {
	Language       string `yaml:"language"`
	TessdataPrefix string `yaml:"tessdata_prefix"`
	PageSegMode    int    `yaml:"page_seg_mode"`
	MinCropHeight  int    `yaml:"min_crop_height"`
}

// OverlayConfig contains drawing and filtering settings
type OverlayConfig struct {
	ConfidenceThreshold int     `yaml:"confidence_threshold"` // 0-100
	BoxColor            string  `yaml:"box_color"`
	TextColor           string  `yaml:"text_color"`
	FPSColor            string  `yaml:"fps_color"`
	Thickness           int     `yaml:"thickness"`
	FontScale           float64 `yaml:"font_scale"`
}

// StatusConfig contains the HTTP status server settings
type StatusConfig struct {
	Listen string `yaml:"listen"` // empty disables the server
}

// ChatConfig contains the chat-completion assistant settings
type ChatConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Endpoint     string        `yaml:"endpoint"` // OpenAI-compatible /chat/completions URL
	Model        string        `yaml:"model"`
	SystemPrompt string        `yaml:"system_prompt"`
	APIKey       string        `yaml:"api_key"`     // prefer api_key_env
	APIKeyEnv    string        `yaml:"api_key_env"` // read when api_key is empty
	Timeout      time.Duration `yaml:"timeout"`
}

// ResolveAPIKey returns the configured key, falling back to the
// environment variable named by APIKeyEnv.
func (c ChatConfig) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "json"},
		Camera: CameraConfig{Device: 0, BufferSize: 2, Width: 840, Height: 480},
		Detector: DetectorConfig{
			InputWidth:     320,
			InputHeight:    320,
			ScoreThreshold: 0.5,
			NMSThreshold:   0.4,
		},
		OCR: OCRConfig{Language: "eng", PageSegMode: 6, MinCropHeight: 24},
		Overlay: OverlayConfig{
			ConfidenceThreshold: 50,
			BoxColor:            "#00ff00",
			TextColor:           "#00ff00",
			FPSColor:            "#ff0000",
			Thickness:           2,
			FontScale:           1.0,
		},
		Chat: ChatConfig{
			Endpoint:     "https://api.perplexity.ai/chat/completions",
			Model:        "sonar",
			SystemPrompt: "Be precise and concise.",
			APIKeyEnv:    "CHAT_API_KEY",
			Timeout:      30 * time.Second,
		},
	}
}

// Load reads and parses a YAML configuration file. Keys missing from the
// file keep their defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values
func Validate(cfg *Config) error {
	var errs []error

	switch cfg.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", cfg.Log.Format))
	}

	if cfg.Camera.Device < 0 {
		errs = append(errs, fmt.Errorf("camera.device must not be negative"))
	}
	if cfg.Camera.BufferSize < 1 {
		errs = append(errs, fmt.Errorf("camera.buffer_size must be at least 1"))
	}
	if cfg.Camera.Width <= 0 || cfg.Camera.Height <= 0 {
		errs = append(errs, fmt.Errorf("camera width and height must be positive"))
	}

	if cfg.Detector.ModelPath != "" {
		if cfg.Detector.InputWidth <= 0 || cfg.Detector.InputWidth%32 != 0 ||
			cfg.Detector.InputHeight <= 0 || cfg.Detector.InputHeight%32 != 0 {
			errs = append(errs, fmt.Errorf("detector input size must be a positive multiple of 32"))
		}
		if cfg.Detector.ScoreThreshold <= 0 || cfg.Detector.ScoreThreshold >= 1 {
			errs = append(errs, fmt.Errorf("detector.score_threshold must be in (0, 1)"))
		}
		if cfg.Detector.NMSThreshold <= 0 || cfg.Detector.NMSThreshold >= 1 {
			errs = append(errs, fmt.Errorf("detector.nms_threshold must be in (0, 1)"))
		}
	}

	if cfg.OCR.PageSegMode < 0 || cfg.OCR.PageSegMode > 13 {
		errs = append(errs, fmt.Errorf("ocr.page_seg_mode must be between 0 and 13"))
	}
	if cfg.OCR.MinCropHeight < 0 {
		errs = append(errs, fmt.Errorf("ocr.min_crop_height must not be negative"))
	}

	if cfg.Overlay.ConfidenceThreshold < 0 || cfg.Overlay.ConfidenceThreshold > 100 {
		errs = append(errs, fmt.Errorf("overlay.confidence_threshold must be between 0 and 100"))
	}
	if cfg.Overlay.Thickness < 1 {
		errs = append(errs, fmt.Errorf("overlay.thickness must be at least 1"))
	}
	if cfg.Overlay.FontScale <= 0 {
		errs = append(errs, fmt.Errorf("overlay.font_scale must be positive"))
	}
	for name, hex := range map[string]string{
		"box_color":  cfg.Overlay.BoxColor,
		"text_color": cfg.Overlay.TextColor,
		"fps_color":  cfg.Overlay.FPSColor,
	} {
		if _, err := ParseColor(hex); err != nil {
			errs = append(errs, fmt.Errorf("overlay.%s: %w", name, err))
		}
	}

	if cfg.Chat.Enabled {
		if u, err := url.Parse(cfg.Chat.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("chat.endpoint must be an http(s) URL, got %q", cfg.Chat.Endpoint))
		}
		if cfg.Chat.Model == "" {
			errs = append(errs, fmt.Errorf("chat.model must not be empty"))
		}
		if cfg.Chat.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("chat.timeout must be positive"))
		}
	}

	return errors.Join(errs...)
}

// ParseColor parses a "#rrggbb" string into an opaque colour.
func ParseColor(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", hex)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
