// Package aryn provides a DocumentParser backed by the Aryn DocParse
// partitioning API.
package aryn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.DocumentParser = (*Parser)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.aryn.cloud"
	DefaultTimeout   = 5 * time.Minute
	DefaultTableMode = "standard"

	partitionPath = "/v1/document/partition"

	// maxErrorBody bounds how much of an error response ends up in messages.
	maxErrorBody = 512
)

// Config holds configuration for the Aryn parser.
type Config struct {
	// APIKey is the Aryn API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.aryn.cloud).
	BaseURL string

	// Timeout bounds one partition call (default: 5m).
	Timeout time.Duration

	// TableMode selects table extraction (default: standard).
	TableMode string

	// ExtractImages asks the service to return image elements.
	ExtractImages bool
}

// Parser sends files to the partition endpoint as multipart uploads.
type Parser struct {
	client  *http.Client
	baseURL string
	apiKey  string
	options partitionOptions
}

// partitionOptions is the JSON sent in the "options" form field.
type partitionOptions struct {
	TableMode     string `json:"table_mode,omitempty"`
	ExtractImages bool   `json:"extract_images"`
}

// NewParser creates a new Aryn parser.
func NewParser(cfg Config) (*Parser, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("aryn: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TableMode == "" {
		cfg.TableMode = DefaultTableMode
	}

	return &Parser{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		options: partitionOptions{
			TableMode:     cfg.TableMode,
			ExtractImages: cfg.ExtractImages,
		},
	}, nil
}

// Parse uploads the file and returns the partitioned elements.
func (p *Parser) Parse(ctx context.Context, filename string, data []byte) (*domain.ParsedDocument, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("aryn: %w: empty file", domain.ErrInvalidInput)
	}

	body, contentType, err := p.encode(filename, data)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+partitionPath, body)
	if err != nil {
		return nil, fmt.Errorf("aryn: create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("aryn: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("aryn: partition returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed domain.ParsedDocument
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("aryn: decode response: %w", err)
	}

	return &parsed, nil
}

func (p *Parser) encode(filename string, data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("aryn: create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("aryn: write form file: %w", err)
	}

	options, err := json.Marshal(p.options)
	if err != nil {
		return nil, "", fmt.Errorf("aryn: encode options: %w", err)
	}
	if err := w.WriteField("options", string(options)); err != nil {
		return nil, "", fmt.Errorf("aryn: write options: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("aryn: close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
