package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/seenimoa/fxwatch/pkg/models"
)

// FileLoader reads the dataset from a local JSON file.
type FileLoader struct {
	Path string
}

// NewFileLoader creates a loader for path.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{Path: path}
}

// Source returns the file path.
func (l *FileLoader) Source() string { return l.Path }

// Load reads and validates the dataset file.
func (l *FileLoader) Load(ctx context.Context) (*models.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// HTTPLoader fetches the dataset from a URL.
type HTTPLoader struct {
	URL    string
	Client *http.Client
}

// NewHTTPLoader creates a loader for url using the shared HTTP client.
func NewHTTPLoader(url string) *HTTPLoader {
	return &HTTPLoader{URL: url, Client: HTTPClient}
}

// Source returns the URL.
func (l *HTTPLoader) Source() string { return l.URL }

// Load fetches and validates the dataset. Any non-2xx response is an error.
func (l *HTTPLoader) Load(ctx context.Context) (*models.Dataset, error) {
	body, err := doGet(ctx, l.Client, l.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	defer body.Close()
	return Decode(body)
}

// NewLoader picks an HTTPLoader for http(s) locations and a FileLoader
// otherwise.
func NewLoader(location string) Loader {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPLoader(location)
	}
	return NewFileLoader(location)
}

// Decode parses a dataset document and checks that it has a historical
// section.
func Decode(r io.Reader) (*models.Dataset, error) {
	var raw struct {
		models.Dataset
		Historical *[]models.HistoricalRecord `json:"historical"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	if raw.Historical == nil {
		return nil, ErrEmptyDataset
	}
	ds := raw.Dataset
	ds.Historical = *raw.Historical
	return &ds, nil
}
