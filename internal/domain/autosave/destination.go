package autosave

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/spatialforge/holodesk/backend/internal/infrastructure/logging"
	"github.com/spatialforge/holodesk/backend/internal/infrastructure/resilience"
)

// Destination persists one exported workspace snapshot. Write returns
// the location the snapshot landed at (a path or URL) for the save
// result history.
type Destination interface {
	Name() string
	Write(ctx context.Context, data []byte, stamp time.Time) (string, error)
}

// LocalDestination writes snapshots to a directory on disk. The current
// snapshot is always autosave.ipynb, replaced atomically; optionally a
// gzip archive copy is kept per save.
type LocalDestination struct {
	dir     string
	archive bool
	logger  *logging.Logger
}

// NewLocalDestination creates a local file destination rooted at dir.
func NewLocalDestination(dir string, archiveCopies bool, logger *logging.Logger) *LocalDestination {
	return &LocalDestination{dir: dir, archive: archiveCopies, logger: logger}
}

func (d *LocalDestination) Name() string { return "local_file" }

func (d *LocalDestination) Write(ctx context.Context, data []byte, stamp time.Time) (string, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create autosave dir: %w", err)
	}

	path := filepath.Join(d.dir, "autosave.ipynb")
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}

	if d.archive {
		if err := d.writeArchive(data, stamp); err != nil {
			// Archive copies are best-effort; the primary save landed.
			d.logger.Warn("autosave archive copy failed", zap.Error(err))
		}
	}
	return path, nil
}

func (d *LocalDestination) writeArchive(data []byte, stamp time.Time) error {
	archiveDir := filepath.Join(d.dir, "archive")
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("autosave_%s.ipynb.gz", stamp.UTC().Format("20060102T150405"))
	f, err := os.Create(filepath.Join(archiveDir, name))
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write(data); err != nil {
		gz.Close()
		f.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeAtomic writes data to a temp file in the target directory, then
// renames it over path so readers never see a partial document.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".autosave-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// RemoteDestination uploads snapshots to a Jupyter notebook server via
// its contents API. Writes go through a circuit breaker so a dead
// server degrades to fast local failures instead of piling up timeouts.
type RemoteDestination struct {
	client  *resty.Client
	breaker *resilience.Breaker
	logger  *logging.Logger
	baseURL string
}

// NewRemoteDestination creates a notebook-server destination.
func NewRemoteDestination(baseURL, token string, timeout time.Duration, logger *logging.Logger) *RemoteDestination {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if token != "" {
		client.SetHeader("Authorization", "token "+token)
	}

	breaker := resilience.New("remote_server", resilience.Settings{
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("remote destination breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &RemoteDestination{
		client:  client,
		breaker: breaker,
		logger:  logger,
		baseURL: baseURL,
	}
}

func (d *RemoteDestination) Name() string { return "remote_server" }

func (d *RemoteDestination) Write(ctx context.Context, data []byte, stamp time.Time) (string, error) {
	const path = "/api/contents/autosave.ipynb"

	_, err := d.breaker.Execute(func() (interface{}, error) {
		resp, err := d.client.R().
			SetContext(ctx).
			SetBody(map[string]interface{}{
				"type":    "notebook",
				"format":  "json",
				"content": jsonRaw(data),
			}).
			Put(path)
		if err != nil {
			return nil, fmt.Errorf("remote upload failed: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("remote upload rejected: %s", resp.Status())
		}
		return nil, nil
	})
	if err != nil {
		return "", err
	}
	return d.baseURL + path, nil
}

// Healthy probes the server's status endpoint with retries. Used at
// startup and by the health handler, never on the save path.
func (d *RemoteDestination) Healthy(ctx context.Context) bool {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.Logger = nil

	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", d.baseURL+"/api/status", nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 400
}

// jsonRaw marks bytes as pre-encoded JSON for the request body.
type jsonRaw []byte

func (r jsonRaw) MarshalJSON() ([]byte, error) { return r, nil }
