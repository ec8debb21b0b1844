package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/leak-analysis/pkg/utils"
)

var contentTypes = map[string]string{
	".dot":  "text/vnd.graphviz",
	".gv":   "text/vnd.graphviz",
	".svg":  "image/svg+xml",
	".png":  "image/png",
	".json": "application/json",
	".txt":  "text/plain; charset=utf-8",
	".log":  "text/plain; charset=utf-8",
	".gz":   "application/gzip",
	".zst":  "application/zstd",
}

// ContentType maps an artifact file name to the type it is served with.
// Compressed exports are typed by their outer container.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Publisher uploads files produced by a run under a common key prefix.
type Publisher struct {
	store  ArtifactStore
	prefix string
	logger utils.Logger
}

// NewPublisher returns a publisher writing to store under prefix.
func NewPublisher(store ArtifactStore, prefix string, logger utils.Logger) *Publisher {
	return &Publisher{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		logger: utils.OrNull(logger),
	}
}

// Key is the object key localPath is published under: the prefix joined
// with the file's base name.
func (p *Publisher) Key(localPath string) string {
	name := filepath.Base(localPath)
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}

// Publish uploads localPath and returns its URL.
func (p *Publisher) Publish(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	key := p.Key(localPath)
	if err := p.store.Put(ctx, key, f, ContentType(localPath)); err != nil {
		return "", fmt.Errorf("failed to publish %s: %w", key, err)
	}

	url := p.store.URL(key)
	p.logger.Info("published %s", url)
	return url, nil
}
