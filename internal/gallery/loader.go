package gallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ErrNoUsableFaces is returned when the roster has enrolled identities
// but not a single reference image could be encoded.
var ErrNoUsableFaces = errors.New("no usable face embeddings in roster")

// maxReferenceSize is the longest edge reference images are downscaled
// to before being sent to the embedding service.
const maxReferenceSize = 1024

// Encoder turns one reference image into exactly one face embedding.
// It is the boundary to the external recognition model: images where
// the model finds no face must return an error.
type Encoder interface {
	EncodeFace(ctx context.Context, imageData []byte) ([]float32, error)
}

// Loader builds a Gallery from a roster directory laid out as one
// subdirectory per identity, each holding reference images.
type Loader struct {
	encoder  Encoder
	dim      int
	aliases  map[string]string
	progress bool
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithProgress enables a terminal progress bar during enrollment.
func WithProgress() LoaderOption {
	return func(l *Loader) { l.progress = true }
}

// WithAliasFile loads display-name overrides from a YAML file mapping
// identity keys to names. A missing file is not an error.
func WithAliasFile(path string) LoaderOption {
	return func(l *Loader) {
		aliases, err := loadAliases(path)
		if err != nil {
			zap.L().Warn("ignoring alias file", zap.String("path", path), zap.Error(err))
			return
		}
		l.aliases = aliases
	}
}

// NewLoader creates a roster loader using the given encoder and
// expected embedding dimension.
func NewLoader(encoder Encoder, dim int, opts ...LoaderOption) *Loader {
	l := &Loader{encoder: encoder, dim: dim}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load walks the roster directory and builds the gallery.
//
// Each identity keeps the first reference image that encodes
// successfully; later images for the same identity are ignored.
// Identities with no encodable image are skipped with a warning.
// An unreadable roster root is fatal, as is a roster that enrolls
// identities but yields zero embeddings.
func (l *Loader) Load(ctx context.Context, dir string) (*Gallery, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading roster directory %s: %w", dir, err)
	}

	var personDirs []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		personDirs = append(personDirs, entry.Name())
	}

	var bar *progressbar.ProgressBar
	if l.progress {
		bar = progressbar.Default(int64(len(personDirs)), "enrolling")
	}

	identities := make([]Identity, 0, len(personDirs))
	for _, key := range personDirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		identity, err := l.loadIdentity(ctx, dir, key)
		if err != nil {
			zap.L().Warn("skipping identity with no usable reference image",
				zap.String("key", key), zap.Error(err))
		} else {
			identities = append(identities, identity)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if len(personDirs) > 0 && len(identities) == 0 {
		return nil, fmt.Errorf("roster %s: %w", dir, ErrNoUsableFaces)
	}

	zap.L().Info("gallery loaded",
		zap.Int("enrolled", len(identities)),
		zap.Int("skipped", len(personDirs)-len(identities)))

	return New(identities, l.dim)
}

// loadIdentity encodes the first usable reference image in an identity
// directory.
func (l *Loader) loadIdentity(ctx context.Context, rosterDir, key string) (Identity, error) {
	personDir := filepath.Join(rosterDir, key)
	entries, err := os.ReadDir(personDir)
	if err != nil {
		return Identity{}, fmt.Errorf("reading %s: %w", personDir, err)
	}

	var lastErr error
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(personDir, entry.Name())

		data, err := os.ReadFile(path) //nolint:gosec // path comes from the configured roster dir
		if err != nil {
			lastErr = err
			continue
		}

		embedding, err := l.encoder.EncodeFace(ctx, prepareReferenceImage(data))
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", entry.Name(), err)
			continue
		}
		if len(embedding) != l.dim {
			lastErr = fmt.Errorf("%s: embedding dimension %d, want %d", entry.Name(), len(embedding), l.dim)
			continue
		}

		return Identity{
			Key:       key,
			Name:      l.displayName(key),
			Embedding: embedding,
			Source:    path,
		}, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no reference images")
	}
	return Identity{}, lastErr
}

// displayName renders an identity key for display: underscores become
// spaces and each word is title-cased, unless an alias overrides it.
func (l *Loader) displayName(key string) string {
	if name, ok := l.aliases[key]; ok {
		return name
	}
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

// prepareReferenceImage downscales large reference images before they
// are sent to the embedding service. Images Go cannot decode are
// passed through untouched and left to the service.
func prepareReferenceImage(data []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxReferenceSize && height <= maxReferenceSize {
		return data
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxReferenceSize
		newHeight = height * maxReferenceSize / width
	} else {
		newHeight = maxReferenceSize
		newWidth = width * maxReferenceSize / height
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return data
	}
	return buf.Bytes()
}

// loadAliases reads a YAML file mapping identity keys to display names.
func loadAliases(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, err
	}

	aliases := make(map[string]string)
	if err := yaml.Unmarshal(data, &aliases); err != nil {
		return nil, fmt.Errorf("parsing aliases: %w", err)
	}
	return aliases, nil
}
