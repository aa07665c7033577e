package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/c2h5oh/datasize"
	"github.com/fsnotify/fsnotify"
	"github.com/thisisjab/docquery/fault"
)

// StdinPath makes a FileSource read standard input.
const StdinPath = "-"

type FileSourceConfig struct {
	Path string `yaml:"path"`
	// MaxSize limits the document size. Zero means no limit.
	MaxSize datasize.ByteSize `yaml:"max_size"`
}

// FileSource provides the whole content of a file (or stdin) as a document.
type FileSource struct {
	cfg    FileSourceConfig
	logger *slog.Logger
	stdin  io.Reader
}

// NewFileSource creates a new FileSource instance.
func NewFileSource(logger *slog.Logger, cfg FileSourceConfig) (*FileSource, error) {
	if cfg.Path == "" {
		return nil, fault.New(fault.BadInputCode, "document path is required")
	}

	return &FileSource{
		cfg:    cfg,
		logger: logger,
		stdin:  os.Stdin,
	}, nil
}

func (f *FileSource) Name() string {
	if f.cfg.Path == StdinPath {
		return "stdin"
	}
	return f.cfg.Path
}

func (f *FileSource) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if f.cfg.Path == StdinPath {
		return f.readFrom(f.stdin)
	}

	file, err := os.Open(f.cfg.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fault.New(fault.NotFoundCode, "cannot open document").WithOriginal(err)
		}
		return "", fault.New(fault.UnknownCode, "cannot open document").WithOriginal(err)
	}
	defer file.Close()

	return f.readFrom(file)
}

func (f *FileSource) readFrom(r io.Reader) (string, error) {
	if f.cfg.MaxSize > 0 {
		// Read one byte past the limit to tell "exactly at" from "over".
		r = io.LimitReader(r, int64(f.cfg.MaxSize)+1)
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return "", fault.New(fault.UnknownCode, "cannot read document").WithOriginal(err)
	}

	if f.cfg.MaxSize > 0 && uint64(len(content)) > f.cfg.MaxSize.Bytes() {
		return "", fault.New(fault.BadInputCode, fmt.Sprintf("document is larger than %s", f.cfg.MaxSize.HR()))
	}

	return string(content), nil
}

// Watch calls onChange with the fresh content every time the file is written
// or replaced, until ctx is done, the watcher fails or onChange returns an
// error. The content present when Watch starts is not reported.
func (f *FileSource) Watch(ctx context.Context, onChange func(document string) error) error {
	if f.cfg.Path == StdinPath {
		return fault.New(fault.BadInputCode, "cannot watch standard input")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors like vim write a new file and rename it over the old one, which
	// drops a watch on the file itself. Watching the directory keeps working.
	target := filepath.Clean(f.cfg.Path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("cannot add directory to watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				f.logger.Debug("fsnotify watcher channel is closed.")
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				f.logger.Debug("received unhandled event from fsnotify.", "event", event.String())
				continue
			}

			content, err := f.Read(ctx)
			if err != nil {
				// The file may be mid-rotation; the next event will retry.
				f.logger.Warn("cannot read changed document.", "path", f.cfg.Path, "error", err)
				continue
			}

			if err := onChange(content); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
