// Package scan walks a library tree, parses every meta file it finds and
// folds the results into one listing keyed by library-relative path.
package scan

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/metapath/metapath/internal/logging"
	"github.com/metapath/metapath/internal/metadata"
	"github.com/metapath/metapath/internal/pathnorm"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

type Scanner struct {
	Reader   metadata.Reader
	SelfName string
	ItemName string
	Ignore   Ignore
	Workers  int
	Logger   zerolog.Logger
	Events   *logging.EventLogger
}

// Problem is a meta file that could not be read or parsed.
type Problem struct {
	Path string
	Err  error
}

type Result struct {
	Library  string
	Entries  metadata.Listing
	Files    int
	Problems []Problem
	// Dangling holds entries named by an item file that do not exist on disk.
	Dangling []string
}

type metaFile struct {
	path   string
	dir    string
	relDir string
	target metadata.Target
}

type parsed struct {
	listing metadata.Listing
	err     error
}

// Scan never fails because of a single bad meta file; those end up in
// Result.Problems. It fails when the root cannot be walked or ctx is done.
func (s *Scanner) Scan(ctx context.Context, library, root string) (*Result, error) {
	files, err := s.discover(ctx, root)
	if err != nil {
		return nil, err
	}

	results := make([]parsed, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			listing, err := metadata.FromFile(s.reader(), file.path, file.target)
			results[i] = parsed{listing: listing, err: err}
			s.record(library, file, err, time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Library: library, Entries: metadata.Listing{}, Files: len(files)}
	for i, file := range files {
		if results[i].err != nil {
			res.Problems = append(res.Problems, Problem{Path: file.path, Err: results[i].err})
			continue
		}
		for key, meta := range results[i].listing {
			path := entryPath(file.relDir, key)
			res.Entries[path] = metadata.Merge(res.Entries[path], meta)
			if file.target == metadata.TargetSiblings && !exists(file.dir, key) {
				res.Dangling = append(res.Dangling, path)
			}
		}
	}
	sort.Strings(res.Dangling)

	s.Logger.Info().
		Str("library", library).
		Int("files", res.Files).
		Int("entries", len(res.Entries)).
		Int("problems", len(res.Problems)).
		Msg("scan complete")

	return res, nil
}

// discover returns item files before self files so that merging in order
// lets a directory's own self file win over what its parent says about it.
func (s *Scanner) discover(ctx context.Context, root string) ([]metaFile, error) {
	var items, selves []metaFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && s.Ignore.Match(d.Name()) {
				s.Logger.Debug().Str("dir", path).Msg("ignoring directory")
				return filepath.SkipDir
			}
			return nil
		}

		var target metadata.Target
		switch d.Name() {
		case s.ItemName:
			target = metadata.TargetSiblings
		case s.SelfName:
			target = metadata.TargetContains
		default:
			return nil
		}

		dir := filepath.Dir(path)
		rel, err := filepath.Rel(root, dir)
		if err != nil {
			return err
		}
		file := metaFile{path: path, dir: dir, relDir: filepath.ToSlash(rel), target: target}
		if target == metadata.TargetSiblings {
			items = append(items, file)
		} else {
			selves = append(selves, file)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return append(items, selves...), nil
}

func (s *Scanner) record(library string, file metaFile, err error, took time.Duration) {
	event := logging.Event{
		Timestamp:  time.Now().UTC(),
		Kind:       logging.EventIndexFile,
		Library:    library,
		RawPath:    file.path,
		Path:       entryPath(file.relDir, metadata.SelfKey),
		DurationMS: took.Milliseconds(),
	}
	if err != nil {
		event.Kind = logging.EventIndexError
		event.Error = err.Error()
		s.Logger.Warn().Err(err).Str("library", library).Str("file", file.path).Msg("skipping meta file")
	} else {
		s.Logger.Debug().Str("library", library).Str("file", file.path).Msg("parsed meta file")
	}
	if werr := s.Events.Write(event); werr != nil {
		s.Logger.Error().Err(werr).Msg("write event log")
	}
}

func (s *Scanner) reader() metadata.Reader {
	if s.Reader == nil {
		return metadata.YAMLReader{}
	}
	return s.Reader
}

func (s *Scanner) workers() int {
	if s.Workers <= 0 {
		return defaultWorkers
	}
	return s.Workers
}

func entryPath(relDir, key string) string {
	return pathnorm.NormalizeStyle(relDir+"/"+key, pathnorm.Unix)
}

func exists(dir, key string) bool {
	_, err := os.Lstat(filepath.Join(dir, filepath.FromSlash(key)))
	return !errors.Is(err, fs.ErrNotExist)
}
