// Package jsonl reads and writes posts as JSON lines
//
// The offline source reads <Dir>/<identity>.jsonl, one domain.Post per line,
// so exports of feedvault-fetch can be replayed as a source
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"feedvault/internal/core/interval"
	perr "feedvault/internal/platform/errors"
	"feedvault/internal/platform/logger"
	"feedvault/internal/services/archive/domain"
)

const maxLine = 4 << 20

// Source serves posts from a directory of per identity files
type Source struct {
	Dir string
}

var _ domain.Source = (*Source)(nil)

// NewSource returns a Source over dir
func NewSource(dir string) *Source { return &Source{Dir: dir} }

// Fetch returns the posts of identity published within iv
// a missing file is reported as not found
func (s *Source) Fetch(ctx context.Context, identity string, iv interval.Interval) ([]domain.Post, error) {
	if identity == "" || strings.ContainsAny(identity, `/\`) || identity == "." || identity == ".." {
		return nil, perr.InvalidArgf("jsonl: bad identity %q", identity)
	}
	path := filepath.Join(s.Dir, identity+".jsonl")
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, perr.NotFoundf("jsonl: no file for %s", identity)
	}
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "jsonl: open %s", path)
	}
	defer func() { _ = f.Close() }()

	r := NewReader(f)
	var out []domain.Post
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "jsonl: read %s", path)
		}
		if !iv.Contains(p.Day()) {
			continue
		}
		p.Identity = identity
		out = append(out, p)
	}
	if n := r.Skipped(); n > 0 {
		logger.Named("jsonl").Warn().Str("path", path).Int("skipped", n).Msg("malformed lines skipped")
	}
	return out, nil
}

// Reader streams posts from JSON lines, skipping malformed ones
type Reader struct {
	sc      *bufio.Scanner
	skipped int
}

// NewReader wraps r
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	return &Reader{sc: sc}
}

// Next returns the next post or io.EOF
func (rd *Reader) Next() (domain.Post, error) {
	for rd.sc.Scan() {
		line := rd.sc.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var p domain.Post
		if err := json.Unmarshal(line, &p); err != nil || p.PostID == "" {
			rd.skipped++
			continue
		}
		return p, nil
	}
	if err := rd.sc.Err(); err != nil {
		return domain.Post{}, err
	}
	return domain.Post{}, io.EOF
}

// Skipped counts malformed lines seen so far
func (rd *Reader) Skipped() int { return rd.skipped }

// Write encodes posts one per line
func Write(w io.Writer, posts []domain.Post) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, p := range posts {
		if err := enc.Encode(p); err != nil {
			return err
		}
	}
	return bw.Flush()
}
