package jsonl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"feedvault/internal/core/interval"
	perr "feedvault/internal/platform/errors"
	"feedvault/internal/services/archive/domain"
)

func p(id string, at time.Time) domain.Post {
	return domain.Post{Identity: "someone", PostID: id, PublishTime: at, Text: "<b>&</b>", FetchedAt: at}
}

func TestWriteThenFetch(t *testing.T) {
	dir := t.TempDir()
	posts := []domain.Post{
		p("1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		p("2", time.Date(2024, 1, 2, 23, 59, 59, 0, time.UTC)),
		p("3", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)),
	}
	var buf bytes.Buffer
	if err := Write(&buf, posts); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "<b>&</b>") || strings.Count(buf.String(), "\n") != 3 {
		t.Fatalf("encoded = %q", buf.String())
	}
	buf.WriteString("not json\n\n{\"text\":\"no id\"}\n")
	if err := os.WriteFile(filepath.Join(dir, "jack.jsonl"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	iv := interval.Interval{Start: interval.MustDate("2024-01-01"), End: interval.MustDate("2024-01-02")}
	got, err := NewSource(dir).Fetch(context.Background(), "jack", iv)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].PostID != "1" || got[1].PostID != "2" || got[0].Identity != "jack" {
		t.Fatalf("got %+v", got)
	}
}

func TestFetch_MissingAndBadIdentity(t *testing.T) {
	s := NewSource(t.TempDir())
	_, err := s.Fetch(context.Background(), "ghost", interval.Interval{})
	if !perr.IsCode(err, perr.ErrorCodeNotFound) || domain.Classify(err) != domain.KindNotFound {
		t.Fatalf("missing err = %v", err)
	}
	for _, bad := range []string{"", "..", "a/b", `a\b`} {
		if _, err := s.Fetch(context.Background(), bad, interval.Interval{}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
			t.Fatalf("identity %q err = %v", bad, err)
		}
	}
}

func TestReader_SkipsAndCounts(t *testing.T) {
	r := NewReader(strings.NewReader("{\"post_id\":\"a\"}\n{oops\n{\"post_id\":\"b\"}\n"))
	var ids []string
	for {
		p, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, p.PostID)
	}
	if strings.Join(ids, ",") != "a,b" || r.Skipped() != 1 {
		t.Fatalf("ids = %v skipped = %d", ids, r.Skipped())
	}
}
