package httpsource

import (
	"errors"
	"strings"
	"time"

	"feedvault/internal/services/archive/domain"
)

// pageWire is one page of the posts endpoint
type pageWire struct {
	Posts      []postWire `json:"posts"`
	NextCursor string     `json:"next_cursor"`
}

type postWire struct {
	ID          string `json:"id"`
	CreatedAt   string `json:"created_at"`
	Text        string `json:"text"`
	LikeCount   int64  `json:"like_count"`
	RepostCount int64  `json:"repost_count"`
	ReplyCount  int64  `json:"reply_count"`
	QuoteCount  int64  `json:"quote_count"`
	ViewCount   int64  `json:"view_count"`
	URL         string `json:"url"`
	Lang        string `json:"lang"`
	Author      struct {
		FollowersCount int64 `json:"followers_count"`
	} `json:"author"`
}

// createdLayouts are tried in order
var createdLayouts = []string{
	time.RFC3339Nano,
	time.RubyDate, // Mon Jan 02 15:04:05 -0700 2006
}

func (w postWire) toPost(identity string, fetchedAt time.Time) (domain.Post, error) {
	if strings.TrimSpace(w.ID) == "" {
		return domain.Post{}, errors.New("missing id")
	}
	var (
		at  time.Time
		err error
	)
	for _, layout := range createdLayouts {
		if at, err = time.Parse(layout, w.CreatedAt); err == nil {
			break
		}
	}
	if err != nil {
		return domain.Post{}, err
	}
	return domain.Post{
		Identity:            identity,
		PostID:              w.ID,
		PublishTime:         at.UTC(),
		Text:                w.Text,
		LikeCount:           w.LikeCount,
		RepostCount:         w.RepostCount,
		ReplyCount:          w.ReplyCount,
		QuoteCount:          w.QuoteCount,
		ViewCount:           w.ViewCount,
		URL:                 w.URL,
		Language:            w.Lang,
		AuthorFollowerCount: w.Author.FollowersCount,
		FetchedAt:           fetchedAt,
	}, nil
}
