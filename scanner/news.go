// Copyright (c) 2025 BVK Chaitanya

package scanner

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bvk/cryptoalerts/alert"
	"github.com/bvk/cryptoalerts/gobs"
	"github.com/bvk/cryptoalerts/sources/cryptopanic"
	"github.com/samber/lo"
)

// NewsSource is implemented by cryptopanic.Client.
type NewsSource interface {
	Posts(ctx context.Context, req *cryptopanic.PostsRequest) ([]*cryptopanic.Post, error)
}

type NewsOptions struct {
	Name string

	// Currencies limits posts to the watchlist. Empty means all posts.
	Currencies []string

	Filter string
	Kind   string

	// MaxPosts limits the alerts raised per scan. Defaults to 10.
	MaxPosts int

	// ImportantVotes raises the level to warning when a post has at least
	// this many "important" votes. Defaults to 5.
	ImportantVotes int
}

func (v *NewsOptions) setDefaults() {
	if len(v.Name) == 0 {
		v.Name = "news"
	}
	if v.MaxPosts == 0 {
		v.MaxPosts = 10
	}
	if v.ImportantVotes == 0 {
		v.ImportantVotes = 5
	}
}

// News raises one alert per news post published after the newest post seen
// in the previous scan.
type News struct {
	opts NewsOptions

	source NewsSource
	state  State

	mu sync.Mutex

	// cursor is used when there is no persistent state.
	cursor time.Time
}

// NewNews creates the news scanner. State is optional; the cursor is kept in
// memory when it is nil.
func NewNews(source NewsSource, state State, opts *NewsOptions) (*News, error) {
	if opts == nil {
		opts = new(NewsOptions)
	}
	opts.setDefaults()
	opts.Currencies = lo.Map(opts.Currencies, func(s string, _ int) string { return strings.ToUpper(s) })
	return &News{opts: *opts, source: source, state: state}, nil
}

func (s *News) Name() string {
	return s.opts.Name
}

func (s *News) loadCursor(ctx context.Context) (time.Time, error) {
	if s.state == nil {
		return s.cursor, nil
	}
	state, err := s.state.ScannerState(ctx, s.opts.Name)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not load news cursor: %w", err)
	}
	if len(state.Cursor) == 0 {
		return time.Time{}, nil
	}
	cursor, err := time.Parse(time.RFC3339Nano, state.Cursor)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse news cursor %q: %w", state.Cursor, err)
	}
	return cursor, nil
}

func (s *News) saveCursor(ctx context.Context, cursor time.Time) error {
	if s.state == nil {
		s.cursor = cursor
		return nil
	}
	update := func(state *gobs.ScannerState) error {
		state.Cursor = cursor.UTC().Format(time.RFC3339Nano)
		return nil
	}
	return s.state.UpdateScannerState(ctx, s.opts.Name, update)
}

func (s *News) Scan(ctx context.Context) ([]*alert.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cursor, err := s.loadCursor(ctx)
	if err != nil {
		return nil, err
	}

	posts, err := s.source.Posts(ctx, &cryptopanic.PostsRequest{
		Currencies: s.opts.Currencies,
		Filter:     s.opts.Filter,
		Kind:       s.opts.Kind,
	})
	if err != nil {
		return nil, err
	}

	var fresh []*cryptopanic.Post
	newest := cursor
	for _, p := range posts {
		if !p.PublishedAt.After(cursor) {
			continue
		}
		if p.PublishedAt.After(newest) {
			newest = p.PublishedAt
		}
		if len(s.opts.Currencies) > 0 && len(lo.Intersect(s.opts.Currencies, p.Codes())) == 0 {
			continue
		}
		fresh = append(fresh, p)
	}

	// Oldest first, keeping only the newest MaxPosts.
	slices.SortFunc(fresh, func(a, b *cryptopanic.Post) int {
		return a.PublishedAt.Compare(b.PublishedAt)
	})
	if len(fresh) > s.opts.MaxPosts {
		fresh = fresh[len(fresh)-s.opts.MaxPosts:]
	}

	alerts := lo.Map(fresh, func(p *cryptopanic.Post, _ int) *alert.Alert { return s.postAlert(p) })

	if newest.After(cursor) {
		if err := s.saveCursor(ctx, newest); err != nil {
			return nil, fmt.Errorf("could not save news cursor: %w", err)
		}
	}
	return alerts, nil
}

func (s *News) postAlert(p *cryptopanic.Post) *alert.Alert {
	codes := p.Codes()
	symbol := ""
	if matched := lo.Intersect(s.opts.Currencies, codes); len(matched) > 0 {
		symbol = matched[0]
	} else if len(codes) > 0 {
		symbol = codes[0]
	}

	level := alert.Info
	if p.Votes != nil && p.Votes.Important >= s.opts.ImportantVotes {
		level = alert.Warning
	}

	a := newAlert(s.opts.Name, "news", symbol, level, p.Title, p.PublishedAt)
	a.URL = p.URL
	a.Dedup = strconv.FormatInt(p.ID, 10)
	source := p.Source.Title
	if len(source) == 0 {
		source = p.Domain
	}
	if len(source) > 0 {
		a.AddField("Source", source)
	}
	if len(codes) > 0 {
		a.AddField("Currencies", strings.Join(codes, ", "))
	}
	if p.Votes != nil {
		a.AddField("Votes", fmt.Sprintf("+%d / -%d / %d important", p.Votes.Positive, p.Votes.Negative, p.Votes.Important))
	}
	return a
}
