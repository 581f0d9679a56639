// Package feed drives the infinite-scroll post list: one page at a time,
// never two loads at once.
package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/godeps/community-sdk-go/pkg/community"
)

var (
	// ErrBusy is returned by Next while a previous load is still running.
	ErrBusy = errors.New("feed: load in progress")
	// ErrExhausted is returned by Next once the last page has been loaded.
	ErrExhausted = errors.New("feed: no more pages")
)

// Page is one fetched page.
type Page[T any] struct {
	Items   []T
	HasNext bool
}

// Fetcher loads page (1-based) holding up to limit items.
type Fetcher[T any] func(ctx context.Context, page, limit int) (Page[T], error)

// Pager walks a Fetcher page by page.
type Pager[T any] struct {
	fetch Fetcher[T]
	limit int

	mu      sync.Mutex
	page    int
	loading bool
	done    bool
	gen     uint64
}

// New returns a pager over fetch. A non-positive limit uses
// community.DefaultPageSize.
func New[T any](fetch Fetcher[T], limit int) *Pager[T] {
	if limit < 1 {
		limit = community.DefaultPageSize
	}
	return &Pager[T]{fetch: fetch, limit: limit}
}

// Next loads the page after the last successful one. A failed load leaves the
// position unchanged so the same page is retried next time. The pager is
// exhausted by a page with HasNext false or fewer than limit items.
func (p *Pager[T]) Next(ctx context.Context) ([]T, error) {
	p.mu.Lock()
	if p.loading {
		p.mu.Unlock()
		return nil, ErrBusy
	}
	if p.done {
		p.mu.Unlock()
		return nil, ErrExhausted
	}
	p.loading = true
	gen := p.gen
	want := p.page + 1
	p.mu.Unlock()

	page, err := p.fetch(ctx, want, p.limit)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		// Reset ran while loading; the result belongs to the old list.
		return nil, context.Canceled
	}
	p.loading = false
	if err != nil {
		return nil, err
	}
	p.page = want
	if !page.HasNext || len(page.Items) < p.limit {
		p.done = true
	}
	return page.Items, nil
}

// Reset starts over from the first page. A load in flight is discarded.
func (p *Pager[T]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.page = 0
	p.loading = false
	p.done = false
}

// Page is the number of the last page loaded, 0 before the first.
func (p *Pager[T]) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

func (p *Pager[T]) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

func (p *Pager[T]) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Posts pages through the post list of svc.
func Posts(svc *community.Service, limit int) *Pager[community.Post] {
	return New(func(ctx context.Context, page, limit int) (Page[community.Post], error) {
		res, err := svc.ListPosts(ctx, page, limit)
		if err != nil {
			return Page[community.Post]{}, err
		}
		return Page[community.Post]{Items: res.Value.Posts, HasNext: res.Value.HasNext}, nil
	}, limit)
}
