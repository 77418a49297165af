package autoreply

import (
	"context"
	"errors"
	"sort"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/store"
)

// Record is the persisted set of comment ids a user has already replied to,
// plus how often each template produced a posted reply.
type Record struct {
	store store.Store
}

func NewRecord(s store.Store) *Record {
	return &Record{store: s}
}

// Replied returns the comment ids marked as replied for userID.
func (r *Record) Replied(ctx context.Context, userID string) (map[string]bool, error) {
	replied := map[string]bool{}
	err := store.GetJSON(ctx, r.store, store.RepliedKey(userID), &replied)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if replied == nil {
		replied = map[string]bool{}
	}
	return replied, nil
}

// IsReplied reports whether commentID is marked.
func (r *Record) IsReplied(ctx context.Context, userID, commentID string) (bool, error) {
	replied, err := r.Replied(ctx, userID)
	if err != nil {
		return false, err
	}
	return replied[commentID], nil
}

// MarkReplied sets the flag for commentID. The map is merged under the store's
// atomic update so concurrent tasks never drop each other's entries. A
// non-empty template is counted toward its usage.
func (r *Record) MarkReplied(ctx context.Context, userID, commentID, template string) error {
	err := store.UpdateJSON(ctx, r.store, store.RepliedKey(userID), func(m *map[string]bool, _ bool) (bool, error) {
		if *m == nil {
			*m = map[string]bool{}
		}
		if (*m)[commentID] {
			return false, nil
		}
		(*m)[commentID] = true
		return true, nil
	})
	if err != nil || template == "" {
		return err
	}
	return store.UpdateJSON(ctx, r.store, store.TemplateUsageKey(userID), func(m *map[string]int, _ bool) (bool, error) {
		if *m == nil {
			*m = map[string]int{}
		}
		(*m)[template]++
		return true, nil
	})
}

// TemplateUsage is one entry of the analytics ranking.
type TemplateUsage struct {
	Template string `json:"template"`
	Count    int    `json:"count"`
}

// Summary is the analytics view of a user's reply history.
type Summary struct {
	TotalReplies     int             `json:"totalReplies"`
	PopularTemplates []TemplateUsage `json:"popularTemplates"`
}

// Summarize counts replied comments and ranks templates by use, most used first.
func (r *Record) Summarize(ctx context.Context, userID string, top int) (Summary, error) {
	replied, err := r.Replied(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	usage := map[string]int{}
	if err := store.GetJSON(ctx, r.store, store.TemplateUsageKey(userID), &usage); err != nil && !errors.Is(err, store.ErrNotFound) {
		return Summary{}, err
	}

	s := Summary{PopularTemplates: []TemplateUsage{}}
	for _, ok := range replied {
		if ok {
			s.TotalReplies++
		}
	}
	for t, n := range usage {
		s.PopularTemplates = append(s.PopularTemplates, TemplateUsage{Template: t, Count: n})
	}
	sort.Slice(s.PopularTemplates, func(i, j int) bool {
		a, b := s.PopularTemplates[i], s.PopularTemplates[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Template < b.Template
	})
	if top > 0 && len(s.PopularTemplates) > top {
		s.PopularTemplates = s.PopularTemplates[:top]
	}
	return s, nil
}
