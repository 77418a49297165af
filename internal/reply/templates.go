package reply

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/model"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/store"
)

// TemplateStore keeps each user's ordered list of reply templates. The whole
// list is rewritten on every mutation.
type TemplateStore struct {
	store store.Store
}

// NewTemplateStore creates a TemplateStore on s.
func NewTemplateStore(s store.Store) *TemplateStore {
	return &TemplateStore{store: s}
}

// List returns the user's templates in insertion order.
func (t *TemplateStore) List(ctx context.Context, userID string) ([]string, error) {
	var list []string
	err := store.GetJSON(ctx, t.store, store.TemplatesKey(userID), &list)
	if errors.Is(err, store.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Get returns the template at index.
func (t *TemplateStore) Get(ctx context.Context, userID string, index int) (string, error) {
	list, err := t.List(ctx, userID)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(list) {
		return "", fmt.Errorf("template %d: %w", index, model.ErrNotFound)
	}
	return list[index], nil
}

// Add appends text. Blank text is rejected.
func (t *TemplateStore) Add(ctx context.Context, userID, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("template text: %w", model.ErrInvalidInput)
	}
	var out []string
	err := store.UpdateJSON(ctx, t.store, store.TemplatesKey(userID), func(list *[]string, _ bool) (bool, error) {
		*list = append(*list, text)
		out = *list
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the template at index.
func (t *TemplateStore) Delete(ctx context.Context, userID string, index int) ([]string, error) {
	var out []string
	err := store.UpdateJSON(ctx, t.store, store.TemplatesKey(userID), func(list *[]string, _ bool) (bool, error) {
		if index < 0 || index >= len(*list) {
			return false, fmt.Errorf("template %d: %w", index, model.ErrNotFound)
		}
		*list = append((*list)[:index], (*list)[index+1:]...)
		out = *list
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
