package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"AgileKeeper/internal/cli/crypto"
	"AgileKeeper/internal/cli/model"
	"AgileKeeper/internal/cli/store"
)

// ErrAmbiguous запросу соответствует несколько записей.
var ErrAmbiguous = errors.New("query matches several items")

// NewLogin данные новой записи входа.
type NewLogin struct {
	Title    string
	Username string
	Password string
	URL      string
	Notes    string
}

// ItemService описывает юзкейс-уровень работы с записями для CLI.
type ItemService interface {
	// Add создаёт запись входа и возвращает её.
	Add(ctx context.Context, in NewLogin) (*model.Item, error)

	// List возвращает живые записи, отсортированные по названию.
	List(ctx context.Context) ([]*model.Item, error)

	// Find ищет запись по UUID, префиксу UUID или точному названию.
	Find(ctx context.Context, query string) (*model.Item, error)

	// Remove удаляет найденную запись (превращает её в маркер удаления) и
	// возвращает её копию до удаления.
	Remove(ctx context.Context, query string) (*model.Item, error)
}

// ItemServiceStore реализация ItemService поверх store.Store.
type ItemServiceStore struct {
	store store.Store
}

var _ ItemService = (*ItemServiceStore)(nil)

// NewItemService конструктор сервиса записей.
func NewItemService(s store.Store) *ItemServiceStore {
	return &ItemServiceStore{store: s}
}

func (s *ItemServiceStore) Add(ctx context.Context, in NewLogin) (*model.Item, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, errors.New("title is required")
	}
	item := model.NewItem(s.store, crypto.NewUUID(), model.LoginType)
	item.Title = in.Title
	content := model.LoginContent(in.Username, in.Password, in.URL)
	content.Notes = in.Notes
	item.SetContent(content)
	if err := item.Save(ctx); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ItemServiceStore) List(ctx context.Context) ([]*model.Item, error) {
	items, err := s.store.ListItems(ctx, store.ListItemsOptions{})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].Title) < strings.ToLower(items[j].Title)
	})
	return items, nil
}

func (s *ItemServiceStore) Find(ctx context.Context, query string) (*model.Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty query")
	}
	items, err := s.store.ListItems(ctx, store.ListItemsOptions{})
	if err != nil {
		return nil, err
	}
	upper := strings.ToUpper(query)
	var byUUID, byTitle []*model.Item
	for _, it := range items {
		if it.UUID == upper {
			return it, nil
		}
		if strings.HasPrefix(it.UUID, upper) {
			byUUID = append(byUUID, it)
		}
		if strings.EqualFold(it.Title, query) {
			byTitle = append(byTitle, it)
		}
	}
	for _, found := range [][]*model.Item{byUUID, byTitle} {
		switch len(found) {
		case 0:
			continue
		case 1:
			return found[0], nil
		default:
			return nil, fmt.Errorf("%w: %q (%d items)", ErrAmbiguous, query, len(found))
		}
	}
	return nil, fmt.Errorf("%w: %q", store.ErrNotFound, query)
}

func (s *ItemServiceStore) Remove(ctx context.Context, query string) (*model.Item, error) {
	item, err := s.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	removed := item.Clone()
	if err := item.Remove(ctx); err != nil {
		return nil, err
	}
	return removed, nil
}
