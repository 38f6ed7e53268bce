// Package model описывает записи хранилища: метаданные (overview) и
// зашифрованное содержимое.
package model

import (
	"context"
	"errors"
	"slices"
	"time"
)

// ErrNoStore возвращается при попытке загрузить или сохранить запись,
// не привязанную к хранилищу.
var ErrNoStore = errors.New("item is not bound to a store")

// ChangeSource источник изменения записи.
type ChangeSource int

const (
	// SourceUser правка пользователя: при сохранении обновляется UpdatedAt.
	SourceUser ChangeSource = iota
	// SourceSync запись пришла из синхронизации и сохраняется как есть.
	SourceSync
)

// ItemStore то, что нужно записи от хранилища: ленивое чтение содержимого и сохранение.
type ItemStore interface {
	LoadItem(ctx context.Context, uuid string) (ItemAndContent, error)
	SaveItem(ctx context.Context, item *Item, source ChangeSource) error
}

// ItemOpenContents незашифрованная часть записи.
type ItemOpenContents struct {
	Tags  []string
	Scope string
}

// Item метаданные записи.
type Item struct {
	UUID         string
	Title        string
	TypeName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Trashed      bool
	FaveIndex    *int
	FolderUUID   string
	Location     string
	OpenContents ItemOpenContents

	// Revision меняется тогда и только тогда, когда меняется зашифрованное содержимое.
	Revision string
	// ParentRevision ревизия, от которой произведена эта версия.
	ParentRevision string

	store   ItemStore
	content *ItemContent
}

// ItemAndContent запись вместе с расшифрованным содержимым.
type ItemAndContent struct {
	Item    *Item
	Content ItemContent
}

// ItemState краткое состояние записи для синхронизации.
type ItemState struct {
	UUID     string
	Revision string
	Deleted  bool
}

// NewItem создаёт запись с заданным UUID, привязанную к store.
func NewItem(store ItemStore, uuid, typeName string) *Item {
	now := time.Now().Truncate(time.Second).UTC()
	return &Item{
		UUID:      uuid,
		TypeName:  typeName,
		CreatedAt: now,
		UpdatedAt: now,
		store:     store,
	}
}

// Store возвращает хранилище, к которому привязана запись.
func (it *Item) Store() ItemStore { return it.store }

// Bind привязывает запись к хранилищу.
func (it *Item) Bind(store ItemStore) { it.store = store }

// IsTombstone сообщает, является ли запись маркером удаления.
func (it *Item) IsTombstone() bool { return it.TypeName == TombstoneType }

// SetContent прикрепляет содержимое и обновляет Location по первому URL.
func (it *Item) SetContent(c ItemContent) {
	cc := c.Clone()
	it.content = &cc
	if len(cc.URLs) > 0 {
		it.Location = cc.URLs[0].URL
	}
}

// LoadedContent возвращает прикреплённое содержимое, если оно есть.
func (it *Item) LoadedContent() (ItemContent, bool) {
	if it.content == nil {
		return ItemContent{}, false
	}
	return *it.content, true
}

// Content возвращает содержимое, при необходимости загружая его из хранилища.
func (it *Item) Content(ctx context.Context) (ItemContent, error) {
	if it.content != nil {
		return *it.content, nil
	}
	if it.store == nil {
		return ItemContent{}, ErrNoStore
	}
	loaded, err := it.store.LoadItem(ctx, it.UUID)
	if err != nil {
		return ItemContent{}, err
	}
	it.content = &loaded.Content
	return loaded.Content, nil
}

// Save обновляет UpdatedAt и сохраняет запись в привязанное хранилище.
func (it *Item) Save(ctx context.Context) error {
	if it.store == nil {
		return ErrNoStore
	}
	it.UpdatedAt = time.Now().Truncate(time.Second).UTC()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = it.UpdatedAt
	}
	return it.store.SaveItem(ctx, it, SourceUser)
}

// Remove превращает запись в маркер удаления и сохраняет её.
func (it *Item) Remove(ctx context.Context) error {
	it.MakeTombstone()
	return it.Save(ctx)
}

// MakeTombstone стирает все идентифицирующие поля, кроме UUID.
func (it *Item) MakeTombstone() {
	it.TypeName = TombstoneType
	it.Title = "Unnamed"
	it.Trashed = true
	it.FaveIndex = nil
	it.FolderUUID = ""
	it.Location = ""
	it.OpenContents = ItemOpenContents{}
	it.SetContent(ItemContent{})
}

// Clone возвращает копию записи без привязки к хранилищу.
func (it *Item) Clone() *Item {
	c := *it
	c.store = nil
	if it.FaveIndex != nil {
		v := *it.FaveIndex
		c.FaveIndex = &v
	}
	c.OpenContents.Tags = slices.Clone(it.OpenContents.Tags)
	if it.content != nil {
		cc := it.content.Clone()
		c.content = &cc
	}
	return &c
}

// Account возвращает имя пользователя из загруженного содержимого.
func (it *Item) Account() string {
	if it.content == nil {
		return ""
	}
	return it.content.Account()
}

// Password возвращает пароль из загруженного содержимого.
func (it *Item) Password() string {
	if it.content == nil {
		return ""
	}
	return it.content.Password()
}

// PrimaryURL первый URL из содержимого, а если оно не загружено, Location.
func (it *Item) PrimaryURL() string {
	if it.content != nil && len(it.content.URLs) > 0 {
		return it.content.URLs[0].URL
	}
	return it.Location
}

// State возвращает краткое состояние записи.
func (it *Item) State() ItemState {
	return ItemState{UUID: it.UUID, Revision: it.Revision, Deleted: it.IsTombstone()}
}
