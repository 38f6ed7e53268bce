package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"AgileKeeper/internal/cli/model"
)

// ContentsEntry элемент индекса contents.js: кортеж из 8 элементов
// [uuid, typeName, title, location, updatedAt, folderUuid, 0, "Y"|"N"].
type ContentsEntry struct {
	UUID       string
	TypeName   string
	Title      string
	Location   string
	UpdatedAt  int64
	FolderUUID string
	Trashed    bool
}

// IsTombstone сообщает, что элемент индекса помечает удалённую запись.
func (e ContentsEntry) IsTombstone() bool { return e.TypeName == model.TombstoneType }

// ContentsEntryFor строит элемент индекса по записи.
func ContentsEntryFor(item *model.Item) ContentsEntry {
	return ContentsEntry{
		UUID:       item.UUID,
		TypeName:   item.TypeName,
		Title:      item.Title,
		Location:   item.Location,
		UpdatedAt:  unixSeconds(item.UpdatedAt),
		FolderUUID: item.FolderUUID,
		Trashed:    item.Trashed,
	}
}

func (e ContentsEntry) MarshalJSON() ([]byte, error) {
	trashed := "N"
	if e.Trashed {
		trashed = "Y"
	}
	return json.Marshal([]any{e.UUID, e.TypeName, e.Title, e.Location, e.UpdatedAt, e.FolderUUID, 0, trashed})
}

func (e *ContentsEntry) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return &FormatError{Record: "contents", Reason: "entry is not an array", Err: err}
	}
	if len(raw) != 8 {
		return &FormatError{Record: "contents", Reason: fmt.Sprintf("entry has %d elements, want 8", len(raw))}
	}
	var out ContentsEntry
	var reserved json.Number
	var trashed string
	targets := []struct {
		name string
		dst  any
	}{
		{"uuid", &out.UUID},
		{"typeName", &out.TypeName},
		{"title", &out.Title},
		{"location", &out.Location},
		{"updatedAt", &out.UpdatedAt},
		{"folderUuid", &out.FolderUUID},
		{"reserved", &reserved},
		{"trashed", &trashed},
	}
	for i, tg := range targets {
		if string(raw[i]) == "null" {
			continue
		}
		if err := json.Unmarshal(raw[i], tg.dst); err != nil {
			return &FormatError{Record: "contents", Field: tg.name, Reason: "wrong type", Err: err}
		}
	}
	if out.UUID == "" {
		return missing("contents", "uuid")
	}
	switch trashed {
	case "Y":
		out.Trashed = true
	case "N", "":
	default:
		return &FormatError{Record: "contents", Field: "trashed", Reason: fmt.Sprintf("unexpected flag %q", trashed)}
	}
	*e = out
	return nil
}

// EncodeContents сериализует индекс, упорядочивая элементы по UUID.
func EncodeContents(entries []ContentsEntry) ([]byte, error) {
	sorted := make([]ContentsEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UUID < sorted[j].UUID })
	return json.Marshal(sorted)
}

// DecodeContents строго разбирает contents.js.
func DecodeContents(data []byte) ([]ContentsEntry, error) {
	var entries []ContentsEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, &FormatError{Record: "contents", Reason: "malformed JSON", Err: err}
	}
	return entries, nil
}

// UpsertContents заменяет или добавляет элементы индекса для переданных записей.
func UpsertContents(entries []ContentsEntry, updates map[string]ContentsEntry) []ContentsEntry {
	out := make([]ContentsEntry, 0, len(entries)+len(updates))
	seen := make(map[string]bool, len(updates))
	for _, e := range entries {
		if u, ok := updates[e.UUID]; ok {
			out = append(out, u)
			seen[e.UUID] = true
			continue
		}
		out = append(out, e)
	}
	added := make([]string, 0, len(updates))
	for uuid := range updates {
		if !seen[uuid] {
			added = append(added, uuid)
		}
	}
	sort.Strings(added)
	for _, uuid := range added {
		out = append(out, updates[uuid])
	}
	return out
}

// ItemStates объединяет маркеры удаления из индекса и записи, найденные по
// файлам (uuid -> ревизия файла). Если для uuid есть и маркер, и живой файл,
// побеждает удаление; само хранилище при этом не исправляется.
func ItemStates(index []ContentsEntry, files map[string]string) []model.ItemState {
	states := make(map[string]model.ItemState, len(files))
	for uuid, rev := range files {
		states[uuid] = model.ItemState{UUID: uuid, Revision: rev}
	}
	for _, e := range index {
		if e.IsTombstone() {
			states[e.UUID] = model.ItemState{UUID: e.UUID, Deleted: true}
		}
	}
	out := make([]model.ItemState, 0, len(states))
	for _, s := range states {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out
}
