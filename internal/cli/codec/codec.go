// Package codec переводит записи, ключи и индекс между внутренней моделью и
// JSON-структурами формата Agile Keychain. Все функции чистые.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"AgileKeeper/internal/cli/model"
)

// ErrFormat общий признак ошибок формата, проверяется через errors.Is.
var ErrFormat = errors.New("invalid vault format")

// FormatError описывает некорректную JSON-запись: битый JSON, отсутствующее
// обязательное поле, неизвестный код.
type FormatError struct {
	Record string
	Field  string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := e.Record
	if e.Field != "" {
		msg += "." + e.Field
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func (e *FormatError) Unwrap() error { return e.Err }

func missing(record, field string) error {
	return &FormatError{Record: record, Field: field, Reason: "missing required field"}
}

// decodeStrict разбирает JSON-объект в v и проверяет наличие обязательных полей.
func decodeStrict(record string, data []byte, v any, required ...string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return &FormatError{Record: record, Reason: "malformed JSON", Err: err}
	}
	for _, f := range required {
		if _, ok := raw[f]; !ok {
			return missing(record, f)
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &FormatError{Record: record, Reason: "malformed JSON", Err: err}
	}
	return nil
}

// OpenContents незашифрованная часть записи.
type OpenContents struct {
	Tags  []string `json:"tags,omitempty"`
	Scope string   `json:"scope,omitempty"`
}

// ItemRecord содержимое файла <UUID>.1password.
type ItemRecord struct {
	UUID           string          `json:"uuid"`
	Title          string          `json:"title"`
	TypeName       string          `json:"typeName"`
	CreatedAt      int64           `json:"createdAt"`
	UpdatedAt      int64           `json:"updatedAt"`
	Location       string          `json:"location,omitempty"`
	FolderUUID     string          `json:"folderUuid,omitempty"`
	FaveIndex      *int            `json:"faveIndex,omitempty"`
	Trashed        bool            `json:"trashed,omitempty"`
	SecurityLevel  string          `json:"securityLevel,omitempty"`
	KeyID          string          `json:"keyID,omitempty"`
	ContentsHash   string          `json:"contentsHash,omitempty"`
	Encrypted      string          `json:"encrypted,omitempty"`
	OpenContents   *OpenContents   `json:"openContents,omitempty"`
	SecureContents *SecureContents `json:"secureContents,omitempty"`
}

// EncryptedData возвращает декодированное поле encrypted.
func (r ItemRecord) EncryptedData() ([]byte, error) {
	if r.Encrypted == "" {
		return nil, missing("item", "encrypted")
	}
	b, err := base64.StdEncoding.DecodeString(r.Encrypted)
	if err != nil {
		return nil, &FormatError{Record: "item", Field: "encrypted", Reason: "invalid base64", Err: err}
	}
	return b, nil
}

// ToItemRecord переводит запись в JSON-структуру; encrypted кладётся в base64.
// Уровень безопасности всегда SL5.
func ToItemRecord(item *model.Item, encrypted []byte) ItemRecord {
	r := ItemRecord{
		UUID:          item.UUID,
		Title:         item.Title,
		TypeName:      item.TypeName,
		CreatedAt:     unixSeconds(item.CreatedAt),
		UpdatedAt:     unixSeconds(item.UpdatedAt),
		Location:      item.Location,
		FolderUUID:    item.FolderUUID,
		Trashed:       item.Trashed,
		SecurityLevel: model.SecurityLevel5,
	}
	if item.FaveIndex != nil {
		v := *item.FaveIndex
		r.FaveIndex = &v
	}
	if len(item.OpenContents.Tags) > 0 || item.OpenContents.Scope != "" {
		r.OpenContents = &OpenContents{
			Tags:  append([]string(nil), item.OpenContents.Tags...),
			Scope: item.OpenContents.Scope,
		}
	}
	if encrypted != nil {
		r.Encrypted = base64.StdEncoding.EncodeToString(encrypted)
	}
	return r
}

// FromItemRecord обратна ToItemRecord. Необязательные поля, которых нет в
// записи, остаются нулевыми.
func FromItemRecord(r ItemRecord) *model.Item {
	item := &model.Item{
		UUID:       r.UUID,
		Title:      r.Title,
		TypeName:   r.TypeName,
		CreatedAt:  FromUnix(r.CreatedAt),
		UpdatedAt:  FromUnix(r.UpdatedAt),
		Location:   r.Location,
		FolderUUID: r.FolderUUID,
		Trashed:    r.Trashed,
	}
	if r.FaveIndex != nil {
		v := *r.FaveIndex
		item.FaveIndex = &v
	}
	if r.OpenContents != nil {
		item.OpenContents = model.ItemOpenContents{
			Tags:  append([]string(nil), r.OpenContents.Tags...),
			Scope: r.OpenContents.Scope,
		}
	}
	return item
}

// EncodeItem сериализует запись с зашифрованным содержимым.
func EncodeItem(item *model.Item, encrypted []byte) ([]byte, error) {
	return json.Marshal(ToItemRecord(item, encrypted))
}

// MarshalItemRecord сериализует готовую структуру записи.
func MarshalItemRecord(r ItemRecord) ([]byte, error) {
	return json.Marshal(r)
}

// DecodeItem строго разбирает файл записи. Обязательны uuid, typeName и updatedAt.
func DecodeItem(data []byte) (ItemRecord, error) {
	var r ItemRecord
	if err := decodeStrict("item", data, &r, "uuid", "typeName", "updatedAt"); err != nil {
		return ItemRecord{}, err
	}
	if r.UUID == "" {
		return ItemRecord{}, &FormatError{Record: "item", Field: "uuid", Reason: "empty"}
	}
	return r, nil
}

func unixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// FromUnix переводит UNIX-секунды во время; 0 означает нулевое время.
func FromUnix(s int64) time.Time {
	if s == 0 {
		return time.Time{}
	}
	return time.Unix(s, 0).UTC()
}

func fieldError(record, field string, err error) error {
	var fe *FormatError
	if errors.As(err, &fe) && fe.Field == "" {
		fe.Field = field
		if fe.Record != record {
			fe.Reason = fmt.Sprintf("%s: %s", fe.Record, fe.Reason)
			fe.Record = record
		}
		return fe
	}
	return err
}
