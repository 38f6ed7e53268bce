package codec

import (
	"encoding/base64"
	"encoding/json"

	"AgileKeeper/internal/cli/model"
)

// KeyRecord элемент списка encryptionKeys.js.
type KeyRecord struct {
	Data       string `json:"data"`
	Identifier string `json:"identifier"`
	Iterations int    `json:"iterations"`
	Level      string `json:"level"`
	Validation string `json:"validation"`
}

// EncodeKeyList сериализует список ключей: {"list": [...], "<level>": "<identifier>"}.
func EncodeKeyList(keys []model.EncryptionKey) ([]byte, error) {
	out := map[string]any{}
	list := make([]KeyRecord, 0, len(keys))
	for _, k := range keys {
		list = append(list, KeyRecord{
			Data:       base64.StdEncoding.EncodeToString(k.Data),
			Identifier: k.Identifier,
			Iterations: k.Iterations,
			Level:      k.Level,
			Validation: base64.StdEncoding.EncodeToString(k.Validation),
		})
		out[k.Level] = k.Identifier
	}
	out["list"] = list
	return json.Marshal(out)
}

// DecodeKeyList строго разбирает encryptionKeys.js. Поле list и все поля
// каждого ключа обязательны.
func DecodeKeyList(data []byte) ([]model.EncryptionKey, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &FormatError{Record: "encryptionKeys", Reason: "malformed JSON", Err: err}
	}
	rawList, ok := raw["list"]
	if !ok {
		return nil, missing("encryptionKeys", "list")
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(rawList, &entries); err != nil {
		return nil, &FormatError{Record: "encryptionKeys", Field: "list", Reason: "not an array", Err: err}
	}

	keys := make([]model.EncryptionKey, 0, len(entries))
	for _, e := range entries {
		var r KeyRecord
		if err := decodeStrict("encryptionKey", e, &r, "data", "identifier", "iterations", "level", "validation"); err != nil {
			return nil, err
		}
		k, err := fromKeyRecord(r)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func fromKeyRecord(r KeyRecord) (model.EncryptionKey, error) {
	data, err := decodeKeyBlob(r.Data)
	if err != nil {
		return model.EncryptionKey{}, &FormatError{Record: "encryptionKey", Field: "data", Reason: "invalid base64", Err: err}
	}
	validation, err := decodeKeyBlob(r.Validation)
	if err != nil {
		return model.EncryptionKey{}, &FormatError{Record: "encryptionKey", Field: "validation", Reason: "invalid base64", Err: err}
	}
	if r.Iterations < 1 {
		return model.EncryptionKey{}, &FormatError{Record: "encryptionKey", Field: "iterations", Reason: "must be positive"}
	}
	return model.EncryptionKey{
		Identifier: r.Identifier,
		Data:       data,
		Validation: validation,
		Iterations: r.Iterations,
		Level:      r.Level,
	}, nil
}

// decodeKeyBlob декодирует base64. Файлы 1Password иногда дописывают в конец
// строки NUL, его отбрасываем.
func decodeKeyBlob(s string) ([]byte, error) {
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return base64.StdEncoding.DecodeString(s)
}
