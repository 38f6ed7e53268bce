package codec

import (
	"encoding/json"

	"AgileKeeper/internal/cli/model"
)

// SectionField поле секции в формате Agile Keychain.
type SectionField struct {
	Kind  string `json:"k"`
	Name  string `json:"n"`
	Title string `json:"t,omitempty"`
	Value any    `json:"v,omitempty"`
}

// Section секция полей.
type Section struct {
	Name   string         `json:"name"`
	Title  string         `json:"title,omitempty"`
	Fields []SectionField `json:"fields,omitempty"`
}

// URL ссылка записи.
type URL struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// FormField поле сохранённой формы входа.
type FormField struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Designation string `json:"designation,omitempty"`
	Value       string `json:"value"`
}

// SecureContents расшифрованное поле encrypted.
type SecureContents struct {
	Sections   []Section   `json:"sections,omitempty"`
	URLs       []URL       `json:"URLs,omitempty"`
	NotesPlain string      `json:"notesPlain,omitempty"`
	Fields     []FormField `json:"fields,omitempty"`
	HTMLAction string      `json:"htmlAction,omitempty"`
	HTMLMethod string      `json:"htmlMethod,omitempty"`
	HTMLID     string      `json:"htmlID,omitempty"`
}

// ToSecureContents переводит содержимое записи в JSON-структуру.
func ToSecureContents(c model.ItemContent) (SecureContents, error) {
	out := SecureContents{
		NotesPlain: c.Notes,
		HTMLAction: c.HTMLAction,
		HTMLMethod: c.HTMLMethod,
		HTMLID:     c.HTMLID,
	}
	for _, s := range c.Sections {
		ws := Section{Name: s.Name, Title: s.Title}
		for _, f := range s.Fields {
			k, err := FieldKinds.Forward(f.Kind)
			if err != nil {
				return SecureContents{}, err
			}
			ws.Fields = append(ws.Fields, SectionField{Kind: k, Name: f.Name, Title: f.Title, Value: model.CloneValue(f.Value)})
		}
		out.Sections = append(out.Sections, ws)
	}
	for _, u := range c.URLs {
		out.URLs = append(out.URLs, URL{Label: u.Label, URL: u.URL})
	}
	for _, f := range c.FormFields {
		t, err := FormFieldTypes.Forward(f.Type)
		if err != nil {
			return SecureContents{}, err
		}
		out.Fields = append(out.Fields, FormField{ID: f.ID, Name: f.Name, Type: t, Designation: f.Designation, Value: f.Value})
	}
	return out, nil
}

// FromSecureContents обратна ToSecureContents. Неизвестные коды вида поля
// или типа поля формы дают FormatError.
func FromSecureContents(sc SecureContents) (model.ItemContent, error) {
	out := model.ItemContent{
		Notes:      sc.NotesPlain,
		HTMLAction: sc.HTMLAction,
		HTMLMethod: sc.HTMLMethod,
		HTMLID:     sc.HTMLID,
	}
	for _, s := range sc.Sections {
		ms := model.ItemSection{Name: s.Name, Title: s.Title}
		for _, f := range s.Fields {
			kind, err := FieldKinds.Backward(f.Kind)
			if err != nil {
				return model.ItemContent{}, fieldError("content", "sections.fields.k", err)
			}
			ms.Fields = append(ms.Fields, model.ItemField{Kind: kind, Name: f.Name, Title: f.Title, Value: f.Value})
		}
		out.Sections = append(out.Sections, ms)
	}
	for _, u := range sc.URLs {
		out.URLs = append(out.URLs, model.ItemURL{Label: u.Label, URL: u.URL})
	}
	for _, f := range sc.Fields {
		t, err := FormFieldTypes.Backward(f.Type)
		if err != nil {
			return model.ItemContent{}, fieldError("content", "fields.type", err)
		}
		out.FormFields = append(out.FormFields, model.WebFormField{ID: f.ID, Name: f.Name, Type: t, Designation: f.Designation, Value: f.Value})
	}
	return out, nil
}

// EncodeContent сериализует содержимое в JSON перед шифрованием.
func EncodeContent(c model.ItemContent) ([]byte, error) {
	sc, err := ToSecureContents(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sc)
}

// DecodeContent разбирает расшифрованное содержимое.
func DecodeContent(data []byte) (model.ItemContent, error) {
	var sc SecureContents
	if err := decodeStrict("content", data, &sc); err != nil {
		return model.ItemContent{}, err
	}
	return FromSecureContents(sc)
}
