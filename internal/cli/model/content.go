package model

import (
	"reflect"
	"slices"
)

// ItemField поле внутри секции.
type ItemField struct {
	Kind  FieldKind
	Name  string
	Title string
	// Value значение в том виде, в каком оно пришло из JSON
	// (строка, число, объект адреса и т.п.).
	Value any
}

// ItemSection именованная секция полей.
type ItemSection struct {
	Name   string
	Title  string
	Fields []ItemField
}

// ItemURL ссылка, связанная с записью.
type ItemURL struct {
	Label string
	URL   string
}

// WebFormField поле сохранённой HTML-формы входа.
type WebFormField struct {
	ID          string
	Name        string
	Type        FormFieldType
	Designation string
	Value       string
}

// ItemContent зашифрованная часть записи.
type ItemContent struct {
	Sections   []ItemSection
	URLs       []ItemURL
	Notes      string
	FormFields []WebFormField
	HTMLAction string
	HTMLMethod string
	HTMLID     string
}

// Account значение первого поля формы с designation "username".
func (c ItemContent) Account() string {
	return c.designated(DesignationUsername)
}

// Password значение первого поля формы с designation "password".
func (c ItemContent) Password() string {
	return c.designated(DesignationPassword)
}

func (c ItemContent) designated(d string) string {
	for _, f := range c.FormFields {
		if f.Designation == d {
			return f.Value
		}
	}
	return ""
}

// Equal сравнивает содержимое по значению.
func (c ItemContent) Equal(o ItemContent) bool {
	return reflect.DeepEqual(c.normalized(), o.normalized())
}

// normalized заменяет пустые срезы на nil, чтобы nil и [] считались равными.
func (c ItemContent) normalized() ItemContent {
	n := c.Clone()
	if len(n.Sections) == 0 {
		n.Sections = nil
	}
	for i := range n.Sections {
		if len(n.Sections[i].Fields) == 0 {
			n.Sections[i].Fields = nil
		}
	}
	if len(n.URLs) == 0 {
		n.URLs = nil
	}
	if len(n.FormFields) == 0 {
		n.FormFields = nil
	}
	return n
}

// Clone возвращает глубокую копию содержимого.
func (c ItemContent) Clone() ItemContent {
	out := c
	out.URLs = slices.Clone(c.URLs)
	out.FormFields = slices.Clone(c.FormFields)
	if c.Sections != nil {
		out.Sections = make([]ItemSection, len(c.Sections))
		for i, s := range c.Sections {
			out.Sections[i] = s
			if s.Fields != nil {
				out.Sections[i].Fields = make([]ItemField, len(s.Fields))
				for j, f := range s.Fields {
					f.Value = CloneValue(f.Value)
					out.Sections[i].Fields[j] = f
				}
			}
		}
	}
	return out
}

// CloneValue глубоко копирует значение, полученное из encoding/json.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = CloneValue(x)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = CloneValue(x)
		}
		return s
	default:
		return v
	}
}

// LoginContent содержимое типовой записи входа на сайт.
func LoginContent(username, password, url string) ItemContent {
	c := ItemContent{
		FormFields: []WebFormField{
			{Name: "username", Type: FormFieldText, Designation: DesignationUsername, Value: username},
			{Name: "password", Type: FormFieldPassword, Designation: DesignationPassword, Value: password},
		},
	}
	if url != "" {
		c.URLs = []ItemURL{{Label: "website", URL: url}}
	}
	return c
}
