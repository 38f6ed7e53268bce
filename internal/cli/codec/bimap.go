package codec

import (
	"fmt"

	"AgileKeeper/internal/cli/model"
)

// Pair пара значений таблицы BiMap.
type Pair[K comparable, V comparable] struct {
	Key   K
	Value V
}

// BiMap неизменяемая двусторонняя таблица соответствия.
// Строится один раз при инициализации пакета.
type BiMap[K comparable, V comparable] struct {
	name string
	fwd  map[K]V
	back map[V]K
}

// NewBiMap строит таблицу; повторяющиеся ключи или значения приводят к панике.
func NewBiMap[K comparable, V comparable](name string, pairs ...Pair[K, V]) BiMap[K, V] {
	m := BiMap[K, V]{name: name, fwd: make(map[K]V, len(pairs)), back: make(map[V]K, len(pairs))}
	for _, p := range pairs {
		if _, dup := m.fwd[p.Key]; dup {
			panic(fmt.Sprintf("codec: duplicate key %v in %s", p.Key, name))
		}
		if _, dup := m.back[p.Value]; dup {
			panic(fmt.Sprintf("codec: duplicate value %v in %s", p.Value, name))
		}
		m.fwd[p.Key] = p.Value
		m.back[p.Value] = p.Key
	}
	return m
}

// Forward возвращает значение для k или FormatError.
func (m BiMap[K, V]) Forward(k K) (V, error) {
	v, ok := m.fwd[k]
	if !ok {
		return v, &FormatError{Record: m.name, Reason: fmt.Sprintf("no code for %v", k)}
	}
	return v, nil
}

// Backward возвращает ключ для кода v или FormatError.
func (m BiMap[K, V]) Backward(v V) (K, error) {
	k, ok := m.back[v]
	if !ok {
		return k, &FormatError{Record: m.name, Reason: fmt.Sprintf("unknown code %v", v)}
	}
	return k, nil
}

// Len количество пар.
func (m BiMap[K, V]) Len() int { return len(m.fwd) }

// FieldKinds коды вида поля секции ("k").
var FieldKinds = NewBiMap("field kind",
	Pair[model.FieldKind, string]{model.FieldText, "string"},
	Pair[model.FieldKind, string]{model.FieldPassword, "concealed"},
	Pair[model.FieldKind, string]{model.FieldAddress, "address"},
	Pair[model.FieldKind, string]{model.FieldDate, "date"},
	Pair[model.FieldKind, string]{model.FieldMonthYear, "monthYear"},
	Pair[model.FieldKind, string]{model.FieldURL, "URL"},
	Pair[model.FieldKind, string]{model.FieldCreditCardType, "cctype"},
	Pair[model.FieldKind, string]{model.FieldPhone, "phone"},
	Pair[model.FieldKind, string]{model.FieldGender, "gender"},
	Pair[model.FieldKind, string]{model.FieldEmail, "email"},
	Pair[model.FieldKind, string]{model.FieldMenu, "menu"},
)

// FormFieldTypes односимвольные коды типа поля формы.
var FormFieldTypes = NewBiMap("form field type",
	Pair[model.FormFieldType, string]{model.FormFieldText, "T"},
	Pair[model.FormFieldType, string]{model.FormFieldPassword, "P"},
	Pair[model.FormFieldType, string]{model.FormFieldEmail, "E"},
	Pair[model.FormFieldType, string]{model.FormFieldCheckbox, "C"},
	Pair[model.FormFieldType, string]{model.FormFieldInput, "I"},
)
