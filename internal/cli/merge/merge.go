package merge

import "fmt"

// MergeSetDiffs объединяет две разницы a и b, построенные от одной базы.
// Если обе затрагивают один и тот же элемент, остаются операции a: слияние
// несимметрично, порядок аргументов задаёт победителя. Вставки a в одну и
// ту же позицию идут раньше вставок b.
func MergeSetDiffs[T comparable](a, b []Op[T]) []Op[T] {
	touched := make(map[T]bool, len(a))
	for _, op := range a {
		touched[op.Value] = true
	}
	out := make([]Op[T], 0, len(a)+len(b))
	out = append(out, a...)
	for _, op := range b {
		if !touched[op.Value] {
			out = append(out, op)
		}
	}
	return out
}

// MergeField трёхстороннее слияние скалярного значения: если изменилась
// только одна сторона, берётся она, при расхождении обеих побеждает a.
func MergeField[T comparable](base, a, b T) T {
	return MergeFieldFunc(base, a, b, func(x, y T) bool { return x == y })
}

// MergeFieldFunc как MergeField, но с заданным сравнением.
func MergeFieldFunc[T any](base, a, b T, equal func(x, y T) bool) T {
	if equal(a, base) {
		return b
	}
	return a
}

// slot ключ элемента массива с номером его повторения, чтобы одинаковые
// ключи (например, безымянные поля) оставались различимыми.
type slot[K comparable] struct {
	Key K
	N   int
}

func slots[T any, K comparable](xs []T, key func(T) K) ([]slot[K], map[slot[K]]T) {
	seen := make(map[K]int, len(xs))
	keys := make([]slot[K], 0, len(xs))
	byKey := make(map[slot[K]]T, len(xs))
	for _, x := range xs {
		k := key(x)
		s := slot[K]{Key: k, N: seen[k]}
		seen[k]++
		keys = append(keys, s)
		byKey[s] = x
	}
	return keys, byKey
}

// MergeArrays сливает массивы записей. Состав и порядок определяются слиянием
// последовательностей ключей как множеств; записи, оставшиеся в обеих
// версиях, сливаются функцией merge, а добавленные одной стороной берутся
// из неё как есть.
func MergeArrays[T any, K comparable](base, a, b []T, key func(T) K, merge func(base, a, b T) T) ([]T, error) {
	return MergeArraysFunc(base, a, b, key, func(base, a, b T) (T, error) {
		return merge(base, a, b), nil
	})
}

// MergeArraysFunc как MergeArrays, но слияние записи может завершиться
// ошибкой; первая такая ошибка прерывает слияние.
func MergeArraysFunc[T any, K comparable](base, a, b []T, key func(T) K, merge func(base, a, b T) (T, error)) ([]T, error) {
	baseKeys, baseBy := slots(base, key)
	aKeys, aBy := slots(a, key)
	bKeys, bBy := slots(b, key)

	ops := MergeSetDiffs(DiffSets(baseKeys, aKeys), DiffSets(baseKeys, bKeys))
	keys, err := Patch(baseKeys, ops)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(keys))
	for _, k := range keys {
		ra, inA := aBy[k]
		rb, inB := bBy[k]
		switch {
		case inA && inB:
			if rbase, ok := baseBy[k]; ok {
				merged, err := merge(rbase, ra, rb)
				if err != nil {
					return nil, fmt.Errorf("merge %v: %w", k.Key, err)
				}
				out = append(out, merged)
			} else {
				out = append(out, ra)
			}
		case inA:
			out = append(out, ra)
		case inB:
			out = append(out, rb)
		default:
			out = append(out, baseBy[k])
		}
	}
	return out, nil
}
