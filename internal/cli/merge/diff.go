// Package merge строит разницу между последовательностями, применяет её и
// выполняет трёхстороннее слияние записей при синхронизации.
//
// Все позиции операций указаны относительно исходного (базового) массива:
// Remove(p) удаляет base[p], Insert(p) вставляет перед base[p]
// (p == len(base) означает вставку в конец).
package merge

import (
	"fmt"
	"sort"
)

// OpKind тип операции.
type OpKind int

const (
	Insert OpKind = iota
	Remove
	// Move перенос элемента множества: Remove(From) + Insert(Pos).
	Move
)

func (k OpKind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Remove:
		return "remove"
	case Move:
		return "move"
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

// Op одна операция правки.
type Op[T comparable] struct {
	Kind  OpKind
	Pos   int
	From  int
	Value T
}

// DiffLists возвращает минимальный набор Insert/Remove, превращающий base в
// target (через наибольшую общую подпоследовательность).
func DiffLists[T comparable](base, target []T) []Op[T] {
	n, m := len(base), len(target)
	// lcs[i][j] длина НОП для base[i:] и target[j:]
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if base[i] == target[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	var ops []Op[T]
	i, j := 0, 0
	for i < n || j < m {
		switch {
		case i < n && j < m && base[i] == target[j]:
			i++
			j++
		case j < m && (i == n || lcs[i][j+1] >= lcs[i+1][j]):
			ops = append(ops, Op[T]{Kind: Insert, Pos: i, Value: target[j]})
			j++
		default:
			ops = append(ops, Op[T]{Kind: Remove, Pos: i, Value: base[i]})
			i++
		}
	}
	return ops
}

// DiffSets как DiffLists, но пара Remove и Insert одного и того же значения
// превращается в Move на месте вставки. Элементы base и target должны быть
// попарно различны.
func DiffSets[T comparable](base, target []T) []Op[T] {
	ops := DiffLists(base, target)
	removedAt := make(map[T]int)
	for _, op := range ops {
		if op.Kind == Remove {
			removedAt[op.Value] = op.Pos
		}
	}
	inserted := make(map[T]bool)
	for _, op := range ops {
		if op.Kind == Insert {
			inserted[op.Value] = true
		}
	}
	out := make([]Op[T], 0, len(ops))
	for _, op := range ops {
		switch {
		case op.Kind == Insert:
			if from, ok := removedAt[op.Value]; ok {
				out = append(out, Op[T]{Kind: Move, Pos: op.Pos, From: from, Value: op.Value})
				continue
			}
		case inserted[op.Value]:
			continue
		}
		out = append(out, op)
	}
	return out
}

// expand раскладывает Move на Remove и Insert.
func expand[T comparable](ops []Op[T]) []Op[T] {
	out := make([]Op[T], 0, len(ops))
	for _, op := range ops {
		if op.Kind == Move {
			out = append(out,
				Op[T]{Kind: Remove, Pos: op.From, Value: op.Value},
				Op[T]{Kind: Insert, Pos: op.Pos, Value: op.Value})
			continue
		}
		out = append(out, op)
	}
	return out
}

// sortOps упорядочивает Insert и Remove по позиции; при равной позиции
// вставки идут раньше удалений, а взаимный порядок вставок сохраняется.
func sortOps[T comparable](ops []Op[T]) {
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].Pos != ops[j].Pos {
			return ops[i].Pos < ops[j].Pos
		}
		return ops[i].Kind == Insert && ops[j].Kind != Insert
	})
}

// Patch применяет ops к base. Позиции операций относятся к base, поэтому
// каждая следующая операция сдвигается на число уже выполненных вставок и
// удалений.
func Patch[T comparable](base []T, ops []Op[T]) ([]T, error) {
	flat := expand(ops)
	sortOps(flat)

	out := make([]T, len(base), len(base)+len(flat))
	copy(out, base)
	shift := 0
	for _, op := range flat {
		if op.Pos < 0 || op.Pos > len(base) {
			return nil, fmt.Errorf("%s at %d: position out of range [0, %d]", op.Kind, op.Pos, len(base))
		}
		at := op.Pos + shift
		if at < 0 || at > len(out) {
			return nil, fmt.Errorf("%s at %d: operations overlap", op.Kind, op.Pos)
		}
		switch op.Kind {
		case Insert:
			out = append(out, op.Value)
			copy(out[at+1:], out[at:])
			out[at] = op.Value
			shift++
		case Remove:
			if at == len(out) || out[at] != op.Value {
				return nil, fmt.Errorf("remove at %d: element does not match the base", op.Pos)
			}
			out = append(out[:at], out[at+1:]...)
			shift--
		}
	}
	return out, nil
}
