package utils

import (
	"bytes"
	"encoding/json"
	"sort"
)

type OrderedKV[T any] struct {
	Value T
	Order int64
}

// OrderedKVMap is a map whose iteration and JSON form follow each entry's
// Order instead of key order.
type OrderedKVMap[T any] map[string]OrderedKV[T]

// Set stores value under key, keeping key's previous order if it had one.
func (om OrderedKVMap[T]) Set(key string, value T, order int64) {
	if prev, ok := om[key]; ok {
		order = prev.Order
	}
	om[key] = OrderedKV[T]{Value: value, Order: order}
}

// Split returns keys and values as parallel slices sorted by order.
func (om OrderedKVMap[T]) Split() ([]string, []T) {
	type pair struct {
		key   string
		value T
		order int64
	}
	pairs := make([]pair, 0, len(om))
	for k, v := range om {
		pairs = append(pairs, pair{
			key:   k,
			value: v.Value,
			order: v.Order,
		})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].order == pairs[j].order {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].order < pairs[j].order
	})

	keys := make([]string, len(pairs))
	values := make([]T, len(pairs))
	for i, p := range pairs {
		keys[i] = p.key
		values[i] = p.value
	}
	return keys, values
}

func (om OrderedKVMap[T]) MarshalJSON() ([]byte, error) {
	keys, values := om.Split()

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyBytes, err := json.Marshal(keys[i])
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valueBytes, err := json.Marshal(values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(valueBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
