package records

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRecord(t *testing.T, src string) *Record {
	t.Helper()
	var r Record
	require.NoError(t, json.Unmarshal([]byte(src), &r))
	return &r
}

func TestFlattenNestedObjects(t *testing.T) {
	r := mustRecord(t, `{"a":1,"b":{"c":2,"d":{"e":"x"}}}`)

	flat := FlattenRecord(r)

	assert.Equal(t, []string{"a", "b_c", "b_d_e"}, flat.Keys())
	assert.Equal(t, json.Number("1"), flat.Field("a"))
	assert.Equal(t, json.Number("2"), flat.Field("b_c"))
	assert.Equal(t, "x", flat.Field("b_d_e"))
}

func TestFlattenScalarLeaves(t *testing.T) {
	r := mustRecord(t, `{"s":"text","n":1.5,"b":true,"z":null}`)

	flat := FlattenRecord(r)

	assert.Equal(t, "text", flat.Field("s"))
	assert.Equal(t, json.Number("1.5"), flat.Field("n"))
	assert.Equal(t, true, flat.Field("b"))
	v, ok := flat.Get("z")
	require.True(t, ok, "null leaves are kept, not dropped")
	assert.Nil(t, v)
}

func TestFlattenEmptySequence(t *testing.T) {
	flat := FlattenRecord(mustRecord(t, `{"list":[]}`))

	v, ok := flat.Get("list")
	require.True(t, ok)
	assert.Nil(t, v)
}

func TestFlattenScalarSequenceJoins(t *testing.T) {
	flat := FlattenRecord(mustRecord(t, `{"tags":["a","b","c"],"nums":[1,2,3]}`))

	assert.Equal(t, "a, b, c", flat.Field("tags"))
	assert.Equal(t, "1, 2, 3", flat.Field("nums"))
}

func TestFlattenMixedSequenceJoins(t *testing.T) {
	// A sequence that is not all-records falls back to string joining.
	flat := FlattenRecord(mustRecord(t, `{"mix":[1,{"a":2},"x"]}`))

	assert.Equal(t, `1, {"a":2}, x`, flat.Field("mix"))
}

func TestFlattenRecordSequenceWithinCap(t *testing.T) {
	flat := FlattenRecord(mustRecord(t, `{"items":[{"v":1},{"v":2},{"v":3}]}`))

	assert.Equal(t, []string{"items_0_v", "items_1_v", "items_2_v"}, flat.Keys())
	_, ok := flat.Get("items_count")
	assert.False(t, ok, "no count column at or below the cap")
}

func TestFlattenRecordSequenceBeyondCap(t *testing.T) {
	flat := FlattenRecord(mustRecord(t, `{"items":[{"v":1},{"v":2},{"v":3},{"v":4},{"v":5}]}`))

	assert.Equal(t, []string{"items_0_v", "items_1_v", "items_2_v", "items_count"}, flat.Keys())
	assert.Equal(t, 5, flat.Field("items_count"), "count is the true length")
	_, ok := flat.Get("items_3_v")
	assert.False(t, ok, "elements past the cap are dropped")
}

func TestFlattenCustomPrefixAndSeparator(t *testing.T) {
	flat := Flatten(mustRecord(t, `{"a":{"b":1}}`), "root", ".")

	assert.Equal(t, []string{"root.a.b"}, flat.Keys())
}

func TestFlattenLeavesAreAlwaysScalar(t *testing.T) {
	r := mustRecord(t, `{
		"Header":{"InstrumentType":"Option"},
		"Derived":{"CFI":[{"Value":"X","Attributes":[{"Name":"n"},{"Name":"m"}]}]},
		"lists":{"empty":[],"scalars":[1,2],"deep":[{"a":{"b":[{"c":1}]}}]}
	}`)

	flat := FlattenRecord(r)

	require.NotZero(t, flat.Len())
	for _, key := range flat.Keys() {
		v, _ := flat.Get(key)
		switch v.(type) {
		case *Record, []any:
			t.Fatalf("key %q still holds a container: %T", key, v)
		}
	}
}

func TestFlattenIsPure(t *testing.T) {
	r := mustRecord(t, `{"a":{"b":1},"c":[{"d":2}]}`)

	first := FlattenRecord(r)
	second := FlattenRecord(r)

	assert.Equal(t, first.Keys(), second.Keys())
	assert.Equal(t, []string{"a", "c"}, r.Keys(), "input record is unchanged")
}
