package table

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueUnmarshalJSON(t *testing.T) {
	t.Run("Scalar", func(t *testing.T) {
		var v Value
		require.NoError(t, json.Unmarshal([]byte(`"Alice"`), &v))
		require.Equal(t, KindScalar, v.Kind)
		require.Equal(t, "Alice", v.Str)
	})

	t.Run("ListOfRecords", func(t *testing.T) {
		var v Value
		require.NoError(t, json.Unmarshal([]byte(`[{"sku":"A","qtd":"2"},{"sku":"B","qtd":"1"}]`), &v))
		require.Equal(t, KindList, v.Kind)
		require.Len(t, v.List, 2)
		require.Equal(t, "A", v.List[0]["sku"].Str)
	})

	t.Run("NestedLists", func(t *testing.T) {
		var rec Record
		raw := `{"id":"1","pedidos":[{"itens":[{"sku":"A"}]}]}`
		require.NoError(t, json.Unmarshal([]byte(raw), &rec))
		require.Equal(t, KindList, rec["pedidos"].Kind)
		inner := rec["pedidos"].List[0]["itens"]
		require.Equal(t, KindList, inner.Kind)
		require.Equal(t, "A", inner.List[0]["sku"].Str)
	})

	t.Run("RejectsOtherShapes", func(t *testing.T) {
		var v Value
		require.Error(t, json.Unmarshal([]byte(`42`), &v))
		require.Error(t, json.Unmarshal([]byte(`{"not":"a list"}`), &v))
	})
}

func TestValueMarshalJSON(t *testing.T) {
	t.Run("Scalar", func(t *testing.T) {
		data, err := json.Marshal(Scalar("Alice"))
		require.NoError(t, err)
		require.JSONEq(t, `"Alice"`, string(data))
	})

	t.Run("List", func(t *testing.T) {
		data, err := json.Marshal(ListOf(Record{"sku": Scalar("A")}))
		require.NoError(t, err)
		require.JSONEq(t, `[{"sku":"A"}]`, string(data))
	})

	t.Run("EmptyListIsArrayNotNull", func(t *testing.T) {
		data, err := json.Marshal(Value{Kind: KindList})
		require.NoError(t, err)
		require.Equal(t, "[]", string(data))
	})
}

func TestRecordClone(t *testing.T) {
	orig := Record{
		"id":    Scalar("1"),
		"itens": ListOf(Record{"sku": Scalar("A")}),
	}
	clone := orig.Clone()

	clone["id"] = Scalar("2")
	clone["itens"].List[0]["sku"] = Scalar("Z")

	require.Equal(t, "1", orig["id"].Str)
	require.Equal(t, "A", orig["itens"].List[0]["sku"].Str)
}

func TestMergeValue(t *testing.T) {
	t.Run("ScalarReplacesScalar", func(t *testing.T) {
		got := mergeValue(Scalar("old"), Scalar("new"))
		require.Equal(t, Scalar("new"), got)
	})

	t.Run("ListAppendsToList", func(t *testing.T) {
		cur := ListOf(Record{"sku": Scalar("A")})
		change := ListOf(Record{"sku": Scalar("B")})
		got := mergeValue(cur, change)
		require.Len(t, got.List, 2)
		require.Equal(t, "A", got.List[0]["sku"].Str)
		require.Equal(t, "B", got.List[1]["sku"].Str)
	})

	t.Run("ScalarReplacesList", func(t *testing.T) {
		got := mergeValue(ListOf(Record{"sku": Scalar("A")}), Scalar("flat"))
		require.Equal(t, KindScalar, got.Kind)
	})

	t.Run("MergedListDoesNotAliasInputs", func(t *testing.T) {
		cur := ListOf(Record{"sku": Scalar("A")})
		got := mergeValue(cur, ListOf(Record{"sku": Scalar("B")}))
		got.List[0]["sku"] = Scalar("Z")
		require.Equal(t, "A", cur.List[0]["sku"].Str)
	})
}
