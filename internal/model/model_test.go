package model

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lazyset/internal/ir"
)

const objectsCUE = `
entity: ObjectA: {
	table: "object_a"
	fields: {
		name: string
		tag?: string
	}
}
entity: ProxyObjectA: { proxy_of: "ObjectA" }
entity: ProxyProxyObjectA: { proxy_of: "ProxyObjectA" }
entity: ChildObjectA: {
	parent: "ObjectA"
	table:  "child_object_a"
	fields: { extra?: string }
}
entity: ObjectB: {
	table: "object_b"
	fields: {
		name:      string
		num:       int
		objecta_id: int
	}
	references: { objecta_id: "ObjectA" }
}
`

func loadObjects(t *testing.T) *Registry {
	t.Helper()
	reg, err := LoadSource(objectsCUE)
	require.NoError(t, err)
	return reg
}

func TestCompileEntityBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(objectsCUE)
	require.NoError(t, v.Err())

	decl, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.ObjectA")))
	require.NoError(t, err)

	assert.Equal(t, "ObjectA", decl.Name)
	assert.Equal(t, "object_a", decl.Table)
	assert.Equal(t, []Field{
		{Name: "name", Kind: KindString},
		{Name: "tag", Kind: KindString, Nullable: true},
	}, decl.Fields)
}

func TestCompileEntityReferences(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(objectsCUE)

	decl, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.ObjectB")))
	require.NoError(t, err)

	f, ok := decl.Field("objecta_id")
	require.True(t, ok)
	assert.Equal(t, "ObjectA", f.References)
	assert.Equal(t, KindInt, f.Kind)
}

func TestCompileEntityRejectsFloat(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`entity: Bad: { table: "bad", fields: { price: float } }`)

	_, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Bad")))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "type", ce.Field)
}

func TestCompileEntityUndeclaredReference(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`entity: Bad: { table: "bad", references: { owner_id: "ObjectA" } }`)

	_, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Bad")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner_id")
}

func TestRegistryClasses(t *testing.T) {
	reg := loadObjects(t)

	tests := []struct {
		typ   string
		class string
	}{
		{"ObjectA", "ObjectA"},
		{"ProxyObjectA", "ObjectA"},
		{"ProxyProxyObjectA", "ObjectA"},
		{"ChildObjectA", "ChildObjectA"},
		{"ObjectB", "ObjectB"},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			class, ok := reg.Class(tt.typ)
			require.True(t, ok)
			assert.Equal(t, tt.class, class)
		})
	}

	_, ok := reg.Class("Missing")
	assert.False(t, ok)
}

func TestRegistryCompatible(t *testing.T) {
	reg := loadObjects(t)

	assert.True(t, reg.Compatible("ObjectA", "ProxyObjectA"))
	assert.True(t, reg.Compatible("ProxyObjectA", "ObjectA"))
	assert.True(t, reg.Compatible("ProxyProxyObjectA", "ProxyObjectA"))
	assert.False(t, reg.Compatible("ObjectA", "ChildObjectA"))
	assert.False(t, reg.Compatible("ChildObjectA", "ObjectA"))
	assert.False(t, reg.Compatible("ObjectA", "ObjectB"))
	assert.False(t, reg.Compatible("ObjectA", "Missing"))
	assert.False(t, reg.Compatible("Missing", "Missing"))
}

func TestRegistryResolvesProxyStorage(t *testing.T) {
	reg := loadObjects(t)

	proxy, ok := reg.Lookup("ProxyObjectA")
	require.True(t, ok)
	assert.Equal(t, "object_a", proxy.Table)
	assert.Equal(t, "object_a", proxy.Source())
	assert.Equal(t, "id", proxy.Key)
	assert.Equal(t, KindInt, proxy.KeyKind)
	assert.True(t, proxy.HasColumn("name"))
}

func TestRegistryResolvesChild(t *testing.T) {
	reg := loadObjects(t)

	child, ok := reg.Lookup("ChildObjectA")
	require.True(t, ok)
	assert.Equal(t, "child_object_a", child.Table)
	assert.Equal(t, "child_object_a_v", child.Source())
	assert.Equal(t, "id", child.Key)
	assert.Equal(t, []string{"id", "name", "tag", "extra"}, child.Columns())

	parent, _ := reg.Lookup("ObjectA")
	assert.Equal(t, "object_a_ptr", child.PointerColumn(parent))
}

func TestRegistryStorageOrder(t *testing.T) {
	reg := loadObjects(t)

	var names []string
	for _, typ := range reg.StorageTypes() {
		names = append(names, typ.Name)
	}
	assert.ElementsMatch(t, []string{"ObjectA", "ChildObjectA", "ObjectB"}, names)
	assert.Less(t, indexOf(names, "ObjectA"), indexOf(names, "ChildObjectA"))
}

func TestRegistryErrors(t *testing.T) {
	tests := []struct {
		name  string
		decls []EntityType
		want  string
	}{
		{"missing table", []EntityType{{Name: "A"}}, "table is required"},
		{"duplicate", []EntityType{{Name: "A", Table: "a"}, {Name: "A", Table: "b"}}, "duplicate"},
		{"unknown proxy target", []EntityType{{Name: "P", ProxyOf: "A"}}, "unknown entity type"},
		{"proxy with table", []EntityType{{Name: "A", Table: "a"}, {Name: "P", ProxyOf: "A", Table: "p"}}, "cannot declare"},
		{"proxy cycle", []EntityType{{Name: "P", ProxyOf: "Q"}, {Name: "Q", ProxyOf: "P"}}, "cycle"},
		{"parent cycle", []EntityType{{Name: "A", Table: "a", Parent: "B"}, {Name: "B", Table: "b", Parent: "A"}}, "cycle"},
		{"both kinds", []EntityType{{Name: "A", Table: "a"}, {Name: "X", ProxyOf: "A", Parent: "A"}}, "mutually exclusive"},
		{"shared table", []EntityType{{Name: "A", Table: "t"}, {Name: "B", Table: "t"}}, "already used"},
		{"shadowed field", []EntityType{
			{Name: "A", Table: "a", Fields: []Field{{Name: "name", Kind: KindString}}},
			{Name: "C", Table: "c", Parent: "A", Fields: []Field{{Name: "name", Kind: KindString}}},
		}, "shadows"},
		{"proxy parent", []EntityType{
			{Name: "A", Table: "a"},
			{Name: "P", ProxyOf: "A"},
			{Name: "C", Table: "c", Parent: "P"},
		}, "is a proxy"},
		{"unknown reference", []EntityType{
			{Name: "A", Table: "a", Fields: []Field{{Name: "b_id", Kind: KindInt, References: "B"}}},
		}, "unknown entity type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.decls...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRegistrySelfReference(t *testing.T) {
	reg, err := NewRegistry(EntityType{
		Name:   "Node",
		Table:  "node",
		Fields: []Field{{Name: "parent_id", Kind: KindInt, Nullable: true, References: "Node"}},
	})
	require.NoError(t, err)

	class, ok := reg.Class("Node")
	require.True(t, ok)
	assert.Equal(t, "Node", class)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "objects.cue"), []byte(objectsCUE), 0644))

	reg, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"ChildObjectA", "ObjectA", "ObjectB", "ProxyObjectA", "ProxyProxyObjectA"}, reg.Names())
}

func TestLoadDir_CheckedInModels(t *testing.T) {
	reg, err := LoadDir(filepath.Join("..", "harness", "testdata", "models"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ChildObjectA", "GrandChildObjectA", "ObjectA", "ObjectB", "ProxyObjectA"}, reg.Names())

	class, ok := reg.Class("ProxyObjectA")
	require.True(t, ok)
	assert.Equal(t, "ObjectA", class)
}

func TestLoadDir_SplitFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte(`entity: ObjectA: {
	table: "object_a"
	fields: { name: string }
}
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.cue"), []byte(`entity: ProxyObjectA: { proxy_of: "ObjectA" }
`), 0644))

	reg, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"ObjectA", "ProxyObjectA"}, reg.Names())
}

func TestLoadDirErrors(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	_, err = LoadDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CUE files")
}

func TestRecordIdentity(t *testing.T) {
	saved := &Record{Type: "ObjectA", Key: ir.IRInt(1), Fields: ir.IRObject{"name": ir.IRString("one")}}
	key, ok := saved.IdentityKey()
	assert.True(t, ok)
	assert.Equal(t, ir.IRInt(1), key)
	assert.Equal(t, "ObjectA(1)", saved.String())

	unsaved := NewRecord("ObjectA", ir.IRObject{"name": ir.IRString("two")})
	_, ok = unsaved.IdentityKey()
	assert.False(t, ok)
	assert.Equal(t, "ObjectA(unsaved)", unsaved.String())

	nullKey := Record{Type: "ObjectA", Key: ir.IRNull{}}
	_, ok = nullKey.IdentityKey()
	assert.False(t, ok)

	proxied := saved.As("ProxyObjectA")
	assert.Equal(t, "ProxyObjectA", proxied.EntityType())
	proxied.Fields["name"] = ir.IRString("changed")
	assert.Equal(t, ir.IRString("one"), saved.Get("name"), "As copies fields")
	assert.Equal(t, ir.IRNull{}, saved.Get("missing"))
}

func TestCoerce(t *testing.T) {
	reg := loadObjects(t)
	a, _ := reg.Lookup("ObjectA")

	v, err := a.Coerce("name", ir.IRString("x"))
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("x"), v)

	v, err = a.Coerce("tag", nil)
	require.NoError(t, err)
	assert.Equal(t, ir.IRNull{}, v)

	_, err = a.Coerce("name", ir.IRNull{})
	assert.Error(t, err, "name is not nullable")

	_, err = a.Coerce("name", ir.IRInt(1))
	assert.Error(t, err)

	_, err = a.Coerce("missing", ir.IRInt(1))
	assert.Error(t, err)
}

func TestFieldKindAccepts(t *testing.T) {
	assert.True(t, KindInt.Accepts(ir.IRInt(1)))
	assert.False(t, KindInt.Accepts(ir.IRString("1")))
	assert.False(t, KindInt.Accepts(ir.IRBool(true)))
	assert.True(t, KindString.Accepts(ir.IRString("1")))
	assert.False(t, KindString.Accepts(ir.IRInt(1)))
	assert.True(t, KindBool.Accepts(ir.IRBool(false)))
	assert.False(t, KindBool.Accepts(ir.IRNull{}))
}

func TestFieldKindDecode(t *testing.T) {
	v, err := KindBool.Decode(int64(1))
	require.NoError(t, err)
	assert.Equal(t, ir.IRBool(true), v)

	v, err = KindString.Decode([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("abc"), v)

	v, err = KindInt.Decode(nil)
	require.NoError(t, err)
	assert.Equal(t, ir.IRNull{}, v)

	assert.Equal(t, "INTEGER", KindBool.SQLType())
	assert.Equal(t, "TEXT", KindString.SQLType())
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
