package lua

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/crdt"
	"github.com/dshills/potluck/internal/logging"
	"github.com/dshills/potluck/internal/plugin"
)

const tagsPlugin = `
return {
  name = "tags",
  types = { "Tag" },
  transform = function(annotations)
    for _, a in ipairs(annotations) do
      if a.type == "Tag" then
        a.data.tag = string.lower(a.text)
      end
    end
  end,
  extensions = {
    Tag = {
      computed = {
        label = function(v) return "#" .. v.tag end,
        shout = function(v) return string.upper(v.label) end,
      },
      defaults = {
        weight = function(v) return 1 end,
      },
      view = function(v, all)
        return v.label .. " (" .. #all .. ")"
      end,
    },
  },
}
`

func loadTags(t *testing.T) *Script {
	t.Helper()
	s, err := LoadString("tags.lua", tagsPlugin, WithLogger(logging.Nop()))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestScriptPlugin(t *testing.T) {
	s := loadTags(t)
	p := s.Plugin()

	assert.Equal(t, "tags", p.Name)
	assert.Equal(t, []string{"Tag"}, p.Types)
	require.NotNil(t, p.Transform)
	require.Contains(t, p.Extensions, "Tag")
	ext := p.Extensions["Tag"]
	assert.Len(t, ext.Computed, 2)
	assert.Len(t, ext.Defaults, 1)
	assert.NotNil(t, ext.View)
}

func TestScriptTransformAndView(t *testing.T) {
	s := loadTags(t)
	p := s.Plugin()

	buf := crdt.NewFromString("Quick VEGAN soup")
	in := []annotation.Annotation{
		annotation.New(annotation.TypeTag, annotation.SpanFromRange(buf, 6, 11), annotation.Data{"keep": "me"}),
		annotation.New(annotation.TypeStep, annotation.SpanFromRange(buf, 0, 5), nil),
	}
	out, err := plugin.NewPipeline([]plugin.Plugin{p}, plugin.WithPipelineLogger(logging.Nop())).Apply(in, buf)
	require.NoError(t, err)

	assert.Equal(t, "vegan", out[0].Data["tag"])
	assert.Equal(t, "me", out[0].Data["keep"])
	assert.Empty(t, out[1].Data)
	assert.Nil(t, in[0].Data["tag"], "input must not be mutated")

	reg := plugin.NewRegistry([]plugin.Plugin{p}, logging.Nop())
	views := []plugin.View{reg.View(out[0], buf), reg.View(out[1], buf)}

	label, _ := plugin.String(views[0], "label")
	assert.Equal(t, "#vegan", label)
	shout, _ := plugin.String(views[0], "shout")
	assert.Equal(t, "#VEGAN", shout)
	weight, _ := plugin.Int(views[0], "weight")
	assert.Equal(t, 1, weight)

	pres, ok := reg.Present(views[0], views)
	require.True(t, ok)
	assert.Equal(t, "#vegan (2)", pres.Text)

	assert.GreaterOrEqual(t, s.States(), 2, "nested computed fields borrow a second state")
}

func TestViewsAreReadOnly(t *testing.T) {
	s, err := LoadString("bad", `
return {
  extensions = {
    Tag = {
      computed = {
        sneaky = function(v) v.tag = "changed"; return "done" end,
      },
    },
  },
}`, WithLogger(logging.Nop()))
	require.NoError(t, err)
	defer s.Close()

	a := annotation.Annotation{ID: "a1", Type: "Tag", Data: annotation.Data{"tag": "orig"}}
	v := plugin.NewView(a, "", s.Plugin().Extensions["Tag"])

	got, ok := v.Get("sneaky")
	assert.True(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, "orig", a.Data["tag"])
}

func TestSandbox(t *testing.T) {
	s, err := LoadString("probe", `
return {
  name = (dofile == nil and loadstring == nil and require == nil and io == nil and os == nil) and "safe" or "unsafe",
}`, WithLogger(logging.Nop()))
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "safe", s.Name())
}

func TestTimeout(t *testing.T) {
	s, err := LoadString("spin", `
return {
  transform = function(annotations) while true do end end,
}`, WithTimeout(50*time.Millisecond), WithLogger(logging.Nop()))
	require.NoError(t, err)
	defer s.Close()

	err = s.Plugin().Transform(nil, crdt.New())
	assert.ErrorIs(t, err, ErrExecutionTimeout)
}

func TestBadScripts(t *testing.T) {
	_, err := LoadString("number", `return 42`)
	assert.ErrorIs(t, err, ErrBadScript)

	_, err = LoadString("syntax", `return {`)
	assert.Error(t, err)

	_, err = LoadString("runtime", `error("boom")`)
	assert.Error(t, err)
}

func TestClosedScript(t *testing.T) {
	s := loadTags(t)
	p := s.Plugin()
	s.Close()

	err := p.Transform(nil, crdt.New())
	assert.ErrorIs(t, err, ErrStateClosed)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	write("b_second.lua", `return { types = { "Step" } }`)
	write("a_first.lua", `return { name = "first" }`)
	write("broken.lua", `return 1`)
	write("notes.txt", `not a plugin`)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.lua"), 0o755))

	scripts, err := LoadDir(dir, WithLogger(logging.Nop()))
	defer CloseAll(scripts)
	assert.ErrorIs(t, err, ErrBadScript)

	plugins := Plugins(scripts)
	require.Len(t, plugins, 2)
	assert.Equal(t, "first", plugins[0].Name)
	assert.Equal(t, "b_second", plugins[1].Name)
	assert.Equal(t, []string{"Step"}, plugins[1].Types)

	missing, err := LoadDir(filepath.Join(dir, "nope"))
	assert.NoError(t, err)
	assert.Empty(t, missing)
}

func TestToGoValue(t *testing.T) {
	st := NewState(WithStateLogger(logging.Nop()))
	defer st.Close()

	ret, err := st.Run("values", `return { n = 3, f = 1.5, s = "x", list = { 1, "two", true }, nested = { k = "v" } }`)
	require.NoError(t, err)

	got := ToGoValue(ret)
	assert.Equal(t, map[string]any{
		"n":      3,
		"f":      1.5,
		"s":      "x",
		"list":   []any{1, "two", true},
		"nested": map[string]any{"k": "v"},
	}, got)

	back := ToLuaValue(st.L, got)
	tbl, ok := back.(*glua.LTable)
	require.True(t, ok)
	assert.Equal(t, glua.LString("x"), tbl.RawGetString("s"))
}
