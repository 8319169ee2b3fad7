package lua

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/logging"
	"github.com/dshills/potluck/internal/plugin"
)

// Option configures a Script.
type Option func(*Script)

// WithTimeout sets the per-call execution timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Script) {
		s.timeout = d
	}
}

// WithLogger sets the script logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Script) {
		s.log = l
	}
}

// Script is one loaded Lua plugin file.
type Script struct {
	name    string
	path    string
	source  string
	timeout time.Duration
	log     *logging.Logger

	mu     sync.Mutex
	idle   []*loaded
	all    []*loaded
	closed bool
}

// loaded is a State holding the evaluated plugin table.
type loaded struct {
	state *State
	root  *lua.LTable
}

// Load reads and evaluates the plugin file at path.
func Load(path string, opts ...Option) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lua plugin: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return LoadString(name, string(src), append(opts, func(s *Script) { s.path = path })...)
}

// LoadString evaluates a plugin from source. name is used when the plugin
// table does not set one.
func LoadString(name, source string, opts ...Option) (*Script, error) {
	s := &Script{name: name, path: name, source: source}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.OrDefault(s.log).WithComponent("lua").WithField("plugin", name)

	l, err := s.newLoaded()
	if err != nil {
		return nil, err
	}
	if n, ok := l.root.RawGetString("name").(lua.LString); ok && n != "" {
		s.name = string(n)
	}
	s.all = append(s.all, l)
	s.idle = append(s.idle, l)
	return s, nil
}

// Name returns the plugin name.
func (s *Script) Name() string {
	return s.name
}

// Path returns the file the script was loaded from.
func (s *Script) Path() string {
	return s.path
}

// States returns how many Lua states the script has created.
func (s *Script) States() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.all)
}

// Close releases every state. Calls made after Close fail.
func (s *Script) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.all {
		l.state.Close()
	}
	s.all, s.idle = nil, nil
	s.closed = true
}

func (s *Script) newLoaded() (*loaded, error) {
	st := NewState(WithExecutionTimeout(s.timeout), WithStateLogger(s.log))
	ret, err := st.Run(s.path, s.source)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	root, ok := ret.(*lua.LTable)
	if !ok {
		st.Close()
		return nil, fmt.Errorf("load %s: %w", s.path, ErrBadScript)
	}
	return &loaded{state: st, root: root}, nil
}

// acquire borrows an idle state, creating one when every state is busy.
func (s *Script) acquire() (*loaded, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrStateClosed
	}
	if n := len(s.idle); n > 0 {
		l := s.idle[n-1]
		s.idle = s.idle[:n-1]
		s.mu.Unlock()
		return l, nil
	}
	s.mu.Unlock()

	l, err := s.newLoaded()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		l.state.Close()
		return nil, ErrStateClosed
	}
	s.all = append(s.all, l)
	return l, nil
}

func (s *Script) release(l *loaded) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.idle = append(s.idle, l)
	}
}

// lookup walks keys from the plugin table.
func (l *loaded) lookup(keys ...string) lua.LValue {
	var cur lua.LValue = l.root
	for _, k := range keys {
		t, ok := cur.(*lua.LTable)
		if !ok {
			return lua.LNil
		}
		cur = t.RawGetString(k)
	}
	return cur
}

// call invokes the function at keys with arguments built on the borrowed
// state.
func (s *Script) call(keys []string, args func(L *lua.LState) []lua.LValue) (lua.LValue, *loaded, error) {
	l, err := s.acquire()
	if err != nil {
		return lua.LNil, nil, err
	}
	fn := l.lookup(keys...)
	ret, err := l.state.Call(fn, args(l.state.L)...)
	return ret, l, err
}

// Plugin builds the plugin.Plugin backed by the script.
func (s *Script) Plugin() plugin.Plugin {
	l, err := s.acquire()
	if err != nil {
		return plugin.Plugin{Name: s.name}
	}
	defer s.release(l)

	p := plugin.Plugin{Name: s.name}
	if types, ok := ToGoValue(l.root.RawGetString("types")).([]any); ok {
		for _, t := range types {
			if str, ok := t.(string); ok {
				p.Types = append(p.Types, str)
			}
		}
	}
	if l.root.RawGetString("transform").Type() == lua.LTFunction {
		p.Transform = s.transform
	}

	exts, ok := l.root.RawGetString("extensions").(*lua.LTable)
	if !ok {
		return p
	}
	p.Extensions = make(map[string]plugin.Extension)
	exts.ForEach(func(k, v lua.LValue) {
		typ, ok := k.(lua.LString)
		def, isTable := v.(*lua.LTable)
		if !ok || !isTable {
			return
		}
		p.Extensions[string(typ)] = s.extension(string(typ), def)
	})
	return p
}

func (s *Script) extension(typ string, def *lua.LTable) plugin.Extension {
	var ext plugin.Extension
	ext.Computed = s.fieldFuncs(typ, "computed", def)
	ext.Defaults = s.fieldFuncs(typ, "defaults", def)
	if def.RawGetString("view").Type() == lua.LTFunction {
		ext.View = func(v plugin.View, all []plugin.View) (plugin.Presentation, bool) {
			return s.view(typ, v, all)
		}
	}
	return ext
}

func (s *Script) fieldFuncs(typ, slot string, def *lua.LTable) map[string]plugin.Func {
	tbl, ok := def.RawGetString(slot).(*lua.LTable)
	if !ok {
		return nil
	}
	out := make(map[string]plugin.Func)
	tbl.ForEach(func(k, v lua.LValue) {
		name, ok := k.(lua.LString)
		if !ok || v.Type() != lua.LTFunction {
			return
		}
		keys := []string{"extensions", typ, slot, string(name)}
		out[string(name)] = func(view plugin.View) any {
			return s.field(keys, view)
		}
	})
	return out
}

func (s *Script) field(keys []string, v plugin.View) any {
	ret, l, err := s.call(keys, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{viewTable(L, v)}
	})
	if l != nil {
		defer s.release(l)
	}
	if err != nil {
		s.log.Warn("lua field failed", "field", strings.Join(keys[1:], "."), "id", v.ID(), "error", err)
		return nil
	}
	return ToGoValue(ret)
}

func (s *Script) view(typ string, v plugin.View, all []plugin.View) (plugin.Presentation, bool) {
	ret, l, err := s.call([]string{"extensions", typ, "view"}, func(L *lua.LState) []lua.LValue {
		list := L.CreateTable(len(all), 0)
		for i, other := range all {
			list.RawSetInt(i+1, viewTable(L, other))
		}
		return []lua.LValue{viewTable(L, v), list}
	})
	if l != nil {
		defer s.release(l)
	}
	if err != nil {
		s.log.Warn("lua view failed", "type", typ, "id", v.ID(), "error", err)
		return plugin.Presentation{}, false
	}
	if ret == lua.LNil || ret == lua.LFalse {
		return plugin.Presentation{}, false
	}
	return plugin.Presentation{Text: lua.LVAsString(ret)}, true
}

// transform passes the annotations as {id, type, text, data} tables and
// copies each data table back.
func (s *Script) transform(annotations []annotation.Annotation, buf annotation.Buffer) error {
	var list *lua.LTable
	_, l, err := s.call([]string{"transform"}, func(L *lua.LState) []lua.LValue {
		list = L.CreateTable(len(annotations), 0)
		for i, a := range annotations {
			item := L.CreateTable(0, 4)
			item.RawSetString("id", lua.LString(a.ID))
			item.RawSetString("type", lua.LString(a.Type))
			item.RawSetString("text", lua.LString(a.Span.Text(buf)))
			item.RawSetString("data", ToLuaValue(L, a.Data.Clone()))
			list.RawSetInt(i+1, item)
		}
		return []lua.LValue{list}
	})
	if l != nil {
		defer s.release(l)
	}
	if err != nil {
		return err
	}

	for i := range annotations {
		item, ok := list.RawGetInt(i + 1).(*lua.LTable)
		if !ok {
			continue
		}
		if data, ok := item.RawGetString("data").(*lua.LTable); ok {
			annotations[i].Data = ToData(data)
		}
	}
	return nil
}
