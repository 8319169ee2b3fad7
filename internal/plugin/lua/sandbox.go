package lua

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/potluck/internal/logging"
)

// removedGlobals can load code from outside the plugin file.
var removedGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"module",
	"collectgarbage",
}

// installSandbox strips globals a plugin must not reach and routes print
// to log.
func installSandbox(L *lua.LState, log *logging.Logger) {
	for _, name := range removedGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		log.Debug("lua print", "output", strings.Join(parts, "\t"))
		return 0
	}))
}
