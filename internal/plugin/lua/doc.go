// Package lua loads annotation plugins written in Lua.
//
// A plugin file returns a table describing the plugin:
//
//	return {
//	    name = "tags",
//	    types = { "Tag" },
//	    transform = function(annotations)
//	        for _, a in ipairs(annotations) do
//	            a.data.tag = string.lower(a.text)
//	        end
//	    end,
//	    extensions = {
//	        Tag = {
//	            computed = { label = function(v) return "#" .. v.tag end },
//	            defaults = { weight = function(v) return 1 end },
//	            view = function(v, all) return v.label end,
//	        },
//	    },
//	}
//
// Every field is optional. Transforms receive the annotation list as an
// array of {id, type, text, data} tables and edit data in place. Computed,
// default and view functions receive read-only views: indexing a view
// resolves the field through the merged extension of its type, and
// assigning to one raises an error.
//
// # Sandbox
//
// Scripts run with the base, table, string and math libraries only.
// dofile, loadfile, load and loadstring are removed and print is routed
// to the logger. Each call runs under an execution timeout.
//
// # States
//
// gopher-lua states are not goroutine-safe, and computed fields may call
// back into the same plugin while a call is in progress. A Script therefore
// keeps a pool of independently loaded states and every call borrows one,
// so plugin files must not rely on global state surviving between calls.
package lua
