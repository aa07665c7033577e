package matcher

import (
	"errors"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"
)

const luaMatchFunction = "matches"

type LuaConfig struct {
	ScriptPath string `yaml:"script-path"`
}

// Lua is a matcher that delegates to a user provided lua script.
// Provided script MUST define a global function named `matches` which takes
// the term, the document and the ignore-case flag, and returns a boolean.
// Note that user can have access to JSON helper using `local json = require("json")`
type Lua struct {
	cfg  LuaConfig
	pool *sync.Pool
}

func NewLua(cfg LuaConfig) (*Lua, error) {
	if cfg.ScriptPath == "" {
		return nil, errors.New("lua matcher requires a script path")
	}

	// Load one state eagerly so that a broken script is reported here and
	// not on the first evaluation.
	first, err := newLuaState(cfg.ScriptPath)
	if err != nil {
		return nil, err
	}

	pool := &sync.Pool{
		New: func() any {
			L, err := newLuaState(cfg.ScriptPath)
			if err != nil {
				// The script loaded once already, so this only happens if the
				// file is changed or removed while running.
				return err
			}
			return L
		},
	}
	pool.Put(first)

	return &Lua{
		cfg:  cfg,
		pool: pool,
	}, nil
}

func newLuaState(scriptPath string) (*lua.LState, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true, // Don't load anything by default
	})

	// Manually open only the safe libraries
	// We skip 'os' and 'io' to prevent system commands/file access
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},  // Allows 'require'
		{lua.BaseLibName, lua.OpenBase},     // Allows 'print', 'pairs', etc.
		{lua.TabLibName, lua.OpenTable},     // Allows 'table.insert', etc.
		{lua.StringLibName, lua.OpenString}, // Allows string manipulation
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	// This allows the user to do: local json = require("json")
	luajson.Preload(L)

	if err := L.DoFile(scriptPath); err != nil {
		L.Close()
		return nil, fmt.Errorf("cannot load lua script: %w", err)
	}

	if fn, ok := L.GetGlobal(luaMatchFunction).(*lua.LFunction); !ok || fn == nil {
		L.Close()
		return nil, fmt.Errorf("lua script %s does not define function `%s`", scriptPath, luaMatchFunction)
	}

	return L, nil
}

func (m *Lua) Match(term, document string, ignoreCase bool) (bool, error) {
	v := m.pool.Get()
	L, ok := v.(*lua.LState)
	if !ok {
		return false, fmt.Errorf("cannot create lua state: %w", v.(error))
	}
	defer m.pool.Put(L)

	err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal(luaMatchFunction),
		NRet:    1,
		Protect: true,
	}, lua.LString(term), lua.LString(document), lua.LBool(ignoreCase))
	if err != nil {
		return false, fmt.Errorf("lua script error: %w", err)
	}

	ret := L.Get(-1)
	L.Pop(1)

	b, ok := ret.(lua.LBool)
	if !ok {
		return false, fmt.Errorf("lua function `%s` returned %s instead of a boolean", luaMatchFunction, ret.Type())
	}

	return bool(b), nil
}
