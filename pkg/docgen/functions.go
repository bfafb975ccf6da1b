package docgen

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"unicode"
)

// Function is a callable available inside template expressions.
type Function interface {
	Call(args ...any) (any, error)
	Name() string
	MinArgs() int
	// MaxArgs returns the maximum number of arguments, -1 for unlimited.
	MaxArgs() int
}

// FunctionRegistry resolves function names.
type FunctionRegistry interface {
	RegisterFunction(fn Function) error
	GetFunction(name string) (Function, bool)
	ListFunctions() []string
}

// DefaultFunctionRegistry is a concurrency safe FunctionRegistry.
type DefaultFunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry creates a registry holding the built-in functions.
func NewFunctionRegistry() *DefaultFunctionRegistry {
	r := &DefaultFunctionRegistry{functions: make(map[string]Function)}
	registerBuiltins(r)
	return r
}

func (r *DefaultFunctionRegistry) RegisterFunction(fn Function) error {
	if fn.Name() == "" {
		return fmt.Errorf("function name cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[fn.Name()] = fn
	return nil
}

func (r *DefaultFunctionRegistry) GetFunction(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.functions[name]
	return fn, ok
}

func (r *DefaultFunctionRegistry) ListFunctions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var (
	defaultRegistry     *DefaultFunctionRegistry
	defaultRegistryOnce sync.Once
)

// DefaultFunctions returns the shared registry of built-in functions.
func DefaultFunctions() FunctionRegistry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewFunctionRegistry()
	})
	return defaultRegistry
}

// functionsKey carries a per-render registry inside the render context.
const functionsKey = "__functions__"

func registryFrom(data Data) FunctionRegistry {
	if reg, ok := data[functionsKey].(FunctionRegistry); ok {
		return reg
	}
	return DefaultFunctions()
}

// SimpleFunction adapts a Go func to Function.
type SimpleFunction struct {
	name    string
	minArgs int
	maxArgs int
	handler func(args ...any) (any, error)
}

// NewSimpleFunction creates a Function from a handler.
func NewSimpleFunction(name string, minArgs, maxArgs int, handler func(args ...any) (any, error)) Function {
	return &SimpleFunction{name: name, minArgs: minArgs, maxArgs: maxArgs, handler: handler}
}

func (f *SimpleFunction) Call(args ...any) (any, error) {
	if len(args) < f.minArgs {
		return nil, fmt.Errorf("function %s requires at least %d arguments, got %d", f.name, f.minArgs, len(args))
	}
	if f.maxArgs >= 0 && len(args) > f.maxArgs {
		return nil, fmt.Errorf("function %s accepts at most %d arguments, got %d", f.name, f.maxArgs, len(args))
	}
	return f.handler(args...)
}

func (f *SimpleFunction) Name() string { return f.name }
func (f *SimpleFunction) MinArgs() int { return f.minArgs }
func (f *SimpleFunction) MaxArgs() int { return f.maxArgs }

func registerBuiltins(r *DefaultFunctionRegistry) {
	builtins := []Function{
		NewSimpleFunction("length", 1, 1, func(args ...any) (any, error) {
			if s, ok := args[0].(string); ok {
				return len([]rune(s)), nil
			}
			if args[0] == nil {
				return 0, nil
			}
			rv := reflect.ValueOf(args[0])
			switch rv.Kind() {
			case reflect.Slice, reflect.Array, reflect.Map:
				return rv.Len(), nil
			}
			return nil, fmt.Errorf("length of %T is undefined", args[0])
		}),
		NewSimpleFunction("upper", 1, 1, func(args ...any) (any, error) {
			return strings.ToUpper(FormatValue(args[0])), nil
		}),
		NewSimpleFunction("lower", 1, 1, func(args ...any) (any, error) {
			return strings.ToLower(FormatValue(args[0])), nil
		}),
		NewSimpleFunction("capitalize", 1, 1, func(args ...any) (any, error) {
			s := []rune(strings.ToLower(FormatValue(args[0])))
			if len(s) > 0 {
				s[0] = unicode.ToUpper(s[0])
			}
			return string(s), nil
		}),
		NewSimpleFunction("str", 1, 1, func(args ...any) (any, error) {
			return FormatValue(args[0]), nil
		}),
		NewSimpleFunction("default", 2, 2, func(args ...any) (any, error) {
			if isTruthy(args[0]) {
				return args[0], nil
			}
			return args[1], nil
		}),
		NewSimpleFunction("join", 1, 2, func(args ...any) (any, error) {
			items, err := toSlice(args[0])
			if err != nil {
				return nil, err
			}
			sep := ", "
			if len(args) == 2 {
				sep = FormatValue(args[1])
			}
			parts := make([]string, len(items))
			for i, item := range items {
				parts[i] = FormatValue(item)
			}
			return strings.Join(parts, sep), nil
		}),
	}
	for _, fn := range builtins {
		r.functions[fn.Name()] = fn
	}
}
