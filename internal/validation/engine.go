// Package validation checks form input against declarative schemas and
// reports per-field messages.
package validation

import (
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

type refKind int

const (
	refNamed refKind = iota
	refInline
	refParameterized
)

// RuleRef points at a rule: by registry name, as an inline function, or as a
// registry factory with parameters and an optional replacement message.
type RuleRef struct {
	kind    refKind
	name    string
	fn      Rule
	params  []any
	message string
}

func Named(name string) RuleRef {
	return RuleRef{kind: refNamed, name: name}
}

func Inline(fn Rule) RuleRef {
	return RuleRef{kind: refInline, fn: fn, name: "inline"}
}

// Parameterized instantiates the factory registered as name with params. A
// non-empty message replaces the rule's own failure message.
func Parameterized(name string, params []any, message string) RuleRef {
	return RuleRef{kind: refParameterized, name: name, params: params, message: message}
}

func MinLength(n int) RuleRef { return Parameterized("minLength", []any{n}, "") }
func MaxLength(n int) RuleRef { return Parameterized("maxLength", []any{n}, "") }
func Min(n float64) RuleRef   { return Parameterized("min", []any{n}, "") }
func Max(n float64) RuleRef   { return Parameterized("max", []any{n}, "") }
func Pattern(expr, message string) RuleRef {
	return Parameterized("pattern", []any{expr, message}, "")
}

func (r RuleRef) Name() string { return r.name }

// FieldSchema is the ordered rule list of one field.
type FieldSchema []RuleRef

// FormSchema maps field names to their rules.
type FormSchema map[string]FieldSchema

type FieldResult struct {
	Valid  bool
	Errors []string
}

type FormResult struct {
	Valid  bool
	Errors map[string][]string
}

type Engine struct {
	mu        sync.RWMutex
	rules     map[string]Rule
	factories map[string]Factory
	log       zerolog.Logger
}

// NewEngine returns an engine with the built-in rules registered.
func NewEngine(log zerolog.Logger) *Engine {
	e := &Engine{
		rules:     make(map[string]Rule),
		factories: make(map[string]Factory),
		log:       log,
	}
	e.Register("required", required)
	e.Register("email", email)
	e.Register("password", password)
	e.Register("passwordMatch", passwordMatch)
	e.Register("phone", phone)
	e.Register("noScript", noScript)
	e.RegisterFactory("minLength", minLength)
	e.RegisterFactory("maxLength", maxLength)
	e.RegisterFactory("min", minValue)
	e.RegisterFactory("max", maxValue)
	e.RegisterFactory("pattern", pattern)
	return e
}

// Register adds or replaces a parameterless rule.
func (e *Engine) Register(name string, rule Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules[name] = rule
	delete(e.factories, name)
}

// RegisterFactory adds or replaces a parameterized rule.
func (e *Engine) RegisterFactory(name string, factory Factory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.factories[name] = factory
	delete(e.rules, name)
}

// ValidateField runs every rule in order and collects each failure message.
// Unresolvable references are logged and skipped.
func (e *Engine) ValidateField(value string, rules FieldSchema, fields Fields) FieldResult {
	if fields == nil {
		fields = Fields{}
	}
	errs := make([]string, 0)
	for _, ref := range rules {
		rule, ok := e.resolve(ref)
		if !ok {
			continue
		}
		res := rule(value, fields)
		if res.Valid {
			continue
		}
		if ref.kind == refParameterized && ref.message != "" {
			res.Message = ref.message
		}
		errs = append(errs, res.Message)
	}
	return FieldResult{Valid: len(errs) == 0, Errors: errs}
}

// ValidateForm validates the schema's fields only; values outside the schema
// are ignored. Errors holds failing fields only.
func (e *Engine) ValidateForm(values Fields, schema FormSchema) FormResult {
	out := FormResult{Valid: true, Errors: make(map[string][]string)}
	for field, rules := range schema {
		res := e.ValidateField(values[field], rules, values)
		if !res.Valid {
			out.Valid = false
			out.Errors[field] = res.Errors
		}
	}
	return out
}

func (e *Engine) resolve(ref RuleRef) (Rule, bool) {
	if ref.kind == refInline {
		return ref.fn, ref.fn != nil
	}

	e.mu.RLock()
	rule, isRule := e.rules[ref.name]
	factory, isFactory := e.factories[ref.name]
	e.mu.RUnlock()

	switch {
	case isRule:
		return rule, true
	case isFactory:
		var params []any
		if ref.kind == refParameterized {
			params = ref.params
		}
		built, err := factory(params...)
		if err != nil {
			e.log.Warn().Err(err).Str("rule", ref.name).Msg("rule skipped")
			return nil, false
		}
		return built, true
	default:
		e.log.Warn().Str("rule", ref.name).Msg("unknown validation rule skipped")
		return nil, false
	}
}

// FieldValues flattens submitted form values, keeping the first value of each
// field.
func FieldValues(values url.Values) Fields {
	out := make(Fields, len(values))
	for key, vs := range values {
		if len(vs) > 0 {
			out[key] = vs[0]
		}
	}
	return out
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
