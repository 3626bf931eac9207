package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/kritsada/careline/agent/contract"
)

// Handler executes one tool call with arguments that already passed schema
// validation. A returned error degrades to textual error content; it never
// aborts the surrounding conversation.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Property describes a single argument in a tool's input contract.
type Property struct {
	Type    string // "string" | "integer" | "number" | "boolean"
	Desc    string
	Default any // filled in when the model omits the argument
}

// InputSchema is the JSON-schema-shaped input contract of a tool.
type InputSchema struct {
	Properties map[string]Property
	Required   []string
}

// Descriptor identifies a tool within a catalog. Name is unique per catalog.
type Descriptor struct {
	Name   string
	Desc   string
	Schema InputSchema
}

type entry struct {
	desc    Descriptor
	handler Handler
}

// Catalog is a fixed registry of named, schema-validated tools. It is safe
// for concurrent use; registration happens at startup, Invoke at request
// time from any number of goroutines.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]entry
}

func NewCatalog() *Catalog {
	return &Catalog{tools: make(map[string]entry)}
}

func (c *Catalog) Register(desc Descriptor, handler Handler) error {
	name := strings.TrimSpace(desc.Name)
	if name == "" {
		return fmt.Errorf("%w: tool name is empty", contractx.ErrValidation)
	}
	if handler == nil {
		return fmt.Errorf("%w: tool=%s handler is nil", contractx.ErrValidation, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tools[name]; exists {
		return fmt.Errorf("%w: %s", contractx.ErrDuplicateTool, name)
	}
	c.tools[name] = entry{desc: desc, handler: handler}
	return nil
}

// Invoke validates args against the descriptor's schema and runs the
// handler. Unknown names and schema violations are returned as errors so the
// caller can report them; handler failures and panics are contained and come
// back as error-flagged content.
func (c *Catalog) Invoke(ctx context.Context, name string, args map[string]any) (contractx.ToolResult, error) {
	c.mu.RLock()
	e, ok := c.tools[name]
	c.mu.RUnlock()
	if !ok {
		return contractx.ToolResult{}, fmt.Errorf("%w: %s", contractx.ErrUnknownTool, name)
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := e.desc.Schema.validate(args); err != nil {
		return contractx.ToolResult{}, fmt.Errorf("%w: tool=%s: %v", contractx.ErrSchemaViolation, name, err)
	}
	e.desc.Schema.applyDefaults(args)

	content, err := safeInvoke(ctx, e.handler, args)
	if err != nil {
		log.Warn().Err(err).Str("tool", name).Msg("tool handler failed")
		return contractx.ToolResult{
			Tool:    name,
			Content: fmt.Sprintf("Tool %s failed: %s", name, err),
			IsError: true,
		}, nil
	}

	return contractx.ToolResult{Tool: name, Content: content}, nil
}

// Infos exposes the catalog as eino tool descriptors for model binding,
// sorted by name for a stable catalog order.
func (c *Catalog) Infos() []*schema.ToolInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.tools))
	for name := range c.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	infos := make([]*schema.ToolInfo, 0, len(names))
	for _, name := range names {
		e := c.tools[name]
		params := make(map[string]*schema.ParameterInfo, len(e.desc.Schema.Properties))
		required := make(map[string]bool, len(e.desc.Schema.Required))
		for _, field := range e.desc.Schema.Required {
			required[field] = true
		}
		for field, prop := range e.desc.Schema.Properties {
			params[field] = &schema.ParameterInfo{
				Type:     dataTypeOf(prop.Type),
				Desc:     prop.Desc,
				Required: required[field],
			}
		}
		infos = append(infos, &schema.ToolInfo{
			Name:        e.desc.Name,
			Desc:        e.desc.Desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return infos
}

func safeInvoke(ctx context.Context, handler Handler, args map[string]any) (content string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, args)
}

func (s InputSchema) validate(args map[string]any) error {
	for _, field := range s.Required {
		if _, ok := args[field]; !ok {
			return fmt.Errorf("missing required field %q", field)
		}
	}
	for field, value := range args {
		prop, ok := s.Properties[field]
		if !ok {
			continue
		}
		if err := checkType(value, prop.Type); err != nil {
			return fmt.Errorf("field %q: %w", field, err)
		}
	}
	return nil
}

func (s InputSchema) applyDefaults(args map[string]any) {
	for field, prop := range s.Properties {
		if prop.Default == nil {
			continue
		}
		if _, ok := args[field]; !ok {
			args[field] = prop.Default
		}
	}
}

func checkType(value any, expected string) error {
	switch expected {
	case "string":
		if _, ok := value.(string); ok {
			return nil
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	case "number":
		if isNumber(value) {
			return nil
		}
	case "integer":
		if isInteger(value) {
			return nil
		}
	default:
		return fmt.Errorf("unsupported schema type %q", expected)
	}
	return fmt.Errorf("expected %s but got %T", expected, value)
}

func isNumber(value any) bool {
	switch v := value.(type) {
	case float32, float64, int, int8, int16, int32, int64:
		return true
	case json.Number:
		_, err := v.Float64()
		return err == nil
	}
	return false
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return true
	case float64:
		return math.Trunc(v) == v
	case float32:
		return math.Trunc(float64(v)) == float64(v)
	case json.Number:
		_, err := v.Int64()
		return err == nil
	}
	return false
}

func dataTypeOf(t string) schema.DataType {
	switch t {
	case "integer":
		return schema.Integer
	case "number":
		return schema.Number
	case "boolean":
		return schema.Boolean
	default:
		return schema.String
	}
}
