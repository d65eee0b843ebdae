// Package tools defines the named operations the conversation driver may
// invoke and executes them without ever failing the caller.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// CollectData is the data-capture tool; invoked with a summary it ends the call.
const CollectData = "collect_data"

var ErrUnknownTool = errors.New("unknown tool")

// Result is what a handler hands back to the driver. Finalize is only set by
// the data-capture tool when a summary was supplied; its Output is then empty.
type Result struct {
	Output   string
	Finalize bool
}

type Handler func(ctx context.Context, args json.RawMessage) (Result, error)

type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Handler     Handler        `json:"-"`
}

// Executed describes one finished tool invocation.
type Executed struct {
	Name      string
	Arguments string
	Output    string
	Finalize  bool
	Failed    bool
}

// Completion reports whether this invocation declared the call complete.
func (e Executed) Completion() bool {
	return e.Name == CollectData && e.Finalize && !e.Failed
}

type Registry struct {
	tools  map[string]*Tool
	order  []string
	logger *zap.SugaredLogger
}

func NewRegistry(logger *zap.SugaredLogger, tools ...*Tool) *Registry {
	r := &Registry{
		tools:  make(map[string]*Tool),
		logger: logger,
	}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

func (r *Registry) Register(t *Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// List returns the tools in registration order.
func (r *Registry) List() []*Tool {
	result := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.tools[name])
	}
	return result
}

// Execute runs the named tool. Unknown tools, malformed arguments, handler
// errors and panics all come back as an "Error ..." output.
func (r *Registry) Execute(ctx context.Context, name string, argsJSON string) (ex Executed) {
	ex = Executed{Name: name, Arguments: argsJSON}

	tool := r.tools[name]
	if tool == nil {
		ex.Output = fmt.Sprintf("Error: %s: %s", ErrUnknownTool, name)
		ex.Failed = true
		r.logger.Warnw("tools: execute: unknown tool", "tool", name)
		return ex
	}

	defer func() {
		if p := recover(); p != nil {
			ex.Output = fmt.Sprintf("Error %s: internal error", name)
			ex.Finalize = false
			ex.Failed = true
			r.logger.Errorw("tools: execute: panic", "tool", name, "ERROR", p)
		}
	}()

	res, err := tool.Handler(ctx, json.RawMessage(argsJSON))
	if err != nil {
		ex.Output = fmt.Sprintf("Error %s: %s", name, err)
		ex.Failed = true
		r.logger.Infow("tools: execute: failed", "tool", name, "ERROR", err)
		return ex
	}

	ex.Output = res.Output
	ex.Finalize = res.Finalize
	r.logger.Infow("tools: execute", "tool", name, "output", res.Output, "finalize", res.Finalize)
	return ex
}

// decodeArgs strictly decodes a JSON object into v. Unknown properties are
// rejected; an empty payload decodes as {}.
func decodeArgs(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("invalid arguments: trailing data")
	}
	return nil
}

func required(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s is required", strings.Join(missing, ", "))
	}
	return nil
}

func stringProp(description string, enum ...string) map[string]any {
	p := map[string]any{
		"type":        "string",
		"description": description,
	}
	if len(enum) > 0 {
		p["enum"] = enum
	}
	return p
}

func objectSchema(properties map[string]any, requiredFields ...string) map[string]any {
	if requiredFields == nil {
		requiredFields = []string{}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             requiredFields,
		"additionalProperties": false,
	}
}
