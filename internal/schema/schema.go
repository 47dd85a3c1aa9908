// Package schema validates task payloads received over HTTP against
// embedded JSON Schemas and decodes them into service types.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"eisen/internal/matrix"
	"eisen/internal/service"
)

//go:embed *.json
var files embed.FS

// Schema names.
const (
	TaskCreate = "task_create.json"
	TaskPatch  = "task_patch.json"
	TaskMove   = "task_move.json"
)

// ValidationError describes the first schema violation of a payload.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

func load() (map[string]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true

		names := []string{TaskCreate, TaskPatch, TaskMove}
		for _, name := range names {
			data, err := files.ReadFile(name)
			if err != nil {
				compileErr = err
				return
			}
			if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
				compileErr = fmt.Errorf("add schema %s: %w", name, err)
				return
			}
		}
		compiled = make(map[string]*jsonschema.Schema, len(names))
		for _, name := range names {
			s, err := compiler.Compile(name)
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			compiled[name] = s
		}
	})
	return compiled, compileErr
}

// Validate checks data against the named schema.
func Validate(name string, data []byte) error {
	schemas, err := load()
	if err != nil {
		return err
	}
	s, ok := schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return &ValidationError{Message: "invalid JSON: " + err.Error()}
	}
	if err := s.Validate(doc); err != nil {
		return firstCause(err)
	}
	return nil
}

// firstCause reduces a jsonschema error tree to its first leaf.
func firstCause(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &ValidationError{Message: err.Error()}
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	path := strings.TrimPrefix(ve.InstanceLocation, "/")
	return &ValidationError{Path: strings.ReplaceAll(path, "/", "."), Message: ve.Message}
}

// ParseDue accepts an RFC3339 timestamp or a YYYY-MM-DD date.
func ParseDue(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

type payload struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	IsImportant *bool            `json:"is_important"`
	IsUrgent    *bool            `json:"is_urgent"`
	Status      *service.Status  `json:"status"`
	DueDate     *json.RawMessage `json:"due_date"`
}

// dueDate returns the parsed due date, or clear=true for an explicit null.
func (p payload) dueDate() (due *time.Time, clear bool, err error) {
	if p.DueDate == nil {
		return nil, false, nil
	}
	var s *string
	if err := json.Unmarshal(*p.DueDate, &s); err != nil {
		return nil, false, err
	}
	if s == nil {
		return nil, true, nil
	}
	t, err := ParseDue(*s)
	if err != nil {
		return nil, false, err
	}
	return &t, false, nil
}

// DecodeCreate validates and decodes a task create payload.
func DecodeCreate(data []byte) (service.NewTask, error) {
	if err := Validate(TaskCreate, data); err != nil {
		return service.NewTask{}, err
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return service.NewTask{}, err
	}
	nt := service.NewTask{Title: *p.Title}
	if p.Description != nil {
		nt.Description = *p.Description
	}
	if p.IsImportant != nil {
		nt.IsImportant = *p.IsImportant
	}
	if p.IsUrgent != nil {
		nt.IsUrgent = *p.IsUrgent
	}
	due, _, err := p.dueDate()
	if err != nil {
		return service.NewTask{}, &ValidationError{Path: "due_date", Message: err.Error()}
	}
	nt.DueDate = due
	return nt.Normalize(), nil
}

// DecodePatch validates and decodes a task patch payload.
func DecodePatch(data []byte) (service.TaskPatch, error) {
	if err := Validate(TaskPatch, data); err != nil {
		return service.TaskPatch{}, err
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return service.TaskPatch{}, err
	}
	patch := service.TaskPatch{
		Description: p.Description,
		IsImportant: p.IsImportant,
		IsUrgent:    p.IsUrgent,
		Status:      p.Status,
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		patch.Title = &title
	}
	due, clear, err := p.dueDate()
	if err != nil {
		return service.TaskPatch{}, &ValidationError{Path: "due_date", Message: err.Error()}
	}
	patch.DueDate = due
	patch.ClearDueDate = clear
	return patch, nil
}

// DecodeMove validates a move payload and returns the target quadrant.
func DecodeMove(data []byte) (matrix.Quadrant, error) {
	if err := Validate(TaskMove, data); err != nil {
		return 0, err
	}
	var p struct {
		Quadrant string `json:"quadrant"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return 0, err
	}
	return matrix.ParseQuadrant(p.Quadrant)
}
