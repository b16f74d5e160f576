package command

import (
	"fmt"
	"os"
	"strings"
)

// Field defines a CLI input field.
type Field struct {
	Name     string
	Prompt   string
	Required bool
	// File marks the field as a path read from disk.
	File bool
}

// Command binds a "service action" pair to an HTTP operation.
type Command struct {
	Service      string
	Action       string
	Method       string
	PathTemplate string
	RequiresAuth bool
	Fields       []Field
}

func (c Command) Key() string {
	return c.Service + " " + c.Action
}

// MultipartSpec is a single-file multipart upload.
type MultipartSpec struct {
	FieldName string
	FileName  string
	Content   []byte
}

// RequestSpec is the built HTTP request.
type RequestSpec struct {
	Method    string
	Path      string
	Query     map[string]string
	Body      []byte
	Multipart *MultipartSpec
}

// Params holds parsed input params keyed by lower-cased field name.
type Params map[string]string

func (p Params) Get(key string) string {
	return p[strings.ToLower(key)]
}

func (p Params) Set(key, value string) {
	p[strings.ToLower(key)] = value
}

func (p Params) Has(key string) bool {
	_, ok := p[strings.ToLower(key)]
	return ok
}

func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file failed: %w", err)
	}
	return data, nil
}
