package command

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// Registry returns all CLI commands keyed by "service action".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service:      "auth",
			Action:       "login",
			Method:       "POST",
			PathTemplate: "/api/v1/auth",
			Fields: []Field{
				{Name: "user_id", Prompt: "user id", Required: true},
				{Name: "secret", Prompt: "login secret", Required: true},
			},
		},
		{
			Service:      "problem",
			Action:       "list",
			Method:       "GET",
			PathTemplate: "/api/v1/problems",
		},
		{
			Service:      "problem",
			Action:       "material",
			Method:       "GET",
			PathTemplate: "/api/v1/problems/:name/material",
			Fields: []Field{
				{Name: "name", Prompt: "problem name", Required: true},
			},
		},
		{
			Service:      "problem",
			Action:       "import",
			Method:       "PUT",
			PathTemplate: "/api/v1/admin/problems/:name",
			Fields: []Field{
				{Name: "name", Prompt: "problem name", Required: true},
				{Name: "archive", Prompt: "archive path (.tar.gz or .tar.zst)", Required: true, File: true},
			},
		},
		{
			Service:      "problem",
			Action:       "delete",
			Method:       "DELETE",
			PathTemplate: "/api/v1/admin/problems/:name",
			Fields: []Field{
				{Name: "name", Prompt: "problem name", Required: true},
			},
		},
		{
			Service:      "user",
			Action:       "add",
			Method:       "PUT",
			PathTemplate: "/api/v1/admin/users/:id",
			Fields: []Field{
				{Name: "id", Prompt: "user id", Required: true},
				{Name: "display_name", Prompt: "display name"},
				{Name: "secret", Prompt: "login secret", Required: true},
			},
		},
		{
			Service:      "user",
			Action:       "delete",
			Method:       "DELETE",
			PathTemplate: "/api/v1/admin/users/:id",
			Fields: []Field{
				{Name: "id", Prompt: "user id", Required: true},
			},
		},
		{
			Service:      "submit",
			Action:       "create",
			Method:       "POST",
			PathTemplate: "/api/v1/problems/:name/submissions",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "name", Prompt: "problem name", Required: true},
				{Name: "user_id", Prompt: "user id", Required: true},
				{Name: "solution", Prompt: "solution path", Required: true, File: true},
				{Name: "type_id", Prompt: "file type (default cpp)"},
			},
		},
		{
			Service:      "submission",
			Action:       "view",
			Method:       "GET",
			PathTemplate: "/api/v1/submissions/:id",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "id", Prompt: "submission id", Required: true},
			},
		},
		{
			Service:      "submission",
			Action:       "list",
			Method:       "GET",
			PathTemplate: "/api/v1/problems/:name/submissions",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "name", Prompt: "problem name", Required: true},
				{Name: "user_id", Prompt: "user id", Required: true},
			},
		},
		{
			Service:      "submission",
			Action:       "regrade",
			Method:       "POST",
			PathTemplate: "/api/v1/admin/submissions/:id/regrade",
			Fields: []Field{
				{Name: "id", Prompt: "submission id", Required: true},
			},
		},
		{
			Service:      "evaluation",
			Action:       "status",
			Method:       "GET",
			PathTemplate: "/api/v1/evaluations/:id/status",
			Fields: []Field{
				{Name: "id", Prompt: "evaluation id", Required: true},
			},
		},
	}

	registry := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		registry[cmd.Key()] = cmd
	}
	return registry
}

// BuildRequest turns a command plus parsed params into a request spec.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	for _, field := range cmd.Fields {
		if field.Required && params.Get(field.Name) == "" {
			return RequestSpec{}, fmt.Errorf("missing required field: %s", field.Name)
		}
	}

	path, err := buildPath(cmd.PathTemplate, params)
	if err != nil {
		return RequestSpec{}, err
	}
	spec := RequestSpec{Method: cmd.Method, Path: path}

	switch cmd.Key() {
	case "auth login":
		body, err := json.Marshal(map[string]string{
			"token": params.Get("user_id") + ":" + params.Get("secret"),
		})
		if err != nil {
			return RequestSpec{}, err
		}
		spec.Body = body
	case "problem import":
		content, err := ReadFile(params.Get("archive"))
		if err != nil {
			return RequestSpec{}, err
		}
		spec.Multipart = &MultipartSpec{
			FieldName: "archive",
			FileName:  filepath.Base(params.Get("archive")),
			Content:   content,
		}
	case "user add":
		body, err := json.Marshal(map[string]string{
			"display_name": params.Get("display_name"),
			"secret":       params.Get("secret"),
		})
		if err != nil {
			return RequestSpec{}, err
		}
		spec.Body = body
	case "submit create":
		body, err := buildSubmitBody(params)
		if err != nil {
			return RequestSpec{}, err
		}
		spec.Body = body
	case "submission list":
		spec.Query = map[string]string{"user_id": params.Get("user_id")}
	}
	return spec, nil
}

func buildSubmitBody(params Params) ([]byte, error) {
	content, err := ReadFile(params.Get("solution"))
	if err != nil {
		return nil, err
	}
	typeID := params.Get("type_id")
	if typeID == "" {
		typeID = "cpp"
	}
	return json.Marshal(map[string]interface{}{
		"user_id": params.Get("user_id"),
		"files": []map[string]interface{}{{
			"field_id": "solution",
			"type_id":  typeID,
			"name":     filepath.Base(params.Get("solution")),
			"content":  content,
		}},
	})
}

func buildPath(template string, params Params) (string, error) {
	path := template
	for _, key := range []string{"name", "id"} {
		placeholder := ":" + key
		if strings.Contains(path, placeholder) {
			value := params.Get(key)
			if value == "" {
				return "", fmt.Errorf("missing path parameter: %s", key)
			}
			path = strings.ReplaceAll(path, placeholder, value)
		}
	}
	return path, nil
}
