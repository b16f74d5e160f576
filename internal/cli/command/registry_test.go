package command

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildRequestAuthLogin(t *testing.T) {
	t.Parallel()
	registry := Registry()
	cmd := registry["auth login"]

	params := Params{}
	params.Set("user_id", "alice")
	params.Set("secret", "s3cret")
	spec, err := BuildRequest(cmd, params)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	if spec.Method != "POST" || spec.Path != "/api/v1/auth" {
		t.Fatalf("spec = %+v", spec)
	}
	var body map[string]string
	if err := json.Unmarshal(spec.Body, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body["token"] != "alice:s3cret" {
		t.Fatalf("token = %q", body["token"])
	}
}

func TestBuildRequestFillsPathParams(t *testing.T) {
	t.Parallel()
	registry := Registry()
	cmd := registry["problem material"]

	params := Params{}
	params.Set("name", "sum")
	spec, err := BuildRequest(cmd, params)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	if spec.Path != "/api/v1/problems/sum/material" {
		t.Fatalf("path = %s", spec.Path)
	}
}

func TestBuildRequestRejectsMissingRequired(t *testing.T) {
	t.Parallel()
	registry := Registry()
	if _, err := BuildRequest(registry["problem material"], Params{}); err == nil {
		t.Fatal("expected an error for a missing problem name")
	}
}

func TestBuildRequestSubmitReadsSolution(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	solution := filepath.Join(dir, "sum.cpp")
	if err := os.WriteFile(solution, []byte("int main() {}"), 0o644); err != nil {
		t.Fatalf("write solution: %v", err)
	}

	registry := Registry()
	params := Params{}
	params.Set("name", "sum")
	params.Set("user_id", "alice")
	params.Set("solution", solution)
	spec, err := BuildRequest(registry["submit create"], params)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}

	var body struct {
		UserID string `json:"user_id"`
		Files  []struct {
			FieldID string `json:"field_id"`
			TypeID  string `json:"type_id"`
			Name    string `json:"name"`
			Content []byte `json:"content"`
		} `json:"files"`
	}
	if err := json.Unmarshal(spec.Body, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.UserID != "alice" || len(body.Files) != 1 {
		t.Fatalf("body = %+v", body)
	}
	file := body.Files[0]
	if file.FieldID != "solution" || file.TypeID != "cpp" || file.Name != "sum.cpp" {
		t.Fatalf("file = %+v", file)
	}
	if string(file.Content) != "int main() {}" {
		t.Fatalf("content = %q", file.Content)
	}
}

func TestBuildRequestImportUsesMultipart(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	archive := filepath.Join(dir, "sum.tar.gz")
	if err := os.WriteFile(archive, []byte("archive-bytes"), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	registry := Registry()
	params := Params{}
	params.Set("name", "sum")
	params.Set("archive", archive)
	spec, err := BuildRequest(registry["problem import"], params)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	if spec.Multipart == nil {
		t.Fatal("expected a multipart spec")
	}
	if spec.Multipart.FieldName != "archive" || spec.Multipart.FileName != "sum.tar.gz" {
		t.Fatalf("multipart = %+v", spec.Multipart)
	}
}
