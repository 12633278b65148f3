// Package tools provides file operation tools for the agent.
package tools

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileTools provides file operations within a workspace. Every path the
// model supplies resolves inside the workspace root; escapes are errors.
type FileTools struct {
	workspacePath string
}

// NewFileTools creates a new FileTools instance.
// If workspacePath is empty, file tools will be disabled.
func NewFileTools(workspacePath string) *FileTools {
	return &FileTools{workspacePath: workspacePath}
}

// Enabled returns true if file tools are available.
func (ft *FileTools) Enabled() bool {
	return ft.workspacePath != ""
}

// WorkspacePath returns the configured workspace path.
func (ft *FileTools) WorkspacePath() string {
	return ft.workspacePath
}

// resolvePath converts a model-supplied path to an absolute path within
// the workspace. Returns an error if the path would escape the workspace.
func (ft *FileTools) resolvePath(path string) (string, error) {
	if ft.workspacePath == "" {
		return "", fmt.Errorf("workspace not configured")
	}

	workspaceAbs, err := filepath.Abs(ft.workspacePath)
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}

	var absPath string
	if filepath.IsAbs(path) {
		absPath = filepath.Clean(path)
	} else {
		absPath = filepath.Clean(filepath.Join(workspaceAbs, path))
	}

	// Separator-aware containment check so /workspace-evil doesn't pass
	// for workspace /workspace.
	if absPath != workspaceAbs && !strings.HasPrefix(absPath, workspaceAbs+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes workspace: %s", path)
	}

	return absPath, nil
}

// Read reads the contents of a file, optionally windowed by line offset
// and limit.
func (ft *FileTools) Read(ctx context.Context, path string, offset, limit int) (string, error) {
	absPath, err := ft.resolvePath(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("read file: %w", err)
	}

	content := string(data)

	if offset > 0 || limit > 0 {
		lines := strings.Split(content, "\n")

		startLine := 0
		if offset > 0 {
			startLine = offset - 1
		}
		if startLine >= len(lines) {
			return "", fmt.Errorf("offset %d exceeds file length (%d lines)", offset, len(lines))
		}

		endLine := len(lines)
		if limit > 0 && startLine+limit < endLine {
			endLine = startLine + limit
		}

		content = strings.Join(lines[startLine:endLine], "\n")

		if startLine > 0 || endLine < len(lines) {
			content = fmt.Sprintf("[Lines %d-%d of %d]\n%s", startLine+1, endLine, len(lines), content)
		}
	}

	const maxBytes = 50 * 1024
	if len(content) > maxBytes {
		content = content[:maxBytes] + "\n\n[... truncated, use offset/limit for more ...]"
	}

	return content, nil
}

// Write writes content to a file, creating directories as needed.
func (ft *FileTools) Write(ctx context.Context, path, content string) error {
	absPath, err := ft.resolvePath(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// Move renames a file or directory within the workspace.
func (ft *FileTools) Move(ctx context.Context, src, dst string) error {
	srcAbs, err := ft.resolvePath(src)
	if err != nil {
		return err
	}
	dstAbs, err := ft.resolvePath(dst)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dstAbs), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.Rename(srcAbs, dstAbs); err != nil {
		return fmt.Errorf("move: %w", err)
	}
	return nil
}

// Copy copies a file within the workspace. Directories are not copied.
func (ft *FileTools) Copy(ctx context.Context, src, dst string) error {
	srcAbs, err := ft.resolvePath(src)
	if err != nil {
		return err
	}
	dstAbs, err := ft.resolvePath(dst)
	if err != nil {
		return err
	}

	info, err := os.Stat(srcAbs)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", src)
		}
		return fmt.Errorf("stat: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("cannot copy a directory: %s", src)
	}

	in, err := os.Open(srcAbs)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dstAbs), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	out, err := os.OpenFile(dstAbs, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("open destination: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return out.Close()
}

// Delete removes a file or directory (recursively) within the workspace.
// Deleting the workspace root itself is refused.
func (ft *FileTools) Delete(ctx context.Context, path string) error {
	absPath, err := ft.resolvePath(path)
	if err != nil {
		return err
	}

	workspaceAbs, _ := filepath.Abs(ft.workspacePath)
	if absPath == workspaceAbs {
		return fmt.Errorf("refusing to delete workspace root")
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return fmt.Errorf("path not found: %s", path)
	}
	if err := os.RemoveAll(absPath); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// Find walks the workspace and returns paths whose base name matches the
// glob pattern, relative to the workspace root. At most limit results.
func (ft *FileTools) Find(ctx context.Context, pattern string, limit int) ([]string, error) {
	if ft.workspacePath == "" {
		return nil, fmt.Errorf("workspace not configured")
	}
	if limit <= 0 {
		limit = 100
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	workspaceAbs, err := filepath.Abs(ft.workspacePath)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}

	var matches []string
	err = filepath.WalkDir(workspaceAbs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if d.IsDir() {
			return nil
		}
		ok, _ := filepath.Match(pattern, d.Name())
		if !ok {
			return nil
		}
		rel, err := filepath.Rel(workspaceAbs, path)
		if err != nil {
			return nil
		}
		matches = append(matches, rel)
		if len(matches) >= limit {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk workspace: %w", err)
	}
	return matches, nil
}

// RegisterTools adds the file tools to a registry.
func (ft *FileTools) RegisterTools(r *Registry) {
	r.Register(&Tool{
		Name:        "read_file",
		Description: "Read a file from the workspace. Supports line-based offset and limit for large files.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path relative to the workspace root",
				},
				"offset": map[string]any{
					"type":        "integer",
					"description": "1-indexed line to start from (optional)",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of lines to return (optional)",
				},
			},
			"required": []string{"path"},
		},
		Handler: ft.handleRead,
	})

	r.Register(&Tool{
		Name:        "write_file",
		Description: "Write content to a file in the workspace, creating parent directories as needed. Overwrites existing files.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path relative to the workspace root",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Full file content to write",
				},
			},
			"required": []string{"path", "content"},
		},
		Handler: ft.handleWrite,
	})

	r.Register(&Tool{
		Name:        "move_path",
		Description: "Move or rename a file or directory within the workspace.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"source": map[string]any{
					"type":        "string",
					"description": "Current path",
				},
				"destination": map[string]any{
					"type":        "string",
					"description": "New path",
				},
			},
			"required": []string{"source", "destination"},
		},
		Handler: ft.handleMove,
	})

	r.Register(&Tool{
		Name:        "copy_path",
		Description: "Copy a file within the workspace.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"source": map[string]any{
					"type":        "string",
					"description": "File to copy",
				},
				"destination": map[string]any{
					"type":        "string",
					"description": "Destination path",
				},
			},
			"required": []string{"source", "destination"},
		},
		Handler: ft.handleCopy,
	})

	r.Register(&Tool{
		Name:        "delete_path",
		Description: "Delete a file or directory (recursively) from the workspace.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path to delete",
				},
			},
			"required": []string{"path"},
		},
		Handler: ft.handleDelete,
	})

	r.Register(&Tool{
		Name:        "find_files",
		Description: "Find files in the workspace whose name matches a glob pattern (e.g. *.md).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern": map[string]any{
					"type":        "string",
					"description": "Glob pattern matched against file names",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results (default 100)",
				},
			},
			"required": []string{"pattern"},
		},
		Handler: ft.handleFind,
	})
}

func (ft *FileTools) handleRead(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	offset := intArg(args, "offset")
	limit := intArg(args, "limit")
	return ft.Read(ctx, path, offset, limit)
}

func (ft *FileTools) handleWrite(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	if err := ft.Write(ctx, path, content); err != nil {
		return "", err
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(content), path), nil
}

func (ft *FileTools) handleMove(ctx context.Context, args map[string]any) (string, error) {
	src, _ := args["source"].(string)
	dst, _ := args["destination"].(string)
	if err := ft.Move(ctx, src, dst); err != nil {
		return "", err
	}
	return fmt.Sprintf("Moved %s to %s", src, dst), nil
}

func (ft *FileTools) handleCopy(ctx context.Context, args map[string]any) (string, error) {
	src, _ := args["source"].(string)
	dst, _ := args["destination"].(string)
	if err := ft.Copy(ctx, src, dst); err != nil {
		return "", err
	}
	return fmt.Sprintf("Copied %s to %s", src, dst), nil
}

func (ft *FileTools) handleDelete(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	if err := ft.Delete(ctx, path); err != nil {
		return "", err
	}
	return fmt.Sprintf("Deleted %s", path), nil
}

func (ft *FileTools) handleFind(ctx context.Context, args map[string]any) (string, error) {
	pattern, _ := args["pattern"].(string)
	limit := intArg(args, "limit")

	matches, err := ft.Find(ctx, pattern, limit)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return fmt.Sprintf("No files matching %q", pattern), nil
	}
	return fmt.Sprintf("Found %d file(s):\n%s", len(matches), strings.Join(matches, "\n")), nil
}

// intArg extracts an integer argument. JSON numbers decode as float64.
func intArg(args map[string]any, name string) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
