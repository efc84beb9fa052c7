package natives

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lumen/dispatcher"
	"lumen/value"
)

// registerFiles wires a sandboxed file-handle API onto value.Resource,
// grounded directly on this codebase's builtins/compat_fileio.go:
// same files/ root confinement, same sanitizeFilePath traversal guard,
// same parseFileOpenMode "r"/"w"/"a"(+"b"/"+") mode grammar — adapted
// from an int-id handle table keyed in a package-global map onto this
// design's refcounted Resource Value with RAII close-on-last-release.
const filesRoot = "files"

func sanitizeFilePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("file path must not be empty")
	}
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("absolute file paths are disallowed")
	}
	clean := filepath.Clean(path)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("file path %q escapes the sandbox root", path)
	}
	return clean, nil
}

func parseFileOpenMode(mode string) (int, error) {
	if mode == "" {
		return 0, fmt.Errorf("file mode must not be empty")
	}
	plus := strings.Contains(mode, "+")
	switch mode[0] {
	case 'r':
		if plus {
			return os.O_RDWR, nil
		}
		return os.O_RDONLY, nil
	case 'w':
		if plus {
			return os.O_CREATE | os.O_TRUNC | os.O_RDWR, nil
		}
		return os.O_CREATE | os.O_TRUNC | os.O_WRONLY, nil
	case 'a':
		if plus {
			return os.O_CREATE | os.O_APPEND | os.O_RDWR, nil
		}
		return os.O_CREATE | os.O_APPEND | os.O_WRONLY, nil
	default:
		return 0, fmt.Errorf("invalid file mode %q (expected r/w/a, optionally with b or +)", mode)
	}
}

func closeFileHandle(native any) error {
	f, ok := native.(*os.File)
	if !ok {
		return fmt.Errorf("file resource holds no *os.File")
	}
	return f.Close()
}

func asFileResource(v value.Value) (*value.Resource, *os.File, error) {
	r, ok := v.(*value.Resource)
	if !ok || r.Kind != "file" {
		return nil, nil, fmt.Errorf("expected a file resource, got %s", v.Type())
	}
	f, ok := r.Handle.(*os.File)
	if !ok {
		return nil, nil, fmt.Errorf("file resource holds no *os.File")
	}
	return r, f, nil
}

func registerFiles(r *dispatcher.Registry) {
	r.Register("file_open", func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("file_open() takes exactly 2 arguments, got %d", len(args))
		}
		name, ok := args[0].(*value.Str)
		if !ok {
			return nil, fmt.Errorf("file_open() path must be a string, got %s", args[0].Type())
		}
		mode, ok := args[1].(*value.Str)
		if !ok {
			return nil, fmt.Errorf("file_open() mode must be a string, got %s", args[1].Type())
		}
		clean, err := sanitizeFilePath(name.String())
		if err != nil {
			return nil, err
		}
		flags, err := parseFileOpenMode(mode.String())
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filesRoot, 0o755); err != nil {
			return nil, fmt.Errorf("file_open(): %w", err)
		}
		f, err := os.OpenFile(filepath.Join(filesRoot, clean), flags, 0o644)
		if err != nil {
			return nil, fmt.Errorf("file_open(): %w", err)
		}
		return value.NewResource("file", f, closeFileHandle), nil
	})

	r.Register("file_close", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("file_close() takes exactly 1 argument, got %d", len(args))
		}
		res, _, err := asFileResource(args[0])
		if err != nil {
			return nil, err
		}
		if err := res.Release(); err != nil {
			return nil, fmt.Errorf("file_close(): %w", err)
		}
		return value.Null{}, nil
	})

	r.Register("file_read_all", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("file_read_all() takes exactly 1 argument, got %d", len(args))
		}
		res, f, err := asFileResource(args[0])
		if err != nil {
			return nil, err
		}
		var data []byte
		err = res.WithLock(func(native any) error {
			if _, serr := f.Seek(0, io.SeekStart); serr != nil {
				return serr
			}
			data, err = io.ReadAll(f)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("file_read_all(): %w", err)
		}
		return value.NewStr(string(data)), nil
	})

	r.Register("file_write", func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("file_write() takes exactly 2 arguments, got %d", len(args))
		}
		res, f, err := asFileResource(args[0])
		if err != nil {
			return nil, err
		}
		data, ok := args[1].(*value.Str)
		if !ok {
			return nil, fmt.Errorf("file_write() data must be a string, got %s", args[1].Type())
		}
		var n int
		err = res.WithLock(func(native any) error {
			n, err = f.WriteString(data.String())
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("file_write(): %w", err)
		}
		return value.Int(n), nil
	})

	r.Register("file_exists", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("file_exists() takes exactly 1 argument, got %d", len(args))
		}
		name, ok := args[0].(*value.Str)
		if !ok {
			return nil, fmt.Errorf("file_exists() path must be a string, got %s", args[0].Type())
		}
		clean, err := sanitizeFilePath(name.String())
		if err != nil {
			return nil, err
		}
		_, statErr := os.Stat(filepath.Join(filesRoot, clean))
		return value.Bool(statErr == nil), nil
	})
}
