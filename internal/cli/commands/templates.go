package commands

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed all:templates
var templateFS embed.FS

// templateSuffix marks embedded files rendered with text/template before
// being written; the suffix is dropped from the written name.
const templateSuffix = ".tmpl"

// copyTemplate writes the embedded project template into targetDir and
// returns the files it wrote. Existing files are kept unless force is set.
func copyTemplate(templateName, targetDir string, force bool, data any) ([]string, error) {
	root := path.Join("templates", templateName)
	var written []string

	err := fs.WalkDir(templateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		if rel == "" {
			return nil
		}

		name := outputName(rel)
		target := filepath.Join(targetDir, filepath.FromSlash(name))
		if d.IsDir() {
			return os.MkdirAll(target, 0750)
		}
		if !force {
			if _, err := os.Stat(target); err == nil {
				return nil
			}
		}

		content, err := templateFS.ReadFile(p)
		if err != nil {
			return err
		}
		if strings.HasSuffix(rel, templateSuffix) {
			if content, err = render(rel, content, data); err != nil {
				return err
			}
		}
		if err := os.WriteFile(target, content, 0600); err != nil {
			return err
		}
		written = append(written, name)
		return nil
	})

	return written, err
}

func render(name string, content []byte, data any) ([]byte, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// outputName maps an embedded path to the name written on disk. Dotfiles are
// stored without their dot so embed does not need special patterns for them.
func outputName(rel string) string {
	rel = strings.TrimSuffix(rel, templateSuffix)
	dir, base := path.Split(rel)
	if base == "gitignore" {
		base = ".gitignore"
	}
	return dir + base
}
