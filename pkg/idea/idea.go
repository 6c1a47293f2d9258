// Package idea writes the IntelliJ module file of a project, marking source,
// test and resource roots and excluding build output.
package idea

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/beevik/etree"

	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/logging"
)

const moduleDir = "file://$MODULE_DIR$"

// Options describe the module.
type Options struct {
	// Name of the module; the file is <Name>.iml.
	Name          string
	LanguageLevel string
	SourceDirs    []string
	TestDirs      []string
	ResourceDirs  []string
	ExcludeDirs   []string
}

// Write creates or updates <dir>/<Name>.iml. Entries already in the file
// are kept. It reports whether the file changed.
func Write(dir string, opts Options) (string, bool, error) {
	log := logging.GetLogger("idea")
	if opts.Name == "" {
		opts.Name = filepath.Base(dir)
	}
	path := filepath.Join(dir, opts.Name+".iml")

	var before []byte
	doc := etree.NewDocument()
	if data, err := os.ReadFile(path); err == nil {
		before = data
		if err := doc.ReadFromBytes(data); err != nil {
			return "", false, errors.Wrapf(err, errors.ErrConfigParse, "failed to parse %s", path)
		}
	} else if !os.IsNotExist(err) {
		return "", false, errors.Wrapf(err, errors.ErrConfigLoad, "failed to read %s", path)
	}

	Apply(doc, opts)
	doc.Indent(2)
	after, err := doc.WriteToBytes()
	if err != nil {
		return "", false, errors.Wrap(err, errors.ErrInternal, "failed to render module file")
	}
	if bytes.Equal(before, after) {
		log.Debug().Str("path", path).Msg("Module file up to date")
		return path, false, nil
	}
	if err := os.WriteFile(path, after, 0644); err != nil {
		return "", false, errors.Wrapf(err, errors.ErrInternal, "failed to write %s", path)
	}
	log.Info().Str("path", path).Msg("Module file written")
	return path, true, nil
}

// Apply merges the options into doc, creating the module skeleton if the
// document is empty.
func Apply(doc *etree.Document, opts Options) {
	if doc.Root() == nil {
		doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
		module := doc.CreateElement("module")
		module.CreateAttr("type", "JAVA_MODULE")
		module.CreateAttr("version", "4")
	}
	module := doc.Root()

	manager := findChild(module, "component", "name", "NewModuleRootManager")
	if manager == nil {
		manager = module.CreateElement("component")
		manager.CreateAttr("name", "NewModuleRootManager")
		manager.CreateAttr("inherit-compiler-output", "true")
		manager.CreateElement("exclude-output")
	}
	if opts.LanguageLevel != "" {
		manager.CreateAttr("LANGUAGE_LEVEL", opts.LanguageLevel)
	}

	content := findChild(manager, "content", "url", moduleDir)
	if content == nil {
		content = manager.CreateElement("content")
		content.CreateAttr("url", moduleDir)
	}

	for _, d := range opts.SourceDirs {
		ensureFolder(content, "sourceFolder", d, map[string]string{"isTestSource": "false"})
	}
	for _, d := range opts.ResourceDirs {
		ensureFolder(content, "sourceFolder", d, map[string]string{"type": "java-resource"})
	}
	for _, d := range opts.TestDirs {
		ensureFolder(content, "sourceFolder", d, map[string]string{"isTestSource": "true"})
	}
	for _, d := range opts.ExcludeDirs {
		ensureFolder(content, "excludeFolder", d, nil)
	}

	if findChild(manager, "orderEntry", "type", "inheritedJdk") == nil {
		manager.CreateElement("orderEntry").CreateAttr("type", "inheritedJdk")
	}
	if findChild(manager, "orderEntry", "type", "sourceFolder") == nil {
		entry := manager.CreateElement("orderEntry")
		entry.CreateAttr("type", "sourceFolder")
		entry.CreateAttr("forTests", "false")
	}
}

func ensureFolder(content *etree.Element, tag, dir string, attrs map[string]string) {
	url := moduleDir + "/" + filepath.ToSlash(dir)
	if findChild(content, tag, "url", url) != nil {
		return
	}
	el := content.CreateElement(tag)
	el.CreateAttr("url", url)
	for _, k := range []string{"isTestSource", "type"} {
		if v, ok := attrs[k]; ok {
			el.CreateAttr(k, v)
		}
	}
}

// findChild returns the first child element with the given tag and
// attribute value.
func findChild(parent *etree.Element, tag, attr, value string) *etree.Element {
	for _, el := range parent.SelectElements(tag) {
		if el.SelectAttrValue(attr, "") == value {
			return el
		}
	}
	return nil
}
