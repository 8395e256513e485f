package config

import (
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"
)

// Load reads and decodes the configuration document at path, the same
// koanf file-provider-plus-yaml-parser sequence multiserver's
// setupconfig uses.
func Load(path string) (Document, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Document{}, errors.Wrapf(err, "config: failed to load %s", path)
	}
	var doc Document
	if err := k.Unmarshal("", &doc); err != nil {
		return Document{}, errors.Wrapf(err, "config: failed to decode %s", path)
	}
	return doc, nil
}
