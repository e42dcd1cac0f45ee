// SPDX-License-Identifier: Apache-2.0

// Package buildinfo exposes the binary's build identity.
package buildinfo

import (
	_ "embed"
	"encoding/json"
	"runtime"
	"strings"

	"github.com/joomcode/errorx"
	"gopkg.in/yaml.v3"
)

//go:embed VERSION
var number string

//go:embed COMMIT
var commit string

const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

type Info struct {
	Number    string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	GoVersion string `json:"go" yaml:"go"`
}

func Get() Info {
	return Info{
		Number:    strings.TrimSpace(number),
		Commit:    strings.TrimSpace(commit),
		GoVersion: runtime.Version(),
	}
}

func (v Info) Format(format string) (string, error) {
	var output []byte
	var err error
	switch strings.ToLower(format) {
	case FormatJSON:
		output, err = json.Marshal(v)
		if err != nil {
			return "", errorx.IllegalFormat.Wrap(err, "Error marshaling build info to JSON")
		}
	case FormatYAML:
		output, err = yaml.Marshal(v)
		if err != nil {
			return "", errorx.IllegalFormat.Wrap(err, "Error marshaling build info to YAML")
		}
	default:
		return "", errorx.IllegalFormat.New("unsupported format: %s", format)
	}

	return string(output), nil
}
