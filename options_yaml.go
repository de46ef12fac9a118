/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

package fullpwsh

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/haraldrudell/parl/perrors"
)

// yamlOptions is the on-disk shape for Options, mirroring the
// teacher's yaml-backed configuration loading (yamler package,
// _examples/haraldrudell-parl/yamler) but against a fixed struct
// rather than a generic visited-references unmarshaler, since Options
// is small and fully known at compile time
type yamlOptions struct {
	ExePath        string `yaml:"exePath"`
	TmpDir         string `yaml:"tmpDir"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	CollectVerbose *bool  `yaml:"collectVerbose"`
	CollectDebug   *bool  `yaml:"collectDebug"`
	MaxQueueDepth  int    `yaml:"maxQueueDepth"`
}

// OptionsFromYAML loads Options from a YAML file at path, for the
// cmd/pwsh-probe CLI's -config flag; fields absent from the file keep
// DefaultOptions' values
func OptionsFromYAML(path string) (opts Options, err error) {
	var raw []byte
	if raw, err = os.ReadFile(path); err != nil {
		err = perrors.ErrorfPF("reading %s: %w", path, err)
		return
	}

	var y yamlOptions
	if err = yaml.Unmarshal(raw, &y); err != nil {
		err = perrors.ErrorfPF("parsing %s: %w", path, err)
		return
	}

	opts = DefaultOptions()
	opts.ExePath = y.ExePath
	opts.TmpDir = y.TmpDir
	if y.CollectVerbose != nil {
		opts.CollectVerbose = *y.CollectVerbose
	}
	if y.CollectDebug != nil {
		opts.CollectDebug = *y.CollectDebug
	}
	opts.MaxQueueDepth = y.MaxQueueDepth
	if y.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(y.TimeoutSeconds) * time.Second
	}

	return
}
