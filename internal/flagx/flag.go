// Package flagx lets independent components pick their own flags out of
// os.Args without tripping over flags owned by someone else (cobra, other
// config loaders).
package flagx

import (
	"flag"
	"os"
	"strings"
)

// Filter selects the arguments that belong to a known set of flags.
// Valued flags take a value either as the following token or after '='.
// Switches are boolean and never consume the following token.
type Filter struct {
	valued   map[string]struct{}
	switches map[string]struct{}
}

func NewFilter(valued ...string) *Filter {
	f := &Filter{
		valued:   make(map[string]struct{}, len(valued)),
		switches: map[string]struct{}{},
	}
	for _, n := range valued {
		f.valued[n] = struct{}{}
	}
	return f
}

// Switches registers boolean flags.
func (f *Filter) Switches(names ...string) *Filter {
	for _, n := range names {
		f.switches[n] = struct{}{}
	}
	return f
}

func (f *Filter) known(name string) bool {
	_, v := f.valued[name]
	_, s := f.switches[name]
	return v || s
}

// Apply returns the recognized flags (and their values) in their original
// order. Scanning stops at a bare "--". The result is never nil.
func (f *Filter) Apply(args []string) []string {
	out := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		if name, _, ok := strings.Cut(arg, "="); ok {
			if f.known(name) {
				out = append(out, arg)
			}
			continue
		}

		if _, ok := f.switches[arg]; ok {
			out = append(out, arg)
			continue
		}
		if _, ok := f.valued[arg]; !ok {
			continue
		}
		out = append(out, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}

	return out
}

// FilterArgs keeps only allowedFlags (all valued) and their values.
//
// Supported forms:
//
//	-c conf.json
//	--config=conf.json
func FilterArgs(args []string, allowedFlags []string) []string {
	return NewFilter(allowedFlags...).Apply(args)
}

// ConfigFileFlag returns the config file named by -c, -config or --config,
// or "" when none is given. The file may be JSON, TOML or YAML; the loader
// picks the decoder by extension. When repeated, the last one wins.
func ConfigFileFlag() string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(os.Args[1:], []string{"-c", "-config", "--config"}))

	return path
}
