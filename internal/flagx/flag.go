// Package flagx lets several loaders share os.Args: each one picks out only
// the flags it owns before handing them to a flag.FlagSet.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps the arguments in args whose flag name is in allowedFlags,
// together with their values. Both "-f value" and "-f=value" are accepted; a
// following token that starts with '-' is never taken as a value. The result
// is never nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		if name, _, ok := strings.Cut(arg, "="); ok {
			if _, keep := allowed[name]; keep {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, keep := allowed[arg]; !keep {
			continue
		}
		filtered = append(filtered, arg)
		if next := i + 1; next < len(args) && !strings.HasPrefix(args[next], "-") {
			filtered = append(filtered, args[next])
			i = next
		}
	}
	return filtered
}

// ConfigEnv names the environment variable consulted by ConfigFile when no
// config flag is given.
const ConfigEnv = "IMAGES_CONFIG"

// ConfigFile returns the JSON config path passed with -c or -config, falling
// back to the IMAGES_CONFIG environment variable. Other arguments are ignored
// so callers can parse their own flags afterwards. An empty result means no
// file should be loaded.
func ConfigFile() string {
	var config string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)

	if config == "" {
		config = os.Getenv(ConfigEnv)
	}
	return config
}
