package kernel

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Sentinel errors
var (
	ErrDisallowedBuildArg = errors.New("disallowed build argument")
	ErrDisallowedRunArg   = errors.New("disallowed run argument")
)

// ArgSections holds a partitioned install argument list. Each section is
// passed through to the container runtime verbatim, in order.
type ArgSections struct {
	BuildArgs []string
	RunArgs   []string
	CmdArgs   []string
}

// PartitionArgs splits a flat token list on "--" separators into, in order,
// build args (only when build is true), run args, and command args. Tokens
// before the first separator belong to the first section. A separator beyond
// the last section is warned about and subsequent tokens stay in the final
// section.
func PartitionArgs(logger *slog.Logger, tokens []string, build bool) *ArgSections {
	sections := &ArgSections{
		BuildArgs: []string{},
		RunArgs:   []string{},
		CmdArgs:   []string{},
	}

	type section struct {
		name string
		args *[]string
	}
	order := []section{
		{"run_args", &sections.RunArgs},
		{"cmd_args", &sections.CmdArgs},
	}
	if build {
		order = append([]section{{"build_args", &sections.BuildArgs}}, order...)
	}

	cur := order[0]
	order = order[1:]
	logger.Debug("parsing argument section", "arg_name", cur.name)
	for _, token := range tokens {
		if token == "--" {
			if len(order) > 0 {
				cur = order[0]
				order = order[1:]
				logger.Debug("separator found, next argument section", "arg_name", cur.name)
				continue
			}
			logger.Warn("found an argument separator but no more sections, did you mix up your arguments?",
				"arg_name", cur.name)
		}
		*cur.args = append(*cur.args, token)
	}

	return sections
}

// disallowedRunArgs are run flags the launcher injects itself; user-supplied
// copies would break connection-file mounting or exit-code propagation.
var disallowedRunArgs = map[string]struct{}{
	"--rm":          {},
	"-d":            {},
	"--detach":      {},
	"-i":            {},
	"--interactive": {},
	"-t":            {},
	"--tty":         {},
	"-a":            {},
	"--attach":      {},
}

// ValidateArgs checks the partitioned sections for flags the launcher owns.
// All violations are collected and returned together so the user can fix
// everything at once.
func ValidateArgs(sections *ArgSections) error {
	var errs []error

	for _, value := range sections.BuildArgs {
		if strings.HasPrefix(value, "--iidfile") {
			errs = append(errs, fmt.Errorf("%w: build_args cannot include %s as it will be overridden on execution", ErrDisallowedBuildArg, value))
		}
	}

	for _, value := range sections.RunArgs {
		// Everything starting with --rm is rejected, not just --rm itself, so
		// --rmfoo fails too. Kept for compatibility with existing installs.
		if strings.HasPrefix(value, "--rm") {
			errs = append(errs, fmt.Errorf("%w: run_args cannot contain %s as it will be overridden on execution", ErrDisallowedRunArg, value))
			continue
		}
		if _, bad := disallowedRunArgs[value]; bad {
			errs = append(errs, fmt.Errorf("%w: run_args cannot contain %s as it will be overridden on execution", ErrDisallowedRunArg, value))
		}
	}

	return errors.Join(errs...)
}
