package flags

import "strings"

const (
	longFlagPrefixConstant      = "--"
	shortFlagPrefixConstant     = "-"
	flagValueSeparatorConstant  = "="
	argumentsTerminatorConstant = "--"
)

// NormalizeQuietArguments rewrites the command line so cobra can parse it. Every
// positional argument after the first -q/--quiet becomes a --quiet=<name> flag, so
// "build -q server client -r" reads as the task build with server and client quiet.
// Flags keep working in either position. valueFlagNames lists the additional flags
// (long names or single letter shorthands) that consume the following argument.
func NormalizeQuietArguments(arguments []string, valueFlagNames ...string) []string {
	valueFlags := map[string]struct{}{
		TaskFileFlagName:      {},
		TaskFileFlagShorthand: {},
		MetricsFileFlagName:   {},
	}
	for _, valueFlagName := range valueFlagNames {
		valueFlags[valueFlagName] = struct{}{}
	}

	normalized := make([]string, 0, len(arguments))
	quietMode := false
	for index := 0; index < len(arguments); index++ {
		argument := arguments[index]
		switch {
		case argument == argumentsTerminatorConstant:
			return append(normalized, arguments[index:]...)
		case argument == shortFlagPrefixConstant+QuietFlagShorthand || argument == longFlagPrefixConstant+QuietFlagName:
			quietMode = true
		case strings.HasPrefix(argument, shortFlagPrefixConstant) && len(argument) > 1:
			normalized = append(normalized, argument)
			if consumesValue(argument, valueFlags) && index+1 < len(arguments) {
				index++
				normalized = append(normalized, arguments[index])
			}
		case quietMode:
			normalized = append(normalized, longFlagPrefixConstant+QuietFlagName+flagValueSeparatorConstant+argument)
		default:
			normalized = append(normalized, argument)
		}
	}
	return normalized
}

func consumesValue(argument string, valueFlags map[string]struct{}) bool {
	if strings.Contains(argument, flagValueSeparatorConstant) {
		return false
	}
	var name string
	switch {
	case strings.HasPrefix(argument, longFlagPrefixConstant):
		name = strings.TrimPrefix(argument, longFlagPrefixConstant)
	case len(argument) == 2:
		name = strings.TrimPrefix(argument, shortFlagPrefixConstant)
	default:
		return false
	}
	_, consumes := valueFlags[name]
	return consumes
}
