package infrastructure

import "strings"

// shellMeta holds the characters a POSIX shell would interpret
const shellMeta = " \t\n\r'\"$`\\!*?[](){}|;<>&~#%"

// ShellQuote renders an argument the way it would have to be typed in a shell.
// It is for log output only; exec never goes through a shell.
func ShellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsAny(arg, shellMeta) {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
}

// CommandLine renders binary and args as a copy-pasteable shell command
func CommandLine(binary string, args ...string) string {
	quoted := make([]string, 0, len(args)+1)
	quoted = append(quoted, ShellQuote(binary))
	for _, a := range args {
		quoted = append(quoted, ShellQuote(a))
	}
	return strings.Join(quoted, " ")
}
