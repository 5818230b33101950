package utils

import (
	"cmp"
	"strings"

	"golang.org/x/exp/constraints"
)

// Inline-if alternative in Go. Example:
// e ? a : b becomes If(e, a, b)
func If[E bool, T any](exp E, a T, b T) T {
	if exp {
		return a
	} else {
		return b
	}
}

func NormalizeLineEndings(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func Min[T constraints.Ordered](args ...T) T {
	if len(args) == 0 {
		return *new(T) // zero value of T
	}

	if isNan(args[0]) {
		return args[0]
	}

	min := args[0]
	for _, arg := range args[1:] {

		if isNan(arg) {
			return arg
		}

		if arg < min {
			min = arg
		}
	}
	return min
}

func isNan[T cmp.Ordered](arg T) bool {
	return arg != arg
}

// RedactSensitive masks values whose key looks like a credential
// before they end up in debug logs.
func RedactSensitive(name, value string) string {
	dbgName := strings.ToLower(name)
	sensitive := []string{
		"secret",
		"token",
		"key",
		"password",
		"passphrase",
	}
	for _, s := range sensitive {
		if strings.Contains(dbgName, s) {
			return "********"
		}
	}
	return value
}
