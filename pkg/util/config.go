package util

// PrefixConfig joins a flag prefix and an option name with a dot.
func PrefixConfig(prefix string, option string) string {
	if prefix == "" {
		return option
	}
	return prefix + "." + option
}
