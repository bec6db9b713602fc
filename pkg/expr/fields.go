package expr

// CollectFields returns the distinct column paths e reads, in order of first
// appearance. Paths differing only in case are the same column.
func CollectFields(e Expression) []string {
	var (
		paths []string
		seen  = map[string]struct{}{}
	)
	add := func(p string) {
		k := pathKey(p)
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		paths = append(paths, p)
	}

	Walk(e, func(n Expression) bool {
		switch f := n.(type) {
		case *Field:
			add(f.Path)
		case *TypedField:
			add(f.Path)
		}
		return true
	})
	return paths
}

// HasFields reports whether e references any column.
func HasFields(e Expression) bool {
	found := false
	Walk(e, func(n Expression) bool {
		switch n.(type) {
		case *Field, *TypedField:
			found = true
		}
		return !found
	})
	return found
}
