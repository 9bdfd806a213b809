package profile

import "fmt"

// FindUnusedName returns the first "query_N" (N counting up from 1) that
// does not appear in existing. Ids saved this way stay stable: renaming or
// deleting a query frees its slot for reuse, which is fine because the name
// is only a default the user can change.
func FindUnusedName(existing []string) string {
	used := make(map[string]bool, len(existing))
	for _, n := range existing {
		used[n] = true
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("query_%d", i)
		if !used[candidate] {
			return candidate
		}
	}
}
