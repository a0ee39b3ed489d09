package bench

import (
	"maps"
	"slices"
	"strconv"
)

// ChildEnv builds the environment for one trial: base, then extra, then
// threadEnv set to threads. None of the inputs are modified.
// The result is sorted by key so runs are reproducible.
func ChildEnv(base, extra map[string]string, threadEnv string, threads int) []string {
	merged := make(map[string]string, len(base)+len(extra)+1)
	maps.Copy(merged, base)
	maps.Copy(merged, extra)
	merged[threadEnv] = strconv.Itoa(threads)

	keys := slices.Sorted(maps.Keys(merged))

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}

	return env
}
