package tapetui

import "os"

// envBool reads a boolean environment flag matching spec §6's
// recognized flags (TAPE_CLEAR_ON_SHRINK, TAPE_HARDWARE_CURSOR,
// TAPE_STRICT_WIDTH): an unset flag falls back to def; a set flag is
// true only when its value is "1", and false for any other value.
func envBool(name string, def bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	return v == "1"
}
