package tapetui

import "github.com/pkg/errors"

// startError wraps a failure bringing the runtime up: terminal setup,
// protocol negotiation, or the initial render.
func startError(cause error, step string) error {
	return errors.Wrapf(cause, "tapetui: start failed during %s", step)
}

// stopError wraps a failure tearing the runtime down. Stop still runs
// to completion on a best-effort basis; this is returned to the
// caller for logging, not used to abort teardown partway through.
func stopError(cause error, step string) error {
	return errors.Wrapf(cause, "tapetui: stop failed during %s", step)
}
