package manager

import (
	"fmt"

	"github.com/larchio/larch/internal/tier"
)

// CheckMount verifies the scratch-and-local co-mount invariant by
// creating a probe file under scratch and renaming it onto local, the same
// operation a real promotion performs. It should run once at process
// startup; a failure here means every promotion will fail the same way,
// so it is worth discovering before serving traffic rather than one
// promotion at a time.
//
// A rename failure that isn't a cross-device error is surfaced as-is; a
// caller that wants to distinguish a genuine misconfiguration from some
// other transient problem can check the returned error with
// [tier.IsCrossDevice].
func CheckMount(scratch, local *tier.Root) error {
	probe, err := scratch.CreateMountProbe()
	if err != nil {
		return fmt.Errorf("manager: mount check: create probe: %w", err)
	}

	if err := probe.Publish(local); err != nil {
		if tier.IsCrossDevice(err) {
			return fmt.Errorf("manager: mount check: scratch and local are not co-mounted: %w", err)
		}
		return fmt.Errorf("manager: mount check: %w", err)
	}
	return nil
}
