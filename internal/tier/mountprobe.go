package tier

// MountProbe is a throwaway file used by [manager.CheckMount] to verify two
// tiers are co-mounted before any real promotion depends on it.
type MountProbe struct {
	*TempFile
}

// CreateMountProbe creates a probe file under r, which must be the scratch
// tier. The caller should call Publish exactly once.
func (r *Root) CreateMountProbe() (*MountProbe, error) {
	tmp, err := r.CreateTemp()
	if err != nil {
		return nil, err
	}
	return &MountProbe{TempFile: tmp}, nil
}

// Publish renames the probe onto dst under its own generated name, with no
// fan-out directory involved, then removes it from dst. A successful
// return means dst and the probe's origin tier are co-mounted. If the
// rename fails, the probe file is removed from its origin tier before
// returning; if the rename succeeds but removing it from dst fails, the
// probe is left in dst and that error is returned.
func (p *MountProbe) Publish(dst *Root) error {
	closeErr := p.File.Close()
	if err := dst.RenameFrom(p.root, p.rel, p.rel); err != nil {
		p.root.Remove(p.rel)
		return err
	}
	if err := dst.Remove(p.rel); err != nil {
		return err
	}
	return closeErr
}
