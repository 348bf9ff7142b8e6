package migrate

import "context"

// importRoles migrates auto-role rules and joinable roles. Pure passthrough
// with conflict-skip on the natural keys.
func (r *Runner) importRoles(ctx context.Context, rep *Report) error {
	autoRoles, err := r.src.AutoRoles()
	if err != nil {
		return err
	}
	for _, role := range autoRoles {
		ok, err := r.dst.InsertAutoRole(ctx, role.ServerID, role.RoleID, role.Rule)
		if err != nil {
			return err
		}
		if ok {
			rep.AutoRoles++
		} else {
			rep.SkippedAutoRoles++
		}
	}

	joinable, err := r.src.JoinableRoles()
	if err != nil {
		return err
	}
	for _, role := range joinable {
		ok, err := r.dst.InsertJoinableRole(ctx, role.ServerID, role.RoleID)
		if err != nil {
			return err
		}
		if ok {
			rep.JoinableRoles++
		} else {
			rep.SkippedJoinableRoles++
		}
	}

	return nil
}
