package engine

import (
	"context"
	"fmt"

	"github.com/elimucloud/dawati/core"
	"github.com/elimucloud/dawati/core/resource"
)

// authorize approves or rejects a transition for the current session before
// any network call is made. Transitions that mutate another person's
// employment/enrollment state require a privileged role (manager or above);
// reads require no privilege and never come through here.
func (e *Engine) authorize(ctx context.Context, kind resource.Kind, tr resource.Transition) error {
	if !resource.Mutating(tr) {
		return nil
	}
	claims, err := e.sess.Claims(ctx)
	if err != nil {
		return err
	}
	if !claims.HasPrivilege() {
		return core.NewFailure(core.FailureUnauthorized,
			fmt.Sprintf("%s %s: permission denied", tr, kind))
	}
	return nil
}
