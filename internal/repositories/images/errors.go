package images

import (
	"fmt"

	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/domain/lifecycle"
	"github.com/dmitrijs2005/imagevault/internal/models"
)

func conflict(op, imageID string, cause error) error {
	return &common.Error{Kind: common.ErrConflict, Op: op, Message: fmt.Sprintf("image %s already exists", imageID), Err: cause}
}

func notFound(op, imageID string) error {
	return &common.Error{Kind: common.ErrNotFound, Op: op, Message: fmt.Sprintf("image %s not found", imageID)}
}

func conditionFailed(op, imageID string, current lifecycle.Status, cause error) error {
	msg := fmt.Sprintf("image %s is not PENDING", imageID)
	if current != "" {
		msg = fmt.Sprintf("image %s is %s, not PENDING", imageID, current)
	}
	return &common.Error{Kind: common.ErrConditionFailed, Op: op, Message: msg, Err: cause}
}

// checkTransition rejects targets that cannot follow PENDING.
func checkTransition(t models.Transition) error {
	if err := lifecycle.Check(lifecycle.StatusPending, t.To); err != nil {
		return &common.Error{Kind: common.ErrValidation, Message: err.Error(), Err: err}
	}
	return nil
}
