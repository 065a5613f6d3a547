package fulfilment

import (
	"context"
	"fmt"

	"github.com/fulfildesk/backend/internal/domain/attachment"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// linkAttachments binds previously uploaded files to the record that now
// owns them. It must run in the transaction that writes the owner so a
// failed write leaves the files unlinked for the orphan sweep.
func linkAttachments(
	ctx context.Context,
	repo attachment.Repository,
	ids []uuid.UUID,
	entityType attachment.EntityType,
	entityID, orderID, actor uuid.UUID,
) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := repo.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load attachments: %w", err)
	}
	if len(found) != len(ids) {
		return shared.NewDomainError("ATTACHMENT_NOT_FOUND", "One or more attachments do not exist")
	}
	for i := range found {
		if err := found[i].Link(entityType, entityID, orderID, actor); err != nil {
			return err
		}
		if err := repo.Save(ctx, &found[i]); err != nil {
			return fmt.Errorf("failed to link attachment %s: %w", found[i].ID, err)
		}
	}
	return nil
}
