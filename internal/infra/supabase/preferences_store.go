package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/rows"
)

// ============================================================
// PreferenceStore (reminder dismissals)
// ============================================================

func (c *Client) ListDismissedReminders(ctx context.Context, userID string) ([]int64, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListDismissedReminders")
	defer span.End()

	path := fmt.Sprintf("reminder_dismissals?select=user_id,operation_id&user_id=eq.%s", url.QueryEscape(userID))
	body, err := c.read(ctx, rows.TableDismissals, path)
	if err != nil {
		return nil, err
	}
	list, err := decodeRows[rows.Dismissal](body, rows.TableDismissals)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(list))
	for i, d := range list {
		ids[i] = d.OperationID
	}
	return ids, nil
}

// DismissReminder is idempotent: a second dismissal of the same pair is ignored.
func (c *Client) DismissReminder(ctx context.Context, userID string, operationID int64) error {
	ctx, span := tracer.Start(ctx, "Supabase.DismissReminder")
	defer span.End()

	payload := map[string]any{"user_id": userID, "operation_id": operationID}
	_, err := c.write(ctx, http.MethodPost, rows.TableDismissals,
		"reminder_dismissals?on_conflict=user_id,operation_id", payload, preferIgnoreDup)
	return err
}

// RestoreReminder deletes the pair; restoring a reminder that was never
// dismissed is not an error.
func (c *Client) RestoreReminder(ctx context.Context, userID string, operationID int64) error {
	ctx, span := tracer.Start(ctx, "Supabase.RestoreReminder")
	defer span.End()

	path := fmt.Sprintf("reminder_dismissals?user_id=eq.%s&operation_id=eq.%d", url.QueryEscape(userID), operationID)
	_, err := c.write(ctx, http.MethodDelete, rows.TableDismissals, path, nil, "")
	return err
}
