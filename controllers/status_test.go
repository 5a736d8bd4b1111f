package controllers

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quillcms-backend/models"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name    string
		current string
		action  string
		want    string
		code    int
	}{
		{"publish a draft", models.StatusDraft, models.ActionPublish, models.StatusPublished, 0},
		{"unpublish back to draft", models.StatusPublished, models.ActionUnpublish, models.StatusDraft, 0},
		{"double publish rejected", models.StatusPublished, models.ActionPublish, "", fiber.StatusConflict},
		{"unpublish a draft rejected", models.StatusDraft, models.ActionUnpublish, "", fiber.StatusConflict},
		{"unknown action rejected", models.StatusDraft, "archive", "", fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nextStatus(tt.current, tt.action)
			if tt.code == 0 {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			var fe *fiber.Error
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.code, fe.Code)
		})
	}
}
