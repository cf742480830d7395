package handlers

import (
	"testing"

	"github.com/go-telegram/bot/models"
)

func TestToIncomingMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		msg         *models.Message
		wantText    string
		wantPhotos  int
		wantDocID   string
		wantDocName string
	}{
		{
			name: "text message",
			msg: &models.Message{
				ID:   10,
				Chat: models.Chat{ID: -100},
				From: &models.User{FirstName: "张三"},
				Text: "汇款 5000 USD",
			},
			wantText: "汇款 5000 USD",
		},
		{
			name: "photo with caption keeps only largest size",
			msg: &models.Message{
				ID:      11,
				Chat:    models.Chat{ID: -100},
				Caption: "水单",
				Photo: []models.PhotoSize{
					{FileID: "thumb"},
					{FileID: "medium"},
					{FileID: "full"},
				},
			},
			wantText:   "水单",
			wantPhotos: 1,
		},
		{
			name: "document message",
			msg: &models.Message{
				ID:   12,
				Chat: models.Chat{ID: -100},
				Document: &models.Document{
					FileID:   "doc-1",
					FileName: "slip.pdf",
				},
			},
			wantDocID:   "doc-1",
			wantDocName: "slip.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := toIncomingMessage(tt.msg)

			if got.ChatID != tt.msg.Chat.ID {
				t.Errorf("ChatID = %d, want %d", got.ChatID, tt.msg.Chat.ID)
			}
			if got.MessageID != int64(tt.msg.ID) {
				t.Errorf("MessageID = %d, want %d", got.MessageID, tt.msg.ID)
			}
			if got.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", got.Text, tt.wantText)
			}
			if len(got.PhotoFileIDs) != tt.wantPhotos {
				t.Errorf("PhotoFileIDs count = %d, want %d", len(got.PhotoFileIDs), tt.wantPhotos)
			}
			if tt.wantPhotos > 0 && got.PhotoFileIDs[0] != "full" {
				t.Errorf("PhotoFileIDs[0] = %q, want largest size %q", got.PhotoFileIDs[0], "full")
			}
			if got.DocumentFileID != tt.wantDocID {
				t.Errorf("DocumentFileID = %q, want %q", got.DocumentFileID, tt.wantDocID)
			}
			if got.DocumentName != tt.wantDocName {
				t.Errorf("DocumentName = %q, want %q", got.DocumentName, tt.wantDocName)
			}
		})
	}
}

func TestSenderName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from *models.User
		want string
	}{
		{"nil sender", nil, "用户"},
		{"first name preferred", &models.User{FirstName: "李四", Username: "lisi"}, "李四"},
		{"username fallback", &models.User{Username: "lisi"}, "lisi"},
		{"anonymous", &models.User{}, "用户"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := senderName(tt.from); got != tt.want {
				t.Errorf("senderName() = %q, want %q", got, tt.want)
			}
		})
	}
}
