package pipeline

import (
	"slices"
	"testing"
)

func TestContainsTriggerKeyword(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		text     string
		expected bool
	}{
		{name: "empty", text: "", expected: false},
		{name: "greeting", text: "你好，在吗？", expected: false},
		{name: "remittance word", text: "今天有一笔汇款", expected: true},
		{name: "amount label", text: "金额：5000", expected: true},
		{name: "iban lowercase", text: "iban: DE89370400440532013000", expected: true},
		{name: "maintenance period", text: "维护期15天", expected: true},
		{name: "unrelated english", text: "see you tomorrow", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := containsTriggerKeyword(tc.text); got != tc.expected {
				t.Errorf("containsTriggerKeyword(%q) = %v, want %v", tc.text, got, tc.expected)
			}
		})
	}
}

func TestContainsTransactionKeyword(t *testing.T) {
	t.Parallel()

	if containsTransactionKeyword("币种：USD") {
		t.Error("containsTransactionKeyword(币种) = true, want false; 币种 is a trigger keyword only")
	}
	if !containsTransactionKeyword("水单已发送") {
		t.Error("containsTransactionKeyword(水单...) = false, want true")
	}
}

func TestClassifyArchive(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		text         string
		hasDocument  bool
		photoCount   int
		wantCategory string
		wantTags     []string
	}{
		{
			name:         "plain chatter",
			text:         "好的收到",
			wantCategory: "other",
			wantTags:     nil,
		},
		{
			name:         "transaction text",
			text:         "汇款5000美元",
			wantCategory: "transaction",
			wantTags:     []string{"transaction"},
		},
		{
			name:         "greeting",
			text:         "你好，在吗",
			wantCategory: "inquiry",
			wantTags:     []string{"greeting"},
		},
		{
			name:         "photo only",
			photoCount:   2,
			wantCategory: "other",
			wantTags:     []string{"has_attachment", "photo"},
		},
		{
			name:         "transaction with document",
			text:         "转账水单",
			hasDocument:  true,
			wantCategory: "transaction",
			wantTags:     []string{"transaction", "has_attachment", "document"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			category, tags := classifyArchive(tc.text, tc.hasDocument, tc.photoCount)
			if category != tc.wantCategory {
				t.Errorf("category = %q, want %q", category, tc.wantCategory)
			}
			if !slices.Equal(tags, tc.wantTags) {
				t.Errorf("tags = %v, want %v", tags, tc.wantTags)
			}
		})
	}
}
