package telegram

import (
	"testing"

	"releasetracker/queue"
)

func TestCallbackCodec_RoundTrip(t *testing.T) {
	actions := []queue.Action{
		queue.ActionApprove,
		queue.ActionRevise,
		queue.ActionDelete,
		queue.ActionNext,
		queue.ActionFinish,
	}

	for _, action := range actions {
		data := encodeCallback(action, 7)
		gotAction, gotIndex, err := decodeCallback(data)
		if err != nil {
			t.Fatalf("decodeCallback(%q) error = %v", data, err)
		}
		if gotAction != action || gotIndex != 7 {
			t.Errorf("decodeCallback(%q) = (%q, %d), want (%q, 7)", data, gotAction, gotIndex, action)
		}
	}
}

func TestDecodeCallback_RejectsForeignData(t *testing.T) {
	for _, data := range []string{"", "other:approve:1", "mod:approve", "mod:approve:x", "mod:approve:-1"} {
		if _, _, err := decodeCallback(data); err == nil {
			t.Errorf("decodeCallback(%q) = nil error, want rejection", data)
		}
	}
}

func TestModerationKeyboard_EncodesIndex(t *testing.T) {
	kb := moderationKeyboard(3)
	if len(kb.InlineKeyboard) != 2 {
		t.Fatalf("keyboard has %d rows, want 2", len(kb.InlineKeyboard))
	}
	first := kb.InlineKeyboard[0][0]
	if first.CallbackData == nil || *first.CallbackData != "mod:approve:3" {
		t.Errorf("first button data = %v, want mod:approve:3", first.CallbackData)
	}
}
