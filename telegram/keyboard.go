package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"releasetracker/queue"
)

// callbackPrefix tags moderation callbacks so unrelated button data is ignored.
const callbackPrefix = "mod"

// encodeCallback builds the callback payload "mod:<action>:<index>".
func encodeCallback(action queue.Action, index int) string {
	return callbackPrefix + ":" + string(action) + ":" + strconv.Itoa(index)
}

// decodeCallback parses a moderation callback payload.
func decodeCallback(data string) (queue.Action, int, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != callbackPrefix {
		return "", 0, fmt.Errorf("telegram: not a moderation callback: %q", data)
	}
	index, err := strconv.Atoi(parts[2])
	if err != nil || index < 0 {
		return "", 0, fmt.Errorf("telegram: bad callback index in %q", data)
	}
	return queue.Action(parts[1]), index, nil
}

// moderationKeyboard builds the inline keyboard shown under a post card.
func moderationKeyboard(index int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Approve", encodeCallback(queue.ActionApprove, index)),
			tgbotapi.NewInlineKeyboardButtonData("Revise", encodeCallback(queue.ActionRevise, index)),
			tgbotapi.NewInlineKeyboardButtonData("Delete", encodeCallback(queue.ActionDelete, index)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Next", encodeCallback(queue.ActionNext, index)),
			tgbotapi.NewInlineKeyboardButtonData("Finish", encodeCallback(queue.ActionFinish, index)),
		),
	)
}
