package domain

import (
	"strings"
)

// firmRefusals are phrases that mark a supplier message as a hard rejection.
// Matching is case-insensitive substring containment.
var firmRefusals = []string{"no", "we will stick", "cannot", "will not", "won't"}

// IsFirmRefusal reports whether the message reads as a hard rejection.
func IsFirmRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range firmRefusals {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// ConsecutiveRejections counts the unbroken run of firm refusals at the tail
// of the supplier's side of the transcript. Buyer-side messages in between do
// not break the run; a non-refusal supplier message does.
func ConsecutiveRejections(chat []ChatMessage) int {
	count := 0
	for i := len(chat) - 1; i >= 0; i-- {
		if chat[i].Sender != SenderSupplier {
			continue
		}
		if !IsFirmRefusal(chat[i].Text) {
			break
		}
		count++
	}
	return count
}

// NextStage maps the current stage and the latest supplier message to the
// next stage. The stage advances by one, capped at MaxStage, only when the
// message contains a firm refusal and at least one rejection has already been
// counted; otherwise it is unchanged. The stage selects which negotiation
// tactic the reply prompt emphasizes, so it only ever moves forward.
func NextStage(current int, supplierMessage string, rejections int) int {
	if IsFirmRefusal(supplierMessage) && rejections >= 1 {
		if current+1 > MaxStage {
			return MaxStage
		}
		return current + 1
	}
	return current
}
