package ledger

import (
	"regexp"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// MemoProgramID - программа SPL Memo v2.
var MemoProgramID = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")

// NewMemoInstruction создает инструкцию memo без аккаунтов, данные - сам текст.
func NewMemoInstruction(text string) solana.Instruction {
	return solana.NewInstruction(MemoProgramID, solana.AccountMetaSlice{}, []byte(text))
}

var memoEntryPrefix = regexp.MustCompile(`^\[\d+\]\s?`)

// ParseMemoField разбирает поле memo из getSignaturesForAddress.
// RPC склеивает memo транзакции через "; " и добавляет к каждому префикс "[len] ".
func ParseMemoField(field string) []string {
	if field == "" {
		return nil
	}
	parts := strings.Split(field, "; ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, memoEntryPrefix.ReplaceAllString(p, ""))
	}
	return out
}

// MemoContains проверяет, что среди memo транзакции есть запись, равная tag.
func MemoContains(field, tag string) bool {
	if tag == "" {
		return false
	}
	for _, entry := range ParseMemoField(field) {
		if entry == tag {
			return true
		}
	}
	return false
}

var memoLogLine = regexp.MustCompile(`^Program log: Memo \(len \d+\): "(.*)"$`)

// MemoFromLogs извлекает тексты memo из логов транзакции (подписка logsSubscribe).
func MemoFromLogs(logs []string) []string {
	var out []string
	for _, line := range logs {
		if m := memoLogLine.FindStringSubmatch(line); m != nil {
			out = append(out, m[1])
		}
	}
	return out
}
