package telegram

import "strings"

// MessageLimit — максимальная длина сообщения Telegram в символах.
const MessageLimit = 4096

// SplitMessage делит текст на части не длиннее limit символов.
// Разрез ищется сначала по пустой строке между блоками, затем по переводу строки.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MessageLimit
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	runes := []rune(trimmed)
	if len(runes) <= limit {
		return []string{trimmed}
	}

	var parts []string
	for start := 0; start < len(runes); {
		end := start + limit
		if end >= len(runes) {
			parts = appendChunk(parts, runes[start:])
			break
		}
		split := lastBreak(runes, start, end, true)
		if split < 0 {
			split = lastBreak(runes, start, end, false)
		}
		if split < 0 {
			split = end
		}
		parts = appendChunk(parts, runes[start:split])
		start = split
		for start < len(runes) && runes[start] == '\n' {
			start++
		}
	}
	return parts
}

// lastBreak возвращает позицию после последнего перевода строки в (start, end].
// Если blank, ищется только пустая строка.
func lastBreak(runes []rune, start, end int, blank bool) int {
	for i := end; i > start+1; i-- {
		if runes[i-1] != '\n' {
			continue
		}
		if !blank || runes[i-2] == '\n' {
			return i
		}
	}
	return -1
}

func appendChunk(parts []string, chunk []rune) []string {
	if s := strings.Trim(string(chunk), "\n"); s != "" {
		parts = append(parts, s)
	}
	return parts
}
