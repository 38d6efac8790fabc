package subscription

import (
	"fmt"
	"strconv"
	"strings"

	"roe-outage-bot/internal/domain"
)

// Данные callback-кнопок.
const (
	CallbackSelectPrefix = "sq:"
	CallbackLeadPrefix   = "lead:"
	CallbackChange       = "change"
	CallbackStop         = "stop"
	CallbackLeadMenu     = "lead_menu"
)

// ManageActions — клавиатура управления подпиской.
func ManageActions() [][]domain.Action {
	return [][]domain.Action{
		{{Label: "🔁 Змінити підчергу", Data: CallbackChange}},
		{{Label: "⏰ Час нагадування", Data: CallbackLeadMenu}},
		{{Label: "❌ Скасувати сповіщення", Data: CallbackStop}},
	}
}

// ChooseActions — клавиатура выбора подочереди, по две кнопки в ряд.
func ChooseActions(labels []string) [][]domain.Action {
	var rows [][]domain.Action
	for i := 0; i < len(labels); i += 2 {
		row := []domain.Action{{Label: labels[i], Data: CallbackSelectPrefix + labels[i]}}
		if i+1 < len(labels) {
			row = append(row, domain.Action{Label: labels[i+1], Data: CallbackSelectPrefix + labels[i+1]})
		}
		rows = append(rows, row)
	}
	return rows
}

// LeadActions — клавиатура выбора времени напоминания; текущее значение отмечено.
func LeadActions(leadTimes []int, current int) [][]domain.Action {
	row := make([]domain.Action, 0, len(leadTimes))
	for _, m := range leadTimes {
		label := fmt.Sprintf("%d хв", m)
		if m == current {
			label = "✅ " + label
		}
		row = append(row, domain.Action{Label: label, Data: CallbackLeadPrefix + strconv.Itoa(m)})
	}
	return [][]domain.Action{row}
}

// ParseLeadCallback извлекает минуты из данных кнопки «lead:N».
func ParseLeadCallback(data string) (int, bool) {
	raw, ok := strings.CutPrefix(data, CallbackLeadPrefix)
	if !ok {
		return 0, false
	}
	m, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return m, true
}
