package pagination

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Item — один элемент списка: подпись кнопки и callback-данные выбора.
type Item struct {
	Label string
	Data  string
}

// Paginate — чистая функция окна страницы. page — с единицы.
// «Назад» показываем только при page > 1, «вперёд» — только если за окном
// остались элементы.
func Paginate(items []Item, page, size int) (window []Item, hasPrev, hasNext bool) {
	if size < 1 || page < 1 {
		return nil, false, false
	}
	start := (page - 1) * size
	if start >= len(items) {
		return nil, page > 1, false
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], page > 1, end < len(items)
}

// Cache — полный список плюс оформление, сохраняется в черновике сценария:
// событие перелистывания несёт только номер страницы, список не
// пересобирается. Отсутствие кэша при page#n — рассинхронизация сессии.
type Cache struct {
	Items    []Item
	PageSize int
	Aux      [][]tgbotapi.InlineKeyboardButton // «создать», «фильтр» и т.п.
	Back     string                            // callback-данные кнопки «назад», "" — без неё
}

// Rows собирает клавиатуру страницы в фиксированном порядке:
// элементы окна, строка навигации, дополнительные кнопки, «назад».
func (c *Cache) Rows(page int) [][]tgbotapi.InlineKeyboardButton {
	window, hasPrev, hasNext := Paginate(c.Items, page, c.PageSize)

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, it := range window {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(it.Label, it.Data),
		))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if hasPrev {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️", fmt.Sprintf("page#%d", page-1)))
	}
	if hasNext {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("➡️", fmt.Sprintf("page#%d", page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	rows = append(rows, c.Aux...)

	if c.Back != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", c.Back),
		))
	}
	return rows
}

// Pages — число страниц (для подписи вида «стр. 2/5»).
func (c *Cache) Pages() int {
	if c.PageSize < 1 {
		return 0
	}
	return (len(c.Items) + c.PageSize - 1) / c.PageSize
}
