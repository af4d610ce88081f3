package menu

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/telegram-classroom-bot/internal/models"
)

// Кнопки главных меню. Диспетчер сопоставляет их тексту входящих сообщений.
const (
	BtnActivities = "📚 Активности"
	BtnPendings   = "📥 Заявки"
	BtnGuilds     = "🏰 Гильдии"
	BtnGrant      = "🎖 Выдать баллы"
	BtnSettings   = "⚙️ Настройки курса"
	BtnConfs      = "🎤 Конференции"
	BtnPractics   = "🧪 Практики"
	BtnExport     = "📤 Экспорт истории"
	BtnSubmit     = "📨 Отправить заявку"
	BtnRating     = "📊 Мои баллы"
	BtnLogout     = "🚪 Выйти"
)

// GetRoleMenu возвращает меню в зависимости от роли пользователя
func GetRoleMenu(role models.Role) tgbotapi.ReplyKeyboardMarkup {
	switch role {
	case models.RoleStudent:
		return studentMenu()
	case models.RoleTeacher:
		return teacherMenu()
	default:
		return tgbotapi.NewReplyKeyboard() // пустое меню
	}
}

func studentMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnSubmit),
			tgbotapi.NewKeyboardButton(BtnRating),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnConfs),
			tgbotapi.NewKeyboardButton(BtnLogout),
		),
	)
}

func teacherMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnActivities),
			tgbotapi.NewKeyboardButton(BtnPendings),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnGuilds),
			tgbotapi.NewKeyboardButton(BtnGrant),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnConfs),
			tgbotapi.NewKeyboardButton(BtnPractics),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnSettings),
			tgbotapi.NewKeyboardButton(BtnExport),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnLogout),
		),
	)
}
