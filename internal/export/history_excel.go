package export

import (
	"context"
	"database/sql"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/telegram-classroom-bot/internal/db"
	"github.com/Spok95/telegram-classroom-bot/internal/metrics"
	"github.com/Spok95/telegram-classroom-bot/internal/tg"
)

// ExportHistoryExcel выгружает историю начислений активного класса в xlsx
// и отправляет документ в чат преподавателя.
func ExportHistoryExcel(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, classroomID, chatID int64) error {
	cls, err := db.ClassroomByID(ctx, database, classroomID)
	if err != nil {
		return err
	}
	if cls == nil {
		return fmt.Errorf("export: класс %d не найден", classroomID)
	}
	history, err := db.GrantHistoryByClassroom(ctx, database, classroomID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	sheet := "История"
	_, _ = f.NewSheet(sheet)
	_ = f.DeleteSheet("Sheet1")

	_ = f.SetCellValue(sheet, "A1", "Ученик")
	_ = f.SetCellValue(sheet, "B1", "Начисление")
	_ = f.SetCellValue(sheet, "C1", "Баллы")
	_ = f.SetCellValue(sheet, "D1", "Дата")

	rn := 2
	for _, h := range history {
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", rn), h.StudentName)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", rn), h.TokenName)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", rn), h.Value)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", rn), h.GrantedAt.Format("02.01.2006 15:04"))
		rn++
	}
	_ = ApplyDefaultExcelFormatting(f, sheet)

	path := fmt.Sprintf("/tmp/history_%d.xlsx", classroomID)
	if err := f.SaveAs(path); err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = fmt.Sprintf("История начислений — %s", cls.Name)
	if _, err := tg.Send(bot, doc); err != nil {
		metrics.HandlerErrors.Inc()
		return err
	}
	return nil
}
