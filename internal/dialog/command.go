package dialog

import (
	"strconv"
	"strings"
)

// CommandKind — вид входящего события после разбора на границе транспорта.
// Кодировка callback-данных: "<action>#<id>" — выбор элемента,
// "page#<n>" — пагинация, голое слово — фиксированная кнопка меню.
type CommandKind int

const (
	KindText CommandKind = iota
	KindFile
	KindSelect
	KindPage
	KindKeyword
)

type Command struct {
	Kind    CommandKind
	Action  string // KindSelect: вид элемента ("activity", "guild", ...)
	ID      int64  // KindSelect: id элемента
	Page    int    // KindPage: номер страницы (1-индексация)
	Keyword string // KindKeyword
	Text    string // KindText/KindFile: текст или подпись
	FileID  string // KindFile: идентификатор файла в Telegram
	Raw     string // исходные callback-данные
}

// ParseCallback разбирает callback-данные один раз; дальше сценарии
// работают только с Command и не трогают строки.
func ParseCallback(data string) Command {
	cmd := Command{Raw: data}
	action, arg, found := strings.Cut(data, "#")
	if !found {
		cmd.Kind = KindKeyword
		cmd.Keyword = data
		return cmd
	}
	if action == "page" {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			cmd.Kind = KindKeyword
			cmd.Keyword = data
			return cmd
		}
		cmd.Kind = KindPage
		cmd.Page = n
		return cmd
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		cmd.Kind = KindKeyword
		cmd.Keyword = data
		return cmd
	}
	cmd.Kind = KindSelect
	cmd.Action = action
	cmd.ID = id
	return cmd
}

func TextCommand(text string) Command {
	return Command{Kind: KindText, Text: text, Raw: text}
}

func FileCommand(fileID, caption string) Command {
	return Command{Kind: KindFile, FileID: fileID, Text: caption}
}

// ==== предикаты для правил переходов ====

func OnKeyword(words ...string) func(Command) bool {
	return func(c Command) bool {
		if c.Kind != KindKeyword {
			return false
		}
		for _, w := range words {
			if c.Keyword == w {
				return true
			}
		}
		return false
	}
}

func OnSelect(action string) func(Command) bool {
	return func(c Command) bool { return c.Kind == KindSelect && c.Action == action }
}

func OnPage() func(Command) bool {
	return func(c Command) bool { return c.Kind == KindPage }
}

func OnText() func(Command) bool {
	return func(c Command) bool { return c.Kind == KindText }
}

func OnFile() func(Command) bool {
	return func(c Command) bool { return c.Kind == KindFile }
}

// OnFileOrContinue — шаг «вложение необязательно»: файл и кнопка
// «продолжить» ведут в одно и то же следующее состояние.
func OnFileOrContinue(continueWord string) func(Command) bool {
	return func(c Command) bool {
		return c.Kind == KindFile || (c.Kind == KindKeyword && c.Keyword == continueWord)
	}
}
