package dialog

import (
	"context"
	"errors"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Spok95/telegram-classroom-bot/internal/metrics"
	"github.com/Spok95/telegram-classroom-bot/internal/session"
)

// State — состояние сценария, уникальное в пределах своего Flow.
type State int

// End — терминальное состояние: сценарий завершён, черновик очищен.
const End State = -1

var ErrFlowActive = errors.New("dialog: в чате уже активен другой сценарий")

// Event — одно входящее событие транспорта после разбора.
type Event struct {
	ChatID    int64
	MessageID int // id сообщения с клавиатурой (для edit-in-place), 0 для текстов
	Cmd       Command
	Msg       *tgbotapi.Message
	Query     *tgbotapi.CallbackQuery
}

type Handler func(ctx context.Context, ev Event) (State, error)

type Rule struct {
	When func(Command) bool
	Do   Handler
}

// Flow — граф одного сценария: входной обработчик, правила по состояниям
// и fallback-правила, достижимые из любого состояния («назад в меню»).
type Flow struct {
	Name         string
	AllowReentry bool // повторный Start того же сценария заменяет активный
	Entry        Handler
	States       map[State][]Rule
	Fallback     []Rule
}

type run struct {
	flow  *Flow
	state State
}

// Engine ведёт по одному активному сценарию на чат. Сериализацию событий
// внутри чата обеспечивает вызывающая сторона (app.ChatLimiter), мьютекс
// здесь защищает только карту.
type Engine struct {
	mu       sync.Mutex
	active   map[int64]*run
	sessions *session.Store
	log      *zap.SugaredLogger
}

func NewEngine(sessions *session.Store, log *zap.SugaredLogger) *Engine {
	return &Engine{
		active:   make(map[int64]*run),
		sessions: sessions,
		log:      log,
	}
}

// Start запускает сценарий. Если чатом владеет другой сценарий — ошибка;
// тот же сценарий с AllowReentry перезапускается с чистым черновиком.
func (e *Engine) Start(ctx context.Context, f *Flow, ev Event) error {
	e.mu.Lock()
	if cur, ok := e.active[ev.ChatID]; ok {
		if cur.flow != f || !f.AllowReentry {
			e.mu.Unlock()
			return ErrFlowActive
		}
		delete(e.active, ev.ChatID)
		e.sessions.Get(ev.ChatID).ClearScratch(f.Name)
	}
	e.mu.Unlock()

	next, err := f.Entry(ctx, ev)
	if err != nil {
		e.sessions.Get(ev.ChatID).ClearScratch(f.Name)
		return err
	}
	if next == End {
		e.sessions.Get(ev.ChatID).ClearScratch(f.Name)
		return nil
	}

	e.mu.Lock()
	e.active[ev.ChatID] = &run{flow: f, state: next}
	e.mu.Unlock()
	return nil
}

// Dispatch передаёт событие активному сценарию чата. Возвращает false, если
// активного сценария нет (событие не «востребовано» движком). Событие, не
// подошедшее ни под одно правило и ни под один fallback, игнорируется молча —
// это осознанная политика, а не ошибка; факт фиксируется в логе и метрике.
func (e *Engine) Dispatch(ctx context.Context, ev Event) (bool, error) {
	e.mu.Lock()
	r, ok := e.active[ev.ChatID]
	e.mu.Unlock()
	if !ok {
		return false, nil
	}

	rule := match(r.flow.States[r.state], ev.Cmd)
	if rule == nil {
		rule = match(r.flow.Fallback, ev.Cmd)
	}
	if rule == nil {
		e.log.Debugw("событие проигнорировано",
			"chat_id", ev.ChatID, "flow", r.flow.Name, "state", r.state, "data", ev.Cmd.Raw)
		metrics.EventsIgnored.Inc()
		return true, nil
	}

	next, err := rule.Do(ctx, ev)
	if err != nil {
		// Неожиданная ошибка обработчика: состояние не двигаем, решает
		// верхнеуровневый контракт диспетчера.
		return true, err
	}
	e.advance(ev.ChatID, r.flow, next)
	return true, nil
}

func (e *Engine) advance(chatID int64, f *Flow, next State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.active[chatID]
	if !ok || r.flow != f {
		return
	}
	if next == End {
		delete(e.active, chatID)
		e.sessions.Get(chatID).ClearScratch(f.Name)
		return
	}
	r.state = next
}

// Abort снимает активный сценарий и чистит его черновик
// (logout, рассинхронизация сессии).
func (e *Engine) Abort(chatID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.active[chatID]; ok {
		delete(e.active, chatID)
		e.sessions.Get(chatID).ClearScratch(r.flow.Name)
	}
}

// ActiveFlow — имя активного сценария чата, "" если нет.
func (e *Engine) ActiveFlow(chatID int64) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.active[chatID]; ok {
		return r.flow.Name
	}
	return ""
}

func match(rules []Rule, cmd Command) *Rule {
	for i := range rules {
		if rules[i].When(cmd) {
			return &rules[i]
		}
	}
	return nil
}
