package session

import (
	"sync"

	"github.com/Spok95/telegram-classroom-bot/internal/models"
)

// Session — типизированное состояние одного чата. Живёт только в памяти:
// рестарт процесса сбрасывает все незавершённые сценарии и требует
// повторного входа.
type Session struct {
	ChatID int64

	mu      sync.Mutex
	role    models.Role
	userID  int64
	profile int64 // id Student/Teacher-профиля по роли
	class   int64 // активный класс, 0 — нет
	scratch map[string]any
}

func (s *Session) Role() models.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

func (s *Session) UserID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// ProfileID — id строки students/teachers текущей роли.
func (s *Session) ProfileID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

func (s *Session) ActiveClassroomID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.class
}

// Login проставляет роль и идентификаторы после успешного входа.
func (s *Session) Login(role models.Role, userID, profileID, classroomID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = role
	s.userID = userID
	s.profile = profileID
	s.class = classroomID
}

func (s *Session) SetActiveClassroom(classroomID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.class = classroomID
}

// Scratch — черновые данные сценария flow. Каждый сценарий хранит свой
// struct под своим именем и чистит его на терминальном состоянии.
func (s *Session) Scratch(flow string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.scratch[flow]
	return v, ok
}

func (s *Session) SetScratch(flow string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scratch == nil {
		s.scratch = make(map[string]any)
	}
	s.scratch[flow] = v
}

func (s *Session) ClearScratch(flow string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scratch, flow)
}

// Store владеет сессиями по chatID. Создание ленивое, Clear — полный сброс
// (logout или рассинхронизация состояния).
type Store struct {
	mu     sync.RWMutex
	byChat map[int64]*Session
}

func New() *Store {
	return &Store{byChat: make(map[int64]*Session)}
}

func (st *Store) Get(chatID int64) *Session {
	st.mu.RLock()
	s, ok := st.byChat[chatID]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok = st.byChat[chatID]; ok {
		return s
	}
	s = &Session{ChatID: chatID, scratch: make(map[string]any)}
	st.byChat[chatID] = s
	return s
}

func (st *Store) Clear(chatID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.byChat, chatID)
}
