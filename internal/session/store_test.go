package session

import (
	"sync"
	"testing"

	"github.com/Spok95/telegram-classroom-bot/internal/models"
)

func TestStoreGetLazy(t *testing.T) {
	st := New()
	s1 := st.Get(10)
	s2 := st.Get(10)
	if s1 != s2 {
		t.Fatal("повторный Get должен возвращать ту же сессию")
	}
	if s1.ChatID != 10 {
		t.Fatalf("ChatID=%d", s1.ChatID)
	}
}

func TestSessionLogin(t *testing.T) {
	st := New()
	s := st.Get(10)
	s.Login(models.RoleTeacher, 1, 2, 3)

	if s.Role() != models.RoleTeacher || s.UserID() != 1 || s.ProfileID() != 2 || s.ActiveClassroomID() != 3 {
		t.Fatalf("сессия после входа: role=%s user=%d profile=%d class=%d",
			s.Role(), s.UserID(), s.ProfileID(), s.ActiveClassroomID())
	}

	s.SetActiveClassroom(7)
	if s.ActiveClassroomID() != 7 {
		t.Fatalf("активный класс не сменился: %d", s.ActiveClassroomID())
	}
}

func TestStoreClear(t *testing.T) {
	st := New()
	s := st.Get(10)
	s.Login(models.RoleStudent, 1, 2, 3)
	s.SetScratch("flow", "draft")

	st.Clear(10)

	fresh := st.Get(10)
	if fresh == s {
		t.Fatal("после Clear должна создаваться новая сессия")
	}
	if fresh.Role() != "" {
		t.Fatalf("новая сессия не должна помнить роль: %s", fresh.Role())
	}
	if _, ok := fresh.Scratch("flow"); ok {
		t.Fatal("новая сессия не должна помнить черновики")
	}
}

func TestScratchPerFlow(t *testing.T) {
	st := New()
	s := st.Get(10)
	s.SetScratch("a", 1)
	s.SetScratch("b", 2)

	s.ClearScratch("a")
	if _, ok := s.Scratch("a"); ok {
		t.Fatal("черновик a должен быть удалён")
	}
	if v, ok := s.Scratch("b"); !ok || v != 2 {
		t.Fatal("черновик b не должен пострадать")
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	st := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			s := st.Get(n % 5)
			s.SetScratch("flow", n)
			s.Login(models.RoleStudent, n, n, n)
			_ = s.Role()
			_, _ = s.Scratch("flow")
		}(int64(i))
	}
	wg.Wait()
}
