package pagination

import (
	"fmt"
	"testing"
)

func makeItems(n int) []Item {
	items := make([]Item, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, Item{
			Label: fmt.Sprintf("Элемент %d", i),
			Data:  fmt.Sprintf("item#%d", i),
		})
	}
	return items
}

func TestPaginate(t *testing.T) {
	items := makeItems(23)

	t.Run("first_page", func(t *testing.T) {
		window, hasPrev, hasNext := Paginate(items, 1, 5)
		if len(window) != 5 {
			t.Fatalf("ожидали 5 элементов, получили %d", len(window))
		}
		if hasPrev {
			t.Fatal("на первой странице не должно быть «назад»")
		}
		if !hasNext {
			t.Fatal("на первой странице должна быть «вперёд»")
		}
		if window[0].Data != "item#1" || window[4].Data != "item#5" {
			t.Fatalf("неверное окно: %v", window)
		}
	})

	t.Run("middle_page", func(t *testing.T) {
		window, hasPrev, hasNext := Paginate(items, 3, 5)
		if len(window) != 5 || !hasPrev || !hasNext {
			t.Fatalf("окно=%d prev=%v next=%v", len(window), hasPrev, hasNext)
		}
		if window[0].Data != "item#11" {
			t.Fatalf("середина начинается не там: %s", window[0].Data)
		}
	})

	t.Run("last_page_partial", func(t *testing.T) {
		window, hasPrev, hasNext := Paginate(items, 5, 5)
		if len(window) != 3 {
			t.Fatalf("на последней странице ожидали 3 элемента, получили %d", len(window))
		}
		if !hasPrev || hasNext {
			t.Fatalf("последняя страница: prev=%v next=%v", hasPrev, hasNext)
		}
	})

	t.Run("page_out_of_range", func(t *testing.T) {
		window, _, hasNext := Paginate(items, 99, 5)
		if len(window) != 0 || hasNext {
			t.Fatal("за последней страницей элементов быть не должно")
		}
	})

	t.Run("bad_args", func(t *testing.T) {
		if w, _, _ := Paginate(items, 0, 5); w != nil {
			t.Fatal("page=0 должен давать пустое окно")
		}
		if w, _, _ := Paginate(items, 1, 0); w != nil {
			t.Fatal("size=0 должен давать пустое окно")
		}
	})

	t.Run("single_page_no_nav", func(t *testing.T) {
		window, hasPrev, hasNext := Paginate(makeItems(4), 1, 5)
		if len(window) != 4 || hasPrev || hasNext {
			t.Fatalf("один экран: окно=%d prev=%v next=%v", len(window), hasPrev, hasNext)
		}
	})
}

func TestCacheRows(t *testing.T) {
	c := &Cache{Items: makeItems(23), PageSize: 5, Back: "menu"}

	rows := c.Rows(2)
	// 5 элементов + навигация + «назад»
	if len(rows) != 7 {
		t.Fatalf("ожидали 7 строк, получили %d", len(rows))
	}
	nav := rows[5]
	if len(nav) != 2 {
		t.Fatalf("на средней странице две кнопки навигации, получили %d", len(nav))
	}
	if *nav[0].CallbackData != "page#1" || *nav[1].CallbackData != "page#3" {
		t.Fatalf("навигация ведёт не туда: %s / %s", *nav[0].CallbackData, *nav[1].CallbackData)
	}
	back := rows[6]
	if *back[0].CallbackData != "menu" {
		t.Fatalf("кнопка «назад» ведёт не туда: %s", *back[0].CallbackData)
	}
}

func TestCachePages(t *testing.T) {
	c := &Cache{Items: makeItems(23), PageSize: 5}
	if got := c.Pages(); got != 5 {
		t.Fatalf("23 элемента по 5: ожидали 5 страниц, получили %d", got)
	}
	c.Items = nil
	if got := c.Pages(); got != 0 {
		t.Fatalf("пустой список: ожидали 0 страниц, получили %d", got)
	}
}
