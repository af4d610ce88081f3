package dialog

import "testing"

func TestParseCallback(t *testing.T) {
	t.Run("select", func(t *testing.T) {
		cmd := ParseCallback("activity#42")
		if cmd.Kind != KindSelect || cmd.Action != "activity" || cmd.ID != 42 {
			t.Fatalf("разбор select: %+v", cmd)
		}
	})

	t.Run("page", func(t *testing.T) {
		cmd := ParseCallback("page#3")
		if cmd.Kind != KindPage || cmd.Page != 3 {
			t.Fatalf("разбор page: %+v", cmd)
		}
	})

	t.Run("keyword", func(t *testing.T) {
		cmd := ParseCallback("pnd_open")
		if cmd.Kind != KindKeyword || cmd.Keyword != "pnd_open" {
			t.Fatalf("разбор keyword: %+v", cmd)
		}
	})

	t.Run("bad_page_is_keyword", func(t *testing.T) {
		for _, data := range []string{"page#0", "page#-1", "page#abc"} {
			cmd := ParseCallback(data)
			if cmd.Kind != KindKeyword {
				t.Fatalf("%q должен разбираться как keyword, получили %+v", data, cmd)
			}
		}
	})

	t.Run("bad_id_is_keyword", func(t *testing.T) {
		cmd := ParseCallback("activity#notanumber")
		if cmd.Kind != KindKeyword || cmd.Keyword != "activity#notanumber" {
			t.Fatalf("нечисловой id: %+v", cmd)
		}
	})

	t.Run("raw_preserved", func(t *testing.T) {
		if cmd := ParseCallback("guild#7"); cmd.Raw != "guild#7" {
			t.Fatalf("Raw потерян: %q", cmd.Raw)
		}
	})
}

func TestPredicates(t *testing.T) {
	if !OnKeyword("a", "b")(Command{Kind: KindKeyword, Keyword: "b"}) {
		t.Fatal("OnKeyword должен совпадать с любым из слов")
	}
	if OnKeyword("a")(Command{Kind: KindText, Text: "a"}) {
		t.Fatal("OnKeyword не должен совпадать с текстом")
	}
	if !OnSelect("guild")(ParseCallback("guild#1")) {
		t.Fatal("OnSelect не совпал")
	}
	if OnSelect("guild")(ParseCallback("student#1")) {
		t.Fatal("OnSelect совпал с чужим действием")
	}
	if !OnFileOrContinue("skip")(Command{Kind: KindFile, FileID: "f"}) {
		t.Fatal("OnFileOrContinue должен принимать файл")
	}
	if !OnFileOrContinue("skip")(Command{Kind: KindKeyword, Keyword: "skip"}) {
		t.Fatal("OnFileOrContinue должен принимать слово «продолжить»")
	}
	if OnFileOrContinue("skip")(Command{Kind: KindKeyword, Keyword: "other"}) {
		t.Fatal("OnFileOrContinue принял чужое слово")
	}
}
