package naming

import (
	"regexp"
	"testing"
	"time"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "номер документа", input: "Акт№5.pdf", want: "akt_5.pdf"},
		{name: "пробел и знак номера схлопываются", input: "Оплата_квартиры №5.pdf", want: "oplata_kvartiry_5.pdf"},
		{name: "щ, ё, верхний регистр расширения", input: "Щука Ёж.JPG", want: "schuka_ezh.jpg"},
		{name: "твёрдый знак удаляется", input: "Объявление.docx", want: "obyavlenie.docx"},
		{name: "й теряет бреве при декомпозиции", input: "Дом й", want: "dom_i"},
		{name: "строчные ё и й", input: "ёлка йод", want: "elka_iod"},
		{name: "латиница с диакритикой", input: "Café résumé.txt", want: "cafe_resume.txt"},
		{name: "слеш заменяется", input: "путь/к/файлу.pdf", want: "put_k_failu.pdf"},
		{name: "допустимые символы не меняются", input: "scan-01_v2.tar.gz", want: "scan-01_v2.tar.gz"},
		{name: "пустая строка", input: "", want: FallbackName},
		{name: "только пробелы", input: "   ", want: "_"},
		{name: "только недопустимые символы", input: "№№№", want: "_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeFileName(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeFileName(%q) = %q, хотели %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeFileName_Idempotent(t *testing.T) {
	inputs := []string{
		"Акт№5.pdf",
		"Оплата_квартиры №5.pdf",
		"ЖЁЛТЫЙ ДОМ (копия).PNG",
		"путь/к/файлу",
		"  __a__b__ ",
		"日本語.txt",
		"Ъ",
		"",
		"file",
	}

	for _, in := range inputs {
		once := SanitizeFileName(in)
		twice := SanitizeFileName(once)
		if once != twice {
			t.Errorf("SanitizeFileName не идемпотентна для %q: %q → %q", in, once, twice)
		}
	}
}

func TestSanitizeFileName_Alphabet(t *testing.T) {
	allowed := regexp.MustCompile(`^[0-9a-z._-]+$`)

	// Все буквы таблицы в обоих регистрах.
	var all []rune
	for r := range translit {
		all = append(all, r)
	}
	input := string(all) + "ёйАБВГДЕЁЖЗИЙКЛМНОПРСТУФХЦЧШЩЪЫЬЭЮЯ №5.pdf"

	got := SanitizeFileName(input)
	if !allowed.MatchString(got) {
		t.Errorf("SanitizeFileName вернула символы вне [0-9a-z._-]: %q", got)
	}
}

func TestStorageKey(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	tests := []struct {
		name   string
		prefix string
		file   string
		want   string
	}{
		{name: "письма", prefix: LetterPrefix(5), file: "Акт№5.pdf", want: "letters/5/1700000000000_akt_5.pdf"},
		{name: "судебное дело", prefix: CourtCasePrefix(3, 42), file: "Иск.docx", want: "Case/3/42/1700000000000_isk.docx"},
		{name: "лишние слеши в префиксе", prefix: "/claims/1/", file: "a.txt", want: "claims/1/1700000000000_a.txt"},
		{name: "без префикса", prefix: "", file: "a.txt", want: "1700000000000_a.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StorageKey(tt.prefix, tt.file, now)
			if got != tt.want {
				t.Errorf("StorageKey(%q, %q) = %q, хотели %q", tt.prefix, tt.file, got, tt.want)
			}
		})
	}
}

func TestPrefixes(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{DefectPrefix(7), "defects/7"},
		{ClaimPrefix(7), "claims/7"},
		{TicketPrefix(7, 9), "tickets/7/9"},
		{FolderPrefix(11), "documents/11"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("префикс = %q, хотели %q", tt.got, tt.want)
		}
	}
}
