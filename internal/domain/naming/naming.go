// Пакет naming — формирование ключей объектов хранилища для вложений.
// Имена файлов транслитерируются с кириллицы и приводятся к алфавиту [0-9a-z._-].
package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FallbackName — имя файла, если после очистки ничего не осталось.
const FallbackName = "file"

// translit — таблица транслитерации строчной кириллицы.
// Заглавные буквы приводятся к строчным до поиска в таблице.
// Ё и й сюда не доходят: после NFD без диакритики это е и и.
var translit = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ж': "zh", 'з': "z", 'и': "i",
	'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "sch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "yu", 'я': "ya",
}

var (
	disallowed     = regexp.MustCompile(`[^0-9a-z._-]`)
	underscoreRuns = regexp.MustCompile(`_{2,}`)
)

// SanitizeFileName приводит имя файла к безопасному для ключа хранилища виду.
//
// Порядок: NFD-декомпозиция, удаление диакритики, транслитерация кириллицы,
// нижний регистр, замена символов вне [0-9a-z._-] на "_", схлопывание "__".
// Функция идемпотентна. "Акт№5.pdf" → "akt_5.pdf".
func SanitizeFileName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		lower := unicode.ToLower(r)
		if repl, ok := translit[lower]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(lower)
	}

	out := disallowed.ReplaceAllString(b.String(), "_")
	out = underscoreRuns.ReplaceAllString(out, "_")
	if out == "" {
		return FallbackName
	}
	return out
}

// StorageKey возвращает ключ объекта: {prefix}/{unixMillis}_{sanitized}.
func StorageKey(prefix, name string, now time.Time) string {
	prefix = strings.Trim(prefix, "/")
	file := strconv.FormatInt(now.UnixMilli(), 10) + "_" + SanitizeFileName(name)
	if prefix == "" {
		return file
	}
	return prefix + "/" + file
}

// --- Префиксы ключей по типу родительской сущности ---

// LetterPrefix — вложения писем.
func LetterPrefix(projectID int64) string {
	return fmt.Sprintf("letters/%d", projectID)
}

// CourtCasePrefix — вложения судебных дел.
func CourtCasePrefix(projectID, unitID int64) string {
	return fmt.Sprintf("Case/%d/%d", projectID, unitID)
}

func ClaimPrefix(projectID int64) string {
	return fmt.Sprintf("claims/%d", projectID)
}

func DefectPrefix(projectID int64) string {
	return fmt.Sprintf("defects/%d", projectID)
}

func TicketPrefix(projectID, unitID int64) string {
	return fmt.Sprintf("tickets/%d/%d", projectID, unitID)
}

// FolderPrefix — документы архива в папке.
func FolderPrefix(folderID int64) string {
	return fmt.Sprintf("documents/%d", folderID)
}
