package cache

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Префиксы ключей кэша.
const (
	PrefixProjects    = "projects:"
	PrefixUnits       = "units:"
	PrefixMatrix      = "matrix:"
	PrefixBuildings   = "buildings:"
	PrefixClaims      = "claims:"
	PrefixDefects     = "defects:"
	PrefixCourtCases  = "court_cases:"
	PrefixTickets     = "tickets:"
	PrefixLetters     = "letters:"
	PrefixFolders     = "folders:"
	PrefixPersons     = "persons:"
	PrefixContractors = "contractors:"
	PrefixBrigades    = "brigades:"
	PrefixStatuses    = "statuses:"
	PrefixPermissions = "permissions:"
	PrefixProfiles    = "profiles:"
)

// ProjectsKey кодирует набор проектов: "all" или отсортированный список.
func ProjectsKey(projectIDs []int64) string {
	if projectIDs == nil {
		return "all"
	}
	ids := slices.Clone(projectIDs)
	slices.Sort(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// Key собирает ключ из префикса и частей: Key(PrefixClaims, "1,2") → "claims:1,2".
func Key(prefix string, parts ...any) string {
	var b strings.Builder
	b.WriteString(prefix)
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(':')
		}
		switch v := p.(type) {
		case *string:
			if v != nil {
				b.WriteString(*v)
			}
		case *int64:
			if v != nil {
				b.WriteString(strconv.FormatInt(*v, 10))
			}
		default:
			fmt.Fprint(&b, v)
		}
	}
	return b.String()
}

// tablePrefixes — какие кэшированные выборки зависят от таблицы.
var tablePrefixes = map[string][]string{
	"projects":           {PrefixProjects, PrefixClaims, PrefixDefects, PrefixCourtCases},
	"units":              {PrefixUnits, PrefixMatrix, PrefixBuildings, PrefixClaims, PrefixDefects, PrefixCourtCases},
	"persons":            {PrefixPersons, PrefixCourtCases},
	"contractors":        {PrefixContractors, PrefixCourtCases, PrefixDefects},
	"brigades":           {PrefixBrigades, PrefixDefects},
	"statuses":           {PrefixStatuses, PrefixClaims, PrefixDefects, PrefixCourtCases, PrefixMatrix},
	"tickets":            {PrefixTickets},
	"defects":            {PrefixDefects},
	"claims":             {PrefixClaims, PrefixMatrix},
	"court_cases":        {PrefixCourtCases, PrefixMatrix},
	"letters":            {PrefixLetters, PrefixMatrix},
	"document_folders":   {PrefixFolders},
	"profiles":           {PrefixProfiles, PrefixClaims, PrefixCourtCases},
	"role_permissions":   {PrefixPermissions},
	"attachments":        {PrefixTickets, PrefixDefects, PrefixLetters},
	"court_case_parties": {PrefixCourtCases},
	"lawsuit_claims":     {PrefixCourtCases},
}

// PrefixesForTable возвращает префиксы, которые устаревают при изменении таблицы.
// Для неизвестной таблицы — nil.
func PrefixesForTable(table string) []string {
	return tablePrefixes[table]
}

// InvalidateTables инвалидирует выборки, зависящие от таблиц.
func (c *QueryCache) InvalidateTables(tables ...string) int {
	var prefixes []string
	for _, t := range tables {
		for _, p := range tablePrefixes[t] {
			if !slices.Contains(prefixes, p) {
				prefixes = append(prefixes, p)
			}
		}
	}
	return c.InvalidatePrefix(prefixes...)
}
