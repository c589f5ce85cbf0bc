package registry

import "time"

// Language is a supported editor language.
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangCpp        Language = "cpp"
	LangGo         Language = "go"
	LangRust       Language = "rust"
	LangRuby       Language = "ruby"
	LangPHP        Language = "php"
	LangSQL        Language = "sql"
)

// DefaultLanguage is used when a session is created without one.
const DefaultLanguage = LangPython

// supportedLanguages is the closed set accepted by Valid.
var supportedLanguages = map[Language]struct{}{
	LangPython:     {},
	LangJavaScript: {},
	LangTypeScript: {},
	LangJava:       {},
	LangCpp:        {},
	LangGo:         {},
	LangRust:       {},
	LangRuby:       {},
	LangPHP:        {},
	LangSQL:        {},
}

// Valid reports whether the language is in the supported set.
func (l Language) Valid() bool {
	_, ok := supportedLanguages[l]
	return ok
}

// Status is the lifecycle state of a session.
//
// StatusClosed is never observable through the registry: a closed session
// is deleted outright, so lookups simply miss.
type Status string

const (
	StatusActive Status = "active"
	StatusIdle   Status = "idle"
	StatusClosed Status = "closed"
)

// Input bounds enforced by the HTTP layer before a session reaches the
// registry.
const (
	MaxTitleLen       = 200
	MaxInitialCodeLen = 100000
)

// DefaultInitialCode seeds the editor when no initial code is supplied.
const DefaultInitialCode = "# Write your code here\n"

// Session is a point-in-time snapshot of one collaborative document
// instance. The registry owns the live record; snapshots returned from
// registry operations never alias registry state.
type Session struct {
	ID           string
	Language     Language
	Title        string
	Status       Status
	CreatedAt    time.Time
	InitialCode  string
	Participants int
}
