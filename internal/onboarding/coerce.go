package onboarding

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
)

// requiredOnCreate must be present the first time a user commits a context.
var requiredOnCreate = []string{"persona", "goal", "deadline", "weekly_time_hours", "consent_lgpd"}

var (
	hoursRe    = regexp.MustCompile(`^\s*(\d+(?:[.,]\d+)?)\s*(h|hs|hr|hrs|hora|horas|hour|hours)?\s*(/\s*\w+|por semana|per week|semanais)?\s*$`)
	relDaysRe  = regexp.MustCompile(`^(?:em|in|daqui a|daqui)?\s*(\d+)\s*(dia|dias|day|days|semana|semanas|week|weeks|mes|mês|meses|month|months)\s*(?:from now)?$`)
	dateLayout = []string{"2006-01-02", "02/01/2006", "2006/01/02", time.RFC3339}
)

// ApplyArgs coerces tool arguments onto a copy of base (nil for a new
// profile). Loosely formatted values are normalized: "10h" becomes 10,
// "em 30 dias" or "in 30 days" becomes a date relative to today and
// "sim"/"yes"/"true" becomes true.
func ApplyArgs(base *studyplan.UserProfile, args map[string]any, today time.Time) (*studyplan.UserProfile, error) {
	p := &studyplan.UserProfile{}
	if base != nil {
		cp := *base
		p = &cp
	}
	verr := &ValidationError{}
	if base == nil {
		for _, k := range requiredOnCreate {
			if v, ok := args[k]; !ok || v == nil || (isString(v) && strings.TrimSpace(v.(string)) == "") {
				verr.add(k, "required")
			}
		}
	}

	for key, raw := range args {
		if raw == nil {
			continue
		}
		switch key {
		case "persona":
			s := strings.ToLower(strings.TrimSpace(toString(raw)))
			switch s {
			case studyplan.PersonaStudent, studyplan.PersonaTeacher, studyplan.PersonaOther:
				p.Persona = s
			case "estudante", "aluno", "aluna", "concurseiro", "concurseira":
				p.Persona = studyplan.PersonaStudent
			case "professor", "professora":
				p.Persona = studyplan.PersonaTeacher
			case "outro", "outra":
				p.Persona = studyplan.PersonaOther
			default:
				verr.add(key, fmt.Sprintf("%q is not one of student, teacher, other", s))
			}
		case "goal":
			p.Goal = limit(toString(raw), 100)
		case "deadline", "start_date", "end_date":
			d, err := CoerceDate(raw, today)
			if err != nil {
				verr.add(key, err.Error())
				continue
			}
			switch key {
			case "deadline":
				p.Deadline = &d
			case "start_date":
				p.StartDate = &d
			default:
				p.EndDate = &d
			}
		case "weekly_time_hours":
			h, err := CoerceHours(raw)
			if err != nil {
				verr.add(key, err.Error())
				continue
			}
			p.WeeklyTimeHours = h
		case "consent_lgpd":
			b, err := CoerceBool(raw)
			if err != nil {
				verr.add(key, err.Error())
				continue
			}
			p.ConsentLGPD = b
		case "study_routine":
			p.StudyRoutine = toString(raw)
		case "background_level":
			p.BackgroundLevel = limit(toString(raw), 2000)
		case "background_institution_type":
			p.BackgroundInstitutionType = limit(toString(raw), 100)
		case "self_assessment":
			m, err := coerceObject(raw)
			if err != nil {
				verr.add(key, err.Error())
				continue
			}
			p.SelfAssessment = datatypes.JSONMap(m)
		case "diagnostic_status":
			p.DiagnosticStatus = limit(toString(raw), 20)
		case "diagnostic_snapshot":
			p.DiagnosticSnapshot = stringSlice(raw)
		case "interests":
			p.Interests = stringSlice(raw)
		case "preferences_formats":
			p.PreferencesFormats = stringSlice(raw)
		case "preferences_language":
			p.PreferencesLanguage = limit(toString(raw), 50)
		case "preferences_accessibility":
			p.PreferencesAccessibility = stringSlice(raw)
		case "tech_device":
			p.TechDevice = limit(toString(raw), 100)
		case "tech_connectivity":
			p.TechConnectivity = limit(toString(raw), 100)
		case "notifications":
			p.Notifications = limit(toString(raw), 100)
		case "plan_label":
			p.PlanLabel = limit(toString(raw), 200)
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return p, nil
}

// coerceObject accepts a decoded object or its JSON text. Gemini receives
// property-less objects as string parameters.
func coerceObject(v any) (map[string]any, error) {
	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return map[string]any{}, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
			return nil, fmt.Errorf("must be an object")
		}
		return m, nil
	}
	return nil, fmt.Errorf("must be an object")
}

// CoerceHours accepts integers, whole floats and strings such as "10", "10h"
// or "12 horas por semana".
func CoerceHours(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return nonNegative(t)
	case int64:
		return nonNegative(int(t))
	case float64:
		if t != math.Trunc(t) {
			return nonNegative(int(math.Round(t)))
		}
		return nonNegative(int(t))
	case string:
		m := hoursRe.FindStringSubmatch(strings.ToLower(t))
		if m == nil {
			return 0, fmt.Errorf("%q is not a number of hours", t)
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number of hours", t)
		}
		return nonNegative(int(math.Round(f)))
	}
	return 0, fmt.Errorf("unsupported value %v", v)
}

func nonNegative(n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("must be >= 0")
	}
	return n, nil
}

// CoerceDate accepts ISO dates, dd/mm/yyyy and relative phrases counted from
// today ("em 30 dias", "in 2 weeks", "3 meses").
func CoerceDate(v any, today time.Time) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("unsupported value %v", v)
	}
	s = strings.ToLower(strings.TrimSpace(s))
	for _, layout := range dateLayout {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), nil
		}
	}
	if m := relDaysRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		base := dateOnly(today)
		switch m[2] {
		case "semana", "semanas", "week", "weeks":
			return base.AddDate(0, 0, 7*n), nil
		case "mes", "mês", "meses", "month", "months":
			return base.AddDate(0, n, 0), nil
		default:
			return base.AddDate(0, 0, n), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a date (expected YYYY-MM-DD)", s)
}

// CoerceBool accepts booleans, 0/1 and yes/no words in pt-BR and English.
func CoerceBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case float64:
		return t != 0, nil
	case int:
		return t != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "sim", "s", "yes", "y", "true", "1", "ok", "aceito", "concordo":
			return true, nil
		case "nao", "não", "n", "no", "false", "0":
			return false, nil
		}
		return false, fmt.Errorf("%q is not a yes/no answer", t)
	}
	return false, fmt.Errorf("unsupported value %v", v)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func limit(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

func stringSlice(v any) datatypes.JSONSlice[string] {
	out := datatypes.JSONSlice[string]{}
	switch t := v.(type) {
	case []any:
		for _, it := range t {
			if s := toString(it); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
