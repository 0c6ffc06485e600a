package hierarchy

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
)

const calendarSource = "study_context"

// CalendarWindow is the date range a calendar plan covers.
type CalendarWindow struct {
	Start     time.Time
	End       time.Time
	TotalDays int
	WeekCount int
}

// WindowFor derives the plan window from the profile dates. The end falls back
// to the deadline, then to the start, and is never before the start.
func WindowFor(profile *studyplan.UserProfile, today time.Time) CalendarWindow {
	start := dateOnly(today)
	if profile.StartDate != nil {
		start = dateOnly(*profile.StartDate)
	}
	end := start
	switch {
	case profile.EndDate != nil:
		end = dateOnly(*profile.EndDate)
	case profile.Deadline != nil:
		end = dateOnly(*profile.Deadline)
	}
	if end.Before(start) {
		end = start
	}
	days := int(end.Sub(start).Hours()/24) + 1
	return CalendarWindow{
		Start:     start,
		End:       end,
		TotalDays: days,
		WeekCount: max(1, (days+6)/7),
	}
}

// SyncCalendar builds or refreshes the deterministic plan skeleton of a
// profile: the latest plan is locked and updated, weeks are synced to 7-day
// windows and weeks past the window are pruned.
func (r *Repository) SyncCalendar(dbc dbctx.Context, profile *studyplan.UserProfile) (*studyplan.StudyPlan, error) {
	if profile == nil {
		return nil, fmt.Errorf("calendar outline: profile is required")
	}
	now := r.now()
	win := WindowFor(profile, now)
	title := firstNonEmpty(profile.PlanLabel, profile.Goal)
	summary := fmt.Sprintf("Plano base dinamico para %s", profile.Goal)

	var plan studyplan.StudyPlan
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		if err := lockProfile(tx, profile.ID); err != nil {
			return err
		}
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_profile_id = ?", profile.ID).
			Order("generated_at DESC").
			Limit(1).
			Find(&plan).Error
		if err != nil {
			return fmt.Errorf("lock latest plan: %w", err)
		}
		start, end := win.Start, win.End
		if plan.ID == uuid.Nil {
			plan = studyplan.StudyPlan{
				UserProfileID:    profile.ID,
				Title:            title,
				Summary:          summary,
				Status:           studyplan.PlanStatusDraft,
				StartDate:        &start,
				EndDate:          &end,
				TotalDays:        win.TotalDays,
				GenerationStatus: studyplan.GenerationSucceeded,
				Metadata: datatypes.NewJSONType(studyplan.PlanMeta{Calendar: &studyplan.CalendarMeta{
					GeneratedFrom: calendarSource,
					WeekCount:     win.WeekCount,
					LastSyncedAt:  now,
				}}),
			}
			if err := tx.Create(&plan).Error; err != nil {
				return fmt.Errorf("create plan: %w", err)
			}
		} else {
			meta := plan.Metadata.Data()
			if meta.Calendar == nil || meta.Calendar.WeekCount != win.WeekCount {
				meta.Calendar = &studyplan.CalendarMeta{GeneratedFrom: calendarSource, WeekCount: win.WeekCount, LastSyncedAt: now}
			}
			plan.Title = title
			plan.Summary = summary
			plan.StartDate = &start
			plan.EndDate = &end
			plan.TotalDays = win.TotalDays
			plan.Metadata = datatypes.NewJSONType(meta)
			if err := tx.Model(&plan).Select("title", "summary", "start_date", "end_date", "total_days", "metadata", "updated_at").Updates(&plan).Error; err != nil {
				return fmt.Errorf("update plan: %w", err)
			}
		}
		return syncWeeks(tx, plan.ID, win, profile.Goal, dateOnly(now))
	})
	if err != nil {
		return nil, err
	}
	r.log.Info("calendar outline synced", "plan_id", plan.ID, "weeks", win.WeekCount, "total_days", win.TotalDays)
	return &plan, nil
}

func syncWeeks(tx *gorm.DB, planID uuid.UUID, win CalendarWindow, goal string, today time.Time) error {
	var weeks []studyplan.StudyWeek
	if err := tx.Where("plan_id = ?", planID).Find(&weeks).Error; err != nil {
		return fmt.Errorf("load weeks: %w", err)
	}
	byIndex := make(map[int]*studyplan.StudyWeek, len(weeks))
	for i := range weeks {
		byIndex[weeks[i].WeekIndex] = &weeks[i]
	}

	keep := make([]uuid.UUID, 0, win.WeekCount)
	for idx := 1; idx <= win.WeekCount; idx++ {
		ws := win.Start.AddDate(0, 0, (idx-1)*7)
		we := ws.AddDate(0, 0, 6)
		if we.After(win.End) {
			we = win.End
		}
		title := fmt.Sprintf("Semana %d", idx)
		focus := weekFocus(goal, idx, win.WeekCount)
		started := !ws.After(today)

		week, ok := byIndex[idx]
		if !ok {
			status := studyplan.WeekStatusPending
			if started {
				status = studyplan.WeekStatusScheduled
			}
			week = &studyplan.StudyWeek{
				PlanID:    planID,
				WeekIndex: idx,
				Title:     title,
				Focus:     focus,
				StartDate: &ws,
				EndDate:   &we,
				Status:    status,
				Metadata:  datatypes.JSONMap{"generated_from": calendarSource},
			}
			if err := tx.Create(week).Error; err != nil {
				return fmt.Errorf("create week %d: %w", idx, err)
			}
		} else {
			week.Title = title
			week.Focus = focus
			week.StartDate = &ws
			week.EndDate = &we
			if week.Status == studyplan.WeekStatusPending && started {
				week.Status = studyplan.WeekStatusScheduled
			}
			if err := tx.Model(week).Select("title", "focus", "start_date", "end_date", "status", "updated_at").Updates(week).Error; err != nil {
				return fmt.Errorf("update week %d: %w", idx, err)
			}
		}
		keep = append(keep, week.ID)
	}

	if err := tx.Model(&studyplan.StudyDay{}).
		Where("plan_id = ? AND week_id IS NOT NULL AND week_id NOT IN ?", planID, keep).
		Update("week_id", nil).Error; err != nil {
		return fmt.Errorf("detach days: %w", err)
	}
	if err := tx.Where("plan_id = ? AND id NOT IN ?", planID, keep).Delete(&studyplan.StudyWeek{}).Error; err != nil {
		return fmt.Errorf("prune weeks: %w", err)
	}
	return nil
}

func weekFocus(goal string, idx, total int) string {
	if goal == "" {
		goal = "Estudos"
	}
	switch {
	case idx == 1:
		return fmt.Sprintf("Onboarding, diagnostico e planejamento inicial para %s.", goal)
	case idx == total:
		return fmt.Sprintf("Consolidacao e revisoes finais para %s.", goal)
	default:
		return fmt.Sprintf("Progresso estruturado rumo a %s (checkpoint %d/%d).", goal, idx, total)
	}
}

// RefreshWeekStatuses advances week statuses against today: a scheduled or
// pending week whose window contains today becomes active, an active week
// past its end becomes completed.
func (r *Repository) RefreshWeekStatuses(dbc dbctx.Context) (activated, completed int64, err error) {
	today := dateOnly(r.now())
	err = dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&studyplan.StudyWeek{}).
			Where("status IN ? AND start_date IS NOT NULL AND start_date <= ? AND (end_date IS NULL OR end_date >= ?)",
				[]string{studyplan.WeekStatusScheduled, studyplan.WeekStatusPending}, today, today).
			Update("status", studyplan.WeekStatusActive)
		if res.Error != nil {
			return fmt.Errorf("activate weeks: %w", res.Error)
		}
		activated = res.RowsAffected
		res = tx.Model(&studyplan.StudyWeek{}).
			Where("status = ? AND end_date IS NOT NULL AND end_date < ?", studyplan.WeekStatusActive, today).
			Update("status", studyplan.WeekStatusCompleted)
		if res.Error != nil {
			return fmt.Errorf("complete weeks: %w", res.Error)
		}
		completed = res.RowsAffected
		return nil
	})
	return activated, completed, err
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
