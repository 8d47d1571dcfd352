package facility

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nerrad567/gray-logic-facility/internal/hours"
)

// ListExceptionRules loads a site's rules with their sub-schedules.
func (r *SQLiteRepository) ListExceptionRules(ctx context.Context, siteID string) ([]hours.ExceptionRule, error) {
	const query = `SELECT id, site_id, name, rule_type, params,
		effective_from_date, effective_to_date, open_time, close_time, is_closed, created_at
		FROM exception_rules WHERE site_id = ?
		ORDER BY created_at DESC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("querying exception rules: %w", err)
	}
	defer rows.Close()

	var rules []hours.ExceptionRule
	index := make(map[string]int)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		index[rule.ID] = len(rules)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating exception rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, nil
	}

	if err := r.attachSubSchedules(ctx, siteID, rules, index); err != nil {
		return nil, err
	}
	return rules, nil
}

func scanRule(rows *sql.Rows) (hours.ExceptionRule, error) {
	var rule hours.ExceptionRule
	var ruleType, params, createdAt string
	var from, to, open, closeT sql.NullString
	var closed sql.NullBool
	if err := rows.Scan(&rule.ID, &rule.SiteID, &rule.Name, &ruleType, &params,
		&from, &to, &open, &closeT, &closed, &createdAt); err != nil {
		return rule, fmt.Errorf("scanning exception rule: %w", err)
	}

	rec, err := hours.DecodeRecurrence(hours.RuleType(ruleType), []byte(params))
	if err != nil {
		return rule, fmt.Errorf("exception rule %s: %w", rule.ID, err)
	}
	rule.Recurrence = rec

	if rule.EffectiveFrom, err = datePtr(from); err != nil {
		return rule, fmt.Errorf("exception rule %s effective_from_date: %w", rule.ID, err)
	}
	if rule.EffectiveTo, err = datePtr(to); err != nil {
		return rule, fmt.Errorf("exception rule %s effective_to_date: %w", rule.ID, err)
	}
	if rule.Schedule, err = daySchedule(open, closeT, closed); err != nil {
		return rule, fmt.Errorf("exception rule %s: %w", rule.ID, err)
	}
	rule.CreatedAt = parseTime(createdAt)
	return rule, nil
}

// attachSubSchedules fills Start/Middle/End for the rules in one query.
func (r *SQLiteRepository) attachSubSchedules(ctx context.Context, siteID string, rules []hours.ExceptionRule, index map[string]int) error {
	const query = `SELECT s.rule_id, s.part, s.open_time, s.close_time, s.is_closed
		FROM exception_sub_schedules s
		JOIN exception_rules r ON r.id = s.rule_id
		WHERE r.site_id = ?`
	rows, err := r.db.QueryContext(ctx, query, siteID)
	if err != nil {
		return fmt.Errorf("querying sub-schedules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ruleID, part string
		var open, closeT sql.NullString
		var closed sql.NullBool
		if err := rows.Scan(&ruleID, &part, &open, &closeT, &closed); err != nil {
			return fmt.Errorf("scanning sub-schedule: %w", err)
		}
		i, ok := index[ruleID]
		if !ok {
			continue
		}
		sched, err := daySchedule(open, closeT, closed)
		if err != nil {
			return fmt.Errorf("sub-schedule %s/%s: %w", ruleID, part, err)
		}
		switch hours.SchedulePart(part) {
		case hours.PartStart:
			rules[i].Start = &sched
		case hours.PartMiddle:
			rules[i].Middle = &sched
		case hours.PartEnd:
			rules[i].End = &sched
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating sub-schedules: %w", err)
	}
	return nil
}

// CreateExceptionRule validates and inserts a rule and its sub-schedules
// in one transaction. A zero CreatedAt is left to the column default.
func (r *SQLiteRepository) CreateExceptionRule(ctx context.Context, rule *hours.ExceptionRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	params, err := hours.EncodeRecurrence(rule.Recurrence)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	createdAt := sql.NullString{}
	if !rule.CreatedAt.IsZero() {
		createdAt = sql.NullString{String: formatTime(rule.CreatedAt), Valid: true}
	}

	const query = `INSERT INTO exception_rules (id, site_id, name, rule_type, params,
		effective_from_date, effective_to_date, open_time, close_time, is_closed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			COALESCE(?, strftime('%Y-%m-%dT%H:%M:%SZ', 'now')))`
	_, err = tx.ExecContext(ctx, query,
		rule.ID, rule.SiteID, rule.Name, string(rule.Type()), string(params),
		nullDate(rule.EffectiveFrom), nullDate(rule.EffectiveTo),
		nullClock(rule.Schedule.Open), nullClock(rule.Schedule.Close), nullBool(rule.Schedule.Closed),
		createdAt)
	if err != nil {
		return fmt.Errorf("inserting exception rule %s: %w", rule.ID, err)
	}

	subs := []struct {
		part  hours.SchedulePart
		sched *hours.DaySchedule
	}{
		{hours.PartStart, rule.Start},
		{hours.PartMiddle, rule.Middle},
		{hours.PartEnd, rule.End},
	}
	for _, s := range subs {
		if s.sched == nil {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO exception_sub_schedules (rule_id, part, open_time, close_time, is_closed)
			VALUES (?, ?, ?, ?, ?)`,
			rule.ID, string(s.part),
			nullClock(s.sched.Open), nullClock(s.sched.Close), nullBool(s.sched.Closed))
		if err != nil {
			return fmt.Errorf("inserting %s sub-schedule for rule %s: %w", s.part, rule.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing exception rule %s: %w", rule.ID, err)
	}
	return nil
}
