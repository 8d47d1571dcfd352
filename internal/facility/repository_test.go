package facility

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-facility/internal/equipment"
	"github.com/nerrad567/gray-logic-facility/internal/hours"
	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-facility/internal/thermostat"
	"github.com/nerrad567/gray-logic-facility/internal/timeutil"
	"github.com/nerrad567/gray-logic-facility/migrations"
)

// setupTestDB opens a migrated database with one site, "site-001".
func setupTestDB(t *testing.T) (*sql.DB, *SQLiteRepository) {
	t.Helper()

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "facility.db"), BusyTimeout: 5})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repo := NewSQLiteRepository(db.DB)
	lat, lon := 51.5, -0.12
	site := &Site{
		ID:                     "site-001",
		Name:                   "High Street",
		Timezone:               "Europe/London",
		Latitude:               &lat,
		Longitude:              &lon,
		LuxSensitivity:         3,
		EmployeePreOpenMinutes: 30,
		CustomerPreOpenMinutes: 10,
		PostCloseMinutes:       15,
	}
	if err := repo.CreateSite(context.Background(), site); err != nil {
		t.Fatalf("failed to create site: %v", err)
	}
	return db.DB, repo
}

func clock(s string) *timeutil.Clock { c := timeutil.MustParseClock(s); return &c }
func date(s string) *timeutil.Date  { d := timeutil.MustParseDate(s); return &d }
func boolp(b bool) *bool            { return &b }
func intp(i int) *int               { return &i }
func floatp(f float64) *float64     { return &f }
func strp(s string) *string         { return &s }

func TestGetSite(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	site, err := repo.GetSite(ctx, "site-001")
	if err != nil {
		t.Fatalf("GetSite: %v", err)
	}
	if site.Name != "High Street" || site.Timezone != "Europe/London" {
		t.Errorf("site = %+v", site)
	}
	if !site.HasCoordinates() || *site.Latitude != 51.5 {
		t.Errorf("coordinates = %v/%v", site.Latitude, site.Longitude)
	}
	if site.City != nil {
		t.Errorf("City = %v, want nil", *site.City)
	}
	if site.CreatedAt.IsZero() {
		t.Error("CreatedAt not parsed")
	}

	d := site.Defaults()
	if d.EmployeePreOpenMinutes != 30 || d.CustomerPreOpenMinutes != 10 || d.PostCloseMinutes != 15 || d.LuxSensitivity != 3 {
		t.Errorf("Defaults() = %+v", d)
	}

	if _, err := repo.GetSite(ctx, "missing"); !errors.Is(err, ErrSiteNotFound) {
		t.Errorf("GetSite(missing) err = %v, want ErrSiteNotFound", err)
	}
}

func TestCreateSite_Validation(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name string
		site Site
	}{
		{"missing name", Site{ID: "s", LuxSensitivity: 3}},
		{"lux out of range", Site{ID: "s", Name: "S", LuxSensitivity: 6}},
		{"latitude without longitude", Site{ID: "s", Name: "S", LuxSensitivity: 3, Latitude: floatp(10)}},
		{"latitude out of range", Site{ID: "s", Name: "S", LuxSensitivity: 3, Latitude: floatp(91), Longitude: floatp(0)}},
		{"negative offset", Site{ID: "s", Name: "S", LuxSensitivity: 3, PostCloseMinutes: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.site
			if err := repo.CreateSite(ctx, &s); !errors.Is(err, ErrInvalidSite) {
				t.Errorf("CreateSite err = %v, want ErrInvalidSite", err)
			}
		})
	}
}

func TestListSites(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	if err := repo.CreateSite(ctx, &Site{ID: "site-002", Name: "Airport", City: strp("Leeds"), LuxSensitivity: 2}); err != nil {
		t.Fatalf("CreateSite: %v", err)
	}

	sites, err := repo.ListSites(ctx)
	if err != nil {
		t.Fatalf("ListSites: %v", err)
	}
	if len(sites) != 2 || sites[0].ID != "site-002" || sites[1].ID != "site-001" {
		t.Fatalf("ListSites order = %+v", sites)
	}
	if sites[0].Timezone != "UTC" {
		t.Errorf("default timezone = %q, want UTC", sites[0].Timezone)
	}
	if sites[0].City == nil || *sites[0].City != "Leeds" || sites[0].HasCoordinates() {
		t.Errorf("site-002 = %+v", sites[0])
	}
}

func TestWeeklyHours(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	rows := []hours.WeeklyHours{
		{SiteID: "site-001", Weekday: time.Monday, Open: clock("08:00"), Close: clock("22:00")},
		{SiteID: "site-001", Weekday: time.Sunday, Closed: true, Open: clock("10:00")},
	}
	for _, wh := range rows {
		if err := repo.SetWeeklyHours(ctx, wh); err != nil {
			t.Fatalf("SetWeeklyHours: %v", err)
		}
	}
	// Replace Monday.
	if err := repo.SetWeeklyHours(ctx, hours.WeeklyHours{SiteID: "site-001", Weekday: time.Monday, Open: clock("07:30"), Close: clock("21:00")}); err != nil {
		t.Fatalf("SetWeeklyHours update: %v", err)
	}

	got, err := repo.ListWeeklyHours(ctx, "site-001")
	if err != nil {
		t.Fatalf("ListWeeklyHours: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Weekday != time.Sunday || !got[0].Closed || got[0].Open != nil {
		t.Errorf("Sunday = %+v, want closed with nil times", got[0])
	}
	if got[1].Weekday != time.Monday || got[1].Open.String() != "07:30" || got[1].Close.String() != "21:00" {
		t.Errorf("Monday = %+v", got[1])
	}
}

func TestExceptionRules_RoundTrip(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	rangeRule := &hours.ExceptionRule{
		ID:            "rule-refit",
		SiteID:        "site-001",
		Name:          "Refit week",
		Recurrence:    hours.DateRangeDaily{},
		EffectiveFrom: date("2026-03-10"),
		EffectiveTo:   date("2026-03-14"),
		Start:         &hours.DaySchedule{Open: clock("12:00")},
		End:           &hours.DaySchedule{Closed: boolp(true)},
	}
	if err := repo.CreateExceptionRule(ctx, rangeRule); err != nil {
		t.Fatalf("CreateExceptionRule(range): %v", err)
	}

	got, err := repo.ListExceptionRules(ctx, "site-001")
	if err != nil {
		t.Fatalf("ListExceptionRules: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	r := got[0]
	if r.Type() != hours.RuleDateRangeDaily || *r.EffectiveFrom != *date("2026-03-10") || *r.EffectiveTo != *date("2026-03-14") {
		t.Errorf("rule = %+v", r)
	}
	if r.Start == nil || r.Start.Open.String() != "12:00" || r.Start.Close != nil || r.Start.Closed != nil {
		t.Errorf("Start = %+v", r.Start)
	}
	if r.Middle != nil {
		t.Errorf("Middle = %+v, want nil", r.Middle)
	}
	if r.End == nil || r.End.Closed == nil || !*r.End.Closed {
		t.Errorf("End = %+v", r.End)
	}
	if !r.Schedule.IsEmpty() {
		t.Errorf("Schedule = %+v, want empty", r.Schedule)
	}
}

func TestExceptionRules_NewestFirst(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	rules := []*hours.ExceptionRule{
		{ID: "b-old", Name: "Boxing Day", Recurrence: hours.FixedYearly{Month: time.December, Day: 26},
			Schedule: hours.DaySchedule{Closed: boolp(true)}, CreatedAt: base},
		{ID: "z-new", Name: "Late opening", Recurrence: hours.NthWeekday{Weekday: time.Thursday, N: -1},
			Schedule: hours.DaySchedule{Close: clock("23:00")}, CreatedAt: base.Add(time.Hour)},
		{ID: "a-new", Name: "Stocktake", Recurrence: hours.SingleDate{Date: timeutil.MustParseDate("2026-06-01")},
			Schedule: hours.DaySchedule{Open: clock("10:00"), Closed: boolp(false)}, CreatedAt: base.Add(time.Hour)},
	}
	for _, r := range rules {
		r.SiteID = "site-001"
		if err := repo.CreateExceptionRule(ctx, r); err != nil {
			t.Fatalf("CreateExceptionRule(%s): %v", r.ID, err)
		}
	}

	got, err := repo.ListExceptionRules(ctx, "site-001")
	if err != nil {
		t.Fatalf("ListExceptionRules: %v", err)
	}
	want := []string{"a-new", "z-new", "b-old"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("rules[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
	if !got[0].CreatedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("CreatedAt = %v", got[0].CreatedAt)
	}
	if nw, ok := got[1].Recurrence.(hours.NthWeekday); !ok || nw.N != -1 || nw.Weekday != time.Thursday {
		t.Errorf("recurrence = %#v", got[1].Recurrence)
	}
	if got[0].Schedule.Closed == nil || *got[0].Schedule.Closed {
		t.Errorf("explicit open flag lost: %+v", got[0].Schedule)
	}
}

func TestCreateExceptionRule_Invalid(t *testing.T) {
	_, repo := setupTestDB(t)

	rule := &hours.ExceptionRule{ID: "bad", SiteID: "site-001", Name: "No bounds", Recurrence: hours.DateRangeDaily{}}
	if err := repo.CreateExceptionRule(context.Background(), rule); !errors.Is(err, hours.ErrInvalidRule) {
		t.Errorf("err = %v, want ErrInvalidRule", err)
	}
}

func TestEquipment(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	entries := []*equipment.Entry{
		{ID: "eq-2", SiteID: "site-001", Name: "Car park lights", Category: equipment.CategoryExteriorLux, LuxSensitivity: intp(4)},
		{ID: "eq-1", SiteID: "site-001", Name: "Sales floor", Category: equipment.CategoryStoreHours, OnOffset: intp(0), OffOffset: intp(-10)},
	}
	for _, e := range entries {
		if err := repo.CreateEquipment(ctx, e); err != nil {
			t.Fatalf("CreateEquipment(%s): %v", e.ID, err)
		}
	}

	got, err := repo.ListEquipment(ctx, "site-001")
	if err != nil {
		t.Fatalf("ListEquipment: %v", err)
	}
	if len(got) != 2 || got[0].ID != "eq-1" {
		t.Fatalf("ListEquipment = %+v", got)
	}
	// An explicit zero offset must survive as zero, not as "unset".
	if got[0].OnOffset == nil || *got[0].OnOffset != 0 || *got[0].OffOffset != -10 {
		t.Errorf("eq-1 offsets = %v/%v", got[0].OnOffset, got[0].OffOffset)
	}
	if got[1].OnOffset != nil || got[1].LuxSensitivity == nil || *got[1].LuxSensitivity != 4 {
		t.Errorf("eq-2 = %+v", got[1])
	}

	bad := &equipment.Entry{ID: "eq-3", SiteID: "site-001", Name: "X", Category: "sometimes"}
	if err := repo.CreateEquipment(ctx, bad); !errors.Is(err, ErrInvalidEquipment) {
		t.Errorf("CreateEquipment(bad category) err = %v", err)
	}
}

func TestZonesProfilesThermostats(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	profile := &thermostat.Profile{ID: "prof-1", Name: "Retail", OccupiedHeat: 68, OccupiedCool: 76,
		UnoccupiedHeat: 60, UnoccupiedCool: 85, FanMode: "auto"}
	if err := repo.CreateProfile(ctx, profile); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	zone := &thermostat.Zone{ID: "zone-1", SiteID: "site-001", Name: "Front", ProfileID: strp("prof-1"),
		GuardrailMin: floatp(45), GuardrailMax: floatp(95), OverrideOffsetUp: floatp(4), OverrideResetMinutes: intp(120)}
	if err := repo.CreateZone(ctx, zone); err != nil {
		t.Fatalf("CreateZone: %v", err)
	}
	devices := []*thermostat.Device{
		{ID: "tstat-1", SiteID: "site-001", Name: "Front stat", ZoneID: strp("zone-1")},
		{ID: "tstat-2", SiteID: "site-001", Name: "Spare stat"},
	}
	for _, d := range devices {
		if err := repo.CreateThermostat(ctx, d); err != nil {
			t.Fatalf("CreateThermostat(%s): %v", d.ID, err)
		}
	}

	p, err := repo.GetProfile(ctx, "prof-1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.OccupiedCool != 76 || p.FanMode != "auto" || p.HVACMode != "" {
		t.Errorf("profile = %+v", p)
	}
	if _, err := repo.GetProfile(ctx, "nope"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("GetProfile(nope) err = %v", err)
	}
	profiles, err := repo.ListProfiles(ctx)
	if err != nil || len(profiles) != 1 {
		t.Errorf("ListProfiles = %v, %v", profiles, err)
	}

	zones, err := repo.ListZones(ctx, "site-001")
	if err != nil {
		t.Fatalf("ListZones: %v", err)
	}
	if len(zones) != 1 {
		t.Fatalf("len(zones) = %d", len(zones))
	}
	z := zones[0]
	if z.IsOverride || *z.ProfileID != "prof-1" || *z.GuardrailMin != 45 || *z.OverrideOffsetUp != 4 {
		t.Errorf("zone = %+v", z)
	}
	if z.OverrideOffsetDown != nil || z.OccupiedHeat != nil || z.EquipmentID != nil {
		t.Errorf("unset zone fields came back set: %+v", z)
	}
	if z.OverrideResetMinutes == nil || *z.OverrideResetMinutes != 120 {
		t.Errorf("OverrideResetMinutes = %v", z.OverrideResetMinutes)
	}

	stats, err := repo.ListThermostats(ctx, "site-001")
	if err != nil {
		t.Fatalf("ListThermostats: %v", err)
	}
	if len(stats) != 2 || stats[0].ZoneID == nil || stats[1].ZoneID != nil {
		t.Errorf("thermostats = %+v", stats)
	}
}
