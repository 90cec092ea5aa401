package persistence

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/KhuramC/EconomySim-sub000/internal/config"
	"github.com/KhuramC/EconomySim-sub000/internal/economy"
	"github.com/KhuramC/EconomySim-sub000/internal/engine"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func steppedModel(t *testing.T, weeks int) *engine.Model {
	t.Helper()
	m, err := engine.New(config.DefaultModelConfig(40, 10), 3)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	for i := 0; i < weeks; i++ {
		if err := m.Step(); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	return m
}

func TestSaveAndReadBack(t *testing.T) {
	db := openTestDB(t)
	m := steppedModel(t, 3)

	if err := db.SaveModel("alpha", m); err != nil {
		t.Fatalf("save: %v", err)
	}

	meta, err := db.Model("alpha")
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	if meta.Week != 3 || meta.Seed != 3 || meta.Population != 40 || meta.PoliciesJSON == "" {
		t.Fatalf("unexpected metadata %+v", meta)
	}

	rows, err := db.IndicatorRows("alpha")
	if err != nil {
		t.Fatalf("indicator rows: %v", err)
	}
	if len(rows) != 4 || rows[3] != m.History.Indicators[3] {
		t.Fatalf("indicator rows differ from history: %d rows", len(rows))
	}

	industries, err := db.IndustryRows("alpha")
	if err != nil {
		t.Fatalf("industry rows: %v", err)
	}
	if len(industries) != 4*economy.NumIndustries {
		t.Fatalf("expected %d industry rows, got %d", 4*economy.NumIndustries, len(industries))
	}
	if industries[len(industries)-1].Industry != economy.IndustryLuxury {
		t.Fatalf("industry type not restored: %v", industries[len(industries)-1].Industry)
	}

	demographics, err := db.DemographicRows("alpha")
	if err != nil || len(demographics) != 4*economy.NumDemographics {
		t.Fatalf("unexpected demographic rows %d (%v)", len(demographics), err)
	}
}

func TestSaveReplacesEarlierSave(t *testing.T) {
	db := openTestDB(t)
	m := steppedModel(t, 1)
	if err := db.SaveModel("alpha", m); err != nil {
		t.Fatal(err)
	}
	if err := m.Step(); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveModel("alpha", m); err != nil {
		t.Fatalf("second save: %v", err)
	}

	rows, err := db.IndicatorRows("alpha")
	if err != nil || len(rows) != 3 {
		t.Fatalf("expected 3 rows after resave, got %d (%v)", len(rows), err)
	}
	models, err := db.Models()
	if err != nil || len(models) != 1 {
		t.Fatalf("expected one archived model, got %d (%v)", len(models), err)
	}
}

func TestDeleteAndMissing(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveModel("alpha", steppedModel(t, 0)); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteModel("alpha"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Model("alpha"); !errors.Is(err, ErrNotArchived) {
		t.Fatalf("expected ErrNotArchived, got %v", err)
	}
	if err := db.DeleteModel("alpha"); !errors.Is(err, ErrNotArchived) {
		t.Fatalf("expected ErrNotArchived on second delete, got %v", err)
	}
	rows, err := db.IndicatorRows("alpha")
	if err != nil || len(rows) != 0 {
		t.Fatalf("rows survived delete: %d (%v)", len(rows), err)
	}
}

func TestIsBusy(t *testing.T) {
	if !isBusy(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Fatal("busy error not detected")
	}
	if isBusy(errors.New("no such table")) {
		t.Fatal("unrelated error treated as busy")
	}
}
