package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resumeghana/internal/resume"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func TestUsageStore(t *testing.T) {
	db := openTestDB(t)
	store := NewUsageStore(db)
	ctx := context.Background()

	empty, err := store.Summary(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, UsageSummary{}, empty)

	require.NoError(t, store.RecordUsage(ctx, 1, 120))
	require.NoError(t, store.RecordUsage(ctx, 1, 30))
	require.NoError(t, store.RecordUsage(ctx, 2, 999))

	got, err := store.Summary(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, UsageSummary{Requests: 2, TotalTokens: 150}, got)
}

func TestResumeSectionsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	in := resume.Input{
		Name:            "Esi Owusu",
		Role:            "Nurse",
		Skills:          "Triage, Patient care",
		Experience:      "Korle Bu (3 years)\nWard nurse",
		Education:       "UCC (2019)",
		CareerObjective: "Lead a ward team.",
		PhotoKey:        "photos/1/abc.png",
	}
	rows, err := SectionsFromInput(in)
	require.NoError(t, err)
	require.Len(t, rows, 6)

	user := User{Username: "esi"}
	require.NoError(t, db.Create(&user).Error)
	r := Resume{Title: in.Title(), TemplateName: "simple_ats", UserID: user.ID, Status: StatusDraft, Sections: rows}
	require.NoError(t, db.Create(&r).Error)

	var loaded Resume
	require.NoError(t, db.Preload("Sections").First(&loaded, r.ID).Error)
	assert.Len(t, loaded.Sections, 6)

	got, err := loaded.ToInput()
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestToInput_FallsBackToTitleAndPhotoColumn(t *testing.T) {
	r := Resume{
		Title:    "Resume - Nurse",
		PhotoKey: "photos/2/x.jpg",
		Sections: []ResumeSection{
			{SectionType: resume.SectionSkills, Content: []byte(`{"text":"Lesson planning"}`)},
			{SectionType: resume.SectionExperience},
		},
	}
	got, err := r.ToInput()
	require.NoError(t, err)
	assert.Equal(t, "Resume - Nurse", got.Name)
	assert.Equal(t, "Lesson planning", got.Skills)
	assert.Equal(t, "photos/2/x.jpg", got.PhotoKey)
}

func TestToInput_BadContent(t *testing.T) {
	r := Resume{Sections: []ResumeSection{{SectionType: resume.SectionSkills, Content: []byte(`[1,2]`)}}}
	_, err := r.ToInput()
	assert.Error(t, err)
}
