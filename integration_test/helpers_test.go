package integration

import (
	"context"
	"path/filepath"
	"testing"

	"reefops/internal/database"
	"reefops/internal/features"
	"reefops/internal/models"
	"reefops/internal/service"
	"reefops/pkg/objstore"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// env wires real services around a throwaway sqlite database, the way the
// binary does, minus the HTTP and websocket layers.
type env struct {
	db       *database.Database
	messages service.MessageService
	schedule service.ScheduleService
}

func newEnv(t *testing.T) (*env, context.Context) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.New(filepath.Join(dir, "reefops.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	files, err := objstore.NewFileStore(filepath.Join(dir, "attachments"), "/files")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	flags := features.FromConfig(models.FeatureConfig{MessageSearch: true})
	notifier := service.NewNotifier(logger, db, nil, models.EmailConfig{}, flags)

	return &env{
		db:       db,
		messages: service.NewMessageService(logger, db, db, files, notifier, flags),
		schedule: service.NewScheduleService(logger, db, db, notifier),
	}, context.Background()
}

func (e *env) seedUser(t *testing.T, ctx context.Context, id, name, role string) {
	t.Helper()
	require.NoError(t, e.db.UpsertUser(ctx, &models.User{
		ID:          id,
		DisplayName: name,
		Email:       id + "@shop.test",
		Role:        role,
	}))
}

func (e *env) seedTrip(t *testing.T, ctx context.Context, id, leaderID string, participants ...string) {
	t.Helper()
	require.NoError(t, e.db.SaveTrip(ctx, &models.Trip{
		ID:             id,
		Name:           "Wreck Weekend",
		LeaderID:       leaderID,
		ParticipantIDs: participants,
	}))
}

func (e *env) seedCourse(t *testing.T, ctx context.Context, id, instructorID string, students ...string) {
	t.Helper()
	require.NoError(t, e.db.SaveCourse(ctx, &models.Course{
		ID:           id,
		Name:         "Open Water",
		InstructorID: instructorID,
		StudentIDs:   students,
	}))
}

func (e *env) seedBuddies(t *testing.T, ctx context.Context, a, b string) {
	t.Helper()
	require.NoError(t, e.db.SaveBuddy(ctx, a, b))
}
