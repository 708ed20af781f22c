package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/entity"
	"github.com/lahah11/finale-anesp-sub000/pkg/database"
)

// newTestDB opens an in-memory database and applies the real migrations, so
// the repositories run against the schema the server uses.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, migrator.Run("../../../../migrations"))

	return db
}

func seedUser(t *testing.T, db *sql.DB, institutionID int64, roleCode, email string) int64 {
	t.Helper()

	result, err := db.Exec(
		`INSERT INTO users (institution_id, role_code, full_name, email) VALUES (?, ?, ?, ?)`,
		institutionID, roleCode, "Utilisateur "+roleCode, email)
	require.NoError(t, err)

	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

func newMission(reference string, createdBy int64) *entity.Mission {
	now := time.Now().UTC().Truncate(time.Second)
	return &entity.Mission{
		Reference:     reference,
		InstitutionID: 1,
		CreatedBy:     createdBy,
		Objet:         "Supervision des travaux à Nouadhibou",
		DepartureDate: now.AddDate(0, 0, 7),
		ReturnDate:    now.AddDate(0, 0, 10),
		TransportMode: entity.TransportModeCar,
		TransportType: entity.TransportTypeANESP,
		Status:        "pending_technical",
		CurrentStep:   2,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestMissionRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	logger := zap.NewNop()
	repo := NewMissionRepository(db, logger)
	ctx := context.Background()

	creatorID := seedUser(t, db, 1, "DT", "dt@anesp.mr")
	mission := newMission("MIS-2025-001", creatorID)

	require.NoError(t, repo.Create(ctx, mission))
	assert.NotZero(t, mission.ID)

	got, err := repo.GetByID(ctx, mission.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "MIS-2025-001", got.Reference)
	assert.Equal(t, "pending_technical", got.Status)
	assert.Equal(t, 2, got.CurrentStep)
	assert.Equal(t, entity.TransportTypeANESP, got.TransportType)
	assert.Nil(t, got.TechnicalValidatorID)

	byRef, err := repo.GetByReference(ctx, "MIS-2025-001")
	require.NoError(t, err)
	require.NotNil(t, byRef)
	assert.Equal(t, mission.ID, byRef.ID)

	exists, err := repo.ReferenceExists(ctx, "MIS-2025-001")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ReferenceExists(ctx, "MIS-2025-002")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMissionRepository_GetByIDNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewMissionRepository(db, zap.NewNop())

	got, err := repo.GetByID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMissionRepository_UpdateStatusCAS(t *testing.T) {
	db := newTestDB(t)
	repo := NewMissionRepository(db, zap.NewNop())
	ctx := context.Background()

	creatorID := seedUser(t, db, 1, "DT", "dt@anesp.mr")
	mission := newMission("MIS-2025-001", creatorID)
	require.NoError(t, repo.Create(ctx, mission))

	t.Run("moves when expected status matches", func(t *testing.T) {
		ok, err := repo.UpdateStatusCAS(ctx, mission.ID, "pending_technical", "pending_logistics", 3)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetByID(ctx, mission.ID)
		require.NoError(t, err)
		assert.Equal(t, "pending_logistics", got.Status)
		assert.Equal(t, 3, got.CurrentStep)
	})

	t.Run("stale writer touches zero rows", func(t *testing.T) {
		ok, err := repo.UpdateStatusCAS(ctx, mission.ID, "pending_technical", "rejected", 1)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := repo.GetByID(ctx, mission.ID)
		require.NoError(t, err)
		assert.Equal(t, "pending_logistics", got.Status)
	})
}

func TestMissionRepository_StageAudit(t *testing.T) {
	db := newTestDB(t)
	repo := NewMissionRepository(db, zap.NewNop())
	ctx := context.Background()

	creatorID := seedUser(t, db, 1, "DT", "dt@anesp.mr")
	validatorID := seedUser(t, db, 1, "DAF", "daf@anesp.mr")
	mission := newMission("MIS-2025-001", creatorID)
	require.NoError(t, repo.Create(ctx, mission))

	at := time.Now().UTC().Truncate(time.Second)

	t.Run("approval records validator and clears old reason", func(t *testing.T) {
		require.NoError(t, repo.SetStageApproval(ctx, mission.ID, port.StageTechnical, validatorID, at))

		got, err := repo.GetByID(ctx, mission.ID)
		require.NoError(t, err)
		require.NotNil(t, got.TechnicalValidatorID)
		assert.Equal(t, validatorID, *got.TechnicalValidatorID)
		assert.NotNil(t, got.TechnicalValidatedAt)
		assert.Empty(t, got.TechnicalReason)
	})

	t.Run("rejection records reason without touching other stages", func(t *testing.T) {
		require.NoError(t, repo.SetStageRejection(ctx, mission.ID, port.StageFinance, validatorID, "budget dépassé", at))

		got, err := repo.GetByID(ctx, mission.ID)
		require.NoError(t, err)
		assert.Equal(t, "budget dépassé", got.FinanceReason)
		require.NotNil(t, got.TechnicalValidatorID, "technical approval must survive")
	})

	t.Run("logistics stage has no rejection path", func(t *testing.T) {
		err := repo.SetStageRejection(ctx, mission.ID, port.StageLogistics, validatorID, "x", at)
		assert.Error(t, err)
	})

	t.Run("clear erases the stage audit", func(t *testing.T) {
		require.NoError(t, repo.ClearStage(ctx, mission.ID, port.StageFinance))

		got, err := repo.GetByID(ctx, mission.ID)
		require.NoError(t, err)
		assert.Nil(t, got.FinanceValidatorID)
		assert.Nil(t, got.FinanceValidatedAt)
		assert.Empty(t, got.FinanceReason)
	})
}

func TestMissionRepository_LogisticsSnapshot(t *testing.T) {
	db := newTestDB(t)
	repo := NewMissionRepository(db, zap.NewNop())
	ctx := context.Background()

	creatorID := seedUser(t, db, 1, "DT", "dt@anesp.mr")
	mission := newMission("MIS-2025-001", creatorID)
	require.NoError(t, repo.Create(ctx, mission))

	vehicleID, driverID := int64(5), int64(7)
	snapshot := &port.LogisticsSnapshot{
		VehicleID:     &vehicleID,
		VehiclePlate:  "0005 AB 00",
		VehicleModel:  "Hilux",
		VehicleBrand:  "Toyota",
		DriverID:      &driverID,
		DriverName:    "Moussa Kane",
		DriverPhone:   "22 33 44 55",
		DriverLicense: "PC-1234",
	}
	require.NoError(t, repo.SetLogistics(ctx, mission.ID, snapshot))

	got, err := repo.GetByID(ctx, mission.ID)
	require.NoError(t, err)
	require.NotNil(t, got.VehicleID)
	assert.Equal(t, vehicleID, *got.VehicleID)
	assert.Equal(t, "0005 AB 00", got.VehiclePlate)
	assert.Equal(t, "Moussa Kane", got.DriverName)
	assert.Empty(t, got.TicketRef)
}

func TestMissionRepository_Documents(t *testing.T) {
	db := newTestDB(t)
	repo := NewMissionRepository(db, zap.NewNop())
	ctx := context.Background()

	creatorID := seedUser(t, db, 1, "DT", "dt@anesp.mr")
	verifierID := seedUser(t, db, 1, "SG", "sg@anesp.mr")
	mission := newMission("MIS-2025-001", creatorID)
	require.NoError(t, repo.Create(ctx, mission))

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.SetDocuments(ctx, mission.ID, "/docs/rapport.pdf", "/docs/ordres.pdf", creatorID, at))
	require.NoError(t, repo.SetDocumentVerification(ctx, mission.ID, verifierID, at))

	// A re-upload replaces the documents and voids the previous verification.
	require.NoError(t, repo.SetDocuments(ctx, mission.ID, "/docs/rapport-v2.pdf", "/docs/ordres-v2.pdf", creatorID, at))

	got, err := repo.GetByID(ctx, mission.ID)
	require.NoError(t, err)
	assert.Equal(t, "/docs/rapport-v2.pdf", got.ReportURL)
	assert.Equal(t, "/docs/ordres-v2.pdf", got.StampedOrdersURL)
	require.NotNil(t, got.DocsUploadedBy)
	assert.Equal(t, creatorID, *got.DocsUploadedBy)
	assert.Nil(t, got.DocsVerifiedBy)
	assert.Nil(t, got.DocsVerifiedAt)
}

func TestMissionRepository_List(t *testing.T) {
	db := newTestDB(t)
	repo := NewMissionRepository(db, zap.NewNop())
	ctx := context.Background()

	creatorID := seedUser(t, db, 1, "DT", "dt@anesp.mr")
	for _, ref := range []string{"MIS-2025-001", "MIS-2025-002", "MIS-2025-003"} {
		require.NoError(t, repo.Create(ctx, newMission(ref, creatorID)))
	}
	other := newMission("MIS-2025-004", creatorID)
	other.InstitutionID = 2
	require.NoError(t, repo.Create(ctx, other))

	missions, err := repo.List(ctx, 1, 10, 0)
	require.NoError(t, err)
	assert.Len(t, missions, 3)

	page, err := repo.List(ctx, 1, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestVehicleRepository_AcquireAndRelease(t *testing.T) {
	db := newTestDB(t)
	vehicles := NewVehicleRepository(db, zap.NewNop())
	missions := NewMissionRepository(db, zap.NewNop())
	ctx := context.Background()

	creatorID := seedUser(t, db, 1, "DT", "dt@anesp.mr")
	mission := newMission("MIS-2025-001", creatorID)
	require.NoError(t, missions.Create(ctx, mission))

	result, err := db.Exec(
		`INSERT INTO vehicles (institution_id, plate, model, brand) VALUES (1, '0005 AB 00', 'Hilux', 'Toyota')`)
	require.NoError(t, err)
	vehicleID, _ := result.LastInsertId()

	t.Run("acquires an available vehicle", func(t *testing.T) {
		ok, err := vehicles.AcquireForMission(ctx, vehicleID, mission.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := vehicles.GetByID(ctx, vehicleID)
		require.NoError(t, err)
		assert.False(t, got.Available)
		require.NotNil(t, got.MissionID)
		assert.Equal(t, mission.ID, *got.MissionID)
	})

	t.Run("second acquisition loses", func(t *testing.T) {
		ok, err := vehicles.AcquireForMission(ctx, vehicleID, mission.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("held vehicle is not listed as available", func(t *testing.T) {
		available, err := vehicles.ListAvailable(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, available)
	})

	t.Run("release frees the vehicle", func(t *testing.T) {
		require.NoError(t, vehicles.ReleaseByMission(ctx, mission.ID))

		got, err := vehicles.GetByID(ctx, vehicleID)
		require.NoError(t, err)
		assert.True(t, got.Available)
		assert.Nil(t, got.MissionID)
	})
}

func TestDriverRepository_AcquireAndRelease(t *testing.T) {
	db := newTestDB(t)
	drivers := NewDriverRepository(db, zap.NewNop())
	missions := NewMissionRepository(db, zap.NewNop())
	ctx := context.Background()

	creatorID := seedUser(t, db, 1, "DT", "dt@anesp.mr")
	mission := newMission("MIS-2025-001", creatorID)
	require.NoError(t, missions.Create(ctx, mission))

	result, err := db.Exec(
		`INSERT INTO drivers (institution_id, full_name, phone, license) VALUES (1, 'Moussa Kane', '22 33 44 55', 'PC-1234')`)
	require.NoError(t, err)
	driverID, _ := result.LastInsertId()

	ok, err := drivers.AcquireForMission(ctx, driverID, mission.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = drivers.AcquireForMission(ctx, driverID, mission.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, drivers.ReleaseByMission(ctx, mission.ID))

	got, err := drivers.GetByID(ctx, driverID)
	require.NoError(t, err)
	assert.True(t, got.Available)

	available, err := drivers.ListAvailable(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, available, 1)
}

func TestParticipantRepository_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	participants := NewParticipantRepository(db, zap.NewNop())
	missions := NewMissionRepository(db, zap.NewNop())
	ctx := context.Background()

	creatorID := seedUser(t, db, 1, "DT", "dt@anesp.mr")
	mission := newMission("MIS-2025-001", creatorID)
	require.NoError(t, missions.Create(ctx, mission))

	chief := &entity.Participant{
		MissionID:     mission.ID,
		EmployeeID:    &creatorID,
		FullName:      "Aminata Sow",
		RoleInMission: entity.RoleChefDeMission,
		CreatedAt:     time.Now(),
	}
	require.NoError(t, participants.Create(ctx, chief))

	accountant := &entity.Participant{
		MissionID:     mission.ID,
		FullName:      "Omar Ba",
		NNI:           "1234567890",
		Ministry:      "Ministère des Finances",
		RoleInMission: "Comptable",
		CreatedAt:     time.Now(),
	}
	require.NoError(t, participants.Create(ctx, accountant))

	t.Run("lists participants by mission", func(t *testing.T) {
		got, err := participants.GetByMissionID(ctx, mission.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, entity.RoleChefDeMission, got[0].RoleInMission)
		assert.Equal(t, "Omar Ba", got[1].FullName)
	})

	t.Run("rejects duplicate role within a mission", func(t *testing.T) {
		dup := &entity.Participant{
			MissionID:     mission.ID,
			FullName:      "Deuxième Chef",
			RoleInMission: entity.RoleChefDeMission,
			CreatedAt:     time.Now(),
		}
		assert.Error(t, participants.Create(ctx, dup))
	})
}

func TestUserRepository_FindByInstitutionRole(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db, zap.NewNop())
	ctx := context.Background()

	first := seedUser(t, db, 1, "DAF", "daf1@anesp.mr")
	seedUser(t, db, 1, "DAF", "daf2@anesp.mr")
	seedUser(t, db, 2, "DAF", "daf@autre.mr")
	seedUser(t, db, 1, "DG", "dg@anesp.mr")

	got, err := users.FindByInstitutionRole(ctx, 1, "DAF")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0].ID)

	none, err := users.FindByInstitutionRole(ctx, 1, "MSGG")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNotificationRepository_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	notifications := NewNotificationRepository(db, zap.NewNop())
	missions := NewMissionRepository(db, zap.NewNop())
	ctx := context.Background()

	creatorID := seedUser(t, db, 1, "DT", "dt@anesp.mr")
	recipientID := seedUser(t, db, 1, "MSGG", "msgg@anesp.mr")
	mission := newMission("MIS-2025-001", creatorID)
	require.NoError(t, missions.Create(ctx, mission))

	record := &entity.Notification{
		RecipientID: recipientID,
		MissionID:   mission.ID,
		Type:        entity.NotificationTypeValidationRequest,
		Title:       "Mission à valider",
		Message:     "Une mission attend votre validation.",
		Status:      entity.NotificationStatusPending,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, notifications.Create(ctx, record))
	assert.NotZero(t, record.ID)

	require.NoError(t, notifications.MarkSent(ctx, record.ID))

	got, err := notifications.GetByMissionID(ctx, mission.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entity.NotificationStatusSent, got[0].Status)
	assert.NotNil(t, got[0].SentAt)

	require.NoError(t, notifications.MarkFailed(ctx, record.ID, "gateway unreachable"))

	got, err = notifications.GetByMissionID(ctx, mission.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.NotificationStatusFailed, got[0].Status)
	assert.Equal(t, "gateway unreachable", got[0].ErrorMessage)
}
