package service

import (
	"context"
	"time"

	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/entity"
)

// mockMissionRepo keeps missions in memory with compare-and-set semantics
// matching the SQL implementation
type mockMissionRepo struct {
	missions map[int64]*entity.Mission
	nextID   int64

	referenceExistsFunc func(ctx context.Context, reference string) (bool, error)
}

func newMockMissionRepo() *mockMissionRepo {
	return &mockMissionRepo{missions: make(map[int64]*entity.Mission), nextID: 1}
}

func (m *mockMissionRepo) put(mission *entity.Mission) *entity.Mission {
	if mission.ID == 0 {
		mission.ID = m.nextID
		m.nextID++
	}
	m.missions[mission.ID] = mission
	return mission
}

func (m *mockMissionRepo) Create(ctx context.Context, mission *entity.Mission) error {
	m.put(mission)
	return nil
}

func (m *mockMissionRepo) GetByID(ctx context.Context, id int64) (*entity.Mission, error) {
	mission, ok := m.missions[id]
	if !ok {
		return nil, nil
	}
	copy := *mission
	return &copy, nil
}

func (m *mockMissionRepo) GetByReference(ctx context.Context, reference string) (*entity.Mission, error) {
	for _, mission := range m.missions {
		if mission.Reference == reference {
			copy := *mission
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *mockMissionRepo) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	if m.referenceExistsFunc != nil {
		return m.referenceExistsFunc(ctx, reference)
	}
	mission, _ := m.GetByReference(ctx, reference)
	return mission != nil, nil
}

func (m *mockMissionRepo) List(ctx context.Context, institutionID int64, limit, offset int) ([]*entity.Mission, error) {
	var out []*entity.Mission
	for _, mission := range m.missions {
		if mission.InstitutionID == institutionID {
			copy := *mission
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (m *mockMissionRepo) UpdateStatusCAS(ctx context.Context, id int64, fromStatus, toStatus string, step int) (bool, error) {
	mission, ok := m.missions[id]
	if !ok || mission.Status != fromStatus {
		return false, nil
	}
	mission.Status = toStatus
	mission.CurrentStep = step
	return true, nil
}

func (m *mockMissionRepo) SetStageApproval(ctx context.Context, id int64, stage port.Stage, validatorID int64, at time.Time) error {
	return nil
}

func (m *mockMissionRepo) SetStageRejection(ctx context.Context, id int64, stage port.Stage, validatorID int64, reason string, at time.Time) error {
	return nil
}

func (m *mockMissionRepo) ClearStage(ctx context.Context, id int64, stage port.Stage) error {
	return nil
}

func (m *mockMissionRepo) SetLogistics(ctx context.Context, id int64, s *port.LogisticsSnapshot) error {
	return nil
}

func (m *mockMissionRepo) SetDocuments(ctx context.Context, id int64, reportURL, stampedURL string, uploadedBy int64, at time.Time) error {
	mission := m.missions[id]
	mission.ReportURL = reportURL
	mission.StampedOrdersURL = stampedURL
	mission.DocsUploadedBy = &uploadedBy
	mission.DocsUploadedAt = &at
	mission.DocsVerifiedBy = nil
	mission.DocsVerifiedAt = nil
	return nil
}

func (m *mockMissionRepo) SetDocumentVerification(ctx context.Context, id int64, verifiedBy int64, at time.Time) error {
	mission := m.missions[id]
	mission.DocsVerifiedBy = &verifiedBy
	mission.DocsVerifiedAt = &at
	return nil
}

type mockParticipantRepo struct {
	created []*entity.Participant

	createFunc func(ctx context.Context, p *entity.Participant) error
}

func (m *mockParticipantRepo) Create(ctx context.Context, p *entity.Participant) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, p)
	}
	p.ID = int64(len(m.created) + 1)
	m.created = append(m.created, p)
	return nil
}

func (m *mockParticipantRepo) GetByMissionID(ctx context.Context, missionID int64) ([]*entity.Participant, error) {
	var out []*entity.Participant
	for _, p := range m.created {
		if p.MissionID == missionID {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockVehicleRepo struct {
	vehicles map[int64]*entity.Vehicle

	acquireFunc   func(ctx context.Context, vehicleID, missionID int64) (bool, error)
	releaseCalled bool
}

func (m *mockVehicleRepo) GetByID(ctx context.Context, id int64) (*entity.Vehicle, error) {
	v, ok := m.vehicles[id]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (m *mockVehicleRepo) ListAvailable(ctx context.Context, institutionID int64) ([]*entity.Vehicle, error) {
	var out []*entity.Vehicle
	for _, v := range m.vehicles {
		if v.InstitutionID == institutionID && v.Available {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *mockVehicleRepo) AcquireForMission(ctx context.Context, vehicleID, missionID int64) (bool, error) {
	if m.acquireFunc != nil {
		return m.acquireFunc(ctx, vehicleID, missionID)
	}
	v, ok := m.vehicles[vehicleID]
	if !ok || !v.Available {
		return false, nil
	}
	v.Available = false
	v.MissionID = &missionID
	return true, nil
}

func (m *mockVehicleRepo) ReleaseByMission(ctx context.Context, missionID int64) error {
	m.releaseCalled = true
	for _, v := range m.vehicles {
		if v.MissionID != nil && *v.MissionID == missionID {
			v.Available = true
			v.MissionID = nil
		}
	}
	return nil
}

type mockDriverRepo struct {
	drivers map[int64]*entity.Driver

	acquireFunc   func(ctx context.Context, driverID, missionID int64) (bool, error)
	releaseCalled bool
}

func (m *mockDriverRepo) GetByID(ctx context.Context, id int64) (*entity.Driver, error) {
	d, ok := m.drivers[id]
	if !ok {
		return nil, nil
	}
	return d, nil
}

func (m *mockDriverRepo) ListAvailable(ctx context.Context, institutionID int64) ([]*entity.Driver, error) {
	var out []*entity.Driver
	for _, d := range m.drivers {
		if d.InstitutionID == institutionID && d.Available {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDriverRepo) AcquireForMission(ctx context.Context, driverID, missionID int64) (bool, error) {
	if m.acquireFunc != nil {
		return m.acquireFunc(ctx, driverID, missionID)
	}
	d, ok := m.drivers[driverID]
	if !ok || !d.Available {
		return false, nil
	}
	d.Available = false
	d.MissionID = &missionID
	return true, nil
}

func (m *mockDriverRepo) ReleaseByMission(ctx context.Context, missionID int64) error {
	m.releaseCalled = true
	for _, d := range m.drivers {
		if d.MissionID != nil && *d.MissionID == missionID {
			d.Available = true
			d.MissionID = nil
		}
	}
	return nil
}

type mockUserRepo struct {
	findFunc func(ctx context.Context, institutionID int64, roleCode string) ([]*entity.User, error)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return &entity.User{ID: id, InstitutionID: 1}, nil
}

func (m *mockUserRepo) FindByInstitutionRole(ctx context.Context, institutionID int64, roleCode string) ([]*entity.User, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, institutionID, roleCode)
	}
	return []*entity.User{{ID: 100, InstitutionID: institutionID, RoleCode: roleCode}}, nil
}

type mockNotificationRepo struct {
	created    []*entity.Notification
	sentIDs    []int64
	failedIDs  []int64
	failureMsg string
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	n.ID = int64(len(m.created) + 1)
	m.created = append(m.created, n)
	return nil
}

func (m *mockNotificationRepo) GetByMissionID(ctx context.Context, missionID int64) ([]*entity.Notification, error) {
	var out []*entity.Notification
	for _, n := range m.created {
		if n.MissionID == missionID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkSent(ctx context.Context, id int64) error {
	m.sentIDs = append(m.sentIDs, id)
	return nil
}

func (m *mockNotificationRepo) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	m.failedIDs = append(m.failedIDs, id)
	m.failureMsg = errorMsg
	return nil
}

type mockExternalDispatcher struct {
	dispatchFunc func(ctx context.Context, recipientID, missionID int64, notifType, title, message string) error
	calls        int
}

func (m *mockExternalDispatcher) Dispatch(ctx context.Context, recipientID, missionID int64, notifType, title, message string) error {
	m.calls++
	if m.dispatchFunc != nil {
		return m.dispatchFunc(ctx, recipientID, missionID, notifType, title, message)
	}
	return nil
}

type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockLogger struct {
	warns []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {}
func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {
	m.warns = append(m.warns, msg)
}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
