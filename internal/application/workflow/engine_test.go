package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lahah11/finale-anesp-sub000/internal/application/apperr"
	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/entity"
	domainwf "github.com/lahah11/finale-anesp-sub000/internal/domain/workflow"
)

// mockMissionRepo keeps a single mission in memory and applies the same
// compare-and-set semantics as the SQL implementation.
type mockMissionRepo struct {
	mission *entity.Mission

	updateStatusCASFunc func(ctx context.Context, id int64, fromStatus, toStatus string, step int) (bool, error)
}

func (m *mockMissionRepo) Create(ctx context.Context, mission *entity.Mission) error {
	mission.ID = 1
	m.mission = mission
	return nil
}

func (m *mockMissionRepo) GetByID(ctx context.Context, id int64) (*entity.Mission, error) {
	if m.mission == nil || m.mission.ID != id {
		return nil, nil
	}
	copy := *m.mission
	return &copy, nil
}

func (m *mockMissionRepo) GetByReference(ctx context.Context, reference string) (*entity.Mission, error) {
	if m.mission == nil || m.mission.Reference != reference {
		return nil, nil
	}
	copy := *m.mission
	return &copy, nil
}

func (m *mockMissionRepo) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	return m.mission != nil && m.mission.Reference == reference, nil
}

func (m *mockMissionRepo) List(ctx context.Context, institutionID int64, limit, offset int) ([]*entity.Mission, error) {
	if m.mission == nil {
		return nil, nil
	}
	copy := *m.mission
	return []*entity.Mission{&copy}, nil
}

func (m *mockMissionRepo) UpdateStatusCAS(ctx context.Context, id int64, fromStatus, toStatus string, step int) (bool, error) {
	if m.updateStatusCASFunc != nil {
		return m.updateStatusCASFunc(ctx, id, fromStatus, toStatus, step)
	}
	if m.mission == nil || m.mission.ID != id || m.mission.Status != fromStatus {
		return false, nil
	}
	m.mission.Status = toStatus
	m.mission.CurrentStep = step
	return true, nil
}

func (m *mockMissionRepo) SetStageApproval(ctx context.Context, id int64, stage port.Stage, validatorID int64, at time.Time) error {
	switch stage {
	case port.StageTechnical:
		m.mission.TechnicalValidatorID = &validatorID
		m.mission.TechnicalValidatedAt = &at
		m.mission.TechnicalReason = ""
	case port.StageLogistics:
		m.mission.LogisticsValidatorID = &validatorID
		m.mission.LogisticsValidatedAt = &at
	case port.StageFinance:
		m.mission.FinanceValidatorID = &validatorID
		m.mission.FinanceValidatedAt = &at
		m.mission.FinanceReason = ""
	case port.StageFinal:
		m.mission.FinalValidatorID = &validatorID
		m.mission.FinalValidatedAt = &at
		m.mission.FinalReason = ""
	}
	return nil
}

func (m *mockMissionRepo) SetStageRejection(ctx context.Context, id int64, stage port.Stage, validatorID int64, reason string, at time.Time) error {
	switch stage {
	case port.StageTechnical:
		m.mission.TechnicalValidatorID = &validatorID
		m.mission.TechnicalValidatedAt = &at
		m.mission.TechnicalReason = reason
	case port.StageFinance:
		m.mission.FinanceValidatorID = &validatorID
		m.mission.FinanceValidatedAt = &at
		m.mission.FinanceReason = reason
	case port.StageFinal:
		m.mission.FinalValidatorID = &validatorID
		m.mission.FinalValidatedAt = &at
		m.mission.FinalReason = reason
	}
	return nil
}

func (m *mockMissionRepo) ClearStage(ctx context.Context, id int64, stage port.Stage) error {
	switch stage {
	case port.StageTechnical:
		m.mission.TechnicalValidatorID = nil
		m.mission.TechnicalValidatedAt = nil
		m.mission.TechnicalReason = ""
	case port.StageLogistics:
		m.mission.LogisticsValidatorID = nil
		m.mission.LogisticsValidatedAt = nil
	case port.StageFinance:
		m.mission.FinanceValidatorID = nil
		m.mission.FinanceValidatedAt = nil
		m.mission.FinanceReason = ""
	case port.StageFinal:
		m.mission.FinalValidatorID = nil
		m.mission.FinalValidatedAt = nil
		m.mission.FinalReason = ""
	}
	return nil
}

func (m *mockMissionRepo) SetLogistics(ctx context.Context, id int64, s *port.LogisticsSnapshot) error {
	m.mission.VehicleID = s.VehicleID
	m.mission.VehiclePlate = s.VehiclePlate
	m.mission.VehicleModel = s.VehicleModel
	m.mission.VehicleBrand = s.VehicleBrand
	m.mission.DriverID = s.DriverID
	m.mission.DriverName = s.DriverName
	m.mission.DriverPhone = s.DriverPhone
	m.mission.DriverLicense = s.DriverLicense
	m.mission.TicketRef = s.TicketRef
	return nil
}

func (m *mockMissionRepo) SetDocuments(ctx context.Context, id int64, reportURL, stampedURL string, uploadedBy int64, at time.Time) error {
	m.mission.ReportURL = reportURL
	m.mission.StampedOrdersURL = stampedURL
	m.mission.DocsUploadedBy = &uploadedBy
	m.mission.DocsUploadedAt = &at
	m.mission.DocsVerifiedBy = nil
	m.mission.DocsVerifiedAt = nil
	return nil
}

func (m *mockMissionRepo) SetDocumentVerification(ctx context.Context, id int64, verifiedBy int64, at time.Time) error {
	m.mission.DocsVerifiedBy = &verifiedBy
	m.mission.DocsVerifiedAt = &at
	return nil
}

type mockVehicleRepo struct {
	acquireFunc    func(ctx context.Context, vehicleID, missionID int64) (bool, error)
	releaseCalled  bool
	releaseMission int64
}

func (m *mockVehicleRepo) GetByID(ctx context.Context, id int64) (*entity.Vehicle, error) {
	return &entity.Vehicle{ID: id, InstitutionID: 1, Plate: "0001 AB 00", Available: true}, nil
}

func (m *mockVehicleRepo) ListAvailable(ctx context.Context, institutionID int64) ([]*entity.Vehicle, error) {
	return nil, nil
}

func (m *mockVehicleRepo) AcquireForMission(ctx context.Context, vehicleID, missionID int64) (bool, error) {
	if m.acquireFunc != nil {
		return m.acquireFunc(ctx, vehicleID, missionID)
	}
	return true, nil
}

func (m *mockVehicleRepo) ReleaseByMission(ctx context.Context, missionID int64) error {
	m.releaseCalled = true
	m.releaseMission = missionID
	return nil
}

type mockDriverRepo struct {
	releaseCalled bool
}

func (m *mockDriverRepo) GetByID(ctx context.Context, id int64) (*entity.Driver, error) {
	return &entity.Driver{ID: id, InstitutionID: 1, FullName: "Moussa Kane", Available: true}, nil
}

func (m *mockDriverRepo) ListAvailable(ctx context.Context, institutionID int64) ([]*entity.Driver, error) {
	return nil, nil
}

func (m *mockDriverRepo) AcquireForMission(ctx context.Context, driverID, missionID int64) (bool, error) {
	return true, nil
}

func (m *mockDriverRepo) ReleaseByMission(ctx context.Context, missionID int64) error {
	m.releaseCalled = true
	return nil
}

// mockTxManager mimics rollback by restoring the mission snapshot when the
// transaction function fails
type mockTxManager struct {
	missions *mockMissionRepo
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	var before *entity.Mission
	if m.missions != nil && m.missions.mission != nil {
		copy := *m.missions.mission
		before = &copy
	}
	if err := fn(ctx); err != nil {
		if m.missions != nil {
			m.missions.mission = before
		}
		return err
	}
	return nil
}

type mockValidatorResolver struct {
	resolveFunc func(ctx context.Context, institutionID int64, roleCode string) (*entity.User, error)
}

func (m *mockValidatorResolver) ResolveNext(ctx context.Context, institutionID int64, roleCode string) (*entity.User, error) {
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, institutionID, roleCode)
	}
	return &entity.User{ID: 100, InstitutionID: institutionID, RoleCode: roleCode}, nil
}

type mockLogisticsResolver struct {
	assignFunc func(ctx context.Context, mission *entity.Mission, req port.LogisticsRequest) (*port.LogisticsSnapshot, error)
}

func (m *mockLogisticsResolver) Assign(ctx context.Context, mission *entity.Mission, req port.LogisticsRequest) (*port.LogisticsSnapshot, error) {
	if m.assignFunc != nil {
		return m.assignFunc(ctx, mission, req)
	}
	return &port.LogisticsSnapshot{}, nil
}

type engineFixture struct {
	engine   Engine
	missions *mockMissionRepo
	vehicles *mockVehicleRepo
	drivers  *mockDriverRepo
}

func newEngineFixture(mission *entity.Mission) *engineFixture {
	missions := &mockMissionRepo{mission: mission}
	vehicles := &mockVehicleRepo{}
	drivers := &mockDriverRepo{}

	engine := NewEngine(
		missions,
		vehicles,
		drivers,
		&mockTxManager{missions: missions},
		&mockValidatorResolver{},
		&mockLogisticsResolver{},
		zap.NewNop(),
	)

	return &engineFixture{engine: engine, missions: missions, vehicles: vehicles, drivers: drivers}
}

func pendingMission(status string) *entity.Mission {
	return &entity.Mission{
		ID:            1,
		Reference:     "MIS-2025-001",
		InstitutionID: 1,
		CreatedBy:     10,
		Objet:         "Supervision de chantier",
		TransportMode: entity.TransportModeCar,
		TransportType: entity.TransportTypeANESP,
		Status:        status,
		CurrentStep:   2,
	}
}

func TestEngine_FullApprovalChain(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(pendingMission("pending_technical"))

	result, err := f.engine.ValidateTechnical(ctx, 1, 20, "approve", "")
	if err != nil {
		t.Fatalf("ValidateTechnical() failed: %v", err)
	}
	if result.Mission.Status != "pending_logistics" || result.Mission.CurrentStep != 3 {
		t.Errorf("after technical approval: status=%s step=%d, want pending_logistics/3",
			result.Mission.Status, result.Mission.CurrentStep)
	}
	if result.Mission.TechnicalValidatorID == nil || *result.Mission.TechnicalValidatorID != 20 {
		t.Error("technical validator not recorded")
	}
	if result.NextValidator == nil {
		t.Error("next validator should be resolved after approval")
	}

	vehicleID := int64(5)
	driverID := int64(7)
	result, err = f.engine.AssignLogistics(ctx, 1, 21, port.LogisticsRequest{VehicleID: &vehicleID, DriverID: &driverID})
	if err != nil {
		t.Fatalf("AssignLogistics() failed: %v", err)
	}
	if result.Mission.Status != "pending_finance" || result.Mission.CurrentStep != 4 {
		t.Errorf("after logistics: status=%s step=%d, want pending_finance/4",
			result.Mission.Status, result.Mission.CurrentStep)
	}
	if result.Mission.LogisticsValidatorID == nil || *result.Mission.LogisticsValidatorID != 21 {
		t.Error("logistics validator not recorded")
	}

	result, err = f.engine.ValidateFinance(ctx, 1, 22, "approve", "")
	if err != nil {
		t.Fatalf("ValidateFinance() failed: %v", err)
	}
	if result.Mission.Status != "pending_dg" || result.Mission.CurrentStep != 5 {
		t.Errorf("after finance approval: status=%s step=%d, want pending_dg/5",
			result.Mission.Status, result.Mission.CurrentStep)
	}

	result, err = f.engine.ValidateFinal(ctx, 1, 23, "approve", "")
	if err != nil {
		t.Fatalf("ValidateFinal() failed: %v", err)
	}
	if result.Mission.Status != "validated" || result.Mission.CurrentStep != 6 {
		t.Errorf("after final approval: status=%s step=%d, want validated/6",
			result.Mission.Status, result.Mission.CurrentStep)
	}
	if result.NextValidator != nil {
		t.Error("final approval should have no next validator")
	}

	m := f.missions.mission
	if m.TechnicalValidatorID == nil || m.LogisticsValidatorID == nil ||
		m.FinanceValidatorID == nil || m.FinalValidatorID == nil {
		t.Error("every stage should carry its validator after the full chain")
	}
}

func TestEngine_RejectStages(t *testing.T) {
	tests := []struct {
		name   string
		status string
		reject func(f *engineFixture) (*TransitionResult, error)
		check  func(t *testing.T, m *entity.Mission)
	}{
		{
			name:   "technical rejection",
			status: "pending_technical",
			reject: func(f *engineFixture) (*TransitionResult, error) {
				return f.engine.ValidateTechnical(context.Background(), 1, 20, "reject", "budget insuffisant")
			},
			check: func(t *testing.T, m *entity.Mission) {
				if m.TechnicalReason != "budget insuffisant" {
					t.Errorf("TechnicalReason = %q", m.TechnicalReason)
				}
				if m.FinanceReason != "" || m.FinalReason != "" {
					t.Error("other stage reasons should stay empty")
				}
			},
		},
		{
			name:   "finance rejection",
			status: "pending_finance",
			reject: func(f *engineFixture) (*TransitionResult, error) {
				return f.engine.ValidateFinance(context.Background(), 1, 22, "reject", "coût excessif")
			},
			check: func(t *testing.T, m *entity.Mission) {
				if m.FinanceReason != "coût excessif" {
					t.Errorf("FinanceReason = %q", m.FinanceReason)
				}
			},
		},
		{
			name:   "final rejection",
			status: "pending_dg",
			reject: func(f *engineFixture) (*TransitionResult, error) {
				return f.engine.ValidateFinal(context.Background(), 1, 23, "reject", "mission reportée")
			},
			check: func(t *testing.T, m *entity.Mission) {
				if m.FinalReason != "mission reportée" {
					t.Errorf("FinalReason = %q", m.FinalReason)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(pendingMission(tt.status))

			result, err := tt.reject(f)
			if err != nil {
				t.Fatalf("rejection failed: %v", err)
			}

			if !result.Rejected {
				t.Error("result should be marked rejected")
			}
			if result.Mission.Status != "rejected" || result.Mission.CurrentStep != 1 {
				t.Errorf("status=%s step=%d, want rejected/1", result.Mission.Status, result.Mission.CurrentStep)
			}
			tt.check(t, f.missions.mission)
		})
	}
}

func TestEngine_RejectRequiresReason(t *testing.T) {
	f := newEngineFixture(pendingMission("pending_technical"))

	_, err := f.engine.ValidateTechnical(context.Background(), 1, 20, "reject", "   ")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if f.missions.mission.Status != "pending_technical" {
		t.Error("mission status should be unchanged")
	}
}

func TestEngine_UnknownAction(t *testing.T) {
	f := newEngineFixture(pendingMission("pending_technical"))

	_, err := f.engine.ValidateTechnical(context.Background(), 1, 20, "defer", "")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestEngine_StageStatusMismatch(t *testing.T) {
	f := newEngineFixture(pendingMission("pending_technical"))

	// Finance acting on a mission still in technical validation
	_, err := f.engine.ValidateFinance(context.Background(), 1, 22, "approve", "")
	if !errors.Is(err, apperr.ErrStateConflict) {
		t.Errorf("error = %v, want ErrStateConflict", err)
	}
}

func TestEngine_MissionNotFound(t *testing.T) {
	f := newEngineFixture(nil)

	_, err := f.engine.ValidateTechnical(context.Background(), 99, 20, "approve", "")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestEngine_ConcurrentUpdateDetected(t *testing.T) {
	f := newEngineFixture(pendingMission("pending_technical"))
	f.missions.updateStatusCASFunc = func(ctx context.Context, id int64, fromStatus, toStatus string, step int) (bool, error) {
		return false, nil
	}

	_, err := f.engine.ValidateTechnical(context.Background(), 1, 20, "approve", "")
	if !errors.Is(err, apperr.ErrStateConflict) {
		t.Errorf("error = %v, want ErrStateConflict", err)
	}
}

func TestEngine_AssignLogisticsFailureLeavesStatusUnchanged(t *testing.T) {
	f := newEngineFixture(pendingMission("pending_logistics"))

	failing := &mockLogisticsResolver{
		assignFunc: func(ctx context.Context, mission *entity.Mission, req port.LogisticsRequest) (*port.LogisticsSnapshot, error) {
			return nil, apperr.ErrResourceUnavailable
		},
	}
	engine := NewEngine(
		f.missions, f.vehicles, f.drivers,
		&mockTxManager{missions: f.missions},
		&mockValidatorResolver{},
		failing,
		zap.NewNop(),
	)

	_, err := engine.AssignLogistics(context.Background(), 1, 21, port.LogisticsRequest{})
	if !errors.Is(err, apperr.ErrResourceUnavailable) {
		t.Fatalf("error = %v, want ErrResourceUnavailable", err)
	}

	if f.missions.mission.Status != "pending_logistics" {
		t.Errorf("status = %s, want pending_logistics (failed assignment rolls back)", f.missions.mission.Status)
	}
}

func TestEngine_RejectAfterLogisticsReleasesResources(t *testing.T) {
	mission := pendingMission("pending_finance")
	vehicleID := int64(5)
	mission.VehicleID = &vehicleID
	f := newEngineFixture(mission)

	_, err := f.engine.ValidateFinance(context.Background(), 1, 22, "reject", "coût excessif")
	if err != nil {
		t.Fatalf("ValidateFinance() failed: %v", err)
	}

	if !f.vehicles.releaseCalled {
		t.Error("vehicles should be released on rejection after logistics")
	}
	if !f.drivers.releaseCalled {
		t.Error("drivers should be released on rejection after logistics")
	}
}

func TestEngine_Resubmit(t *testing.T) {
	mission := pendingMission("rejected")
	mission.CurrentStep = 1
	validatorID := int64(20)
	at := time.Now()
	mission.TechnicalValidatorID = &validatorID
	mission.TechnicalValidatedAt = &at
	financeValidator := int64(22)
	mission.FinanceValidatorID = &financeValidator
	mission.FinanceValidatedAt = &at
	mission.FinanceReason = "coût excessif"

	f := newEngineFixture(mission)

	result, err := f.engine.Resubmit(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Resubmit() failed: %v", err)
	}

	if result.Mission.Status != "pending_technical" || result.Mission.CurrentStep != 2 {
		t.Errorf("status=%s step=%d, want pending_technical/2", result.Mission.Status, result.Mission.CurrentStep)
	}

	m := f.missions.mission
	if m.FinanceValidatorID != nil || m.FinanceReason != "" {
		t.Error("rejecting stage record should be cleared on resubmission")
	}
	if m.TechnicalValidatorID == nil {
		t.Error("earlier approvals should survive resubmission")
	}
}

func TestEngine_ResubmitRequiresRejectedStatus(t *testing.T) {
	f := newEngineFixture(pendingMission("pending_technical"))

	_, err := f.engine.Resubmit(context.Background(), 1, 10)
	if !errors.Is(err, apperr.ErrStateConflict) {
		t.Errorf("error = %v, want ErrStateConflict", err)
	}
}

func TestEngine_LogisticsRejectNotAllowed(t *testing.T) {
	machine := BuildMissionStateMachine(domainwf.StatePendingLogistics)
	if machine.CanFire(domainwf.TriggerReject) {
		t.Error("logistics stage should have no reject transition")
	}
}
